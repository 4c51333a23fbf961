package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/pkg/response"
)

// SessionHandler exposes session lifecycle endpoints.
type SessionHandler struct {
	store *store.SessionStore
}

// NewSessionHandler constructs a handler once dependencies are supplied.
func NewSessionHandler(sessions *store.SessionStore) *SessionHandler {
	return &SessionHandler{store: sessions}
}

type createSessionRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	SessionID string  `json:"session_id" validate:"omitempty,max=64"`
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var payload createSessionRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	session, err := h.store.Create(store.CreateSessionInput{
		Name:      payload.Name,
		SessionID: payload.SessionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// GET /api/sessions/:session_id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.store.Get(c.Param("session_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// GET /api/sessions
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.store.List()
	response.SuccessWithMeta(c, http.StatusOK, sessions, &response.Meta{Total: len(sessions)})
}
