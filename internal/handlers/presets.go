package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablecast/tablecast/internal/models"
	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/pkg/response"
)

// PresetHandler manages the reusable token templates attached to a session.
type PresetHandler struct {
	store *store.SessionStore
}

func NewPresetHandler(sessions *store.SessionStore) *PresetHandler {
	return &PresetHandler{store: sessions}
}

type createPresetRequest struct {
	Name  string             `json:"name" validate:"required,max=120"`
	Kind  string             `json:"kind" validate:"omitempty,oneof=pc npc prop"`
	Color string             `json:"color" validate:"omitempty,max=32"`
	Notes *string            `json:"notes" validate:"omitempty,max=2000"`
	Stats *tokenStatsPayload `json:"stats"`
}

// POST /api/sessions/:session_id/presets
func (h *PresetHandler) Create(c *gin.Context) {
	var payload createPresetRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	_, session, err := h.store.AddPreset(c.Param("session_id"), store.PresetCreateInput{
		Name:  payload.Name,
		Kind:  models.TokenKind(payload.Kind),
		Color: payload.Color,
		Notes: payload.Notes,
		Stats: statsFromPayload(payload.Stats),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

type updatePresetRequest struct {
	Name  *string            `json:"name" validate:"omitempty,max=120"`
	Kind  *string            `json:"kind" validate:"omitempty,oneof=pc npc prop"`
	Color *string            `json:"color" validate:"omitempty,max=32"`
	Notes *string            `json:"notes" validate:"omitempty,max=2000"`
	Stats *tokenStatsPayload `json:"stats"`
}

// PUT /api/sessions/:session_id/presets/:preset_id
func (h *PresetHandler) Update(c *gin.Context) {
	var payload updatePresetRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	input := store.PresetUpdateInput{
		Name:  payload.Name,
		Color: payload.Color,
		Notes: payload.Notes,
		Stats: statsPatchFromPayload(payload.Stats),
	}
	if payload.Kind != nil {
		kind := models.TokenKind(*payload.Kind)
		input.Kind = &kind
	}

	_, session, err := h.store.UpdatePreset(c.Param("session_id"), c.Param("preset_id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// DELETE /api/sessions/:session_id/presets/:preset_id
func (h *PresetHandler) Delete(c *gin.Context) {
	session, err := h.store.DeletePreset(c.Param("session_id"), c.Param("preset_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}
