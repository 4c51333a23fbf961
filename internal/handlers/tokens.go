package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablecast/tablecast/internal/models"
	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/pkg/response"
)

// TokenHandler exposes token lifecycle and ordering endpoints.
type TokenHandler struct {
	store *store.SessionStore
}

// NewTokenHandler constructs a handler once dependencies are supplied.
func NewTokenHandler(sessions *store.SessionStore) *TokenHandler {
	return &TokenHandler{store: sessions}
}

type tokenStatsPayload struct {
	HP         *int           `json:"hp"`
	MaxHP      *int           `json:"max_hp"`
	Initiative *float64       `json:"initiative"`
	SpellSlots map[string]int `json:"spell_slots" validate:"omitempty,dive,gte=0"`
}

type createTokenRequest struct {
	Name    string             `json:"name" validate:"required,max=120"`
	Kind    string             `json:"kind" validate:"omitempty,oneof=pc npc prop"`
	Color   string             `json:"color" validate:"omitempty,max=32"`
	X       *float64           `json:"x"`
	Y       *float64           `json:"y"`
	Visible *bool              `json:"visible"`
	Notes   *string            `json:"notes" validate:"omitempty,max=2000"`
	Stats   *tokenStatsPayload `json:"stats"`
}

// POST /api/sessions/:session_id/tokens
func (h *TokenHandler) Create(c *gin.Context) {
	var payload createTokenRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	_, session, err := h.store.AddToken(c.Param("session_id"), store.TokenCreateInput{
		Name:    payload.Name,
		Kind:    models.TokenKind(payload.Kind),
		Color:   payload.Color,
		X:       payload.X,
		Y:       payload.Y,
		Visible: payload.Visible,
		Notes:   payload.Notes,
		Stats:   statsFromPayload(payload.Stats),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

type updateTokenRequest struct {
	Name    *string            `json:"name" validate:"omitempty,max=120"`
	Kind    *string            `json:"kind" validate:"omitempty,oneof=pc npc prop"`
	Color   *string            `json:"color" validate:"omitempty,max=32"`
	X       *float64           `json:"x"`
	Y       *float64           `json:"y"`
	Visible *bool              `json:"visible"`
	Notes   *string            `json:"notes" validate:"omitempty,max=2000"`
	Stats   *tokenStatsPayload `json:"stats"`
}

// PUT /api/sessions/:session_id/tokens/:token_id
func (h *TokenHandler) Update(c *gin.Context) {
	var payload updateTokenRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	input := store.TokenUpdateInput{
		Name:    payload.Name,
		Color:   payload.Color,
		X:       payload.X,
		Y:       payload.Y,
		Visible: payload.Visible,
		Notes:   payload.Notes,
		Stats:   statsPatchFromPayload(payload.Stats),
	}
	if payload.Kind != nil {
		kind := models.TokenKind(*payload.Kind)
		input.Kind = &kind
	}

	_, session, err := h.store.UpdateToken(c.Param("session_id"), c.Param("token_id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// DELETE /api/sessions/:session_id/tokens/:token_id
func (h *TokenHandler) Delete(c *gin.Context) {
	session, err := h.store.DeleteToken(c.Param("session_id"), c.Param("token_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

type tokenOrderRequest struct {
	Order []string `json:"order" validate:"required"`
}

// POST /api/sessions/:session_id/tokens/order
func (h *TokenHandler) SetOrder(c *gin.Context) {
	var payload tokenOrderRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	session, err := h.store.SetTokenOrder(c.Param("session_id"), payload.Order)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

func statsFromPayload(p *tokenStatsPayload) models.TokenStats {
	if p == nil {
		return models.TokenStats{}
	}
	return models.TokenStats{
		HP:         p.HP,
		MaxHP:      p.MaxHP,
		Initiative: p.Initiative,
		SpellSlots: p.SpellSlots,
	}
}

func statsPatchFromPayload(p *tokenStatsPayload) *store.StatsPatch {
	if p == nil {
		return nil
	}
	return &store.StatsPatch{
		HP:         p.HP,
		MaxHP:      p.MaxHP,
		Initiative: p.Initiative,
		SpellSlots: p.SpellSlots,
	}
}
