package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/internal/uploads"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *store.SessionStore) {
	t.Helper()

	sessions := store.New()
	storage, err := uploads.NewStorage(t.TempDir())
	require.NoError(t, err)

	sessionHandler := NewSessionHandler(sessions)
	mapHandler := NewMapHandler(sessions, storage, "", 8<<20)
	tokenHandler := NewTokenHandler(sessions)
	presetHandler := NewPresetHandler(sessions)

	router := gin.New()
	router.GET("/health", Health())

	api := router.Group("/api")
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions", sessionHandler.List)
	api.GET("/sessions/:session_id", sessionHandler.Get)

	session := api.Group("/sessions/:session_id")
	session.POST("/map/url", mapHandler.SetURL)
	session.POST("/map/upload", mapHandler.Upload)
	session.POST("/warp", mapHandler.SetWarp)
	session.POST("/view", mapHandler.SetView)
	session.POST("/map/grid", mapHandler.SetGridSize)
	session.POST("/tokens", tokenHandler.Create)
	session.POST("/tokens/order", tokenHandler.SetOrder)
	session.PUT("/tokens/:token_id", tokenHandler.Update)
	session.DELETE("/tokens/:token_id", tokenHandler.Delete)
	session.POST("/presets", presetHandler.Create)
	session.PUT("/presets/:preset_id", presetHandler.Update)
	session.DELETE("/presets/:preset_id", presetHandler.Delete)

	return router, sessions
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

func decodeSession(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	envelope := decodeEnvelope(t, recorder)
	require.True(t, envelope.Success)

	var session map[string]any
	require.NoError(t, json.Unmarshal(envelope.Data, &session))
	return session
}

func createTestSession(t *testing.T, router *gin.Engine) string {
	t.Helper()

	recorder := performJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"name": "Test Table"})
	require.Equal(t, http.StatusCreated, recorder.Code)

	session := decodeSession(t, recorder)
	id, ok := session["id"].(string)
	require.True(t, ok)
	require.Len(t, id, 6)
	return id
}
