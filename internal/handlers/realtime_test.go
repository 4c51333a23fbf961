package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/tablecast/tablecast/internal/realtime"
	"github.com/tablecast/tablecast/internal/store"
)

type stateFrame struct {
	Type    string `json:"type"`
	Payload struct {
		ID     string            `json:"id"`
		Tokens []json.RawMessage `json:"tokens"`
	} `json:"payload"`
}

func newRealtimeServer(t *testing.T) (*httptest.Server, *store.SessionStore) {
	t.Helper()

	hub := realtime.NewHub()
	sessions := store.New(store.WithBroadcaster(hub))

	router := gin.New()
	router.GET("/ws/:session_id", NewRealtimeHandler(sessions, hub).Stream)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, sessions
}

func dialSession(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStateFrame(t *testing.T, conn *websocket.Conn) stateFrame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame stateFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestStreamDeliversInitialAndCommittedStates(t *testing.T) {
	server, sessions := newRealtimeServer(t)

	session, err := sessions.Create(store.CreateSessionInput{SessionID: "CAFE01"})
	require.NoError(t, err)

	conn := dialSession(t, server, strings.ToLower(session.ID))

	initial := readStateFrame(t, conn)
	require.Equal(t, "state", initial.Type)
	require.Equal(t, "CAFE01", initial.Payload.ID)
	require.Empty(t, initial.Payload.Tokens)

	_, _, err = sessions.AddToken("CAFE01", store.TokenCreateInput{Name: "Rook"})
	require.NoError(t, err)

	next := readStateFrame(t, conn)
	require.Equal(t, "state", next.Type)
	require.Len(t, next.Payload.Tokens, 1)
}

func TestStreamRejectsUnknownSession(t *testing.T) {
	server, _ := newRealtimeServer(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/ZZZZZZ"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, realtime.CloseSessionNotFound))
}

func TestStreamAnswersKeepaliveProbe(t *testing.T) {
	server, sessions := newRealtimeServer(t)

	_, err := sessions.Create(store.CreateSessionInput{SessionID: "CAFE02"})
	require.NoError(t, err)

	conn := dialSession(t, server, "CAFE02")
	readStateFrame(t, conn) // initial snapshot

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "pong", string(raw))
}

func TestStreamHandlerUsesHTTPUpgrade(t *testing.T) {
	server, sessions := newRealtimeServer(t)

	_, err := sessions.Create(store.CreateSessionInput{SessionID: "CAFE03"})
	require.NoError(t, err)

	// A plain GET without upgrade headers must not hang the handler.
	resp, err := http.Get(server.URL + "/ws/CAFE03")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
