package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"solitaire-ledger/internal/auth"
	"solitaire-ledger/internal/ledger"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var ready map[string]any
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, "ready", ready["type"])
	return conn
}

func TestWebSocketPingPong(t *testing.T) {
	r, _, tokenCfg := newTestRouter(t, ledger.Options{})
	tok, err := auth.CreateToken("user-1", tokenCfg)
	require.NoError(t, err)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv, tok)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))

	var resp map[string]any
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "pong", resp["type"])
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	r, _, _ := newTestRouter(t, ledger.Options{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketReceivesOwnGameEvents(t *testing.T) {
	r, _, _ := newTestRouter(t, ledger.Options{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	p := newTestPlayer(t)
	token := login(t, r, p)
	conn := dialWS(t, srv, token)

	w := doJSON(r, http.MethodPost, "/v1/games", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(r, http.MethodPost, "/v1/games/1/moves", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var types []string
	for len(types) < 2 {
		var msg struct {
			Type  string       `json:"type"`
			Event ledger.Event `json:"event"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "event", msg.Type)
		require.Equal(t, p.identity, msg.Event.Attributes["player"])
		types = append(types, msg.Event.Type)
	}
	require.Equal(t, []string{"gameStarted", "moveRecorded"}, types)
}
