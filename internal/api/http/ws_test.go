package http

import (
	"bytes"
	"encoding/json"
	"net"
	nethttp "net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/events"
)

func listen(t *testing.T, s *testServer) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.app.Listener(ln) }()
	t.Cleanup(func() { _ = s.app.ShutdownWithTimeout(time.Second) })
	return ln.Addr().String()
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebsocket_TicketCreatedReachesEveryConnection(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := newTestServerWithLogger(t, zap.New(core))
	token := s.discordToken(t, "u1", false)
	addr := listen(t, s)

	first := dialWS(t, addr)
	second := dialWS(t, addr)
	require.NoError(t, first.WriteJSON(map[string]string{"type": "auth", "userId": "u1"}))
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte("not json")))

	require.Eventually(t, func() bool {
		return s.hub.Len() == 2 && logs.FilterMessage("ws client authenticated").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	authenticated := logs.FilterMessage("ws client authenticated").All()[0]
	assert.Equal(t, "u1", authenticated.ContextMap()["user_id"])

	raw, err := json.Marshal(newTicket)
	require.NoError(t, err)
	req, err := nethttp.NewRequest(fiber.MethodPost, "http://"+addr+"/api/tickets", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := nethttp.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env events.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, events.EventTicketCreated, env.Type)
	}

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}
