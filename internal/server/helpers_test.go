package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tyrowin/gochat-presence/internal/auth"
	"github.com/Tyrowin/gochat-presence/internal/users"
)

const testSecret = "test-secret-key"

func newTestTokens(t *testing.T) *auth.Service {
	t.Helper()
	tokens, err := auth.NewService(auth.Config{Secret: []byte(testSecret)})
	require.NoError(t, err)
	return tokens
}

// newTestServer builds a Server on an in-memory store. The hub is not
// started; HTTP-only tests do not need it.
func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	cfg := NewConfig()
	cfg.JWTSecret = testSecret
	cfg.CookieSecure = false
	cfg.AuthRateLimit.Burst = 1000
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(*cfg, Deps{
		Store:  users.NewMemoryStore(bcrypt.MinCost),
		Tokens: newTestTokens(t),
	})
	require.NoError(t, err)
	return srv
}

// startLiveServer serves srv over a real listener with its hub running. The
// listener's own origin is allow-listed.
func startLiveServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()

	ts := httptest.NewUnstartedServer(http.NotFoundHandler())
	origin := "http://" + ts.Listener.Addr().String()

	srv := newTestServer(t, func(cfg *Config) {
		cfg.AllowedOrigins = []string{origin}
		if mutate != nil {
			mutate(cfg)
		}
	})
	ts.Config.Handler = srv.Routes()
	ts.Start()
	srv.StartHub()

	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Hub().Shutdown(2 * time.Second) })
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// dialWS opens a WebSocket with the test server's origin and, when token is
// non-empty, a token cookie.
func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	conn, resp, err := dialWSWithHeader(ts, token, ts.URL)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialWSWithHeader(ts *httptest.Server, token, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	if token != "" {
		header.Set("Cookie", TokenCookieName+"="+token)
	}
	return dialer.Dial(wsURL(ts), header)
}

// readFrame returns the next text frame or fails the test after two seconds.
func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	return data
}

func readRoster(t *testing.T, conn *websocket.Conn) Roster {
	t.Helper()

	var roster Roster
	require.NoError(t, json.Unmarshal(readFrame(t, conn), &roster))
	return roster
}

// receive pulls the next payload from a detached client's queue.
func receive(t *testing.T, c *Client) string {
	t.Helper()

	select {
	case msg, ok := <-c.GetSendChan():
		require.True(t, ok, "send channel closed")
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == TokenCookieName {
			return c
		}
	}
	return nil
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}
