package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/metrics"
	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/mossy-p/room-signaling/internal/presence"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	hub     *presence.Hub
	clients *Clients
	metrics *metrics.Metrics
	router  *gin.Engine
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:    "test",
		AllowedOrigins: []string{"*"},
		JWTSecret:      testSecret,
		Operator:       config.OperatorConfig{Username: "admin", Password: "hunter2"},
		WebSocket: config.WebSocketConfig{
			SendBuffer:      64,
			MaxMessageBytes: 64 * 1024,
			PongWait:        time.Minute,
			PingPeriod:      50 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, tunnel PublicURLSource) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	clients := NewClients(m, log)
	hub := presence.NewHub(clients, log, presence.WithObserver(m))
	router := NewRouter(RouterDeps{
		Config:    cfg,
		Logger:    log,
		Hub:       hub,
		Signaling: NewSignaling(hub, clients, m, cfg.WebSocket, log),
		Metrics:   m,
		Tunnel:    tunnel,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, hub: hub, clients: clients, metrics: m, router: router}
}

type peer struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

// dial opens a socket and consumes the connected greeting.
func (s *testServer) dial(t *testing.T) *peer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	p := &peer{t: t, conn: conn}
	env := p.read()
	require.Equal(t, models.EventConnected, env.Event)
	var data models.ConnectedData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.ID)
	p.id = data.ID
	return p
}

func (p *peer) send(event models.EventType, data any) {
	p.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteJSON(models.Envelope{Event: event, Data: raw}))
}

func (p *peer) sendRaw(frame string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (p *peer) read() models.Envelope {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env models.Envelope
	require.NoError(p.t, p.conn.ReadJSON(&env))
	return env
}

func (p *peer) expect(event models.EventType, into any) {
	p.t.Helper()
	env := p.read()
	require.Equal(p.t, event, env.Event, "payload: %s", env.Data)
	if into != nil {
		require.NoError(p.t, json.Unmarshal(env.Data, into))
	}
}

// expectSilence asserts nothing arrives within a short window.
func (p *peer) expectSilence() {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, raw, err := p.conn.ReadMessage()
	require.Error(p.t, err, "unexpected frame: %s", raw)
}

func (p *peer) join(room, name string) {
	p.t.Helper()
	p.send(models.EventJoin, models.JoinRequest{Room: room, Name: name})
}
