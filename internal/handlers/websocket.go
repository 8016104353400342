package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/metrics"
	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/mossy-p/room-signaling/internal/presence"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Clients tracks live connections and delivers hub output to their send
// queues. It implements presence.Emitter.
type Clients struct {
	mu      sync.RWMutex
	clients map[string]*Client
	metrics *metrics.Metrics
	log     *slog.Logger
}

var _ presence.Emitter = (*Clients)(nil)

func NewClients(m *metrics.Metrics, log *slog.Logger) *Clients {
	return &Clients{
		clients: make(map[string]*Client),
		metrics: m,
		log:     log,
	}
}

// Emit encodes msg once and queues it to each connection without
// blocking. Unknown or closed connections are skipped.
func (s *Clients) Emit(ids []string, msg models.OutboundMessage) {
	data, err := msg.Encode()
	if err != nil {
		s.log.Error("failed to encode message", "event", msg.Event, "err", err)
		s.metrics.Dropped(metrics.DropEncodeFailed)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range ids {
		client, ok := s.clients[id]
		if !ok {
			continue
		}
		select {
		case client.Send <- data:
		default:
			s.log.Warn("failed to send message, buffer full", "peer", id, "event", msg.Event)
			s.metrics.Dropped(metrics.DropSendBufferFull)
		}
	}
}

func (s *Clients) add(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

// remove forgets the client and closes its send queue.
func (s *Clients) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[id]; ok {
		delete(s.clients, id)
		close(c.Send)
	}
}

func (s *Clients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Signaling serves the websocket transport and feeds its events to the hub.
type Signaling struct {
	hub     *presence.Hub
	clients *Clients
	metrics *metrics.Metrics
	cfg     config.WebSocketConfig
	log     *slog.Logger
}

func NewSignaling(hub *presence.Hub, clients *Clients, m *metrics.Metrics, cfg config.WebSocketConfig, log *slog.Logger) *Signaling {
	return &Signaling{hub: hub, clients: clients, metrics: m, cfg: cfg, log: log}
}

// HandleSignaling upgrades the request and runs the connection
func (s *Signaling) HandleSignaling(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", "err", err)
		return
	}

	client := &Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, s.cfg.SendBuffer),
	}
	s.clients.add(client)
	s.hub.Connect(client.ID)

	s.log.Debug("peer connected", "peer", client.ID, "remote", c.ClientIP())
	s.clients.Emit([]string{client.ID}, models.OutboundMessage{
		Event: models.EventConnected,
		Data:  models.ConnectedData{ID: client.ID},
	})

	go s.writePump(client)
	go s.readPump(client)
}

func (s *Signaling) readPump(c *Client) {
	defer func() {
		s.hub.Disconnect(c.ID)
		s.clients.remove(c.ID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(s.cfg.MaxMessageBytes)
	c.Conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.log.Warn("websocket error", "peer", c.ID, "err", err)
			}
			return
		}
		s.dispatch(c, message)
	}
}

// dispatch routes one inbound frame. A frame that cannot be handled is
// dropped without a reply.
func (s *Signaling) dispatch(c *Client, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic while handling frame", "peer", c.ID, "panic", fmt.Sprint(r))
		}
	}()

	env, err := models.DecodeEnvelope(raw)
	if err != nil {
		s.drop(c, metrics.DropMalformed, err)
		return
	}

	switch env.Event {
	case models.EventJoin:
		s.metrics.InboundEvent(string(env.Event))
		req, err := models.DecodeJoin(env.Data)
		if err != nil {
			s.drop(c, metrics.DropMalformed, err)
			return
		}
		if err := s.hub.Join(c.ID, req.Room, req.Name); err != nil {
			s.log.Debug("join ignored", "peer", c.ID, "err", err)
		}

	case models.EventSignal:
		s.metrics.InboundEvent(string(env.Event))
		room, fields, err := models.DecodeSignal(env.Data)
		if err != nil {
			s.drop(c, metrics.DropMalformed, err)
			return
		}
		s.hub.Relay(c.ID, room, fields)

	default:
		s.drop(c, metrics.DropUnknownEvent, fmt.Errorf("%w: unknown event %q", models.ErrMalformedMessage, env.Event))
	}
}

func (s *Signaling) drop(c *Client, reason string, err error) {
	s.metrics.Dropped(reason)
	s.log.Debug("dropped inbound frame", "peer", c.ID, "reason", reason, "err", err)
}

func (s *Signaling) writePump(c *Client) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debug("failed to write message", "peer", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
