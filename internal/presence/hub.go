package presence

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/mossy-p/room-signaling/internal/models"
)

// UnknownName tags relayed signals whose sender has no display name.
const UnknownName = "Unknown"

// Hub owns all presence state. Every transport event is applied under a
// single lock, so each membership list a recipient sees is a consistent
// snapshot. Emission happens under the same lock and must not block.
type Hub struct {
	mu    sync.Mutex
	conns *Registry
	rooms *Directory
	emit  Emitter
	obs   observers
	log   *slog.Logger
}

type Option func(*Hub)

// WithObserver registers an observer; may be given multiple times.
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.obs = append(h.obs, o)
		}
	}
}

func NewHub(emit Emitter, log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		conns: NewRegistry(),
		rooms: NewDirectory(),
		emit:  emit,
		log:   log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a new transport connection with no identity.
func (h *Hub) Connect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns.Register(id)
	h.obs.ConnectionsChanged(h.conns.Len())
}

// Join admits the connection to room under name. A connection already in
// another room is moved: its old room gets user-left first. Joining the
// same room again only updates the name and re-sends the user list.
func (h *Hub) Join(id, room, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev, err := h.conns.Lookup(id)
	if err != nil {
		return fmt.Errorf("join %s: %w", room, err)
	}

	if prev.Room == room {
		if err := h.conns.SetIdentity(id, name, room); err != nil {
			return err
		}
		members := h.rooms.MembersOf(room)
		users := h.namesOf(members)
		h.emit.Emit(members, models.OutboundMessage{Event: models.EventUsers, Data: models.UsersData{Users: users}})
		h.obs.RoomChanged(room, users, h.rooms.Len())
		h.log.Debug("peer renamed", "peer", id, "room", room, "name", name)
		return nil
	}

	if prev.Room != "" {
		h.leave(prev)
	}

	if err := h.conns.SetIdentity(id, name, room); err != nil {
		return err
	}
	h.rooms.AddMember(room, id)

	members := h.rooms.MembersOf(room)
	users := h.namesOf(members)
	h.emit.Emit(members, models.OutboundMessage{Event: models.EventUsers, Data: models.UsersData{Users: users}})
	if others := lo.Without(members, id); len(others) > 0 {
		h.emit.Emit(others, models.OutboundMessage{Event: models.EventUserJoined, Data: models.UserJoinedData{ID: id, Name: name}})
	}
	h.obs.RoomChanged(room, users, h.rooms.Len())

	h.log.Info("peer joined room", "peer", id, "room", room, "name", name, "members", len(members))
	return nil
}

// Disconnect removes the connection and notifies the rest of its room.
// It reports false if the connection was already gone.
func (h *Hub) Disconnect(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns.Remove(id)
	if !ok {
		return false
	}
	if c.Room != "" {
		h.leave(c)
	}
	h.obs.ConnectionsChanged(h.conns.Len())
	h.log.Info("peer disconnected", "peer", id, "room", c.Room, "name", c.Name)
	return true
}

// Relay forwards a signal to every member of room except the sender and
// returns the number of recipients. The room named in the signal is used
// as is, even if the sender never joined it.
func (h *Hub) Relay(senderID, room string, fields models.SignalFields) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := UnknownName
	if c, err := h.conns.Lookup(senderID); err == nil && c.Name != "" {
		name = c.Name
	}

	recipients := lo.Without(h.rooms.MembersOf(room), senderID)
	if len(recipients) == 0 {
		return 0
	}
	h.emit.Emit(recipients, models.OutboundMessage{Event: models.EventSignal, Data: fields.WithSender(senderID, name)})
	h.obs.SignalRelayed(room, len(recipients))
	return len(recipients)
}

// Users returns the display names in room, in join order.
func (h *Hub) Users(room string) ([]string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.rooms.Has(room) {
		return nil, false
	}
	return h.namesOf(h.rooms.MembersOf(room)), true
}

// Rooms returns a snapshot of every non-empty room.
func (h *Hub) Rooms() []models.RoomSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return lo.Map(h.rooms.Rooms(), func(room string, _ int) models.RoomSnapshot {
		users := h.namesOf(h.rooms.MembersOf(room))
		return models.RoomSnapshot{ID: room, Users: users, Count: len(users)}
	})
}

func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns.Len()
}

// leave takes c out of its room and tells the remaining members.
// Caller holds h.mu.
func (h *Hub) leave(c Connection) {
	h.rooms.RemoveMember(c.Room, c.ID)

	remaining := h.rooms.MembersOf(c.Room)
	users := h.namesOf(remaining)
	if len(remaining) > 0 {
		h.emit.Emit(remaining, models.OutboundMessage{
			Event: models.EventUserLeft,
			Data:  models.UserLeftData{ID: c.ID, Name: c.Name, Users: users},
		})
	}
	h.obs.RoomChanged(c.Room, users, h.rooms.Len())
	h.log.Info("peer left room", "peer", c.ID, "room", c.Room, "name", c.Name, "members", len(remaining))
}

func (h *Hub) namesOf(ids []string) []string {
	return lo.Map(ids, func(id string, _ int) string {
		c, err := h.conns.Lookup(id)
		if err != nil {
			return UnknownName
		}
		return c.Name
	})
}
