package presence

import (
	"errors"
	"fmt"
)

// ErrUnknownConnection is returned when an operation references a
// connection that is not currently registered.
var ErrUnknownConnection = errors.New("unknown connection")

// Connection is the registry entry of one live transport session.
// Room is empty until the connection joins.
type Connection struct {
	ID   string
	Name string
	Room string
}

// Registry maps live connections to their identity. It is not safe for
// concurrent use; Hub serializes access.
type Registry struct {
	conns map[string]*Connection
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register creates an entry with no name and no room. Registering an id
// twice keeps the existing entry.
func (r *Registry) Register(id string) {
	if _, ok := r.conns[id]; ok {
		return
	}
	r.conns[id] = &Connection{ID: id}
}

func (r *Registry) SetIdentity(id, name, room string) error {
	c, ok := r.conns[id]
	if !ok {
		return fmt.Errorf("set identity of %s: %w", id, ErrUnknownConnection)
	}
	c.Name = name
	c.Room = room
	return nil
}

func (r *Registry) Lookup(id string) (Connection, error) {
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, fmt.Errorf("lookup %s: %w", id, ErrUnknownConnection)
	}
	return *c, nil
}

// Remove deletes the entry and returns its last state. The second call
// for the same id reports false.
func (r *Registry) Remove(id string) (Connection, bool) {
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, id)
	return *c, true
}

func (r *Registry) Len() int {
	return len(r.conns)
}
