package presence

import "github.com/mossy-p/room-signaling/internal/models"

// Emitter delivers an outbound message to a set of connections. It must
// not block: the hub calls it while holding its lock.
type Emitter interface {
	Emit(ids []string, msg models.OutboundMessage)
}

// Observer is notified of state changes after each mutation, under the
// hub lock. Implementations must return quickly.
type Observer interface {
	ConnectionsChanged(connections int)
	RoomChanged(room string, users []string, rooms int)
	SignalRelayed(room string, recipients int)
}

// NopObserver can be embedded to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) ConnectionsChanged(int)            {}
func (NopObserver) RoomChanged(string, []string, int) {}
func (NopObserver) SignalRelayed(string, int)         {}

type observers []Observer

func (o observers) ConnectionsChanged(n int) {
	for _, obs := range o {
		obs.ConnectionsChanged(n)
	}
}

func (o observers) RoomChanged(room string, users []string, rooms int) {
	for _, obs := range o {
		obs.RoomChanged(room, users, rooms)
	}
}

func (o observers) SignalRelayed(room string, recipients int) {
	for _, obs := range o {
		obs.SignalRelayed(room, recipients)
	}
}
