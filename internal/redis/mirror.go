package redis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/mossy-p/room-signaling/internal/presence"
)

const (
	roomsKey     = "presence:rooms"
	writeTimeout = 2 * time.Second
)

func roomKey(room string) string {
	return "presence:room:" + room
}

// RoomWriter stores the current user list of a room. An empty list means
// the room is gone.
type RoomWriter interface {
	WriteRoom(ctx context.Context, room string, users []string) error
}

// Store writes room presence to Redis as one list per room plus a set of
// active room ids, all expiring after ttl.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) WriteRoom(ctx context.Context, room string, users []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := roomKey(room)
		pipe.Del(ctx, key)
		if len(users) == 0 {
			pipe.SRem(ctx, roomsKey, room)
			return nil
		}
		pipe.RPush(ctx, key, lo.ToAnySlice(users)...)
		pipe.Expire(ctx, key, s.ttl)
		pipe.SAdd(ctx, roomsKey, room)
		pipe.Expire(ctx, roomsKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write room %s: %w", room, err)
	}
	return nil
}

// Reset removes presence left behind by a previous process.
func (s *Store) Reset(ctx context.Context) error {
	rooms, err := s.client.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return fmt.Errorf("list mirrored rooms: %w", err)
	}
	keys := append(lo.Map(rooms, func(room string, _ int) string { return roomKey(room) }), roomsKey)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear mirrored rooms: %w", err)
	}
	return nil
}

// Mirror copies room membership changes to a RoomWriter from a background
// worker. Pending changes are coalesced per room, latest list wins, so
// RoomChanged never blocks and the final state of every room, including
// its removal, always reaches the writer.
type Mirror struct {
	presence.NopObserver

	writer RoomWriter
	log    *slog.Logger

	mu      sync.Mutex
	pending map[string][]string
	wake    chan struct{}
}

func NewMirror(writer RoomWriter, log *slog.Logger) *Mirror {
	return &Mirror{
		writer:  writer,
		log:     log,
		pending: make(map[string][]string),
		wake:    make(chan struct{}, 1),
	}
}

func (m *Mirror) RoomChanged(room string, users []string, _ int) {
	m.mu.Lock()
	m.pending[room] = slices.Clone(users)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Run applies pending updates until ctx is cancelled, then flushes what is
// still pending.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-m.wake:
			m.flush(context.WithoutCancel(ctx))
		case <-ctx.Done():
			m.flush(context.WithoutCancel(ctx))
			return
		}
	}
}

func (m *Mirror) flush(ctx context.Context) {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string][]string, len(batch))
	m.mu.Unlock()

	rooms := lo.Keys(batch)
	slices.Sort(rooms)
	for _, room := range rooms {
		m.write(ctx, room, batch[room])
	}
}

func (m *Mirror) write(ctx context.Context, room string, users []string) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := m.writer.WriteRoom(ctx, room, users); err != nil {
		m.log.Error("presence mirror write failed", "room", room, "err", err)
	}
}
