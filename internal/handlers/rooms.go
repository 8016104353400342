package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/room-signaling/internal/models"
	"github.com/mossy-p/room-signaling/internal/presence"
)

// PublicURLSource reports the public URL of the tunnel, if any
type PublicURLSource interface {
	PublicURL() string
}

// Rooms exposes read-only presence snapshots
type Rooms struct {
	hub *presence.Hub
}

func NewRooms(hub *presence.Hub) *Rooms {
	return &Rooms{hub: hub}
}

// GetRoom returns the users of one room (public)
func (r *Rooms) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	users, ok := r.hub.Users(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	c.JSON(http.StatusOK, models.RoomSnapshot{
		ID:    roomID,
		Users: users,
		Count: len(users),
	})
}

// ListRooms returns every non-empty room (operator only)
func (r *Rooms) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, models.RoomListResponse{
		Rooms:       r.hub.Rooms(),
		Connections: r.hub.Connections(),
	})
}

// TunnelInfo reports the public URL clients should use
func TunnelInfo(source PublicURLSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if source == nil || source.PublicURL() == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "No public URL"})
			return
		}
		c.JSON(http.StatusOK, models.TunnelResponse{PublicURL: source.PublicURL()})
	}
}
