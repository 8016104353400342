package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/metrics"
	"github.com/mossy-p/room-signaling/internal/middleware"
	"github.com/mossy-p/room-signaling/internal/presence"
	"github.com/mossy-p/room-signaling/web"
)

// RouterDeps are the collaborators the HTTP surface needs
type RouterDeps struct {
	Config    *config.Config
	Logger    *slog.Logger
	Hub       *presence.Hub
	Signaling *Signaling
	Metrics   *metrics.Metrics
	// Tunnel is nil when no tunnel is running
	Tunnel PublicURLSource
}

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(d.Logger))

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(d.Config.AllowedOrigins))

	// Client page
	router.GET("/", ServeIndex)
	router.StaticFS("/static", http.FS(web.Static))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	rooms := NewRooms(d.Hub)
	apiGroup := router.Group("/api")
	{
		// Operator login (public)
		apiGroup.POST("/auth/login", Login(d.Config.Operator, d.Config.JWTSecret, d.Logger))

		// List all rooms (requires JWT)
		apiGroup.GET("/rooms", middleware.JWTAuth(d.Config.JWTSecret), rooms.ListRooms)

		// Get room presence (public)
		apiGroup.GET("/rooms/:roomId", rooms.GetRoom)

		apiGroup.GET("/tunnel", TunnelInfo(d.Tunnel))
	}

	// WebSocket signaling endpoint
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/signal", d.Signaling.HandleSignaling)
	}

	return router
}

// ServeIndex returns the browser client
func ServeIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}
