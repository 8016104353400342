package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/room-signaling/config"
	"github.com/mossy-p/room-signaling/internal/middleware"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the operator credentials and issues a JWT for the operator
// API. Login is disabled while no operator password is configured.
func Login(operator config.OperatorConfig, jwtSecret string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if operator.Password == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Operator login disabled",
			})
			return
		}

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(operator.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(operator.Password)) == 1
		if !userOK || !passOK {
			log.Warn("operator login rejected", "username", req.Username, "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		token, expires, err := middleware.IssueToken(jwtSecret, operator.Username, time.Now())
		if err != nil {
			log.Error("failed to issue operator token", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		c.JSON(http.StatusOK, LoginResponse{
			Token:     token,
			Operator:  operator.Username,
			ExpiresAt: expires,
		})
	}
}
