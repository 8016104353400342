package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	JWTSecret      string
	Operator       OperatorConfig
	WebSocket      WebSocketConfig
	Redis          RedisConfig
	Tunnel         TunnelConfig
}

// OperatorConfig holds the credentials for the operator API.
// An empty password disables login.
type OperatorConfig struct {
	Username string
	Password string
}

type WebSocketConfig struct {
	SendBuffer      int
	MaxMessageBytes int64
	PongWait        time.Duration
	PingPeriod      time.Duration
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        string
	Password    string
	DB          int
	PresenceTTL time.Duration
}

type TunnelConfig struct {
	Enabled        bool
	Binary         string
	APIURL         string
	StartupTimeout time.Duration
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	origins := splitCSV(getEnv("ALLOWED_ORIGINS", "*"))

	return &Config{
		Port:           getEnv("PORT", "5001"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		Operator: OperatorConfig{
			Username: getEnv("OPERATOR_USERNAME", "admin"),
			Password: getEnv("OPERATOR_PASSWORD", ""),
		},
		WebSocket: WebSocketConfig{
			SendBuffer:      getEnvInt("WS_SEND_BUFFER", 256),
			MaxMessageBytes: int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 64*1024)),
			PongWait:        getEnvDuration("WS_PONG_WAIT", 60*time.Second),
			PingPeriod:      getEnvDuration("WS_PING_PERIOD", 54*time.Second),
		},
		Redis: RedisConfig{
			Enabled:     getEnvBool("REDIS_ENABLED", false),
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PresenceTTL: getEnvDuration("REDIS_PRESENCE_TTL", 24*time.Hour),
		},
		Tunnel: TunnelConfig{
			Enabled:        getEnvBool("TUNNEL_ENABLED", false),
			Binary:         getEnv("TUNNEL_BINARY", "ngrok"),
			APIURL:         getEnv("TUNNEL_API_URL", "http://127.0.0.1:4040/api/tunnels"),
			StartupTimeout: getEnvDuration("TUNNEL_STARTUP_TIMEOUT", 10*time.Second),
		},
	}
}

// ApplyArgs lets the first CLI argument toggle the tunnel: "ngrok"
// enables it, anything else ("local") disables it. Without an argument
// TUNNEL_ENABLED decides, and it defaults to off so a bare start never
// spawns an external binary.
func (c *Config) ApplyArgs(args []string) {
	if len(args) == 0 {
		return
	}
	c.Tunnel.Enabled = args[0] == "ngrok"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
