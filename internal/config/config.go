package config

import (
	"fmt"
	"time"
)

// This file defines the configuration structures used by viper_config.go
// The actual loading is handled by viper in viper_config.go

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
	Store  StoreSettings  `yaml:"store"`
	Game   GameSettings   `yaml:"game"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	BaseURL         string        `yaml:"baseURL"` // used for invite links; derived from the request when empty
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"` // 0 for SSE support
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`      // requests per second
	RateLimitBurst int     `yaml:"rateLimitBurst"` // burst size

	MaxRequestSize int64 `yaml:"maxRequestSize"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"` // text or json
}

// StoreSettings selects and configures the room store
type StoreSettings struct {
	Backend  string        `yaml:"backend"` // memory or redis
	RedisURL string        `yaml:"redisURL"`
	RoomTTL  time.Duration `yaml:"roomTTL"`
}

// GameSettings contains the rules and clocks of a game
type GameSettings struct {
	MinPlayers     int `yaml:"minPlayers"`
	MaxPlayers     int `yaml:"maxPlayers"`
	RoomCodeLength int `yaml:"roomCodeLength"`

	TurnDuration      time.Duration `yaml:"turnDuration"`
	SchedulerInterval time.Duration `yaml:"schedulerInterval"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	PresenceSweep     time.Duration `yaml:"presenceSweep"`
	StaleAfter        time.Duration `yaml:"staleAfter"`

	MaxPointsPerStroke int     `yaml:"maxPointsPerStroke"`
	StrokeRate         float64 `yaml:"strokeRate"` // strokes per second per player
	StrokeBurst        int     `yaml:"strokeBurst"`

	KeywordsFile string `yaml:"keywordsFile"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // streams stay open
			IdleTimeout:     0,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,

			RateLimit:      20,
			RateLimitBurst: 40,

			MaxRequestSize: 1048576, // 1MB

			LogLevel:  "info",
			LogFormat: "text",
		},
		Store: StoreSettings{
			Backend: "memory",
			RoomTTL: 24 * time.Hour,
		},
		Game: DefaultGameSettings(),
	}
}

// DefaultGameSettings returns the standard rules
func DefaultGameSettings() GameSettings {
	return GameSettings{
		MinPlayers:     3,
		MaxPlayers:     10,
		RoomCodeLength: 4,

		TurnDuration:      15 * time.Second,
		SchedulerInterval: time.Second,
		HeartbeatInterval: 5 * time.Second,
		PresenceSweep:     10 * time.Second,
		StaleAfter:        20 * time.Second,

		MaxPointsPerStroke: 2000,
		StrokeRate:         10,
		StrokeBurst:        20,
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must be set")
	}

	switch c.Server.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", c.Server.LogFormat)
	}

	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("redisURL must be set when the store backend is redis")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	return c.Game.Validate()
}

// Validate checks the game rules
func (g *GameSettings) Validate() error {
	if g.MinPlayers < 2 {
		return fmt.Errorf("minPlayers must be at least 2")
	}
	if g.MaxPlayers < g.MinPlayers {
		return fmt.Errorf("maxPlayers cannot be less than minPlayers")
	}
	if g.RoomCodeLength < 3 {
		return fmt.Errorf("roomCodeLength must be at least 3")
	}
	if g.TurnDuration <= 0 {
		return fmt.Errorf("turnDuration must be positive")
	}
	if g.SchedulerInterval <= 0 || g.SchedulerInterval > g.TurnDuration {
		return fmt.Errorf("schedulerInterval must be positive and no longer than turnDuration")
	}
	if g.HeartbeatInterval <= 0 || g.PresenceSweep <= 0 {
		return fmt.Errorf("heartbeatInterval and presenceSweep must be positive")
	}
	if g.StaleAfter <= g.HeartbeatInterval {
		return fmt.Errorf("staleAfter must be longer than heartbeatInterval")
	}
	if g.MaxPointsPerStroke < 1 {
		return fmt.Errorf("maxPointsPerStroke must be at least 1")
	}
	if g.StrokeRate <= 0 || g.StrokeBurst < 1 {
		return fmt.Errorf("strokeRate and strokeBurst must be positive")
	}
	return nil
}
