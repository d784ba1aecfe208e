package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration using Viper
// Priority order: Flags > Environment variables > Config file > Defaults
func LoadConfig(configPath string, flags *pflag.FlagSet) (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("server")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/drawingliar")
	}

	// DRAWINGLIAR_GAME_TURNDURATION etc.; PORT and friends are bound below
	v.SetEnvPrefix("DRAWINGLIAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "DRAWINGLIAR_SERVER_PORT", "PORT")
	v.BindEnv("server.host", "DRAWINGLIAR_SERVER_HOST", "HOST")
	v.BindEnv("server.loglevel", "DRAWINGLIAR_SERVER_LOGLEVEL", "LOG_LEVEL")
	v.BindEnv("server.logformat", "DRAWINGLIAR_SERVER_LOGFORMAT", "LOG_FORMAT")
	v.BindEnv("store.backend", "DRAWINGLIAR_STORE_BACKEND", "STORE_BACKEND")
	v.BindEnv("store.redisurl", "DRAWINGLIAR_STORE_REDISURL", "REDIS_URL")

	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file or directory") {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; continue with env vars and defaults
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.baseurl", d.Server.BaseURL)
	v.SetDefault("server.readtimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writetimeout", d.Server.WriteTimeout)
	v.SetDefault("server.idletimeout", d.Server.IdleTimeout)
	v.SetDefault("server.shutdowntimeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.requesttimeout", d.Server.RequestTimeout)
	v.SetDefault("server.ratelimit", d.Server.RateLimit)
	v.SetDefault("server.ratelimitburst", d.Server.RateLimitBurst)
	v.SetDefault("server.maxrequestsize", d.Server.MaxRequestSize)
	v.SetDefault("server.loglevel", d.Server.LogLevel)
	v.SetDefault("server.logformat", d.Server.LogFormat)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.redisurl", d.Store.RedisURL)
	v.SetDefault("store.roomttl", d.Store.RoomTTL)

	v.SetDefault("game.minplayers", d.Game.MinPlayers)
	v.SetDefault("game.maxplayers", d.Game.MaxPlayers)
	v.SetDefault("game.roomcodelength", d.Game.RoomCodeLength)
	v.SetDefault("game.turnduration", d.Game.TurnDuration)
	v.SetDefault("game.schedulerinterval", d.Game.SchedulerInterval)
	v.SetDefault("game.heartbeatinterval", d.Game.HeartbeatInterval)
	v.SetDefault("game.presencesweep", d.Game.PresenceSweep)
	v.SetDefault("game.staleafter", d.Game.StaleAfter)
	v.SetDefault("game.maxpointsperstroke", d.Game.MaxPointsPerStroke)
	v.SetDefault("game.strokerate", d.Game.StrokeRate)
	v.SetDefault("game.strokeburst", d.Game.StrokeBurst)
	v.SetDefault("game.keywordsfile", d.Game.KeywordsFile)
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"port":          "server.port",
	"bind":          "server.host",
	"base-url":      "server.baseurl",
	"log-level":     "server.loglevel",
	"log-format":    "server.logformat",
	"store":         "store.backend",
	"redis-url":     "store.redisurl",
	"turn-duration": "game.turnduration",
	"keywords":      "game.keywordsfile",
}

// RegisterFlags declares the command-line flags understood by LoadConfig
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()

	fs.StringP("config", "c", "", "path to a server.yaml config file")
	fs.StringP("port", "p", d.Server.Port, "port to listen on (env: PORT)")
	fs.StringP("bind", "b", d.Server.Host, "address to bind to (env: HOST)")
	fs.String("base-url", "", "public base URL used in invite links")
	fs.String("log-level", d.Server.LogLevel, "log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.String("log-format", d.Server.LogFormat, "log format: text or json (env: LOG_FORMAT)")
	fs.String("store", d.Store.Backend, "room store backend: memory or redis (env: STORE_BACKEND)")
	fs.String("redis-url", "", "redis URL for the redis store (env: REDIS_URL)")
	fs.Duration("turn-duration", d.Game.TurnDuration, "length of one drawing turn")
	fs.String("keywords", "", "yaml file overriding the built-in keyword list")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
