// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/grl-racing/grlbot/gateway"
)

// Config is the full runtime configuration. All knobs come from the
// environment; only the bot token is mandatory.
type Config struct {
	// Token authenticates the gateway connection. ENV: GRLBOT_TOKEN
	Token string `env:"GRLBOT_TOKEN,required"`
	// Whitelist is the semicolon-separated list of tenant ids the bot
	// serves. Empty means serve nobody. ENV: GRLBOT_WHITELIST
	Whitelist string `env:"GRLBOT_WHITELIST"`
	// MongoURI enables the durable session store when set; without it
	// sessions live in memory and die with the process.
	// ENV: GRLBOT_MONGO_URI
	MongoURI string `env:"GRLBOT_MONGO_URI"`
	// RedisAddr enables the shared flow cache when set, like
	// "localhost:6379". ENV: GRLBOT_REDIS_ADDR
	RedisAddr string `env:"GRLBOT_REDIS_ADDR"`
	// HTTPAddr is where the health endpoints listen. ENV: GRLBOT_HTTP_ADDR
	HTTPAddr string `env:"GRLBOT_HTTP_ADDR,default=:8880"`
	// LogLevel is one of debug, info, warn, error. ENV: GRLBOT_LOG_LEVEL
	LogLevel string `env:"GRLBOT_LOG_LEVEL,default=info"`
}

// Load populates Config from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}

// TenantWhitelist parses the whitelist into tenant ids, dropping empty
// segments so trailing separators are harmless.
func (c *Config) TenantWhitelist() []gateway.TenantID {
	var out []gateway.TenantID
	for _, part := range strings.Split(c.Whitelist, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, gateway.TenantID(part))
		}
	}
	return out
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info for
// anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
