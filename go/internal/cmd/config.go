package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/auction-live/go/internal/auction/channel"
	"github.com/mcdev12/auction-live/go/internal/auction/dispatch"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/relay"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleBidder  Role = "bidder"
	RoleDisplay Role = "display"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleBidder, RoleDisplay:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q (want admin, bidder or display)", s)
	}
}

type Config struct {
	Server struct {
		URL    string `yaml:"url"`
		WSPath string `yaml:"ws_path"`
	} `yaml:"server"`

	Role     string `yaml:"role"`
	TeamID   string `yaml:"team_id"`
	Token    string `yaml:"token"`
	Password string `yaml:"password"`

	Channel struct {
		ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
		ReconnectDelayMax time.Duration `yaml:"reconnect_delay_max"`
		MaxReconnects     int           `yaml:"max_reconnects"`
		HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	} `yaml:"channel"`

	AckTimeout   time.Duration `yaml:"ack_timeout"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	Relay struct {
		Enabled bool   `yaml:"enabled"`
		Port    string `yaml:"port"`
	} `yaml:"relay"`

	NATS struct {
		URL           string `yaml:"url"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	LogLevel string `yaml:"log_level"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.URL = "http://localhost:3001"
	cfg.Server.WSPath = "/ws"
	cfg.Role = string(RoleDisplay)

	cc := channel.DefaultConfig("")
	cfg.Channel.ReconnectDelay = cc.ReconnectDelay
	cfg.Channel.ReconnectDelayMax = cc.ReconnectDelayMax
	cfg.Channel.MaxReconnects = cc.MaxReconnects
	cfg.Channel.HandshakeTimeout = cc.HandshakeTimeout

	cfg.AckTimeout = dispatch.DefaultAckTimeout
	cfg.FetchTimeout = engine.DefaultFetchTimeout

	cfg.Relay.Port = "8090"

	js := relay.DefaultJetStreamConfig()
	cfg.NATS.StreamName = js.StreamName
	cfg.NATS.SubjectPrefix = js.SubjectPrefix

	cfg.LogLevel = "info"
	return &cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads path over the defaults, then applies env overrides. A
// missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.URL = getEnv("AUCTION_SERVER_URL", c.Server.URL)
	c.Role = getEnv("AUCTION_ROLE", c.Role)
	c.TeamID = getEnv("AUCTION_TEAM_ID", c.TeamID)
	c.Token = getEnv("AUCTION_TOKEN", c.Token)
	c.Password = getEnv("AUCTION_PASSWORD", c.Password)
	c.Channel.MaxReconnects = getEnvAsInt("AUCTION_MAX_RECONNECTS", c.Channel.MaxReconnects)
	c.AckTimeout = getEnvAsDuration("AUCTION_ACK_TIMEOUT", c.AckTimeout)
	c.Relay.Enabled = getEnvAsBool("RELAY_ENABLED", c.Relay.Enabled)
	c.Relay.Port = getEnv("RELAY_PORT", c.Relay.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// WebSocketURL maps the authority's http(s) base URL onto ws(s).
func (c *Config) WebSocketURL() string {
	base := strings.TrimRight(c.Server.URL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + c.Server.WSPath
}

func (c *Config) ChannelConfig() channel.Config {
	cc := channel.DefaultConfig(c.WebSocketURL())
	cc.ReconnectDelay = c.Channel.ReconnectDelay
	cc.ReconnectDelayMax = c.Channel.ReconnectDelayMax
	cc.MaxReconnects = c.Channel.MaxReconnects
	cc.HandshakeTimeout = c.Channel.HandshakeTimeout
	return cc
}

func (c *Config) JetStreamConfig() relay.JetStreamConfig {
	js := relay.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.StreamName
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
