package channel

import (
	"net/http"
	"time"
)

// Config holds configuration for the live channel connection
type Config struct {
	URL    string
	Header http.Header

	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	MaxReconnects     int // -1 for unlimited

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	SendBuffer       int
}

// DefaultConfig returns default live channel configuration
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectDelay:    1 * time.Second,
		ReconnectDelayMax: 5 * time.Second,
		MaxReconnects:     -1, // auctions run for hours
		HandshakeTimeout:  20 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		PingInterval:      25 * time.Second,
		MaxMessageSize:    4 << 20, // full state documents carry whole rosters
		SendBuffer:        64,
	}
}

// withDefaults fills zero durations and sizes from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig(c.URL)
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.ReconnectDelayMax <= 0 {
		c.ReconnectDelayMax = d.ReconnectDelayMax
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		c.ReconnectDelayMax = c.ReconnectDelay
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	return c
}

// Backoff returns the wait before reconnect attempt n (1-based): the base
// delay doubled per attempt and capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
