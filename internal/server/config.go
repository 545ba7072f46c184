package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// Config is the server section of the configuration file.
type Config struct {
	Addr            string          `mapstructure:"addr" yaml:"addr"`
	Mode            string          `mapstructure:"mode" yaml:"mode"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig allows Requests per Window for each client IP.
// Requests <= 0 disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// DefaultConfig listens on :8080 in release mode.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimit:       RateLimitConfig{Requests: 120, Window: time.Minute},
	}
}

// Validate rejects unknown gin modes and a non-positive limiter window.
func (c Config) Validate() error {
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("server.mode %q: want debug, release or test", c.Mode)
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("server.rate_limit.window must be positive")
	}
	return nil
}
