// Package config provides the configuration schema for the MCP runtime.
//
// Configuration is file-based (YAML) with environment variable overrides,
// validated with struct tags plus cross-field rules.
package config

import (
	"time"
)

// Config is the top-level configuration for the MCP runtime.
type Config struct {
	// Server configures the HTTP Streamable transport listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Correlation configures the request/response correlation manager.
	Correlation CorrelationConfig `yaml:"correlation" mapstructure:"correlation"`

	// Buffer configures pooled buffer backpressure and frame limits.
	Buffer BufferConfig `yaml:"buffer" mapstructure:"buffer"`

	// WorkerPool configures the bounded request-processing worker pool.
	WorkerPool WorkerPoolConfig `yaml:"worker_pool" mapstructure:"worker_pool"`

	// Session configures HTTP transport session tracking and idle eviction.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// OAuth2 configures bearer-token validation for the HTTP transport.
	// Optional: when Enabled is false, the HTTP transport accepts
	// unauthenticated requests (suitable for local/stdio-equivalent use).
	OAuth2 OAuth2Config `yaml:"oauth2" mapstructure:"oauth2"`

	// HTTPAuth configures the bearer-token middleware's HTTP-level
	// behavior: which paths it exempts from authentication and the realm
	// it reports in WWW-Authenticate challenges.
	HTTPAuth HTTPAuthConfig `yaml:"http_auth" mapstructure:"http_auth"`

	// DevMode enables debug-level logging (see SetDevDefaults).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// AllowedOrigins lists the Origin header values the HTTP transport
	// accepts from browser-based clients. Requests carrying an Origin
	// header outside this list are rejected as a DNS-rebinding defense;
	// requests with no Origin header (same-origin or non-browser
	// clients) are always allowed. Empty by default, which rejects
	// every browser-originated cross-origin request.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// CorrelationConfig configures the pending-request correlation table.
type CorrelationConfig struct {
	// MaxPendingRequests bounds the number of in-flight requests. Zero
	// means unbounded.
	MaxPendingRequests int `yaml:"max_pending_requests" mapstructure:"max_pending_requests" validate:"omitempty,min=0"`

	// DefaultTimeout bounds how long a request waits for a correlated
	// response before the sweeper delivers a timeout (e.g., "30s").
	DefaultTimeout string `yaml:"default_timeout" mapstructure:"default_timeout" validate:"omitempty"`

	// CleanupInterval is how often the sweeper scans for expired requests
	// (e.g., "1s").
	CleanupInterval string `yaml:"cleanup_interval" mapstructure:"cleanup_interval" validate:"omitempty"`
}

// HTTPAuthConfig configures the bearer-token middleware's HTTP-level
// exemptions and challenge realm.
type HTTPAuthConfig struct {
	// SkipPaths lists request paths the bearer-token middleware lets
	// through without an Authorization header, e.g. health checks and the
	// authorization-server endpoints themselves.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`

	// AuthRealm is reported in the WWW-Authenticate challenge on a failed
	// bearer-token check.
	AuthRealm string `yaml:"auth_realm" mapstructure:"auth_realm"`
}

// BufferConfig configures pooled buffer backpressure and frame limits.
type BufferConfig struct {
	// Size is the initial allocation size for pooled buffers, in bytes.
	Size int `yaml:"size" mapstructure:"size" validate:"omitempty,min=1"`

	// MaxInFlight bounds the number of buffers checked out of the pool
	// at once, providing backpressure under load.
	MaxInFlight int `yaml:"max_in_flight" mapstructure:"max_in_flight" validate:"omitempty,min=1"`

	// MaxFrameSize bounds a single JSON-RPC frame's size, in bytes.
	MaxFrameSize int `yaml:"max_frame_size" mapstructure:"max_frame_size" validate:"omitempty,min=1"`
}

// WorkerPoolConfig configures the bounded request-processing worker pool.
type WorkerPoolConfig struct {
	// Workers is the fixed number of worker goroutines.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"omitempty,min=1"`

	// QueueSize bounds the pending-job FIFO queue.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size" validate:"omitempty,min=1"`

	// OrderedDispatch, when true, delivers results in submission order
	// rather than completion order.
	OrderedDispatch bool `yaml:"ordered_dispatch" mapstructure:"ordered_dispatch"`
}

// SessionConfig configures HTTP transport session tracking.
type SessionConfig struct {
	// MaxIdleTime is how long a session may sit idle before the sweeper
	// evicts it (e.g., "30m").
	MaxIdleTime string `yaml:"max_idle_time" mapstructure:"max_idle_time" validate:"omitempty"`

	// SweepInterval is how often the idle-eviction sweeper runs (e.g., "1m").
	SweepInterval string `yaml:"sweep_interval" mapstructure:"sweep_interval" validate:"omitempty"`
}

// OAuth2Config configures bearer-token validation for the HTTP transport.
type OAuth2Config struct {
	// Enabled turns on bearer-token validation for the HTTP transport.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// JWKSURL is the JWKS endpoint used to fetch signing keys.
	JWKSURL string `yaml:"jwks_url" mapstructure:"jwks_url" validate:"omitempty,url"`

	// Issuer is the expected JWT "iss" claim.
	Issuer string `yaml:"issuer" mapstructure:"issuer" validate:"omitempty"`

	// Audience is the expected JWT "aud" claim.
	Audience string `yaml:"audience" mapstructure:"audience" validate:"omitempty"`

	// JWKSCacheTTL bounds how long fetched signing keys are cached
	// (e.g., "1h").
	JWKSCacheTTL string `yaml:"jwks_cache_ttl" mapstructure:"jwks_cache_ttl" validate:"omitempty"`

	// RequiredScopes lists scopes loaded from configuration. No part of the
	// runtime reads this field; per-request scope checks use the static
	// method-scope table or ScopePolicy.
	RequiredScopes []string `yaml:"required_scopes" mapstructure:"required_scopes"`

	// ScopePolicy, if set, is a CEL expression overriding the static
	// MCP-method-to-scope table for per-request scope authorization.
	ScopePolicy string `yaml:"scope_policy" mapstructure:"scope_policy" validate:"omitempty"`
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	// MaxPendingRequests is left at its configured value: zero means
	// unbounded, so no default substitution is applied here.
	if c.Correlation.DefaultTimeout == "" {
		c.Correlation.DefaultTimeout = "30s"
	}
	if c.Correlation.CleanupInterval == "" {
		c.Correlation.CleanupInterval = "1s"
	}

	if c.Buffer.Size == 0 {
		c.Buffer.Size = 4096
	}
	if c.Buffer.MaxInFlight == 0 {
		c.Buffer.MaxInFlight = 256
	}
	if c.Buffer.MaxFrameSize == 0 {
		c.Buffer.MaxFrameSize = 10 << 20
	}

	if c.WorkerPool.Workers == 0 {
		c.WorkerPool.Workers = 4
	}
	if c.WorkerPool.QueueSize == 0 {
		c.WorkerPool.QueueSize = 256
	}

	if c.Session.MaxIdleTime == "" {
		c.Session.MaxIdleTime = "30m"
	}
	if c.Session.SweepInterval == "" {
		c.Session.SweepInterval = "1m"
	}

	if c.OAuth2.JWKSCacheTTL == "" {
		c.OAuth2.JWKSCacheTTL = "1h"
	}
	if c.OAuth2.Enabled {
		if c.OAuth2.Issuer == "" {
			c.OAuth2.Issuer = "http://" + c.Server.HTTPAddr
		}
		if c.OAuth2.JWKSURL == "" {
			c.OAuth2.JWKSURL = c.OAuth2.Issuer + "/.well-known/jwks.json"
		}
	}

	if len(c.HTTPAuth.SkipPaths) == 0 {
		c.HTTPAuth.SkipPaths = []string{
			"/health",
			"/metrics",
			"/.well-known/jwks.json",
			"/authorize",
			"/token",
			"/auth/info",
		}
	}
	if c.HTTPAuth.AuthRealm == "" {
		c.HTTPAuth.AuthRealm = "mcp"
	}
}

// SetDevDefaults applies development-mode defaults before validation: when
// DevMode is set and the log level is empty or "info", it becomes "debug".
// No other setting is changed.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	if c.Server.LogLevel == "" || c.Server.LogLevel == "info" {
		c.Server.LogLevel = "debug"
	}
}

// CorrelationDefaultTimeout parses DefaultTimeout, falling back to 30s.
func (c CorrelationConfig) CorrelationDefaultTimeout() time.Duration {
	return parseDurationOr(c.DefaultTimeout, 30*time.Second)
}

// CorrelationCleanupInterval parses CleanupInterval, falling back to 1s.
func (c CorrelationConfig) CorrelationCleanupInterval() time.Duration {
	return parseDurationOr(c.CleanupInterval, time.Second)
}

// SessionMaxIdleTime parses MaxIdleTime, falling back to 30m.
func (c SessionConfig) SessionMaxIdleTime() time.Duration {
	return parseDurationOr(c.MaxIdleTime, 30*time.Minute)
}

// SessionSweepInterval parses SweepInterval, falling back to 1m.
func (c SessionConfig) SessionSweepInterval() time.Duration {
	return parseDurationOr(c.SweepInterval, time.Minute)
}

// JWKSCacheTTLDuration parses JWKSCacheTTL, falling back to 1h.
func (c OAuth2Config) JWKSCacheTTLDuration() time.Duration {
	return parseDurationOr(c.JWKSCacheTTL, time.Hour)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
