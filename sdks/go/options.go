package mcpclient

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout, including the initialize
// handshake performed by NewStdio/NewHTTP. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientInfo sets the name/version this client reports to the
// server during the initialize handshake.
func WithClientInfo(info Implementation) Option {
	return func(c *Client) {
		c.clientInfo = info
	}
}

// WithProtocolVersion overrides the MCP protocol version this client
// requests during initialize. Defaults to ProtocolVersion.
func WithProtocolVersion(version string) Option {
	return func(c *Client) {
		c.protocolVersion = version
	}
}

// WithBearerToken sets the bearer token sent as an Authorization
// header on every request. Only meaningful for NewHTTP; stdio
// transports have no header channel.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = token
	}
}

// WithLogger sets the Client's logger. Defaults to slog.Default(). No
// Client method writes log records to it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
