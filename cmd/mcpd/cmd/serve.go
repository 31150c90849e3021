package cmd

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/airsstack-go/mcp-runtime/internal/config"
	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/httpserver"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/server"
	"github.com/airsstack-go/mcp-runtime/internal/oauth2"
	"github.com/airsstack-go/mcp-runtime/internal/observability"
	"github.com/airsstack-go/mcp-runtime/internal/transport"
)

var (
	transportFlag string
	devMode       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server over stdio or the Streamable HTTP transport.

Examples:
  # Serve over stdio (the default; suitable for a subprocess launcher)
  mcpd serve

  # Serve over HTTP at the configured server.http_addr
  mcpd serve --transport http`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&transportFlag, "transport", "stdio", "transport to serve over: stdio or http")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode (debug-level logging)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch strings.ToLower(transportFlag) {
	case "stdio":
		return serveStdio(ctx, logger)
	case "http":
		return serveHTTP(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown transport %q: must be %q or %q", transportFlag, "stdio", "http")
	}
}

// serveStdio runs a single MCP session over os.Stdin/os.Stdout, reading
// one newline-delimited JSON-RPC message at a time and replying in place.
// Notifications (messages with no id) produce no response.
func serveStdio(ctx context.Context, logger *slog.Logger) error {
	tr := transport.NewStdioTransport(os.Stdin, os.Stdout, nil)
	srv := server.New()

	logger.Info("serving over stdio")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := tr.Receive(ctx)
		if err != nil {
			var e *errs.Error
			if errors.As(err, &e) && e.Kind == errs.KindTransportClosed {
				logger.Info("stdio transport closed")
				return nil
			}
			logger.Error("stdio receive failed", "error", err)
			return err
		}

		resp, err := srv.Handle(ctx, msg)
		if err != nil {
			logger.Error("message handling failed", "error", err)
			continue
		}
		if resp == nil {
			continue
		}
		if err := tr.Send(ctx, *resp); err != nil {
			logger.Error("stdio send failed", "error", err)
			return err
		}
	}
}

// rsaSigningKeyBits is the modulus size for the authorization server's
// access-token signing key.
const rsaSigningKeyBits = 2048

// serveHTTP runs the Streamable HTTP transport, one server.Server per
// Mcp-Session-Id, with health, metrics, and OAuth2 endpoints alongside it.
func serveHTTP(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	conn := httpserver.NewConnectionManager(
		httpserver.WithMaxIdleTime(cfg.Session.SessionMaxIdleTime()),
		httpserver.WithSweepInterval(cfg.Session.SessionSweepInterval()),
	)
	conn.StartSweeper(ctx)
	defer conn.Stop()

	handler := httpserver.NewHandler(conn, func() *server.Server { return server.New() })
	health := httpserver.NewHealthChecker(conn, nil, nil, "0.1.0")

	reg := observability.NewRegistry()
	metrics := httpserver.NewMetrics(reg)

	mux := http.NewServeMux()

	// The authorization server always runs, regardless of whether bearer
	// tokens are enforced on /mcp, so a local client always has somewhere
	// to obtain one while developing against OAuth2-gated deployments.
	authServer, err := newDevAuthorizationServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start oauth2 authorization server: %w", err)
	}
	authServer.StartSweeper(ctx)
	defer authServer.Shutdown()

	mux.Handle("/authorize", authServer.AuthorizeHandler())
	mux.Handle("/token", authServer.TokenHandler())
	mux.Handle("/.well-known/jwks.json", authServer.JWKSHandler())
	mux.Handle("/auth/info", authServer.InfoHandler())

	if cfg.OAuth2.Enabled {
		jwksCache := oauth2.NewJWKSCache(cfg.OAuth2.JWKSURL, cfg.OAuth2.JWKSCacheTTLDuration())
		validator := oauth2.NewValidator(jwksCache, cfg.OAuth2.Issuer, cfg.OAuth2.Audience)
		authMiddleware := oauth2.NewMiddleware(validator, cfg.HTTPAuth.SkipPaths, cfg.HTTPAuth.AuthRealm)

		var policy *oauth2.ScopePolicy
		if cfg.OAuth2.ScopePolicy != "" {
			policy, err = oauth2.NewScopePolicy(cfg.OAuth2.ScopePolicy)
			if err != nil {
				return fmt.Errorf("failed to compile oauth2 scope policy: %w", err)
			}
		}
		handler = handler.WithAuthorizer(oauth2.NewAuthorizer(policy))

		// The bearer-token check wraps the whole mux rather than just /mcp,
		// so http_auth.skip_paths is the single source of truth for which
		// paths (health, metrics, the auth endpoints themselves) are public.
		mux.Handle("/mcp", wrapMCPHandler(handler, logger, metrics, cfg))
		mux.Handle("/health", health.Handler())
		mux.Handle("/metrics", observability.Handler(reg))

		srv := &http.Server{
			Addr:    cfg.Server.HTTPAddr,
			Handler: authMiddleware.Wrap(mux),
		}
		return runHTTPServer(ctx, srv, logger)
	}

	mux.Handle("/mcp", wrapMCPHandler(handler, logger, metrics, cfg))
	mux.Handle("/health", health.Handler())
	mux.Handle("/metrics", observability.Handler(reg))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}
	return runHTTPServer(ctx, srv, logger)
}

// newDevAuthorizationServer builds the in-memory OAuth2 authorization
// server and registers a single development client, logging the client
// secret so an operator can drive the PKCE flow by hand.
func newDevAuthorizationServer(cfg *config.Config, logger *slog.Logger) (*oauth2.AuthorizationServer, error) {
	signingKey, err := rsa.GenerateKey(rand.Reader, rsaSigningKeyBits)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}

	issuer := cfg.OAuth2.Issuer
	if issuer == "" {
		issuer = "http://" + cfg.Server.HTTPAddr
	}
	authServer := oauth2.NewAuthorizationServer(signingKey, issuer)

	const devClientID = "mcpd-dev"
	devClientSecret := randomDevSecret()
	if err := authServer.RegisterClient(devClientID, devClientSecret, []string{"http://localhost/callback"}, oauth2.SupportedScopes()); err != nil {
		return nil, fmt.Errorf("register dev client: %w", err)
	}
	logger.Info("registered development oauth2 client",
		"client_id", devClientID,
		"client_secret", devClientSecret,
		"redirect_uri", "http://localhost/callback")

	return authServer, nil
}

func randomDevSecret() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

// wrapMCPHandler applies the shared, non-auth middleware chain to the /mcp
// handler: request ID propagation, real-IP resolution, DNS-rebinding
// protection, and metrics.
func wrapMCPHandler(handler http.Handler, logger *slog.Logger, metrics *httpserver.Metrics, cfg *config.Config) http.Handler {
	return httpserver.RequestIDMiddleware(logger)(
		httpserver.RealIPMiddleware(
			httpserver.DNSRebindingProtection(cfg.Server.AllowedOrigins)(
				metrics.Middleware(handler),
			),
		),
	)
}

func runHTTPServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving over http", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
