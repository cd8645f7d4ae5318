package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	console "github.com/ticketdesk/admin-console"
	"github.com/ticketdesk/admin-console/config"
	"github.com/ticketdesk/admin-console/internal/adapters/ticketapi"
	httpx "github.com/ticketdesk/admin-console/internal/http"
)

// staticPathFromRoot is where dev mode serves assets from disk.
const staticPathFromRoot = "frontend/static"

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
	// ErrCh receives a listener failure after startup.
	ErrCh chan<- error
}

// pingFunc adapts a function to httpx.HealthChecker.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// StartHTTPServer builds the router, binds the listen address and serves in
// the background. Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler, err := buildHTTPHandler(httpHandlerConfig{
		Logger:      logger,
		Services:    cfg.Services,
		RedisClient: cfg.RedisClient,
		App:         appCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return startServer(serverConfig{
		Logger:  logger,
		Handler: handler,
		HTTP:    appCfg.HTTP,
		ErrCh:   cfg.ErrCh,
	})
}

type httpHandlerConfig struct {
	Logger      *slog.Logger
	Services    ServiceContainer
	RedisClient redis.UniversalClient
	App         *config.AppConfig
}

func buildHTTPHandler(cfg httpHandlerConfig) (http.Handler, error) {
	templates, static := frontendFS(cfg.App.IsDev)
	if cfg.App.IsDev {
		cfg.Logger.Info("serving frontend from disk", "templates", httpx.TemplatePathFromRoot, "static", staticPathFromRoot)
	}

	health := map[string]httpx.HealthChecker{}
	if cfg.RedisClient != nil {
		client := cfg.RedisClient
		health["redis"] = pingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	// Typed nils must not reach the router's interface fields.
	services := httpx.RouterServices{
		Authorize:    ticketapi.WithAccessToken,
		TemplateFS:   templates,
		StaticFS:     static,
		Health:       health,
		CookieDomain: cfg.App.HTTP.CookieDomain,
		Logger:       cfg.Logger,
	}
	if cfg.Services.Auth != nil {
		services.Auth = cfg.Services.Auth
	}
	if cfg.Services.Notifications != nil {
		services.Notifications = cfg.Services.Notifications
	}
	if cfg.Services.Users != nil {
		services.Users = cfg.Services.Users
	}

	return httpx.NewRouter(services)
}

// frontendFS picks embedded assets, or the working tree in dev so template
// edits show up on reload.
func frontendFS(dev bool) (templates, static fs.FS) {
	if dev {
		return os.DirFS(httpx.TemplatePathFromRoot), os.DirFS(staticPathFromRoot)
	}
	return console.TemplateFS(), console.StaticFS()
}

type serverConfig struct {
	Logger  *slog.Logger
	Handler http.Handler
	HTTP    config.HTTPConfig
	ErrCh   chan<- error
}

func startServer(cfg serverConfig) (*http.Server, error) {
	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	readHeader := cfg.HTTP.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = 5 * time.Second
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	go func() {
		cfg.Logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("HTTP server failed", "error", err)
			if cfg.ErrCh != nil {
				select {
				case cfg.ErrCh <- fmt.Errorf("http server: %w", err):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if err := cfg.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
