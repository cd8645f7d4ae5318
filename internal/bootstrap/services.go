package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ticketdesk/admin-console/config"
	"github.com/ticketdesk/admin-console/internal/adapters/feedreaper"
	"github.com/ticketdesk/admin-console/internal/adapters/ticketapi"
	"github.com/ticketdesk/admin-console/internal/observability/notify/pagerduty"
	"github.com/ticketdesk/admin-console/internal/observability/notify/slack"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
	"github.com/ticketdesk/admin-console/internal/service"
	"github.com/ticketdesk/admin-console/internal/service/failurenotifier"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	API           *ticketapi.Client
	Auth          *service.AuthService
	Notifications *service.NotificationService
	Users         *service.UserService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	FailureNotifier *failurenotifier.Service
}

// Close flushes the metrics sink.
func (o ObservabilityContainer) Close() error {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Context     context.Context
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg *config.AppConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}
	obs := cfg.Observability

	var metricsSink *statsd.Client
	if obs.Metrics.Active() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    obs.Metrics.StatsdAddr,
			Prefix:     obs.Metrics.Prefix,
			GlobalTags: obs.Metrics.Tags,
			Logger:     obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		FailureNotifier: buildFailureNotifier(obsLogger, obs.Alerts, consoleURL(cfg), metricsSink),
	}
}

// consoleURL is the approvals page linked from outage alerts.
func consoleURL(cfg *config.AppConfig) string {
	if u := cfg.Observability.Alerts.ConsoleURL; u != "" {
		return u
	}
	if cfg.HTTP.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(cfg.HTTP.BaseURL, "/") + "/approvals"
}

// NewServices builds the ticketing API client and every service on top of it.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps require config")
	}
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	observability := buildObservability(logger, cfg)

	api, err := ticketapi.NewClient(ticketapi.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		ItemsPath:  cfg.API.ItemsPath,
		SessionTTL: cfg.Auth.SessionTTL,
		UserAgent:  cfg.API.UserAgent,
		Logger:     logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create ticketing api client: %w", err)
	}

	auth, err := BuildAuthService(ctx, AuthConfig{
		Auth:        cfg.Auth,
		RedisClient: deps.RedisClient,
		API:         api,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create auth service: %w", err)
	}

	notifications, err := service.NewNotificationService(service.NotificationServiceOptions{
		Source:          api,
		Config:          cfg.Feed.HandleConfig(),
		Authorize:       ticketapi.WithAccessToken,
		IdleTTL:         cfg.Feed.IdleTTL,
		OutageThreshold: cfg.Feed.OutageThreshold,
		Notifier:        observability.FailureNotifier,
		Logger:          logger,
		Metrics:         observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create notification service: %w", err)
	}

	users, err := service.NewUserService(service.UserServiceOptions{
		Directory: api,
		Logger:    logger,
	})
	if err != nil {
		notifications.Close()
		return ServiceContainer{}, fmt.Errorf("create user service: %w", err)
	}

	return ServiceContainer{
		API:           api,
		Auth:          auth,
		Notifications: notifications,
		Users:         users,
		Observability: observability,
	}, nil
}

func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.OutageAlertConfig,
	consoleURL string,
	metricsSink *statsd.Client,
) *failurenotifier.Service {
	if !cfg.Enabled {
		return nil
	}

	var sinks []failurenotifier.SinkRegistration

	if cfg.Slack.Configured() {
		slackClient, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.Retries,
			ConsoleURL: consoleURL,
		})
		if err != nil {
			logger.Error("failed to configure slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: slackClient,
			})
		}
	}

	if cfg.PagerDuty.Configured() {
		pdClient, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.Retries,
		})
		if err != nil {
			logger.Error("failed to configure pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: pdClient,
			})
		}
	}

	if len(sinks) == 0 {
		logger.Warn("outage alerts enabled but no sink has a destination")
		return nil
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger:  logger,
		Metrics: metricsSink,
		Sinks:   sinks,
	})
}

// ServiceOrchestrationConfig contains everything needed to run services.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	Services    ServiceContainer
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) (*http.Server, error) {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil, nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:      deps.cfg.Config,
		Services:    deps.cfg.Services,
		RedisClient: deps.cfg.RedisClient,
		Logger:      deps.logger,
		ErrCh:       deps.errCh,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newFeedReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeFeedReaper,
		name: "feed reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil || deps.cfg.Services.Notifications == nil {
				return nil
			}
			var schedule string
			if deps.cfg.Config != nil {
				schedule = deps.cfg.Config.Feed.ReapSchedule
			}
			runner, err := feedreaper.NewRunner(feedreaper.RunnerOptions{
				Reaper:   deps.cfg.Services.Notifications,
				Schedule: schedule,
				Logger:   deps.logger,
				Metrics:  deps.cfg.Services.Observability.MetricsSink,
			})
			if err != nil {
				return err
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newFeedReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) (ServiceStartupResult, error) {
	server, err := startHTTPServerIfEnabled(deps)
	if err != nil {
		return ServiceStartupResult{}, err
	}
	return ServiceStartupResult{
		HTTPServer: server,
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}, nil
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.Services.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result, err := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})
	if err != nil {
		return err
	}

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:           serviceCtx,
		cancel:        cancel,
		errCh:         errCh,
		httpServer:    result.HTTPServer,
		notifications: cfg.Services.Notifications,
		shutdown:      shutdownTimeout(cfg.Config),
		logger:        logger,
		backgrounds:   result.Background,
	})
}

func shutdownTimeout(cfg *config.AppConfig) time.Duration {
	if cfg == nil || cfg.HTTP.ShutdownTimeout <= 0 {
		return shutdownWaitTimeout
	}
	return cfg.HTTP.ShutdownTimeout
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx           context.Context
	cancel        context.CancelFunc
	errCh         <-chan error
	httpServer    *http.Server
	notifications *service.NotificationService
	shutdown      time.Duration
	logger        *slog.Logger
	backgrounds   []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	var stopErr error
	if cfg.httpServer != nil {
		// The service context is already canceled; shutdown gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cfg.ctx), cfg.shutdown)
		defer cancel()

		stopErr = ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		})
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.notifications != nil {
		cfg.notifications.Close()
		cfg.logger.Info("notification feeds stopped")
	}

	return stopErr
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
