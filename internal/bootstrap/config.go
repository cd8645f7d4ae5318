package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ticketdesk/admin-console/config"
)

// logLevel is shared by every handler built here so LOG_LEVEL applies after
// the startup logger already exists.
var logLevel = new(slog.LevelVar)

// InitLogger installs the JSON logger used until configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// ConfigureLogger applies LOG_LEVEL and, in dev mode, swaps to a readable text
// handler on stderr. It returns the logger now installed as the default.
func ConfigureLogger(cfg *config.AppConfig) (*slog.Logger, error) {
	if cfg == nil {
		return slog.Default(), nil
	}
	if cfg.LogLevel != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return slog.Default(), fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		logLevel.Set(l)
	}
	if !cfg.IsDev {
		return slog.Default(), nil
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: true,
	}))
	slog.SetDefault(logger)
	return logger, nil
}

// LoadConfig reads the given dotenv files (default .env) when present, then
// parses the environment.
func LoadConfig(envFiles ...string) (config.AppConfig, error) {
	var cfg config.AppConfig
	if err := godotenv.Load(envFiles...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return cfg, fmt.Errorf("load dotenv: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig reports every startup problem at once: an empty or
// unknown service list, and for the http service an incomplete auth mode or a
// missing API base URL.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.Services.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if len(services) == 0 {
		return errors.New("no services enabled")
	}
	if !services[config.ServiceModeHTTP] {
		return nil
	}

	var problems []error
	if err := cfg.Auth.Validate(); err != nil {
		problems = append(problems, fmt.Errorf("invalid auth configuration: %w", err))
	}
	if cfg.API.BaseURL == "" {
		problems = append(problems, errors.New("API_BASE_URL is required for the http service"))
	}
	return errors.Join(problems...)
}

// GetEnabledServices returns the enabled service names, sorted. Invalid
// configuration yields an empty list; ValidateServiceConfig reports it.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.Services.GetEnabledServices()
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(services))
	for _, mode := range slices.Sorted(maps.Keys(services)) {
		if services[mode] {
			names = append(names, string(mode))
		}
	}
	return names
}
