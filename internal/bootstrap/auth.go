package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ticketdesk/admin-console/config"
	"github.com/ticketdesk/admin-console/internal/adapters/devauth"
	"github.com/ticketdesk/admin-console/internal/adapters/oidc"
	redisadapter "github.com/ticketdesk/admin-console/internal/adapters/redis"
	"github.com/ticketdesk/admin-console/internal/adapters/ticketapi"
	"github.com/ticketdesk/admin-console/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	API         *ticketapi.Client
	Logger      *slog.Logger
}

// BuildAuthService creates an auth service for the configured auth mode.
// Sessions live in Redis, so a missing client is an error.
func BuildAuthService(ctx context.Context, cfg AuthConfig) (*service.AuthService, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("auth: redis client is required for sessions")
	}
	if cfg.API == nil {
		return nil, errors.New("auth: ticketing api client is required")
	}

	opts := service.AuthServiceOptions{
		Sessions: redisadapter.NewSessionStore(redisadapter.SessionStoreOptions{
			Client: cfg.RedisClient,
			Prefix: cfg.Auth.SessionPrefix,
		}),
		Profiles: cfg.API,
		Logger:   cfg.Logger,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		prov, err := buildDevAuthProvider(cfg.Auth)
		if err != nil {
			return nil, err
		}
		opts.Provider = prov

	case config.AuthModeOAuth:
		prov, err := buildOAuthProvider(ctx, cfg.Auth.OAuth)
		if err != nil {
			return nil, err
		}
		opts.Provider = prov

	case config.AuthModePassword, "":
		opts.Credentials = cfg.API

	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Auth.Mode)
	}

	return service.NewAuthService(opts)
}

func buildDevAuthProvider(cfg config.AuthConfig) (*devauth.Provider, error) {
	dev := cfg.DevAuth
	prov, err := devauth.NewProvider(devauth.Config{
		UserID:          dev.UserID,
		FirstName:       dev.FirstName,
		LastName:        dev.LastName,
		Email:           dev.Email,
		Role:            dev.Role,
		AccessToken:     dev.AccessToken,
		SessionDuration: cfg.SessionTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}
	return prov, nil
}

func buildOAuthProvider(ctx context.Context, oauth config.OAuthConfig) (*oidc.Provider, error) {
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		return nil, errors.New("auth: oauth mode requires client id, client secret and discovery url")
	}
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create oidc provider: %w", err)
	}
	return prov, nil
}
