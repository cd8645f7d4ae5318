package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ticketdesk/admin-console/config"
	"github.com/ticketdesk/admin-console/internal/adapters/ticketapi"
)

func TestBuildAuthServiceFailsWithoutRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api, err := ticketapi.NewClient(ticketapi.Config{BaseURL: "http://api.example.com"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	tests := []struct {
		name string
		auth config.AuthConfig
	}{
		{
			name: "password mode",
			auth: config.AuthConfig{Mode: config.AuthModePassword},
		},
		{
			name: "dev auth mode",
			auth: config.AuthConfig{
				Mode: config.AuthModeMock,
				DevAuth: config.DevAuthConfig{
					UserID: 1,
					Email:  "dev@example.com",
					Role:   "admin",
				},
			},
		},
		{
			name: "oauth mode",
			auth: config.AuthConfig{
				Mode: config.AuthModeOAuth,
				OAuth: config.OAuthConfig{
					ClientID:     "client-id",
					ClientSecret: "client-secret",
					DiscoveryURL: "https://issuer.example.com",
					RedirectURL:  "https://app.example.com/auth/callback",
					Scope:        "openid",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := BuildAuthService(context.Background(), AuthConfig{
				Auth:   tt.auth,
				API:    api,
				Logger: logger,
			})
			if err == nil {
				t.Fatalf("BuildAuthService() = %v, want error", svc)
			}
		})
	}
}

func TestBuildDevAuthProviderRejectsUnknownRole(t *testing.T) {
	_, err := buildDevAuthProvider(config.AuthConfig{
		DevAuth: config.DevAuthConfig{Email: "dev@example.com", Role: "superuser"},
	})
	if err == nil {
		t.Fatal("buildDevAuthProvider() error = nil, want unknown role error")
	}
}

func TestBuildOAuthProviderRequiresClientSettings(t *testing.T) {
	_, err := buildOAuthProvider(context.Background(), config.OAuthConfig{ClientID: "id"})
	if err == nil {
		t.Fatal("buildOAuthProvider() error = nil, want missing settings error")
	}
}
