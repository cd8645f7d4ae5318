package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModePassword signs in through the ticketing API's credential endpoint.
	AuthModePassword AuthMode = "password"
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "password", "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: password, oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID      int64  `env:"USER_ID"      envDefault:"1"`
	FirstName   string `env:"FIRST_NAME"   envDefault:"Dev"`
	LastName    string `env:"LAST_NAME"    envDefault:"User"`
	Email       string `env:"EMAIL"        envDefault:"dev@example.com"`
	Role        string `env:"ROLE"         envDefault:"admin"`
	AccessToken string `env:"ACCESS_TOKEN" envDefault:"dev-token"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"password"`

	// SessionTTL bounds a session whose access token carries no expiry.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`

	// SessionPrefix namespaces session keys in Redis.
	SessionPrefix string `env:"AUTH_SESSION_PREFIX" envDefault:"session:"`

	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModePassword
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 8 * time.Hour
	}
	a.OAuth.DiscoveryURL = strings.TrimSpace(a.OAuth.DiscoveryURL)
}

// Validate reports settings the selected mode cannot run without.
func (a AuthConfig) Validate() error {
	if a.Mode != AuthModeOAuth {
		return nil
	}
	var missing []string
	if a.OAuth.ClientID == "" {
		missing = append(missing, "OAUTH_CLIENT_ID")
	}
	if a.OAuth.ClientSecret == "" {
		missing = append(missing, "OAUTH_CLIENT_SECRET")
	}
	if a.OAuth.DiscoveryURL == "" {
		missing = append(missing, "OAUTH_DISCOVERY_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("AUTH_MODE=oauth requires %s", strings.Join(missing, ", "))
	}
	return nil
}
