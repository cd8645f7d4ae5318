package config

import (
	"strings"
	"time"
)

// APIConfig configures the ticketing API client.
type APIConfig struct {
	BaseURL string        `env:"BASE_URL"   envDefault:"http://localhost:3000/api"`
	Timeout time.Duration `env:"TIMEOUT"    envDefault:"10s"`
	// ItemsPath is a JMESPath expression selecting the pending-approval array
	// from the response body. Empty uses the client default.
	ItemsPath string `env:"ITEMS_PATH"`
	UserAgent string `env:"USER_AGENT" envDefault:"ticketdesk-console"`
}

// Sanitize applies guardrails to API client configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
}
