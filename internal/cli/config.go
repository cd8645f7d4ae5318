package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ticketdesk/admin-console/internal/feed"
)

// EnvPrefix is the prefix for environment overrides, e.g. TICKETDESK_API_BASE_URL.
const EnvPrefix = "TICKETDESK"

// APIConfig points the CLI at the ticketing API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ItemsPath string        `mapstructure:"items_path"`
}

// FeedConfig controls the notification feed used by approvals and watch.
type FeedConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PageLimit    int           `mapstructure:"page_limit"`
	PageOffset   int           `mapstructure:"page_offset"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// KeyringConfig configures the encrypted-file fallback when no OS keyring
// is available.
type KeyringConfig struct {
	FileDir      string `mapstructure:"file_dir"`
	FilePassword string `mapstructure:"file_password"`
}

// Config is the CLI configuration file.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Keyring KeyringConfig `mapstructure:"keyring"`
	// Profile selects a keyring entry so several accounts can coexist.
	Profile string `mapstructure:"profile"`
}

// HandleConfig returns the feed.Config watch and approvals start with.
func (c Config) HandleConfig() feed.Config {
	return feed.Config{
		Enabled:      c.Feed.Enabled,
		PageLimit:    c.Feed.PageLimit,
		PageOffset:   c.Feed.PageOffset,
		PollInterval: c.Feed.PollInterval,
	}
}

// DefaultConfigPath returns ~/.config/ticketdesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "ticketdesk", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.items_path", "")
	v.SetDefault("feed.enabled", true)
	v.SetDefault("feed.page_limit", 50)
	v.SetDefault("feed.page_offset", 0)
	v.SetDefault("feed.poll_interval", 30*time.Second)
	v.SetDefault("keyring.file_dir", "")
	v.SetDefault("keyring.file_password", "")
	v.SetDefault("profile", "")
}

// LoadConfig reads path with viper. A missing file yields the defaults, and
// TICKETDESK_* environment variables override both.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	return cfg, nil
}
