// Package cli implements the ticketdesk operator command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ticketdesk/admin-console/internal/adapters/keyring"
	"github.com/ticketdesk/admin-console/internal/adapters/ticketapi"
	"github.com/ticketdesk/admin-console/internal/service"
	"github.com/ticketdesk/admin-console/internal/session"
)

// Options configures NewRootCommand. When App is nil it is built from the
// config file before the first command runs.
type Options struct {
	App    *App
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type rootState struct {
	opts       Options
	app        *App
	configPath string
	profile    string
	verbose    bool
}

// NewRootCommand builds the ticketdesk command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	st := &rootState{opts: opts, app: opts.App}

	root := &cobra.Command{
		Use:           "ticketdesk",
		Short:         "Operator console for the ticketing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
	}
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&st.configPath, "config", DefaultConfigPath(), "config file")
	flags.StringVar(&st.profile, "profile", "", "keyring profile (overrides the config file)")
	flags.BoolVarP(&st.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLoginCommand(st),
		newLogoutCommand(st),
		newWhoamiCommand(st),
		newApprovalsCommand(st),
		newWatchCommand(st),
		newUsersCommand(st),
		newRolesCommand(st),
	)
	return root
}

func (st *rootState) init(cmd *cobra.Command) error {
	if st.app != nil {
		if st.app.Out == nil {
			st.app.Out = cmd.OutOrStdout()
		}
		return nil
	}
	cfg, err := LoadConfig(st.configPath)
	if err != nil {
		return err
	}
	if st.profile != "" {
		cfg.Profile = st.profile
	}
	app, err := buildApp(cmd, cfg, st.newLogger())
	if err != nil {
		return err
	}
	st.app = app
	return nil
}

func (st *rootState) newLogger() *slog.Logger {
	level := slog.LevelWarn
	if st.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(st.opts.Stderr, &slog.HandlerOptions{Level: level}))
}

func buildApp(cmd *cobra.Command, cfg Config, logger *slog.Logger) (*App, error) {
	ring, err := keyring.Open(keyring.OpenConfig{
		FileDir:      cfg.Keyring.FileDir,
		FilePassword: cfg.Keyring.FilePassword,
	})
	if err != nil {
		return nil, err
	}
	sessions := session.NewStore(session.StoreOptions{
		Persister: keyring.NewSessionPersister(ring, cfg.Profile),
		Logger:    logger,
	})
	if err := sessions.Load(cmd.Context()); err != nil {
		return nil, err
	}

	api, err := ticketapi.NewClient(ticketapi.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		ItemsPath: cfg.API.ItemsPath,
		UserAgent: "ticketdesk-cli",
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticketing api client: %w", err)
	}
	users, err := service.NewUserService(service.UserServiceOptions{Directory: api, Logger: logger})
	if err != nil {
		return nil, err
	}

	var readPassword func(string) (string, error)
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		readPassword = TerminalPassword(int(f.Fd()), cmd.ErrOrStderr())
	}

	return &App{
		Sessions:     sessions,
		Credentials:  api,
		Approvals:    api,
		Users:        users,
		Authorize:    ticketapi.WithAccessToken,
		Feed:         cfg.HandleConfig(),
		ReadPassword: readPassword,
		Out:          cmd.OutOrStdout(),
		Logger:       logger,
	}, nil
}
