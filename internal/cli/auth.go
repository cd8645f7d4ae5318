package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

func newLoginCommand(st *rootState) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := st.app
			ctx := cmd.Context()
			if email == "" {
				return errors.New("--email is required")
			}

			var password string
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				if app.ReadPassword == nil {
					return errors.New("no terminal available for the password prompt (use --password-stdin)")
				}
				p, err := app.ReadPassword("Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			identity, err := app.Credentials.Authenticate(ctx, email, password)
			if err != nil {
				return err
			}
			if identity.User == nil {
				return errors.New("ticketing service returned no profile")
			}
			sess := domainauth.Session{
				Authenticated: true,
				User:          identity.User,
				AccessToken:   identity.AccessToken,
				ExpiresAt:     identity.ExpiresAt,
			}
			if err := app.Sessions.SignIn(ctx, sess); err != nil {
				return err
			}
			app.logger().DebugContext(ctx, "signed in", "user_id", identity.User.ID)
			app.printf("Signed in as %s (%s)\n", identity.User.DisplayName(), identity.User.Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newLogoutCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := st.app.Sessions.SignOut(cmd.Context()); err != nil {
				return err
			}
			st.app.printf("Signed out\n")
			return nil
		},
	}
}

func newWhoamiCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sess, err := st.app.require("")
			if err != nil {
				return err
			}
			u := sess.User
			st.app.printf("%s <%s>\nRole: %s\n", u.DisplayName(), u.Email, u.Role.Label())
			if !sess.ExpiresAt.IsZero() {
				st.app.printf("Session expires: %s\n", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
