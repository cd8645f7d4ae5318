package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

func newUsersCommand(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}
	cmd.AddCommand(
		newUsersListCommand(st),
		newUsersCreateCommand(st),
		newUsersApproveCommand(st),
		newUsersBarcodeCommand(st),
	)
	return cmd
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func newUsersListCommand(st *rootState) *cobra.Command {
	var opts model.UserListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := st.app
			sess, err := app.require(domainauth.RoleAdmin)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			page, err := app.Users.List(app.authorized(ctx, sess), opts)
			if err != nil {
				return app.apiError(ctx, err)
			}

			app.outMu.Lock()
			defer app.outMu.Unlock()
			tw := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
			for _, u := range page.Users {
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role.Label(), u.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(app.Out, "%d of %d users\n", len(page.Users), page.Total)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 25, "page size (max 100)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")
	return cmd
}

func newUsersCreateCommand(st *rootState) *cobra.Command {
	var (
		in            model.NewUser
		role          string
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := st.app
			sess, err := app.require(domainauth.RoleAdmin)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if passwordStdin {
				line, rerr := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if rerr != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", rerr)
				}
				in.Password = strings.TrimRight(line, "\r\n")
			} else {
				if app.ReadPassword == nil {
					return errors.New("no terminal available for the password prompt (use --password-stdin)")
				}
				if in.Password, err = app.ReadPassword("New user's password: "); err != nil {
					return err
				}
			}
			in.Role = domainauth.Role(role)

			u, err := app.Users.Create(app.authorized(ctx, sess), in)
			if err != nil {
				if field := apperrors.GetField(err); field != "" {
					return fmt.Errorf("%s: %w", field, err)
				}
				return app.apiError(ctx, err)
			}
			app.printf("Created user %d (%s, %s)\n", u.ID, u.FullName(), u.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&role, "role", string(domainauth.RoleUser), "role")
	f.BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newUsersApproveCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "approve USER_ID",
		Short: "Approve a pending account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := st.app
			sess, err := app.require(domainauth.RoleAdmin)
			if err != nil {
				return err
			}
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			u, err := app.Users.Approve(app.authorized(ctx, sess), id)
			if err != nil {
				return app.apiError(ctx, err)
			}
			app.printf("Approved %s (%s)\n", u.FullName(), u.Email)
			return nil
		},
	}
}

func newUsersBarcodeCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "barcode USER_ID",
		Short: "Issue a login barcode card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := st.app
			sess, err := app.require(domainauth.RoleAdmin)
			if err != nil {
				return err
			}
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			card, err := app.Users.IssueBarcodeCard(app.authorized(ctx, sess), id)
			if err != nil {
				return app.apiError(ctx, err)
			}
			app.printf("User %d\nBarcode: *%s*\nIssued: %s\n", card.UserID, card.Barcode, card.IssuedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newRolesCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List roles and their permissions (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := st.app
			sess, err := app.require(domainauth.RoleAdmin)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			roles, err := app.Users.Roles(app.authorized(ctx, sess))
			if err != nil {
				return app.apiError(ctx, err)
			}
			for _, r := range roles {
				app.printf("%s: %s\n", r.Name.Label(), r.Description)
				for _, p := range r.Permissions {
					app.printf("  - %s\n", p)
				}
			}
			return nil
		},
	}
}
