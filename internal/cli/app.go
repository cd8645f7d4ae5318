package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/term"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/feed"
	"github.com/ticketdesk/admin-console/internal/guard"
	"github.com/ticketdesk/admin-console/internal/ports"
	"github.com/ticketdesk/admin-console/internal/service"
	"github.com/ticketdesk/admin-console/internal/session"
)

var (
	// ErrNotSignedIn is returned when a command needs a session and has none.
	ErrNotSignedIn = errors.New("not signed in; run `ticketdesk login`")
	// ErrSessionEnded is returned when the API rejects the stored token.
	ErrSessionEnded = errors.New("session ended by the ticketing service; run `ticketdesk login`")
)

// RoleError reports a command the signed-in user's role does not allow.
type RoleError struct {
	Required domainauth.Role
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("this command requires the %s role", e.Required.Label())
}

// UsersService is the user management surface the CLI drives.
type UsersService interface {
	List(ctx context.Context, opts model.UserListOptions) (model.UserPage, error)
	Create(ctx context.Context, in model.NewUser) (model.ManagedUser, error)
	Approve(ctx context.Context, id int64) (model.ManagedUser, error)
	Roles(ctx context.Context) ([]model.RoleInfo, error)
	IssueBarcodeCard(ctx context.Context, userID int64) (model.BarcodeCard, error)
}

var _ UsersService = (*service.UserService)(nil)

// App holds everything the commands need. Tests build one with fakes.
type App struct {
	Sessions    *session.Store
	Credentials ports.CredentialAuthenticator
	Approvals   ports.PendingApprovalSource
	Users       UsersService
	// Authorize attaches an access token to API calls.
	Authorize func(ctx context.Context, accessToken string) context.Context
	Feed      feed.Config
	Scheduler feed.Scheduler

	// ReadPassword prompts for a secret without echo.
	ReadPassword func(prompt string) (string, error)

	Out    io.Writer
	Logger *slog.Logger
	Now    func() time.Time

	outMu sync.Mutex
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

// require runs the access guard for a command. Redirect targets map to
// errors since there is nothing to navigate to.
func (a *App) require(role domainauth.Role) (domainauth.Session, error) {
	sess := a.Sessions.Current()
	d := guard.Decide(sess, role)
	if d.Allowed() {
		return sess, nil
	}
	if d.Target == guard.DashboardPath {
		return sess, &RoleError{Required: role}
	}
	return sess, ErrNotSignedIn
}

// authorized returns ctx carrying the session's access token.
func (a *App) authorized(ctx context.Context, sess domainauth.Session) context.Context {
	if a.Authorize == nil {
		return ctx
	}
	return a.Authorize(ctx, sess.AccessToken)
}

// apiError signs out when the API rejected the token.
func (a *App) apiError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsUnauthorized(err) {
		if serr := a.Sessions.SignOut(ctx); serr != nil {
			a.logger().WarnContext(ctx, "failed to clear session", "error", serr)
		}
		return ErrSessionEnded
	}
	return err
}

// TerminalPassword reads a password from fd with echo disabled.
func TerminalPassword(fd int, prompt io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		if !term.IsTerminal(fd) {
			return "", errors.New("no terminal available for the password prompt (use --password-stdin)")
		}
		_, _ = fmt.Fprint(prompt, label)
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
}
