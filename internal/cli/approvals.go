package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/feed"
	"github.com/ticketdesk/admin-console/internal/guard"
	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
)

const approvalsPath = "/approvals"

// startFeed starts a feed for the signed-in user with the session's token.
func (a *App) startFeed(ctx context.Context, sess domainauth.Session) *feed.Handle {
	return feed.Start(a.authorized(ctx, sess), sess.SubjectID(), a.Feed, feed.Options{
		Source:    a.Approvals,
		Scheduler: a.Scheduler,
		Logger:    a.logger(),
		Now:       a.Now,
	})
}

func newApprovalsCommand(st *rootState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "List reprint requests waiting for your approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := st.app
			ctx := cmd.Context()
			sess, err := app.require("")
			if err != nil {
				return err
			}

			h := app.startFeed(ctx, sess)
			defer h.Stop()
			if reason := h.NotStartedReason(); reason != nil {
				app.printf("Notifications are turned off: %v\n", reason)
				return nil
			}
			if err := h.RefreshNow(ctx); err != nil {
				return app.apiError(ctx, err)
			}

			state := h.Snapshot()
			if asJSON {
				return writeApprovalsJSON(app.Out, state)
			}
			app.outMu.Lock()
			defer app.outMu.Unlock()
			return renderApprovals(app.Out, state, app.now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func writeApprovalsJSON(w io.Writer, s feed.State) error {
	items := s.Items
	if items == nil {
		items = []model.PendingApprovalItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Count int                         `json:"count"`
		Label string                      `json:"label"`
		Items []model.PendingApprovalItem `json:"items"`
	}{Count: s.Count(), Label: viewmodel.BadgeLabel(s.Count()), Items: items})
}

// renderApprovals prints the badge line and one row per item.
func renderApprovals(w io.Writer, s feed.State, now time.Time) error {
	if _, err := fmt.Fprintf(w, "Pending approvals: %s\n", viewmodel.BadgeLabel(s.Count())); err != nil {
		return err
	}
	if s.Err != nil {
		msg := s.Err.Error()
		var appErr *apperrors.AppError
		if errors.As(s.Err, &appErr) {
			msg = appErr.Message
		}
		if _, err := fmt.Fprintf(w, "! Could not refresh: %s (showing the last list)\n", msg); err != nil {
			return err
		}
	}
	if s.Count() == 0 {
		_, err := fmt.Fprintln(w, "Nothing waiting for you.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TRACE\tREASON\tWORKFLOW\tSTEP\tWAITING")
	for _, it := range s.Items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			it.TraceNumber, it.Reason.Label(), it.WorkflowName, it.NodeName, waitingFor(now.Sub(it.CreatedAt)))
	}
	return tw.Flush()
}

func waitingFor(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d/time.Minute)) + "m"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d/time.Hour)) + "h"
	default:
		return strconv.Itoa(int(d/(24*time.Hour))) + "d"
	}
}

// stateKey identifies what watch has printed so unchanged polls stay quiet.
func stateKey(s feed.State) string {
	var b strings.Builder
	for _, it := range s.Items {
		b.WriteString(strconv.FormatInt(it.ID, 10))
		b.WriteByte(',')
	}
	if s.Err != nil {
		b.WriteString("!" + s.Err.Error())
	}
	return b.String()
}

var errSignedOut = errors.New("signed out")

// cancelNavigator ends the watch when the gate sends the user to /login.
type cancelNavigator struct {
	cancel context.CancelCauseFunc
}

func (n cancelNavigator) Replace(path string) {
	if path == guard.LoginPath {
		n.cancel(errSignedOut)
	}
}

func (cancelNavigator) Push(string) {}

func newWatchCommand(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow pending approvals until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return st.app.watch(ctx)
		},
	}
}

// watch runs until ctx ends or the session does.
func (a *App) watch(ctx context.Context) error {
	sess, err := a.require("")
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	gate, err := guard.NewGate(guard.GateOptions{
		Sessions:  a.Sessions,
		Navigator: cancelNavigator{cancel: cancel},
		Logger:    a.logger(),
		Path:      approvalsPath,
	})
	if err != nil {
		return err
	}
	defer gate.Close()
	gate.Protect(approvalsPath, "")

	if !sess.ExpiresAt.IsZero() {
		expiry := time.AfterFunc(sess.ExpiresAt.Sub(a.now()), func() {
			a.logger().InfoContext(ctx, "session expired")
			if err := a.Sessions.SignOut(context.WithoutCancel(ctx)); err != nil {
				a.logger().WarnContext(ctx, "failed to clear session", "error", err)
			}
		})
		defer expiry.Stop()
	}

	h := a.startFeed(watchCtx, sess)
	defer h.Stop()
	if reason := h.NotStartedReason(); reason != nil {
		a.printf("Notifications are turned off: %v\n", reason)
		return nil
	}

	var last string
	printed := false
	show := func(s feed.State) {
		if s.Loading && s.UpdatedAt.IsZero() && s.Err == nil {
			return
		}
		a.outMu.Lock()
		defer a.outMu.Unlock()
		key := stateKey(s)
		if printed && key == last {
			return
		}
		last, printed = key, true
		_, _ = fmt.Fprintf(a.Out, "\n[%s]\n", a.now().Format("15:04:05"))
		_ = renderApprovals(a.Out, s, a.now())
	}
	unsubscribe := h.Subscribe(func(s feed.State) {
		if apperrors.IsUnauthorized(s.Err) {
			_ = a.apiError(watchCtx, s.Err)
			return
		}
		show(s)
	})
	defer unsubscribe()
	show(h.Snapshot())

	<-watchCtx.Done()
	if errors.Is(context.Cause(watchCtx), errSignedOut) {
		return ErrSessionEnded
	}
	return nil
}
