package testutil

import (
	"fmt"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
)

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// FixedTimeFunc returns a function that always returns t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SessionFor returns an authenticated session for a user with role, valid
// for an hour after TestTime.
func SessionFor(id int64, role domainauth.Role) domainauth.Session {
	return domainauth.Session{
		ID:            fmt.Sprintf("sess-%d", id),
		Authenticated: true,
		User: &domainauth.User{
			ID:        id,
			FirstName: "Test",
			LastName:  fmt.Sprintf("User%d", id),
			Email:     fmt.Sprintf("user%d@example.com", id),
			Role:      role,
		},
		AccessToken: fmt.Sprintf("token-%d", id),
		ExpiresAt:   TestTime().Add(time.Hour),
	}
}

// PendingApproval returns a valid item with the given id.
func PendingApproval(id int64) model.PendingApprovalItem {
	return model.PendingApprovalItem{
		ID:               id,
		ReprintRequestID: id + 100,
		TraceNumber:      fmt.Sprintf("TRC-%d", id),
		Reason:           model.ReprintReasonDamaged,
		NodeName:         "Supervisor",
		WorkflowName:     "Reprint",
		CreatedAt:        TestTime(),
	}
}

// PendingApprovals returns n items with ids 1..n.
func PendingApprovals(n int) []model.PendingApprovalItem {
	out := make([]model.PendingApprovalItem, n)
	for i := range out {
		out[i] = PendingApproval(int64(i + 1))
	}
	return out
}
