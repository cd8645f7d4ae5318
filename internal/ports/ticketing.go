package ports

import (
	"context"

	"github.com/ticketdesk/admin-console/internal/domain/model"
)

// PendingApprovalSource fetches one page of pending approvals.
// Implementations drop malformed entries rather than failing the page.
type PendingApprovalSource interface {
	PendingApprovals(ctx context.Context, q model.PendingApprovalQuery) ([]model.PendingApprovalItem, error)
}

// UserDirectory is the user-management surface of the ticketing API.
type UserDirectory interface {
	ListUsers(ctx context.Context, opts model.UserListOptions) (model.UserPage, error)
	CreateUser(ctx context.Context, in model.NewUser) (model.ManagedUser, error)
	ApproveUser(ctx context.Context, id int64) (model.ManagedUser, error)
	ListRoles(ctx context.Context) ([]model.RoleInfo, error)
	IssueBarcodeCard(ctx context.Context, userID int64) (model.BarcodeCard, error)
}
