package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/ports"
)

const (
	defaultUserPageSize = 25
	maxUserPageSize     = 100
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Directory ports.UserDirectory // Required
	Logger    *slog.Logger
}

// UserService fronts the ticketing API's user management endpoints. Input is
// validated locally so obvious mistakes never reach the API.
type UserService struct {
	dir    ports.UserDirectory
	logger *slog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Directory == nil {
		return nil, errors.New("UserDirectory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{dir: opts.Directory, logger: logger.With("component", "user_service")}, nil
}

// List returns one page of users. Limit defaults to 25 and is capped at 100.
func (s *UserService) List(ctx context.Context, opts model.UserListOptions) (model.UserPage, error) {
	opts = normalizeUserPage(opts)
	page, err := s.dir.ListUsers(ctx, opts)
	if err != nil {
		return model.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}

// UsersOverview is everything the user management page shows.
type UsersOverview struct {
	Page  model.UserPage
	Roles []model.RoleInfo
	Opts  model.UserListOptions
}

// Overview loads the user page and the role catalogue concurrently.
func (s *UserService) Overview(ctx context.Context, opts model.UserListOptions) (UsersOverview, error) {
	out := UsersOverview{Opts: normalizeUserPage(opts)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.List(gctx, out.Opts)
		out.Page = page
		return err
	})
	g.Go(func() error {
		roles, err := s.Roles(gctx)
		out.Roles = roles
		return err
	})
	if err := g.Wait(); err != nil {
		return UsersOverview{}, err
	}
	return out, nil
}

// Create validates in and creates the user.
func (s *UserService) Create(ctx context.Context, in model.NewUser) (model.ManagedUser, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return model.ManagedUser{}, err
	}
	u, err := s.dir.CreateUser(ctx, in)
	if err != nil {
		return model.ManagedUser{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Approve activates a pending account.
func (s *UserService) Approve(ctx context.Context, id int64) (model.ManagedUser, error) {
	if id <= 0 {
		return model.ManagedUser{}, apperrors.ValidationField("id", "Invalid user id")
	}
	u, err := s.dir.ApproveUser(ctx, id)
	if err != nil {
		return model.ManagedUser{}, fmt.Errorf("approve user %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "user approved", "user_id", id)
	return u, nil
}

// Roles lists the roles the API knows about.
func (s *UserService) Roles(ctx context.Context) ([]model.RoleInfo, error) {
	roles, err := s.dir.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// IssueBarcodeCard issues a fresh login card for the user.
func (s *UserService) IssueBarcodeCard(ctx context.Context, userID int64) (model.BarcodeCard, error) {
	if userID <= 0 {
		return model.BarcodeCard{}, apperrors.ValidationField("id", "Invalid user id")
	}
	card, err := s.dir.IssueBarcodeCard(ctx, userID)
	if err != nil {
		return model.BarcodeCard{}, fmt.Errorf("issue barcode card: %w", err)
	}
	return card, nil
}

func normalizeUserPage(opts model.UserListOptions) model.UserListOptions {
	if opts.Limit <= 0 {
		opts.Limit = defaultUserPageSize
	}
	opts.Limit = min(opts.Limit, maxUserPageSize)
	opts.Offset = max(opts.Offset, 0)
	return opts
}
