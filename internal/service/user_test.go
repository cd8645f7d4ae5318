package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/mocks"
)

func newUserService(t *testing.T) (*UserService, *mocks.MockUserDirectory) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockUserDirectory(ctrl)
	svc, err := NewUserService(UserServiceOptions{Directory: dir})
	require.NoError(t, err)
	return svc, dir
}

func TestNewUserService_RequiresDirectory(t *testing.T) {
	_, err := NewUserService(UserServiceOptions{})
	require.Error(t, err)
}

func TestUserService_ListNormalizesPaging(t *testing.T) {
	tests := []struct {
		name string
		in   model.UserListOptions
		want model.UserListOptions
	}{
		{"defaults", model.UserListOptions{}, model.UserListOptions{Limit: 25}},
		{"capped", model.UserListOptions{Limit: 500, Offset: 50}, model.UserListOptions{Limit: 100, Offset: 50}},
		{"negative offset", model.UserListOptions{Limit: 10, Offset: -3}, model.UserListOptions{Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, dir := newUserService(t)
			dir.EXPECT().ListUsers(gomock.Any(), tt.want).Return(model.UserPage{Total: 3}, nil)

			page, err := svc.List(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, 3, page.Total)
		})
	}
}

func TestUserService_Overview(t *testing.T) {
	svc, dir := newUserService(t)
	users := []model.ManagedUser{{ID: 1, Status: model.UserStatusPending}}
	roles := []model.RoleInfo{{Name: domainauth.RoleAdmin}}
	dir.EXPECT().ListUsers(gomock.Any(), model.UserListOptions{Limit: 25}).Return(model.UserPage{Users: users, Total: 1}, nil)
	dir.EXPECT().ListRoles(gomock.Any()).Return(roles, nil)

	out, err := svc.Overview(context.Background(), model.UserListOptions{})
	require.NoError(t, err)
	assert.Equal(t, users, out.Page.Users)
	assert.Equal(t, roles, out.Roles)
	assert.Equal(t, 25, out.Opts.Limit)
}

func TestUserService_OverviewFailsWhenEitherCallFails(t *testing.T) {
	svc, dir := newUserService(t)
	dir.EXPECT().ListUsers(gomock.Any(), gomock.Any()).Return(model.UserPage{}, nil)
	dir.EXPECT().ListRoles(gomock.Any()).Return(nil, apperrors.Forbidden("admins only"))

	_, err := svc.Overview(context.Background(), model.UserListOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestUserService_CreateValidatesLocally(t *testing.T) {
	svc, _ := newUserService(t) // no expectations: the API must not be called

	_, err := svc.Create(context.Background(), model.NewUser{FirstName: "Ada", LastName: "L", Email: "nope", Password: "x", Role: "user"})
	require.Error(t, err)
	assert.Equal(t, "email", apperrors.GetField(err))
}

func TestUserService_CreateNormalizes(t *testing.T) {
	svc, dir := newUserService(t)
	want := model.NewUser{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "pw", Role: domainauth.RoleModerator}
	dir.EXPECT().CreateUser(gomock.Any(), want).Return(model.ManagedUser{ID: 9, Role: domainauth.RoleModerator}, nil)

	u, err := svc.Create(context.Background(), model.NewUser{
		FirstName: " Ada ", LastName: "Lovelace", Email: "ADA@example.com", Password: "pw", Role: "Moderator",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
}

func TestUserService_CreatePropagatesConflict(t *testing.T) {
	svc, dir := newUserService(t)
	dir.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(model.ManagedUser{}, apperrors.Conflict("email already registered"))

	_, err := svc.Create(context.Background(), model.NewUser{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "pw", Role: "user"})
	assert.True(t, apperrors.IsConflict(err))
}

func TestUserService_Approve(t *testing.T) {
	svc, dir := newUserService(t)
	dir.EXPECT().ApproveUser(gomock.Any(), int64(4)).Return(model.ManagedUser{ID: 4, Status: model.UserStatusApproved}, nil)

	u, err := svc.Approve(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, u.Pending())

	_, err = svc.Approve(context.Background(), 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUserService_IssueBarcodeCard(t *testing.T) {
	svc, dir := newUserService(t)
	dir.EXPECT().IssueBarcodeCard(gomock.Any(), int64(4)).Return(model.BarcodeCard{UserID: 4, Barcode: "U0004"}, nil)
	dir.EXPECT().IssueBarcodeCard(gomock.Any(), int64(5)).Return(model.BarcodeCard{}, errors.New("boom"))

	card, err := svc.IssueBarcodeCard(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "U0004", card.Barcode)

	_, err = svc.IssueBarcodeCard(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue barcode card")

	_, err = svc.IssueBarcodeCard(context.Background(), -1)
	assert.True(t, apperrors.IsValidation(err))
}
