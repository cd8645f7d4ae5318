// Package mocks provides gomock implementations of the ticketing ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	src := mocks.NewMockPendingApprovalSource(ctrl)
//	src.EXPECT().PendingApprovals(gomock.Any(), gomock.Any()).Return(items, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=pending_approval_source_mock.go github.com/ticketdesk/admin-console/internal/ports PendingApprovalSource

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_directory_mock.go github.com/ticketdesk/admin-console/internal/ports UserDirectory
