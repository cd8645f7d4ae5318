package ticketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *syncBuffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logs := &syncBuffer{}
	c, err := NewClient(Config{
		BaseURL:    srv.URL + "/api/",
		Logger:     slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		SessionTTL: time.Hour,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return c, logs
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = NewClient(Config{BaseURL: "http://api", ItemsPath: "data[?"})
	assert.Error(t, err)
	c, err := NewClient(Config{BaseURL: "https://api.example.com"})
	require.NoError(t, err)
	assert.Equal(t, DefaultItemsPath, c.itemsPath)
}

func TestPendingApprovals_Scenario(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workflows/pending-approvals", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("userId"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		_, _ = io.WriteString(w, `{"data":[{"id":1,"reprintRequestId":9,"traceNumber":"TRC-1","reason":"damaged",`+
			`"nodeName":"Supervisor","workflowName":"Reprint","createdAt":"2024-01-01T00:00:00Z"}]}`)
	})

	ctx := WithAccessToken(context.Background(), "tok")
	items, err := c.PendingApprovals(ctx, model.PendingApprovalQuery{SubjectID: 7, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.PendingApprovalItem{
		ID:               1,
		ReprintRequestID: 9,
		TraceNumber:      "TRC-1",
		Reason:           model.ReprintReasonDamaged,
		NodeName:         "Supervisor",
		WorkflowName:     "Reprint",
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, items[0])
}

func TestPendingApprovals_DropsMalformedEntries(t *testing.T) {
	c, logs := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[
			{"id":1,"reprintRequestId":9,"traceNumber":"TRC-1","reason":"damaged","nodeName":"A","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"},
			{"id":2,"reprintRequestId":9,"traceNumber":"TRC-2","reason":"smudged","nodeName":"A","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"},
			{"id":3,"traceNumber":"TRC-3","reason":"lost","nodeName":"A","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"},
			{"id":"4","reprintRequestId":9,"traceNumber":"TRC-4","reason":"lost","nodeName":"A","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"},
			{"id":5,"reprintRequestId":9,"traceNumber":"TRC-5","reason":"faded","nodeName":"A","workflowName":"W","createdAt":"yesterday"},
			{"id":1,"reprintRequestId":9,"traceNumber":"TRC-1","reason":"damaged","nodeName":"A","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"},
			"junk",
			{"id":6,"reprintRequestId":10,"traceNumber":"TRC-6","reason":"print_error","nodeName":"B","workflowName":"W","createdAt":"2024-01-02T00:00:00Z"}
		]}`)
	})

	items, err := c.PendingApprovals(context.Background(), model.PendingApprovalQuery{SubjectID: 7, Limit: 20})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(6), items[1].ID)

	out := logs.String()
	assert.Equal(t, 6, strings.Count(out, "dropping malformed pending approval"))
	assert.Contains(t, out, "smudged")
	assert.Contains(t, out, "missing reprintRequestId")
	assert.Contains(t, out, "duplicate id 1")
}

func TestPendingApprovals_CustomItemsPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"approvals":[{"id":1,"reprintRequestId":9,"traceNumber":"T","reason":"other",`+
			`"nodeName":"N","workflowName":"W","createdAt":"2024-01-01T00:00:00Z"}]}}`)
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, ItemsPath: "result.approvals"})
	require.NoError(t, err)

	items, err := c.PendingApprovals(context.Background(), model.PendingApprovalQuery{SubjectID: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestPendingApprovals_NotAnArray(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"id":1}}`)
	})
	_, err := c.PendingApprovals(context.Background(), model.PendingApprovalQuery{SubjectID: 7, Limit: 20})
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestPendingApprovals_InvalidQuery(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.PendingApprovals(context.Background(), model.PendingApprovalQuery{SubjectID: 0, Limit: 20})
	assert.True(t, apperrors.IsValidation(err))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, apperrors.IsUnauthorized},
		{http.StatusForbidden, apperrors.IsForbidden},
		{http.StatusNotFound, apperrors.IsNotFound},
		{http.StatusConflict, apperrors.IsConflict},
		{http.StatusBadGateway, apperrors.IsUnavailable},
		{http.StatusInternalServerError, apperrors.IsInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"message":"server says no"}`)
			})
			_, err := c.ListRoles(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.Contains(t, err.Error(), "server says no")
		})
	}
}

func TestTransportError(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.ListRoles(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err) || apperrors.IsTimeout(err), "got %v", err)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestAuthenticate(t *testing.T) {
	exp := fixedNow.Add(30 * time.Minute).Truncate(time.Second)
	token := signedToken(t, exp)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"token": token,
			"user":  map[string]any{"id": 7, "firstName": "Ada", "lastName": "L", "email": "ada@example.com", "role": "Admin"},
		}})
	})

	id, err := c.Authenticate(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, id.User)
	assert.Equal(t, int64(7), id.User.ID)
	assert.Equal(t, domainauth.Role("Admin"), id.User.Role)
	assert.Equal(t, token, id.AccessToken)
	assert.True(t, exp.Equal(id.ExpiresAt))

	_, err = c.Authenticate(context.Background(), "ada@example.com", "wrong")
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Invalid email or password")

	_, err = c.Authenticate(context.Background(), "", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestTokenExpiry_FallsBackToSessionTTL(t *testing.T) {
	c, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	assert.Equal(t, fixedNow.Add(time.Hour), c.TokenExpiry("opaque-token"))
}

func TestProfile(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer idp-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"data":{"id":3,"firstName":"Grace","lastName":"H","email":"g@example.com","role":"moderator"}}`)
	})
	u, err := c.Profile(context.Background(), "idp-token")
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, domainauth.RoleModerator, u.Role)

	_, err = c.Profile(context.Background(), "other")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestUserEndpoints(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "GET /api/users":
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"data":[{"id":1,"firstName":"A","email":"a@x.io","role":"USER","status":"pending"}],"total":40}`)
		case "POST /api/users":
			var in model.NewUser
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "b@x.io", in.Email)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"data":{"id":2,"firstName":"B","email":"b@x.io","role":"user","status":"pending"}}`)
		case "PATCH /api/users/2/approve":
			_, _ = io.WriteString(w, `{"data":{"id":2,"firstName":"B","email":"b@x.io","role":"user","status":"approved"}}`)
		case "POST /api/users/2/barcode":
			_, _ = io.WriteString(w, `{"data":{"barcode":"TD-000002","issuedAt":"2024-01-01T00:00:00Z"}}`)
		case "GET /api/roles":
			_, _ = io.WriteString(w, `{"data":[{"name":"admin","description":"Full access","permissions":["users:write"]}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	page, err := c.ListUsers(ctx, model.UserListOptions{Limit: 25})
	require.NoError(t, err)
	assert.Equal(t, 40, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, domainauth.RoleUser, page.Users[0].Role)
	assert.True(t, page.Users[0].Pending())

	created, err := c.CreateUser(ctx, model.NewUser{Email: "b@x.io"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ID)

	approved, err := c.ApproveUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, approved.Pending())

	card, err := c.IssueBarcodeCard(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), card.UserID)
	assert.Equal(t, "TD-000002", card.Barcode)

	roles, err := c.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, domainauth.RoleAdmin, roles[0].Name)
}

func TestListUsers_LenientCreatedAt(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[
			{"id":1,"firstName":"A","role":"user","createdAt":"2024-03-01T10:00:00Z"},
			{"id":2,"firstName":"B","role":"user","createdAt":"yesterday"},
			{"id":3,"firstName":"C","role":"user","createdAt":"2024-03-02 08:30:00"},
			{"id":4,"firstName":"D","role":"user","createdAt":null},
			{"id":5,"firstName":"E","role":"user"}
		]}`)
	})

	page, err := c.ListUsers(context.Background(), model.UserListOptions{Limit: 25})
	require.NoError(t, err, "one bad timestamp must not fail the page")
	require.Len(t, page.Users, 5)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), page.Users[0].CreatedAt)
	assert.True(t, page.Users[1].CreatedAt.IsZero())
	assert.Equal(t, time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC), page.Users[2].CreatedAt)
	assert.True(t, page.Users[3].CreatedAt.IsZero())
	assert.True(t, page.Users[4].CreatedAt.IsZero())
}
