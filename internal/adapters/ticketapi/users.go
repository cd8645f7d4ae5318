package ticketapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, opts model.UserListOptions) (model.UserPage, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/users", query: q})
	if err != nil {
		return model.UserPage{}, err
	}

	var env struct {
		Data  []wireUser `json:"data"`
		Total *int       `json:"total"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return model.UserPage{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed users response")
	}
	page := model.UserPage{Users: make([]model.ManagedUser, 0, len(env.Data))}
	for _, w := range env.Data {
		page.Users = append(page.Users, w.toManaged())
	}
	page.Total = len(page.Users)
	if env.Total != nil {
		page.Total = *env.Total
	}
	return page, nil
}

// CreateUser registers a new account. The API assigns the barcode and
// decides whether the account starts pending.
func (c *Client) CreateUser(ctx context.Context, in model.NewUser) (model.ManagedUser, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: "/users", body: in})
	if err != nil {
		return model.ManagedUser{}, err
	}
	var w wireUser
	if err := decodeData(body, &w); err != nil {
		return model.ManagedUser{}, err
	}
	return w.toManaged(), nil
}

// ApproveUser activates a pending account.
func (c *Client) ApproveUser(ctx context.Context, id int64) (model.ManagedUser, error) {
	body, err := c.do(ctx, request{method: http.MethodPatch, path: "/users/" + strconv.FormatInt(id, 10) + "/approve"})
	if err != nil {
		return model.ManagedUser{}, err
	}
	var w wireUser
	if err := decodeData(body, &w); err != nil {
		return model.ManagedUser{}, err
	}
	return w.toManaged(), nil
}

// ListRoles returns the roles the API knows about.
func (c *Client) ListRoles(ctx context.Context) ([]model.RoleInfo, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/roles"})
	if err != nil {
		return nil, err
	}
	var roles []model.RoleInfo
	if err := decodeData(body, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// IssueBarcodeCard asks the API to (re)issue the user's login barcode.
func (c *Client) IssueBarcodeCard(ctx context.Context, userID int64) (model.BarcodeCard, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: "/users/" + strconv.FormatInt(userID, 10) + "/barcode"})
	if err != nil {
		return model.BarcodeCard{}, err
	}
	var card model.BarcodeCard
	if err := decodeData(body, &card); err != nil {
		return model.BarcodeCard{}, err
	}
	if card.UserID == 0 {
		card.UserID = userID
	}
	return card, nil
}
