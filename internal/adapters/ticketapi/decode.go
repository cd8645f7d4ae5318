package ticketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// wireApproval mirrors the API's pending-approval object. Pointer fields
// distinguish missing members from zero values.
type wireApproval struct {
	ID               *int64  `json:"id"`
	ReprintRequestID *int64  `json:"reprintRequestId"`
	TraceNumber      *string `json:"traceNumber"`
	Reason           *string `json:"reason"`
	NodeName         *string `json:"nodeName"`
	WorkflowName     *string `json:"workflowName"`
	CreatedAt        *string `json:"createdAt"`
}

func (w wireApproval) toModel() (model.PendingApprovalItem, error) {
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("id", w.ID != nil)
	check("reprintRequestId", w.ReprintRequestID != nil)
	check("traceNumber", w.TraceNumber != nil)
	check("reason", w.Reason != nil)
	check("nodeName", w.NodeName != nil)
	check("workflowName", w.WorkflowName != nil)
	check("createdAt", w.CreatedAt != nil)
	if len(missing) > 0 {
		return model.PendingApprovalItem{}, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	created, err := time.Parse(time.RFC3339, *w.CreatedAt)
	if err != nil {
		return model.PendingApprovalItem{}, fmt.Errorf("createdAt: %w", err)
	}
	item := model.PendingApprovalItem{
		ID:               *w.ID,
		ReprintRequestID: *w.ReprintRequestID,
		TraceNumber:      *w.TraceNumber,
		Reason:           model.ReprintReason(*w.Reason),
		NodeName:         *w.NodeName,
		WorkflowName:     *w.WorkflowName,
		CreatedAt:        created,
	}
	return item, item.Validate()
}

// decodeApprovals selects the item array with the configured JMESPath
// expression and converts each entry. Malformed or duplicate entries are
// logged and dropped; the page itself only fails when the array is missing.
func (c *Client) decodeApprovals(ctx context.Context, body []byte) ([]model.PendingApprovalItem, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "malformed pending approvals response")
	}
	selected, err := jmespath.Search(c.itemsPath, doc)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "select pending approvals with %q", c.itemsPath)
	}
	entries, ok := selected.([]any)
	if !ok {
		return nil, apperrors.Internalf("pending approvals: expected array at %q, got %T", c.itemsPath, selected)
	}

	items := make([]model.PendingApprovalItem, 0, len(entries))
	seen := make(map[int64]struct{}, len(entries))
	for i, entry := range entries {
		item, err := decodeApproval(entry)
		if err == nil {
			if _, dup := seen[item.ID]; dup {
				err = fmt.Errorf("duplicate id %d", item.ID)
			}
		}
		if err != nil {
			c.logger.WarnContext(ctx, "dropping malformed pending approval", "index", i, "error", err)
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func decodeApproval(entry any) (model.PendingApprovalItem, error) {
	if _, ok := entry.(map[string]any); !ok {
		return model.PendingApprovalItem{}, fmt.Errorf("expected object, got %T", entry)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return model.PendingApprovalItem{}, err
	}
	var w wireApproval
	if err := json.Unmarshal(raw, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return model.PendingApprovalItem{}, fmt.Errorf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return model.PendingApprovalItem{}, err
	}
	return w.toModel()
}

// wireUser is the API's user object. CreatedAt is display-only, so it is
// parsed leniently rather than failing the page.
type wireUser struct {
	ID        int64   `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Status    string  `json:"status"`
	Barcode   string  `json:"barcode"`
	CreatedAt *string `json:"createdAt"`
}

var userTimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// lenientTime parses the layouts the API has been seen to send. Anything else
// is the zero time, which templates render as blank.
func lenientTime(v *string) time.Time {
	if v == nil {
		return time.Time{}
	}
	raw := strings.TrimSpace(*v)
	for _, layout := range userTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (w wireUser) toUser() (domainauth.User, error) {
	if w.ID <= 0 {
		return domainauth.User{}, apperrors.Internal("ticketing service returned a user without an id")
	}
	return domainauth.User{
		ID:        w.ID,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Email:     w.Email,
		// Kept verbatim; the guard compares roles case-insensitively.
		Role: domainauth.Role(strings.TrimSpace(w.Role)),
	}, nil
}

func (w wireUser) toManaged() model.ManagedUser {
	status := model.UserStatus(strings.ToLower(strings.TrimSpace(w.Status)))
	if status == "" {
		status = model.UserStatusApproved
	}
	role := domainauth.Role(w.Role)
	if r, ok := domainauth.ParseRole(w.Role); ok {
		role = r
	}
	return model.ManagedUser{
		ID:        w.ID,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Email:     w.Email,
		Role:      role,
		Status:    status,
		Barcode:   w.Barcode,
		CreatedAt: lenientTime(w.CreatedAt),
	}
}
