package ticketapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// PendingApprovals fetches one page of workflow approvals assigned to q.SubjectID.
func (c *Client) PendingApprovals(ctx context.Context, q model.PendingApprovalQuery) ([]model.PendingApprovalItem, error) {
	if err := q.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid pending approvals query")
	}
	body, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/workflows/pending-approvals",
		query: url.Values{
			"userId": {strconv.FormatInt(q.SubjectID, 10)},
			"limit":  {strconv.Itoa(q.Limit)},
			"offset": {strconv.Itoa(q.Offset)},
		},
	})
	if err != nil {
		return nil, err
	}
	return c.decodeApprovals(ctx, body)
}
