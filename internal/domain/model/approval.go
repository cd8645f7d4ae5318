//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReprintReason is why a reprint of a ticket was requested.
type ReprintReason string

const (
	ReprintReasonDamaged         ReprintReason = "damaged"
	ReprintReasonLost            ReprintReason = "lost"
	ReprintReasonPrintError      ReprintReason = "print_error"
	ReprintReasonCustomerRequest ReprintReason = "customer_request"
	ReprintReasonFaded           ReprintReason = "faded"
	ReprintReasonOther           ReprintReason = "other"
)

// Valid reports whether the reason is one the workflow engine emits.
func (r ReprintReason) Valid() bool {
	switch r {
	case ReprintReasonDamaged, ReprintReasonLost, ReprintReasonPrintError,
		ReprintReasonCustomerRequest, ReprintReasonFaded, ReprintReasonOther:
		return true
	default:
		return false
	}
}

// Label is the human form used in lists ("print error").
func (r ReprintReason) Label() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// PendingApprovalItem is one reprint request waiting at a workflow node
// assigned to the current user.
type PendingApprovalItem struct {
	ID               int64         `json:"id"`
	ReprintRequestID int64         `json:"reprintRequestId"`
	TraceNumber      string        `json:"traceNumber"`
	Reason           ReprintReason `json:"reason"`
	NodeName         string        `json:"nodeName"`
	WorkflowName     string        `json:"workflowName"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Validate checks the invariants the UI relies on.
func (p PendingApprovalItem) Validate() error {
	if p.ID <= 0 {
		return errors.New("id must be > 0")
	}
	if p.ReprintRequestID <= 0 {
		return errors.New("reprintRequestId must be > 0")
	}
	if strings.TrimSpace(p.TraceNumber) == "" {
		return errors.New("traceNumber is required")
	}
	if !p.Reason.Valid() {
		return fmt.Errorf("unknown reason %q", p.Reason)
	}
	if p.CreatedAt.IsZero() {
		return errors.New("createdAt is required")
	}
	return nil
}

// PendingApprovalQuery selects one page of pending approvals for a subject.
type PendingApprovalQuery struct {
	SubjectID int64
	Limit     int
	Offset    int
}

// Validate rejects queries the API would answer with an error.
func (q PendingApprovalQuery) Validate() error {
	if q.SubjectID <= 0 {
		return errors.New("subject id must be > 0")
	}
	if q.Limit <= 0 {
		return errors.New("limit must be > 0")
	}
	if q.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	return nil
}
