package errors

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"app error code", fmt.Errorf("fetch: %w", apperrors.Unauthorized("expired")), "unauthorized"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"dial failure", fmt.Errorf("get: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), ClassNetwork},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, "timeout"},
		{"bad json", fmt.Errorf("decode: %w", &json.SyntaxError{Offset: 3}), ClassDecode},
		{"plain", errors.New("boom"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
