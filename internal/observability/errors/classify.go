package errors

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"net"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// Error classes beyond the application error codes.
const (
	ClassNetwork = "network"
	ClassDecode  = "decode"
	ClassOther   = "other"
)

// Classify returns a short, bounded error class for metric tags and alert
// payloads. Application errors use their code.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return string(apperrors.ErrCodeTimeout)
	case goerrors.Is(err, context.Canceled):
		return string(apperrors.ErrCodeCanceled)
	case goerrors.As(err, &netErr):
		if netErr.Timeout() {
			return string(apperrors.ErrCodeTimeout)
		}
		return ClassNetwork
	case goerrors.As(err, &syntaxErr), goerrors.As(err, &typeErr):
		return ClassDecode
	default:
		return ClassOther
	}
}
