package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// FromStatus maps a non-2xx status from the ticketing API to an AppError.
// message is the server-provided text, if any.
func FromStatus(status int, message string) *AppError {
	message = strings.TrimSpace(message)
	code := ErrCodeInternal
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = ErrCodeValidation
	case http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case http.StatusForbidden:
		code = ErrCodeForbidden
	case http.StatusNotFound:
		code = ErrCodeNotFound
	case http.StatusConflict:
		code = ErrCodeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = ErrCodeUnavailable
	}
	if message == "" {
		message = defaultMessage(code, status)
	}
	return &AppError{Code: code, Message: message}
}

func defaultMessage(code ErrorCode, status int) string {
	switch code {
	case ErrCodeUnauthorized:
		return "Your session has expired. Please sign in again."
	case ErrCodeForbidden:
		return "You do not have permission to perform this action."
	case ErrCodeNotFound:
		return "Resource not found"
	case ErrCodeUnavailable:
		return "The ticketing service is unavailable. Please try again."
	case ErrCodeValidation:
		return "The request was rejected. Please check your input."
	case ErrCodeConflict:
		return "This value already exists. Please choose a different one."
	default:
		return "Unexpected response from ticketing service: " + http.StatusText(status)
	}
}

// MapTransportError classifies errors returned before any HTTP status was received.
// Errors that are already AppErrors pass through unchanged.
func MapTransportError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	}
	return &AppError{Code: ErrCodeUnavailable, Message: "The ticketing service is unavailable. Please try again.", Cause: err}
}
