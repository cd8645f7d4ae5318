package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "resource not found"},
			want: "resource not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to process",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to process: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(wrapped, cause) = false")
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "msg"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := Wrapf(nil, ErrCodeInternal, "msg %d", 1); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestFormattedConstructors(t *testing.T) {
	if got := NotFoundf("user %d", 7).Message; got != "user 7" {
		t.Errorf("NotFoundf message = %q", got)
	}
	if got := Internalf("retry in %ds", 5).Message; got != "retry in 5s" {
		t.Errorf("Internalf message = %q", got)
	}
	f := ValidationField("email", "Email is required")
	if f.Field != "email" || f.Code != ErrCodeValidation {
		t.Errorf("ValidationField = %+v", f)
	}
}

func TestPlainConstructorsKeepMessageVerbatim(t *testing.T) {
	msg := "100% of %s required"
	ctors := map[ErrorCode]func(string) *AppError{
		ErrCodeNotFound:     NotFound,
		ErrCodeConflict:     Conflict,
		ErrCodeValidation:   Validation,
		ErrCodeUnauthorized: Unauthorized,
		ErrCodeForbidden:    Forbidden,
		ErrCodeInternal:     Internal,
	}
	for code, ctor := range ctors {
		err := ctor(msg)
		if err.Code != code || err.Message != msg {
			t.Errorf("%s constructor = {%s %q}, want {%s %q}", code, err.Code, err.Message, code, msg)
		}
	}
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", NotFound("x"), IsNotFound, true},
		{"wrapped not found", fmt.Errorf("op: %w", NotFound("x")), IsNotFound, true},
		{"conflict", Conflict("x"), IsConflict, true},
		{"validation", Validation("x"), IsValidation, true},
		{"unauthorized", Unauthorized("x"), IsUnauthorized, true},
		{"forbidden", Forbidden("x"), IsForbidden, true},
		{"internal", Internal("x"), IsInternal, true},
		{"plain error", errors.New("x"), IsNotFound, false},
		{"nil", nil, IsUnauthorized, false},
		{"different code", Forbidden("x"), IsUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestGetCodeAndField(t *testing.T) {
	if got := GetCode(fmt.Errorf("wrap: %w", Forbidden("no"))); got != ErrCodeForbidden {
		t.Errorf("GetCode = %q", got)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q", got)
	}
	if got := GetField(ValidationField("role", "bad")); got != "role" {
		t.Errorf("GetField = %q", got)
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status  int
		message string
		code    ErrorCode
		wantMsg string
	}{
		{http.StatusBadRequest, "email is invalid", ErrCodeValidation, "email is invalid"},
		{http.StatusUnprocessableEntity, "", ErrCodeValidation, "The request was rejected. Please check your input."},
		{http.StatusUnauthorized, "", ErrCodeUnauthorized, "Your session has expired. Please sign in again."},
		{http.StatusForbidden, "admins only", ErrCodeForbidden, "admins only"},
		{http.StatusNotFound, "", ErrCodeNotFound, "Resource not found"},
		{http.StatusConflict, "  email taken ", ErrCodeConflict, "email taken"},
		{http.StatusServiceUnavailable, "", ErrCodeUnavailable, "The ticketing service is unavailable. Please try again."},
		{http.StatusTeapot, "", ErrCodeInternal, "Unexpected response from ticketing service: I'm a teapot"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, tt.message)
			if err.Code != tt.code {
				t.Errorf("code = %q, want %q", err.Code, tt.code)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestMapTransportError(t *testing.T) {
	if MapTransportError(nil) != nil {
		t.Fatal("expected nil")
	}
	if !IsTimeout(MapTransportError(fmt.Errorf("get: %w", context.DeadlineExceeded))) {
		t.Error("deadline should map to timeout")
	}
	if !IsCanceled(MapTransportError(context.Canceled)) {
		t.Error("canceled should map to canceled")
	}
	if !IsUnavailable(MapTransportError(errors.New("connection refused"))) {
		t.Error("dial failure should map to unavailable")
	}
	orig := Forbidden("nope")
	if got := MapTransportError(orig); got != error(orig) {
		t.Errorf("AppError should pass through, got %v", got)
	}
}
