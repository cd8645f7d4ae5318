package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]string{"error": p.ErrCode}
	if p.Err != nil {
		body["message"] = p.Err.Error()
		if field := apperrors.GetField(p.Err); field != "" {
			body["field"] = field
		}
	}
	WriteJSON(w, p.Code, body)
}

// WriteAppError maps err's application code onto an HTTP status and writes it.
// Internal errors are reported without their message.
func WriteAppError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		WriteJSON(w, status, map[string]string{"error": code, "message": http.StatusText(status)})
		return
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: err})
}

// StatusFor returns the HTTP status and error code string for err.
func StatusFor(err error) (int, string) {
	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, string(code)
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, string(code)
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, string(code)
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, string(code)
	case apperrors.ErrCodeUnavailable:
		return http.StatusBadGateway, string(code)
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, string(code)
	case "":
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	default:
		return http.StatusInternalServerError, string(code)
	}
}
