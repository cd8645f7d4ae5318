package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfTestHandler() http.Handler {
	return CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCSRFToken(r)))
	}))
}

func TestCSRFProtection_GetIssuesCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	csrfTestHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCSRFCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, cookie.Value, rec.Body.String(), "token exposed to templates")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestCSRFProtection_ExistingCookieReused(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})
	rec := httptest.NewRecorder()
	csrfTestHandler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "tok", rec.Body.String())
}

func TestCSRFProtection_UnsafeMethods(t *testing.T) {
	tests := []struct {
		name   string
		build  func() *http.Request
		status int
	}{
		{
			name:   "post without token",
			build:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/logout", nil) },
			status: http.StatusForbidden,
		},
		{
			name: "header token matches",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/notifications/refresh", nil)
				r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})
				r.Header.Set(DefaultCSRFHeaderName, "tok")
				return r
			},
			status: http.StatusOK,
		},
		{
			name: "header token mismatch",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/notifications/refresh", nil)
				r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})
				r.Header.Set(DefaultCSRFHeaderName, "other")
				return r
			},
			status: http.StatusForbidden,
		},
		{
			name: "form token matches",
			build: func() *http.Request {
				form := url.Values{DefaultCSRFCookieName: {"tok"}}
				r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})
				return r
			},
			status: http.StatusOK,
		},
		{
			name: "json body ignores form field",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/notifications/refresh", strings.NewReader(`{"csrf_token":"tok"}`))
				r.Header.Set("Content-Type", "application/json")
				r.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok"})
				return r
			},
			status: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			csrfTestHandler().ServeHTTP(rec, tt.build())
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestIsSecureRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, isSecureRequest(r))
	r.Header.Set("X-Forwarded-Proto", "http, https")
	assert.True(t, isSecureRequest(r))
}
