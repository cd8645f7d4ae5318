package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMX_RequestDetection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.False(t, IsHTMX(r))
	assert.False(t, WantsPartial(r))

	r.Header.Set("Hx-Request", "true")
	assert.True(t, IsHTMX(r))
	assert.True(t, WantsPartial(r))

	r.Header.Set("Hx-History-Restore-Request", "true")
	assert.False(t, WantsPartial(r), "history restore needs the full page")
}

func TestSetHXTrigger(t *testing.T) {
	rec := httptest.NewRecorder()
	SetHXTrigger(rec, "notifications:refreshed", nil)
	assert.JSONEq(t, `{"notifications:refreshed":true}`, rec.Header().Get("Hx-Trigger"))

	rec = httptest.NewRecorder()
	SetHXTrigger(rec, "showToast", map[string]string{"message": "ok"})
	assert.JSONEq(t, `{"showToast":{"message":"ok"}}`, rec.Header().Get("Hx-Trigger"))
}

func TestHTMXResponse_ReplaceLocation(t *testing.T) {
	rec := httptest.NewRecorder()
	HTMX(rec).ReplaceLocation("/login")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("Hx-Reswap"))
	assert.Empty(t, rec.Header().Get("Hx-Redirect"), "guard redirects must not push history")

	var trig map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("Hx-Trigger")), &trig))
	assert.Equal(t, "/login", trig[GuardRedirectEvent]["target"])
}

func TestHTMXResponse_Redirect(t *testing.T) {
	rec := httptest.NewRecorder()
	HTMX(rec).Trigger("showToast", map[string]string{"message": "created"}).Redirect("/users")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/users", rec.Header().Get("Hx-Redirect"))
	assert.Contains(t, rec.Header().Get("Hx-Trigger"), "created")
}
