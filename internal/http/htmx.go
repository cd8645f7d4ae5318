package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// GuardRedirectEvent is the client event the layout script turns into
// location.replace(target).
const GuardRedirectEvent = "guard-redirect"

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// IsHistoryRestore reports true when htmx is restoring history (Hx-History-Restore-Request: true).
func IsHistoryRestore(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-History-Restore-Request"), "true")
}

// WantsPartial returns true when the handler should return only the main
// fragment. History restores need the whole document.
func WantsPartial(r *http.Request) bool {
	return IsHTMX(r) && !IsHistoryRestore(r)
}

// SetHXTrigger triggers a client-side event after swap with optional payload.
// It sets the Hx-Trigger response header as a JSON object: {"<event>": <payload>}.
// If payload is nil, the value true is used for the event.
func SetHXTrigger(w http.ResponseWriter, event string, payload any) {
	var value any = true
	if payload != nil {
		value = payload
	}
	b, err := json.Marshal(map[string]any{event: value})
	if err != nil {
		w.Header().Set("Hx-Trigger", "{\""+event+"\":true}")
		return
	}
	w.Header().Set("Hx-Trigger", string(b))
}

// HTMXResponse provides a fluent API for building HTMX responses.
type HTMXResponse struct {
	w http.ResponseWriter
}

// HTMX creates a new HTMXResponse for fluent response building.
func HTMX(w http.ResponseWriter) *HTMXResponse {
	return &HTMXResponse{w: w}
}

// Trigger triggers a client-side event after swap. Chainable.
func (h *HTMXResponse) Trigger(event string, payload any) *HTMXResponse {
	SetHXTrigger(h.w, event, payload)
	return h
}

// Redirect instructs htmx to navigate with a new history entry and writes 204.
// The handler should return immediately after.
func (h *HTMXResponse) Redirect(url string) {
	h.w.Header().Set("Hx-Redirect", url)
	h.w.WriteHeader(http.StatusNoContent)
}

// ReplaceLocation asks the page to swap its location for target without
// adding a history entry, suppressing the swap of the current response.
// Writes 204.
func (h *HTMXResponse) ReplaceLocation(target string) {
	SetHXTrigger(h.w, GuardRedirectEvent, map[string]string{"target": target})
	h.w.Header().Set("Hx-Reswap", "none")
	h.w.WriteHeader(http.StatusNoContent)
}
