package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data with the given status. Room and session payloads are
// marked uncacheable.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	enc := json.NewEncoder(w)
	// display names are returned as typed
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// NoContent writes a 204 for commands with nothing to return
func NoContent(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
