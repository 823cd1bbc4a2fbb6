package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/vkmc/zaqar-websocket/internal/api"
)

// Helper functions for common HTTP responses and request translation.

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeResponse translates a dispatcher Response into an HTTP response. The
// body, when present, is written as-is; a bodyless failure carries its error
// message instead.
func writeResponse(w http.ResponseWriter, resp *api.Response) {
	if resp.Body == nil && resp.Headers.Error == "" {
		w.WriteHeader(resp.Headers.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Headers.Status)
	if resp.Body != nil {
		_ = json.NewEncoder(w).Encode(resp.Body)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"error": resp.Headers.Error})
}

// before wraps a handler with the hooks every queue-scoped route runs ahead
// of dispatch: the Accept header must allow JSON and a project id must be
// present. Failures short-circuit with 4xx before the dispatcher is invoked.
func before(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r.Header.Get("Accept")) {
			writeError(w, http.StatusNotAcceptable, "Client must accept application/json.")
			return
		}
		if r.Header.Get(api.HeaderProjectID) == "" {
			writeError(w, http.StatusBadRequest, "The X-Project-ID header is required.")
			return
		}
		h(w, r)
	}
}

func acceptsJSON(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mt == "*/*" || mt == "application/*" || mt == "application/json" {
			return true
		}
	}
	return false
}

// requestHeaders projects the HTTP headers the dispatcher cares about.
func requestHeaders(r *http.Request) map[string]string {
	return map[string]string{
		api.HeaderProjectID: r.Header.Get(api.HeaderProjectID),
		api.HeaderClientID:  r.Header.Get(api.HeaderClientID),
	}
}

// requestBody marshals an action payload assembled from path and query
// values.
func requestBody(fields map[string]interface{}) json.RawMessage {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}

// parseLimit parses a limit query value. The returned pointer is nil when
// the parameter is absent; malformed values map to -1 so validation rejects
// them.
func parseLimit(q string) *int {
	if q == "" {
		return nil
	}
	n, err := strconv.Atoi(q)
	if err != nil {
		n = -1
	}
	return &n
}

// parseBool parses a boolean query value. Returns true for "true" or "1".
func parseBool(s string) bool {
	return s == "true" || s == "1"
}

// splitIDs splits a comma-separated ids query value.
func splitIDs(q string) []string {
	if q == "" {
		return nil
	}
	return strings.Split(q, ",")
}
