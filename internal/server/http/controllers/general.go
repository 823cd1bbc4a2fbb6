package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

// GeneralController handles endpoints not tied to a queue.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/health", c.handleHealth)
}

// handleHealth reports process liveness. Storage reachability is included
// in the body but never changes the status: a degraded backend is still a
// live process.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	storage := "ok"
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		storage = "unreachable"
	}
	writeJSON(w, map[string]string{"status": "ok", "storage": storage})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
