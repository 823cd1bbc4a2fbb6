package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vkmc/zaqar-websocket/internal/api"
	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

// ClaimsController handles claim endpoints under a queue.
type ClaimsController struct {
	rt    *runtime.Runtime
	paths pathValidator
}

// NewClaimsController creates a new claims controller.
func NewClaimsController(rt *runtime.Runtime) *ClaimsController {
	return &ClaimsController{rt: rt, paths: newPathValidator(rt.Config())}
}

// RegisterRoutes registers claim routes with the given mux.
func (c *ClaimsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/queues/{queue}/claims", before(c.handleCreate))
	mux.HandleFunc("GET /v1/queues/{queue}/claims", before(c.handleList))
	mux.HandleFunc("GET /v1/queues/{queue}/claims/{id}", before(c.handleGet))
	mux.HandleFunc("PATCH /v1/queues/{queue}/claims/{id}", before(c.handleUpdate))
	mux.HandleFunc("DELETE /v1/queues/{queue}/claims/{id}", before(c.handleDelete))
}

// handleCreate claims a batch of free messages.
// POST /v1/queues/{queue}/claims?limit=<n> with body {"ttl": ..., "grace": ...}
func (c *ClaimsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	fields := map[string]interface{}{"queue_name": name}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return
	}
	if len(raw) > 0 {
		var in map[string]interface{}
		if err := json.Unmarshal(raw, &in); err != nil {
			writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
			return
		}
		for k, v := range in {
			fields[k] = v
		}
	}
	if limit := parseLimit(r.URL.Query().Get("limit")); limit != nil {
		fields["limit"] = *limit
	}
	req := api.NewRequest(api.ActionClaimCreate, requestHeaders(r), requestBody(fields))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleList lists the queue's active claims.
// GET /v1/queues/{queue}/claims
func (c *ClaimsController) handleList(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionClaimList, requestHeaders(r),
		requestBody(map[string]interface{}{"queue_name": name}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleGet returns a claim and the messages it holds.
// GET /v1/queues/{queue}/claims/{id}
func (c *ClaimsController) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionClaimGet, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"claim_id":   r.PathValue("id"),
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleUpdate refreshes a claim's TTL.
// PATCH /v1/queues/{queue}/claims/{id} with body {"ttl": ..., "grace": ...}
func (c *ClaimsController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	var in struct {
		TTL   *int `json:"ttl"`
		Grace *int `json:"grace"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return
	}
	fields := map[string]interface{}{
		"queue_name": name,
		"claim_id":   r.PathValue("id"),
	}
	if in.TTL != nil {
		fields["ttl"] = *in.TTL
	}
	if in.Grace != nil {
		fields["grace"] = *in.Grace
	}
	req := api.NewRequest(api.ActionClaimUpdate, requestHeaders(r), requestBody(fields))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleDelete releases a claim's messages back to the queue.
// DELETE /v1/queues/{queue}/claims/{id}
func (c *ClaimsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionClaimDelete, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"claim_id":   r.PathValue("id"),
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}
