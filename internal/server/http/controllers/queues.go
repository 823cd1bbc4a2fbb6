package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/vkmc/zaqar-websocket/internal/api"
	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

// QueuesController handles queue CRUD and stats endpoints.
type QueuesController struct {
	rt    *runtime.Runtime
	paths pathValidator
}

// NewQueuesController creates a new queues controller.
func NewQueuesController(rt *runtime.Runtime) *QueuesController {
	return &QueuesController{rt: rt, paths: newPathValidator(rt.Config())}
}

// RegisterRoutes registers queue routes with the given mux.
func (c *QueuesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/queues", before(c.handleList))
	mux.HandleFunc("POST /v1/queues", before(c.handleCreate))
	mux.HandleFunc("GET /v1/queues/{queue}", before(c.handleGet))
	mux.HandleFunc("PATCH /v1/queues/{queue}", before(c.handleUpdate))
	mux.HandleFunc("DELETE /v1/queues/{queue}", before(c.handleDelete))
	mux.HandleFunc("GET /v1/queues/{queue}/stats", before(c.handleStats))
	mux.HandleFunc("GET /v1/queues/{queue}/metadata", before(c.handleGet))
	mux.HandleFunc("PATCH /v1/queues/{queue}/metadata", before(c.handleUpdate))
}

// handleList lists queues for the project.
// GET /v1/queues?marker=<name>&limit=<n>&detailed=<bool>
func (c *QueuesController) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := map[string]interface{}{
		"marker":   q.Get("marker"),
		"detailed": parseBool(q.Get("detailed")),
	}
	if limit := parseLimit(q.Get("limit")); limit != nil {
		fields["limit"] = *limit
	}
	req := api.NewRequest(api.ActionQueueList, requestHeaders(r), requestBody(fields))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleCreate creates a queue.
// POST /v1/queues with body {"queue_name": ..., "metadata": {...}}
func (c *QueuesController) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in struct {
		QueueName string                 `json:"queue_name"`
		Metadata  map[string]interface{} `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return
	}
	req := api.NewRequest(api.ActionQueueCreate, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": in.QueueName,
		"metadata":   in.Metadata,
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleGet returns queue metadata.
// GET /v1/queues/{queue}
func (c *QueuesController) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionQueueGet, requestHeaders(r),
		requestBody(map[string]interface{}{"queue_name": name}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleUpdate replaces queue metadata.
// PATCH /v1/queues/{queue} with the metadata object as body
func (c *QueuesController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	var metadata map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return
	}
	req := api.NewRequest(api.ActionQueueUpdate, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"metadata":   metadata,
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleDelete removes a queue and everything in it.
// DELETE /v1/queues/{queue}
func (c *QueuesController) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionQueueDelete, requestHeaders(r),
		requestBody(map[string]interface{}{"queue_name": name}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleStats returns message counts for a queue.
// GET /v1/queues/{queue}/stats
func (c *QueuesController) handleStats(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionQueueGetStats, requestHeaders(r),
		requestBody(map[string]interface{}{"queue_name": name}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}
