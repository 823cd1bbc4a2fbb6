package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/vkmc/zaqar-websocket/internal/api"
	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

// MessagesController handles message endpoints under a queue.
type MessagesController struct {
	rt    *runtime.Runtime
	paths pathValidator

	// maxPostBytes bounds a post body before it is read.
	maxPostBytes int64
}

// NewMessagesController creates a new messages controller.
func NewMessagesController(rt *runtime.Runtime) *MessagesController {
	limits := rt.Config().Limits
	return &MessagesController{
		rt:           rt,
		paths:        newPathValidator(rt.Config()),
		maxPostBytes: int64(limits.MaxMessageSizeBytes) * int64(limits.MaxMessagesPerPost),
	}
}

// RegisterRoutes registers message routes with the given mux.
func (c *MessagesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/queues/{queue}/messages", before(c.handlePost))
	mux.HandleFunc("GET /v1/queues/{queue}/messages", before(c.handleList))
	mux.HandleFunc("DELETE /v1/queues/{queue}/messages", before(c.handleDeleteMany))
	mux.HandleFunc("GET /v1/queues/{queue}/messages/{id}", before(c.handleGet))
	mux.HandleFunc("DELETE /v1/queues/{queue}/messages/{id}", before(c.handleDelete))
}

// handlePost enqueues a batch of messages.
// POST /v1/queues/{queue}/messages with body {"messages": [{"ttl": ..., "body": ...}, ...]}
func (c *MessagesController) handlePost(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	// The declared length is checked before the body is parsed, bounding
	// memory use against oversized payloads.
	if r.ContentLength > c.maxPostBytes {
		writeError(w, http.StatusBadRequest, "Request body is too large.")
		return
	}
	var in struct {
		Messages json.RawMessage `json:"messages"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, c.maxPostBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Request body could not be parsed.")
		return
	}
	req := api.NewRequest(api.ActionMessagePost, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"messages":   in.Messages,
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleList pages through a queue's messages, or looks up a set of ids
// when the ids parameter is present.
// GET /v1/queues/{queue}/messages?marker=<id>&limit=<n>&echo=<bool>&include_claimed=<bool>
// GET /v1/queues/{queue}/messages?ids=<id>,<id>
func (c *MessagesController) handleList(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if ids := splitIDs(q.Get("ids")); ids != nil {
		req := api.NewRequest(api.ActionMessageGetMany, requestHeaders(r),
			requestBody(map[string]interface{}{"queue_name": name, "message_ids": ids}))
		writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
		return
	}
	fields := map[string]interface{}{
		"queue_name":      name,
		"marker":          q.Get("marker"),
		"echo":            parseBool(q.Get("echo")),
		"include_claimed": parseBool(q.Get("include_claimed")),
	}
	if limit := parseLimit(q.Get("limit")); limit != nil {
		fields["limit"] = *limit
	}
	req := api.NewRequest(api.ActionMessageList, requestHeaders(r), requestBody(fields))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleGet returns one message by id.
// GET /v1/queues/{queue}/messages/{id}
func (c *MessagesController) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionMessageGet, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"message_id": r.PathValue("id"),
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleDelete removes one message, honoring claim ownership.
// DELETE /v1/queues/{queue}/messages/{id}?claim_id=<claim>
func (c *MessagesController) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	req := api.NewRequest(api.ActionMessageDelete, requestHeaders(r), requestBody(map[string]interface{}{
		"queue_name": name,
		"message_id": r.PathValue("id"),
		"claim_id":   r.URL.Query().Get("claim_id"),
	}))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}

// handleDeleteMany removes a set of messages by id, or pops the oldest
// free messages when pop is given. The two modes are mutually exclusive.
// DELETE /v1/queues/{queue}/messages?ids=<id>,<id>
// DELETE /v1/queues/{queue}/messages?pop=<n>
func (c *MessagesController) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	name, ok := c.paths.queueName(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	fields := map[string]interface{}{"queue_name": name}
	if ids := splitIDs(q.Get("ids")); ids != nil {
		fields["message_ids"] = ids
	}
	if pop := parseLimit(q.Get("pop")); pop != nil {
		fields["pop_limit"] = *pop
	}
	req := api.NewRequest(api.ActionMessageDeleteMany, requestHeaders(r), requestBody(fields))
	writeResponse(w, c.rt.Dispatcher().Handle(r.Context(), req))
}
