package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vkmc/zaqar-websocket/internal/config"
	"github.com/vkmc/zaqar-websocket/internal/storage"
	"github.com/vkmc/zaqar-websocket/pkg/log"
)

// defaultPageSize is used when a listing carries no explicit limit.
const defaultPageSize = 10

// msgClaimedNoID rejects deleting a claimed message without its claim id.
const msgClaimedNoID = "This message is claimed; it cannot be deleted without a valid claim ID."

type handlerFunc func(ctx context.Context, req *Request) (*Response, error)

// Dispatcher owns one operation per action. It is stateless between calls
// and safe for concurrent use from many transport goroutines; every call is
// a one-shot transaction against the storage backend.
type Dispatcher struct {
	cfg     config.Config
	backend storage.Backend
	v       *Validator
	logger  log.Logger

	handlers map[Action]handlerFunc

	// Sanitization specs for the two open-shaped payloads.
	messageSpec []FieldSpec
	claimSpec   []FieldSpec
}

// NewDispatcher wires the dispatcher to its configuration and storage
// backend. A nil logger disables logging.
func NewDispatcher(cfg config.Config, backend storage.Backend, logger log.Logger) (*Dispatcher, error) {
	v, err := NewValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("dispatcher validator: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	d := &Dispatcher{
		cfg:     cfg,
		backend: backend,
		v:       v,
		logger:  logger.With(log.Component("dispatcher")),
		messageSpec: []FieldSpec{
			{Name: "ttl", Type: TypeInt, Default: float64(cfg.Limits.DefaultMessageTTL)},
			{Name: "body", Type: TypeAny},
		},
		claimSpec: []FieldSpec{
			{Name: "queue_name", Type: TypeString},
			{Name: "ttl", Type: TypeInt, Default: float64(300)},
			{Name: "grace", Type: TypeInt, Default: float64(60)},
			{Name: "limit", Type: TypeInt, Default: float64(defaultPageSize)},
		},
	}
	d.handlers = map[Action]handlerFunc{
		ActionQueueList:     d.queueList,
		ActionQueueCreate:   d.queueCreate,
		ActionQueueUpdate:   d.queueUpdate,
		ActionQueueDelete:   d.queueDelete,
		ActionQueueGet:      d.queueGet,
		ActionQueueGetStats: d.queueGetStats,

		ActionMessagePost:       d.messagePost,
		ActionMessageList:       d.messageList,
		ActionMessageGet:        d.messageGet,
		ActionMessageGetMany:    d.messageGetMany,
		ActionMessageDelete:     d.messageDelete,
		ActionMessageDeleteMany: d.messageDeleteMany,

		ActionClaimCreate: d.claimCreate,
		ActionClaimList:   d.claimList,
		ActionClaimGet:    d.claimGet,
		ActionClaimUpdate: d.claimUpdate,
		ActionClaimDelete: d.claimDelete,
	}
	return d, nil
}

// Actions returns the set of known action names.
func (d *Dispatcher) Actions() []Action {
	out := make([]Action, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	return out
}

// Handle runs one request to completion and always produces a well-formed
// Response; the transport never sees an unhandled fault. Untyped errors and
// panics surface to the client as a generic 500 while the full detail goes
// to the server log.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) *Response {
	h, ok := d.handlers[req.Action]
	if !ok {
		return NewErrorResponse(req, ValidationFailed("%q is not a valid action.", string(req.Action)), nil)
	}
	resp, err := d.invoke(ctx, h, req)
	if err != nil {
		apiErr := AsError(err)
		switch apiErr.Kind {
		case KindUnexpected, KindConflict, KindBackendUnavailable:
			d.logger.Error("action failed",
				log.Str("action", string(req.Action)),
				log.Str("project", req.ProjectID()),
				log.Err(err))
		default:
			d.logger.Debug("action rejected",
				log.Str("action", string(req.Action)),
				log.Str("project", req.ProjectID()),
				log.Err(err))
		}
		return NewErrorResponse(req, apiErr, nil)
	}
	return resp
}

// invoke is the blanket wrapper applied to every operation.
func (d *Dispatcher) invoke(ctx context.Context, h handlerFunc, req *Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Unexpected(fmt.Errorf("panic in %s: %v", req.Action, r))
		}
	}()
	return h(ctx, req)
}

func (d *Dispatcher) requireProject(req *Request) error {
	if req.ProjectID() == "" {
		return ValidationFailed("Project id must not be empty.")
	}
	return nil
}

// Queues

func (d *Dispatcher) queueList(ctx context.Context, req *Request) (*Response, error) {
	var p queueListPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.requireProject(req); err != nil {
		return nil, err
	}
	limit := defaultPageSize
	if p.Limit != nil {
		if err := d.v.QueueListing(*p.Limit); err != nil {
			return nil, err
		}
		limit = *p.Limit
	}

	page, err := d.backend.QueueController().List(ctx, req.ProjectID(), storage.ListQueuesOptions{
		Marker:   p.Marker,
		Limit:    limit,
		Detailed: p.Detailed,
	})
	if err != nil {
		return nil, BackendUnavailable("Queues", "listed", err)
	}
	if page.Queues == nil {
		page.Queues = []storage.Queue{}
	}
	body := map[string]interface{}{"queues": page.Queues}
	if len(page.Queues) > 0 {
		body["marker"] = page.NextMarker
	}
	return NewResponse(req, http.StatusOK, body), nil
}

func (d *Dispatcher) queueCreate(ctx context.Context, req *Request) (*Response, error) {
	var p queueMetadataPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if p.Metadata != nil {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, MalformedPayload(err)
		}
		if err := d.v.QueueMetadataLength(len(b)); err != nil {
			return nil, err
		}
	}

	created, err := d.backend.QueueController().Create(ctx, p.QueueName, req.ProjectID(), p.Metadata)
	if err != nil {
		return nil, BackendUnavailable("Queue "+p.QueueName, "created", err)
	}
	if created {
		return NewResponse(req, http.StatusCreated, nil), nil
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

func (d *Dispatcher) queueUpdate(ctx context.Context, req *Request) (*Response, error) {
	var p queueMetadataPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	b, err := json.Marshal(p.Metadata)
	if err != nil {
		return nil, MalformedPayload(err)
	}
	if err := d.v.QueueMetadataLength(len(b)); err != nil {
		return nil, err
	}

	err = d.backend.QueueController().Update(ctx, p.QueueName, req.ProjectID(), p.Metadata)
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", p.QueueName)
	}
	if err != nil {
		return nil, BackendUnavailable("Queue "+p.QueueName, "updated", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

func (d *Dispatcher) queueDelete(ctx context.Context, req *Request) (*Response, error) {
	var p queuePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	// Deletion is idempotent: absent queues still produce 204.
	if err := d.backend.QueueController().Delete(ctx, p.QueueName, req.ProjectID()); err != nil {
		return nil, BackendUnavailable("Queue "+p.QueueName, "deleted", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

func (d *Dispatcher) queueGet(ctx context.Context, req *Request) (*Response, error) {
	var p queuePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	q, err := d.backend.QueueController().Get(ctx, p.QueueName, req.ProjectID())
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", p.QueueName)
	}
	if err != nil {
		return nil, BackendUnavailable("Queue "+p.QueueName, "retrieved", err)
	}
	if q.Metadata == nil {
		q.Metadata = map[string]interface{}{}
	}
	return NewResponse(req, http.StatusOK, q.Metadata), nil
}

func (d *Dispatcher) queueGetStats(ctx context.Context, req *Request) (*Response, error) {
	var p queuePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	stats, err := d.backend.QueueController().Stats(ctx, p.QueueName, req.ProjectID())
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		// The stats shape is fixed even for absent queues; only the status
		// flags the miss.
		return NewErrorResponse(req, NotFound("Queue", p.QueueName),
			map[string]interface{}{"messages": storage.QueueStats{}}), nil
	}
	if err != nil {
		return nil, BackendUnavailable("Queue "+p.QueueName+" stats", "retrieved", err)
	}
	return NewResponse(req, http.StatusOK, map[string]interface{}{"messages": stats}), nil
}

// Messages

func (d *Dispatcher) messagePost(ctx context.Context, req *Request) (*Response, error) {
	if err := d.v.MessageLength(len(req.Body)); err != nil {
		return nil, err
	}
	var p messagePostPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if req.ClientID() == "" {
		return nil, ValidationFailed("The %s header is required.", HeaderClientID)
	}

	var doc interface{}
	if err := json.Unmarshal(p.Messages, &doc); err != nil {
		return nil, MalformedPayload(err)
	}
	clean, err := Sanitize(doc, d.messageSpec)
	if err != nil {
		return nil, err
	}
	messages := make([]storage.NewMessage, 0, len(clean))
	for _, m := range clean {
		body, err := json.Marshal(m["body"])
		if err != nil {
			return nil, MalformedPayload(err)
		}
		messages = append(messages, storage.NewMessage{TTL: intField(m, "ttl"), Body: body})
	}
	if err := d.v.MessagePosting(messages); err != nil {
		return nil, err
	}

	if err := d.ensureQueue(ctx, p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	ids, err := d.backend.MessageController().Post(ctx, p.QueueName, req.ProjectID(), req.ClientID(), messages)
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", p.QueueName)
	}
	if errors.Is(err, storage.ErrMessageConflict) {
		return nil, Conflict("No messages could be enqueued.", err)
	}
	if err != nil {
		return nil, BackendUnavailable("Messages", "enqueued", err)
	}
	return NewResponse(req, http.StatusCreated,
		map[string]interface{}{"message_ids": strings.Join(ids, ",")}), nil
}

// ensureQueue auto-creates the target queue for a post. The existence check
// then create is at-most-once: two racing posts may both attempt creation,
// which the backend treats as a no-op, not an error.
func (d *Dispatcher) ensureQueue(ctx context.Context, queue, project string) error {
	qc := d.backend.QueueController()
	exists, err := qc.Exists(ctx, queue, project)
	if err != nil {
		return BackendUnavailable("Queue "+queue, "retrieved", err)
	}
	if exists {
		return nil
	}
	if !d.cfg.AutoCreateQueues {
		return NotFound("Queue", queue)
	}
	if _, err := qc.Create(ctx, queue, project, nil); err != nil {
		return BackendUnavailable("Queue "+queue, "created", err)
	}
	return nil
}

func (d *Dispatcher) messageList(ctx context.Context, req *Request) (*Response, error) {
	var p messageListPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if req.ClientID() == "" {
		return nil, ValidationFailed("The %s header is required.", HeaderClientID)
	}
	limit := defaultPageSize
	if p.Limit != nil {
		if err := d.v.MessageListing(*p.Limit); err != nil {
			return nil, err
		}
		limit = *p.Limit
	}

	page, err := d.backend.MessageController().List(ctx, p.QueueName, req.ProjectID(), req.ClientID(),
		storage.ListMessagesOptions{
			Marker:         p.Marker,
			Limit:          limit,
			Echo:           p.Echo,
			IncludeClaimed: p.IncludeClaimed,
		})
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", p.QueueName)
	}
	if err != nil {
		return nil, BackendUnavailable("Messages", "listed", err)
	}
	if page.Messages == nil {
		page.Messages = []storage.Message{}
	}
	body := map[string]interface{}{"messages": page.Messages}
	if len(page.Messages) > 0 {
		body["marker"] = page.NextMarker
	}
	return NewResponse(req, http.StatusOK, body), nil
}

func (d *Dispatcher) messageGet(ctx context.Context, req *Request) (*Response, error) {
	var p messageGetPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	m, err := d.backend.MessageController().Get(ctx, p.QueueName, req.ProjectID(), p.MessageID)
	if errors.Is(err, storage.ErrMessageDoesNotExist) {
		return nil, NotFound("Message", p.MessageID)
	}
	if err != nil {
		return nil, BackendUnavailable("Message "+p.MessageID, "retrieved", err)
	}
	return NewResponse(req, http.StatusOK, m), nil
}

func (d *Dispatcher) messageGetMany(ctx context.Context, req *Request) (*Response, error) {
	var p messageGetManyPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	// Absent ids are omitted, never a partial failure.
	messages, err := d.backend.MessageController().BulkGet(ctx, p.QueueName, req.ProjectID(), p.MessageIDs)
	if err != nil {
		return nil, BackendUnavailable("Messages", "retrieved", err)
	}
	if messages == nil {
		messages = []storage.Message{}
	}
	return NewResponse(req, http.StatusOK, map[string]interface{}{"messages": messages}), nil
}

func (d *Dispatcher) messageDelete(ctx context.Context, req *Request) (*Response, error) {
	var p messageDeletePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	err := d.backend.MessageController().Delete(ctx, p.QueueName, req.ProjectID(), p.MessageID, p.ClaimID)
	switch {
	case errors.Is(err, storage.ErrNotPermitted):
		return nil, PermissionDenied(msgClaimedNoID)
	case errors.Is(err, storage.ErrMessageNotClaimed):
		return nil, ValidationFailed("This message is not claimed; it cannot be deleted with a claim ID.")
	case errors.Is(err, storage.ErrClaimDoesNotExist):
		return nil, ValidationFailed("The claim does not exist or has expired.")
	case err != nil:
		return nil, BackendUnavailable("Message "+p.MessageID, "deleted", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

func (d *Dispatcher) messageDeleteMany(ctx context.Context, req *Request) (*Response, error) {
	var p messageDeleteManyPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if err := d.v.MessageDeletion(p.MessageIDs, p.PopLimit); err != nil {
		return nil, err
	}

	mc := d.backend.MessageController()
	if p.PopLimit > 0 {
		popped, err := mc.Pop(ctx, p.QueueName, req.ProjectID(), p.PopLimit)
		if errors.Is(err, storage.ErrQueueDoesNotExist) {
			return nil, NotFound("Queue", p.QueueName)
		}
		if err != nil {
			return nil, BackendUnavailable("Messages", "popped", err)
		}
		if popped == nil {
			popped = []storage.Message{}
		}
		return NewResponse(req, http.StatusOK, map[string]interface{}{"messages": popped}), nil
	}

	if err := mc.BulkDelete(ctx, p.QueueName, req.ProjectID(), p.MessageIDs); err != nil {
		return nil, BackendUnavailable("Messages", "deleted", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

// Claims

// claimView is the client-facing projection of a claim.
type claimView struct {
	ClaimID  string            `json:"claim_id"`
	TTL      int               `json:"ttl"`
	Age      int               `json:"age"`
	Messages []storage.Message `json:"messages,omitempty"`
}

func (d *Dispatcher) claimCreate(ctx context.Context, req *Request) (*Response, error) {
	var doc interface{} = map[string]interface{}{}
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &doc); err != nil {
			return nil, MalformedPayload(err)
		}
	}
	clean, err := Sanitize(doc, d.claimSpec)
	if err != nil {
		return nil, err
	}
	p := clean[0]
	queueName, _ := p["queue_name"].(string)
	ttl, grace, limit := intField(p, "ttl"), intField(p, "grace"), intField(p, "limit")

	if err := d.v.QueueIdentification(queueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if err := d.v.ClaimCreation(ttl, grace, limit); err != nil {
		return nil, err
	}

	claim, err := d.backend.ClaimController().Create(ctx, queueName, req.ProjectID(),
		storage.ClaimOptions{TTL: ttl, Grace: grace, Limit: limit})
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", queueName)
	}
	if err != nil {
		return nil, BackendUnavailable("Claim", "created", err)
	}
	if len(claim.Messages) == 0 {
		return NewResponse(req, http.StatusNoContent, nil), nil
	}
	return NewResponse(req, http.StatusCreated, claimView{
		ClaimID:  claim.ID,
		TTL:      claim.TTL,
		Age:      claim.Age,
		Messages: claim.Messages,
	}), nil
}

func (d *Dispatcher) claimList(ctx context.Context, req *Request) (*Response, error) {
	var p queuePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	claims, err := d.backend.ClaimController().List(ctx, p.QueueName, req.ProjectID())
	if errors.Is(err, storage.ErrQueueDoesNotExist) {
		return nil, NotFound("Queue", p.QueueName)
	}
	if err != nil {
		return nil, BackendUnavailable("Claims", "listed", err)
	}
	views := make([]claimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, claimView{ClaimID: c.ID, TTL: c.TTL, Age: c.Age})
	}
	return NewResponse(req, http.StatusOK, map[string]interface{}{"claims": views}), nil
}

func (d *Dispatcher) claimGet(ctx context.Context, req *Request) (*Response, error) {
	var p claimGetPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	claim, err := d.backend.ClaimController().Get(ctx, p.QueueName, req.ProjectID(), p.ClaimID)
	if errors.Is(err, storage.ErrClaimDoesNotExist) {
		return nil, NotFound("Claim", p.ClaimID)
	}
	if err != nil {
		return nil, BackendUnavailable("Claim "+p.ClaimID, "retrieved", err)
	}
	return NewResponse(req, http.StatusOK, claimView{
		ClaimID:  claim.ID,
		TTL:      claim.TTL,
		Age:      claim.Age,
		Messages: claim.Messages,
	}), nil
}

func (d *Dispatcher) claimUpdate(ctx context.Context, req *Request) (*Response, error) {
	var p claimUpdatePayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}
	if p.TTL == nil {
		return nil, ValidationFailed("The ttl field is required.")
	}
	grace := 60
	if p.Grace != nil {
		grace = *p.Grace
	}
	if err := d.v.ClaimUpdate(*p.TTL, grace); err != nil {
		return nil, err
	}

	err := d.backend.ClaimController().Update(ctx, p.QueueName, req.ProjectID(), p.ClaimID, *p.TTL, grace)
	if errors.Is(err, storage.ErrClaimDoesNotExist) {
		return nil, NotFound("Claim", p.ClaimID)
	}
	if err != nil {
		return nil, BackendUnavailable("Claim "+p.ClaimID, "updated", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}

func (d *Dispatcher) claimDelete(ctx context.Context, req *Request) (*Response, error) {
	var p claimGetPayload
	if err := decodePayload(req, &p); err != nil {
		return nil, err
	}
	if err := d.v.QueueIdentification(p.QueueName, req.ProjectID()); err != nil {
		return nil, err
	}

	// Releasing an absent claim is a no-op; deletion is idempotent.
	if err := d.backend.ClaimController().Delete(ctx, p.QueueName, req.ProjectID(), p.ClaimID); err != nil {
		return nil, BackendUnavailable("Claim "+p.ClaimID, "deleted", err)
	}
	return NewResponse(req, http.StatusNoContent, nil), nil
}
