package api

import "encoding/json"

// Header names shared by both transports.
const (
	HeaderProjectID = "X-Project-ID"
	HeaderClientID  = "Client-ID"
)

// Action names one dispatcher operation.
type Action string

const (
	ActionQueueList     Action = "queue_list"
	ActionQueueCreate   Action = "queue_create"
	ActionQueueUpdate   Action = "queue_update"
	ActionQueueDelete   Action = "queue_delete"
	ActionQueueGet      Action = "queue_get"
	ActionQueueGetStats Action = "queue_get_stats"

	ActionMessagePost       Action = "message_post"
	ActionMessageList       Action = "message_list"
	ActionMessageGet        Action = "message_get"
	ActionMessageGetMany    Action = "message_get_many"
	ActionMessageDelete     Action = "message_delete"
	ActionMessageDeleteMany Action = "message_delete_many"

	ActionClaimCreate Action = "claim_create"
	ActionClaimList   Action = "claim_list"
	ActionClaimGet    Action = "claim_get"
	ActionClaimUpdate Action = "claim_update"
	ActionClaimDelete Action = "claim_delete"
)

// Request is the transport-agnostic representation of one inbound action.
// Transports build it from their native message; it is immutable after
// construction and carries no transport state.
type Request struct {
	Action  Action
	Headers map[string]string
	Body    json.RawMessage
}

// NewRequest builds a Request. A nil headers map is replaced with an empty
// one so lookups never panic.
func NewRequest(action Action, headers map[string]string, body json.RawMessage) *Request {
	if headers == nil {
		headers = map[string]string{}
	}
	return &Request{Action: action, Headers: headers, Body: body}
}

// Header returns the named header, or "" when absent.
func (r *Request) Header(name string) string { return r.Headers[name] }

// ProjectID returns the tenant identifier carried by the request.
func (r *Request) ProjectID() string { return r.Headers[HeaderProjectID] }

// ClientID returns the client identifier carried by the request.
func (r *Request) ClientID() string { return r.Headers[HeaderClientID] }

// ResponseHeaders carries the status code and, on failure, the user-facing
// error message.
type ResponseHeaders struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Response is the terminal result of one dispatched request. It is
// constructed exactly once per request. The back-reference to the request is
// for correlation only.
type Response struct {
	Request *Request        `json:"-"`
	Headers ResponseHeaders `json:"headers"`
	Body    interface{}     `json:"body,omitempty"`
}

// NewResponse builds a success Response. A zero status defaults to 200.
func NewResponse(req *Request, status int, body interface{}) *Response {
	if status == 0 {
		status = 200
	}
	return &Response{
		Request: req,
		Headers: ResponseHeaders{Status: status},
		Body:    body,
	}
}

// NewErrorResponse builds a failure Response from a typed error, carrying
// the kind's status code and canonical message. An optional body overrides
// the default empty one (queue stats keeps its fixed shape even on 404).
func NewErrorResponse(req *Request, apiErr *Error, body interface{}) *Response {
	return &Response{
		Request: req,
		Headers: ResponseHeaders{Status: apiErr.Status(), Error: apiErr.Message},
		Body:    body,
	}
}
