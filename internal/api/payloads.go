package api

import "encoding/json"

// Per-action payload shapes. Request bodies form a small closed set; each
// operation decodes Request.Body into its own struct exactly once. Pointer
// fields distinguish "absent, use the default" from an explicit zero, which
// must still be validated.

type queueListPayload struct {
	Marker   string `json:"marker"`
	Limit    *int   `json:"limit"`
	Detailed bool   `json:"detailed"`
}

type queuePayload struct {
	QueueName string `json:"queue_name"`
}

type queueMetadataPayload struct {
	QueueName string                 `json:"queue_name"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type messagePostPayload struct {
	QueueName string          `json:"queue_name"`
	Messages  json.RawMessage `json:"messages"`
}

type messageListPayload struct {
	QueueName      string `json:"queue_name"`
	Marker         string `json:"marker"`
	Limit          *int   `json:"limit"`
	Echo           bool   `json:"echo"`
	IncludeClaimed bool   `json:"include_claimed"`
}

type messageGetPayload struct {
	QueueName string `json:"queue_name"`
	MessageID string `json:"message_id"`
}

type messageGetManyPayload struct {
	QueueName  string   `json:"queue_name"`
	MessageIDs []string `json:"message_ids"`
}

type messageDeletePayload struct {
	QueueName string `json:"queue_name"`
	MessageID string `json:"message_id"`
	ClaimID   string `json:"claim_id"`
}

type messageDeleteManyPayload struct {
	QueueName  string   `json:"queue_name"`
	MessageIDs []string `json:"message_ids"`
	PopLimit   int      `json:"pop_limit"`
}

type claimGetPayload struct {
	QueueName string `json:"queue_name"`
	ClaimID   string `json:"claim_id"`
}

type claimUpdatePayload struct {
	QueueName string `json:"queue_name"`
	ClaimID   string `json:"claim_id"`
	TTL       *int   `json:"ttl"`
	Grace     *int   `json:"grace"`
}

// decodePayload unmarshals a request body into an action's payload struct.
// An empty body leaves the payload at its zero value.
func decodePayload(req *Request, into interface{}) error {
	if len(req.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Body, into); err != nil {
		return MalformedPayload(err)
	}
	return nil
}
