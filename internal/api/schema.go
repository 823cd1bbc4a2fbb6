package api

import "encoding/json"

// actionSchema lists the body fields an action cannot do without. The
// WebSocket binding checks these before a Request is ever built, so a
// structurally broken envelope is rejected without touching the dispatcher.
type actionSchema struct {
	required []string
}

var schemas = map[Action]actionSchema{
	ActionQueueList:     {},
	ActionQueueCreate:   {required: []string{"queue_name"}},
	ActionQueueUpdate:   {required: []string{"queue_name", "metadata"}},
	ActionQueueDelete:   {required: []string{"queue_name"}},
	ActionQueueGet:      {required: []string{"queue_name"}},
	ActionQueueGetStats: {required: []string{"queue_name"}},

	ActionMessagePost:       {required: []string{"queue_name", "messages"}},
	ActionMessageList:       {required: []string{"queue_name"}},
	ActionMessageGet:        {required: []string{"queue_name", "message_id"}},
	ActionMessageGetMany:    {required: []string{"queue_name", "message_ids"}},
	ActionMessageDelete:     {required: []string{"queue_name", "message_id"}},
	ActionMessageDeleteMany: {required: []string{"queue_name"}},

	ActionClaimCreate: {required: []string{"queue_name"}},
	ActionClaimList:   {required: []string{"queue_name"}},
	ActionClaimGet:    {required: []string{"queue_name", "claim_id"}},
	ActionClaimUpdate: {required: []string{"queue_name", "claim_id", "ttl"}},
	ActionClaimDelete: {required: []string{"queue_name", "claim_id"}},
}

// ValidateEnvelope performs the structural checks on an inbound envelope:
// the action must be known, a project id must be present, and the body must
// carry the action's required fields. Returns nil when the envelope is fit
// to dispatch.
func ValidateEnvelope(action Action, headers map[string]string, body json.RawMessage) *Error {
	schema, ok := schemas[action]
	if !ok {
		return ValidationFailed("%q is not a valid action.", string(action))
	}
	if headers[HeaderProjectID] == "" {
		return ValidationFailed("The %s header is required.", HeaderProjectID)
	}
	if len(schema.required) == 0 {
		return nil
	}

	var doc map[string]interface{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &doc); err != nil {
			return MalformedPayload(err)
		}
	}
	for _, field := range schema.required {
		if _, present := doc[field]; !present {
			return ValidationFailed("The %s field is required.", field)
		}
	}
	return nil
}
