package storage

import (
	"context"
	"encoding/json"
)

// Queue is a transient view of a stored queue. The core never caches these.
type Queue struct {
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueueStats is the fixed stats shape returned for a queue.
type QueueStats struct {
	Claimed int `json:"claimed"`
	Free    int `json:"free"`
	Total   int `json:"total"`
}

// Message is a transient view of a stored message.
type Message struct {
	ID   string          `json:"id"`
	TTL  int             `json:"ttl"`
	Age  int             `json:"age"`
	Body json.RawMessage `json:"body"`
}

// NewMessage is a message submitted for posting.
type NewMessage struct {
	TTL  int             `json:"ttl"`
	Body json.RawMessage `json:"body"`
}

// Claim is a lease over a set of messages.
type Claim struct {
	ID       string    `json:"id"`
	TTL      int       `json:"ttl"`
	Age      int       `json:"age"`
	Messages []Message `json:"messages,omitempty"`
}

// ListQueuesOptions bounds a queue listing page.
type ListQueuesOptions struct {
	Marker   string
	Limit    int
	Detailed bool
}

// QueuePage is one buffered page of queues plus the marker for the next one.
type QueuePage struct {
	Queues     []Queue
	NextMarker string
}

// ListMessagesOptions bounds a message listing page.
type ListMessagesOptions struct {
	Marker string
	Limit  int
	// Echo includes the caller's own messages in the listing.
	Echo bool
	// IncludeClaimed includes currently claimed messages in the listing.
	IncludeClaimed bool
}

// MessagePage is one buffered page of messages plus the marker for the next
// one. NextMarker is empty when the page is empty.
type MessagePage struct {
	Messages   []Message
	NextMarker string
}

// ClaimOptions parameterizes claim creation.
type ClaimOptions struct {
	TTL   int
	Grace int
	Limit int
}

// QueueController persists queues.
type QueueController interface {
	List(ctx context.Context, project string, opts ListQueuesOptions) (QueuePage, error)
	// Create returns true when the queue was newly created, false when it
	// already existed. Creating an existing queue is not an error.
	Create(ctx context.Context, name, project string, metadata map[string]interface{}) (bool, error)
	// Update replaces queue metadata.
	Update(ctx context.Context, name, project string, metadata map[string]interface{}) error
	Get(ctx context.Context, name, project string) (Queue, error)
	// Delete removes the queue and everything under it. Deleting an absent
	// queue is a no-op.
	Delete(ctx context.Context, name, project string) error
	Stats(ctx context.Context, name, project string) (QueueStats, error)
	Exists(ctx context.Context, name, project string) (bool, error)
}

// MessageController persists messages.
type MessageController interface {
	// Post stores a batch and returns ids in submission order.
	Post(ctx context.Context, queue, project, clientID string, messages []NewMessage) ([]string, error)
	List(ctx context.Context, queue, project, clientID string, opts ListMessagesOptions) (MessagePage, error)
	Get(ctx context.Context, queue, project, messageID string) (Message, error)
	// BulkGet omits absent ids from the result rather than failing.
	BulkGet(ctx context.Context, queue, project string, messageIDs []string) ([]Message, error)
	// Delete enforces claim ownership: deleting a claimed message requires
	// its current claim id (ErrNotPermitted without one, ErrMessageNotClaimed
	// or ErrClaimDoesNotExist on mismatch).
	Delete(ctx context.Context, queue, project, messageID, claimID string) error
	// BulkDelete is idempotent; absent ids are ignored.
	BulkDelete(ctx context.Context, queue, project string, messageIDs []string) error
	// Pop atomically removes and returns up to limit oldest unclaimed
	// messages.
	Pop(ctx context.Context, queue, project string, limit int) ([]Message, error)
}

// ClaimController persists claims.
type ClaimController interface {
	// Create claims up to opts.Limit free messages. A claim over zero
	// messages is returned with an empty Messages slice, not an error.
	Create(ctx context.Context, queue, project string, opts ClaimOptions) (Claim, error)
	List(ctx context.Context, queue, project string) ([]Claim, error)
	Get(ctx context.Context, queue, project, claimID string) (Claim, error)
	// Update refreshes the claim's TTL/grace and resets its expiry.
	Update(ctx context.Context, queue, project, claimID string, ttl, grace int) error
	// Delete releases the claim's messages back to the free pool.
	Delete(ctx context.Context, queue, project, claimID string) error
}

// Backend bundles the three controllers a dispatcher needs.
type Backend interface {
	QueueController() QueueController
	MessageController() MessageController
	ClaimController() ClaimController
}
