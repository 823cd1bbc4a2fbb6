package storage

import "errors"

// Typed errors every backend must return for well-known conditions. The
// dispatcher matches on these with errors.Is; ad hoc error values for these
// conditions are a contract violation.
var (
	// ErrQueueDoesNotExist reports an operation against an absent queue.
	ErrQueueDoesNotExist = errors.New("queue does not exist")

	// ErrMessageDoesNotExist reports a single-message lookup miss.
	ErrMessageDoesNotExist = errors.New("message does not exist")

	// ErrClaimDoesNotExist reports a claim lookup miss, including claims
	// that have expired.
	ErrClaimDoesNotExist = errors.New("claim does not exist or has expired")

	// ErrMessageConflict reports that no messages in a post batch could be
	// enqueued.
	ErrMessageConflict = errors.New("no messages could be enqueued")

	// ErrMessageNotClaimed reports a claim id supplied for a message that is
	// not currently claimed, or is claimed under a different claim.
	ErrMessageNotClaimed = errors.New("message is not claimed by the given claim")

	// ErrNotPermitted reports an attempt to modify a claimed message without
	// presenting its claim.
	ErrNotPermitted = errors.New("message is claimed; operation requires its claim")
)
