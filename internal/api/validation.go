package api

import (
	"regexp"

	"github.com/vkmc/zaqar-websocket/internal/config"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

// Validator enforces structural and policy constraints before any call
// reaches storage. It is stateless and safe for concurrent use. Every check
// returns nil or a *Error of kind ValidationFailed.
type Validator struct {
	cfg       config.Config
	queueName *regexp.Regexp
}

// NewValidator compiles the configured queue-name pattern and returns a
// validator bound to the given configuration.
func NewValidator(cfg config.Config) (*Validator, error) {
	re, err := regexp.Compile(cfg.QueueNameRegex)
	if err != nil {
		return nil, err
	}
	return &Validator{cfg: cfg, queueName: re}, nil
}

// QueueIdentification checks the queue name and project identifier every
// queue-scoped operation carries.
func (v *Validator) QueueIdentification(name, project string) error {
	if project == "" {
		return ValidationFailed("Project id must not be empty.")
	}
	if name == "" {
		return ValidationFailed("Queue name must not be empty.")
	}
	if len(name) > v.cfg.QueueNameMaxLen {
		return ValidationFailed("Queue name must not exceed %d characters.", v.cfg.QueueNameMaxLen)
	}
	if !v.queueName.MatchString(name) {
		return ValidationFailed("Queue name may only contain letters, digits, underscores, and hyphens.")
	}
	return nil
}

// QueueListing bounds an explicitly requested queue page size. Callers
// apply the default themselves when no limit was given.
func (v *Validator) QueueListing(limit int) error {
	if limit < 1 || limit > v.cfg.Limits.MaxQueuesPerPage {
		return ValidationFailed("Limit must be at least 1 and no greater than %d.", v.cfg.Limits.MaxQueuesPerPage)
	}
	return nil
}

// QueueMetadataLength bounds the serialized size of queue metadata.
func (v *Validator) QueueMetadataLength(n int) error {
	if n > v.cfg.Limits.MaxQueueMetadataBytes {
		return ValidationFailed("Queue metadata may not exceed %d bytes.", v.cfg.Limits.MaxQueueMetadataBytes)
	}
	return nil
}

// MessagePosting checks a sanitized batch of messages: count, per-message
// body size, and TTL range.
func (v *Validator) MessagePosting(messages []storage.NewMessage) error {
	if len(messages) == 0 {
		return ValidationFailed("No messages to enqueue.")
	}
	if len(messages) > v.cfg.Limits.MaxMessagesPerPost {
		return ValidationFailed("No more than %d messages may be posted at once.", v.cfg.Limits.MaxMessagesPerPost)
	}
	for _, m := range messages {
		if len(m.Body) > v.cfg.Limits.MaxMessageSizeBytes {
			return ValidationFailed("Message body may not exceed %d bytes.", v.cfg.Limits.MaxMessageSizeBytes)
		}
		if m.TTL < v.cfg.Limits.MinMessageTTL || m.TTL > v.cfg.Limits.MaxMessageTTL {
			return ValidationFailed("The TTL must be between %d and %d seconds.",
				v.cfg.Limits.MinMessageTTL, v.cfg.Limits.MaxMessageTTL)
		}
	}
	return nil
}

// MessageListing bounds an explicitly requested message page size. Callers
// apply the default themselves when no limit was given.
func (v *Validator) MessageListing(limit int) error {
	if limit < 1 || limit > v.cfg.Limits.MaxMessagesPerPage {
		return ValidationFailed("Limit must be at least 1 and no greater than %d.", v.cfg.Limits.MaxMessagesPerPage)
	}
	return nil
}

// MessageLength checks a declared content length before the body is parsed,
// bounding memory use against oversized payloads.
func (v *Validator) MessageLength(contentLength int) error {
	budget := v.cfg.Limits.MaxMessageSizeBytes * v.cfg.Limits.MaxMessagesPerPost
	if contentLength > budget {
		return ValidationFailed("Request body may not exceed %d bytes.", budget)
	}
	return nil
}

// MessageDeletion enforces that a bulk deletion selects exactly one mode:
// an explicit id list or a pop limit.
func (v *Validator) MessageDeletion(ids []string, popLimit int) error {
	if len(ids) > 0 && popLimit > 0 {
		return ValidationFailed("ids and pop cannot be used together.")
	}
	if len(ids) == 0 && popLimit == 0 {
		return ValidationFailed("Either ids or pop must be provided.")
	}
	if popLimit != 0 && (popLimit < 1 || popLimit > v.cfg.Limits.MaxPopLimit) {
		return ValidationFailed("pop must be at least 1 and no greater than %d.", v.cfg.Limits.MaxPopLimit)
	}
	return nil
}

// ClaimCreation bounds the TTL, grace period, and message count of a new
// claim.
func (v *Validator) ClaimCreation(ttl, grace, limit int) error {
	if ttl < v.cfg.Limits.MinClaimTTL || ttl > v.cfg.Limits.MaxClaimTTL {
		return ValidationFailed("The claim TTL must be between %d and %d seconds.",
			v.cfg.Limits.MinClaimTTL, v.cfg.Limits.MaxClaimTTL)
	}
	if grace < 0 || grace > v.cfg.Limits.MaxClaimGrace {
		return ValidationFailed("The claim grace must be between 0 and %d seconds.", v.cfg.Limits.MaxClaimGrace)
	}
	if limit < 1 || limit > v.cfg.Limits.MaxMessagesPerClaim {
		return ValidationFailed("Limit must be at least 1 and no greater than %d.", v.cfg.Limits.MaxMessagesPerClaim)
	}
	return nil
}

// ClaimUpdate bounds the refreshed TTL and grace of an existing claim.
func (v *Validator) ClaimUpdate(ttl, grace int) error {
	if ttl < v.cfg.Limits.MinClaimTTL || ttl > v.cfg.Limits.MaxClaimTTL {
		return ValidationFailed("The claim TTL must be between %d and %d seconds.",
			v.cfg.Limits.MinClaimTTL, v.cfg.Limits.MaxClaimTTL)
	}
	if grace < 0 || grace > v.cfg.Limits.MaxClaimGrace {
		return ValidationFailed("The claim grace must be between 0 and %d seconds.", v.cfg.Limits.MaxClaimGrace)
	}
	return nil
}
