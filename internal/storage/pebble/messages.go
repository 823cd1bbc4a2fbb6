package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

// messageRecord is the stored representation of a message.
type messageRecord struct {
	ClientID         string          `json:"clientId,omitempty"`
	TTL              int             `json:"ttl"`
	CreatedAtMs      int64           `json:"createdAtMs"`
	Body             json.RawMessage `json:"body"`
	ClaimID          string          `json:"claimId,omitempty"`
	ClaimExpiresAtMs int64           `json:"claimExpiresAtMs,omitempty"`
}

func (r *messageRecord) expired(nowMs int64) bool {
	return nowMs >= r.CreatedAtMs+int64(r.TTL)*1000
}

func (r *messageRecord) claimed(nowMs int64) bool {
	return r.ClaimID != "" && r.ClaimExpiresAtMs > nowMs
}

func (r *messageRecord) ageSeconds(nowMs int64) int {
	return int((nowMs - r.CreatedAtMs) / 1000)
}

func (r *messageRecord) view(id string, nowMs int64) storage.Message {
	return storage.Message{
		ID:   id,
		TTL:  r.TTL,
		Age:  r.ageSeconds(nowMs),
		Body: r.Body,
	}
}

type messageController struct {
	s *Store
}

func (c *messageController) requireQueue(queue, project string) error {
	_, err := c.s.db.Get(queueKey(project, queue))
	if err != nil {
		if IsNotFound(err) {
			return storage.ErrQueueDoesNotExist
		}
		return fmt.Errorf("queue lookup: %w", err)
	}
	return nil
}

func (c *messageController) Post(ctx context.Context, queue, project, clientID string, messages []storage.NewMessage) ([]string, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if err := c.requireQueue(queue, project); err != nil {
		return nil, err
	}

	now := c.s.nowMs()
	b := c.s.db.NewBatch()
	defer b.Close()

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		mid := c.s.gen.Next().String()
		rec := messageRecord{
			ClientID:    clientID,
			TTL:         m.TTL,
			CreatedAtMs: now,
			Body:        m.Body,
		}
		val, err := json.Marshal(&rec)
		if err != nil {
			return nil, fmt.Errorf("message record marshal: %w", err)
		}
		if err := b.Set(messageKey(project, queue, mid), val, nil); err != nil {
			return nil, err
		}
		ids = append(ids, mid)
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("message post: %w", storage.ErrMessageConflict)
	}
	return ids, nil
}

func (c *messageController) List(ctx context.Context, queue, project, clientID string, opts storage.ListMessagesOptions) (storage.MessagePage, error) {
	if err := c.requireQueue(queue, project); err != nil {
		return storage.MessagePage{}, err
	}

	prefix := messageScanPrefix(project, queue)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return storage.MessagePage{}, fmt.Errorf("message list iter: %w", err)
	}
	defer iter.Close()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	now := c.s.nowMs()
	page := storage.MessagePage{}
	ok := iter.First()
	if opts.Marker != "" {
		ok = iter.SeekGE(append(messageKey(project, queue, opts.Marker), 0x00))
	}
	for ; ok; ok = iter.Next() {
		mid := string(iter.Key()[len(prefix):])
		var rec messageRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.expired(now) {
			continue
		}
		if !opts.IncludeClaimed && rec.claimed(now) {
			continue
		}
		if !opts.Echo && clientID != "" && rec.ClientID == clientID {
			continue
		}
		page.Messages = append(page.Messages, rec.view(mid, now))
		page.NextMarker = mid
		if len(page.Messages) >= limit {
			break
		}
	}
	return page, nil
}

func (c *messageController) Get(ctx context.Context, queue, project, messageID string) (storage.Message, error) {
	rec, err := c.load(queue, project, messageID)
	if err != nil {
		return storage.Message{}, err
	}
	return rec.view(messageID, c.s.nowMs()), nil
}

func (c *messageController) BulkGet(ctx context.Context, queue, project string, messageIDs []string) ([]storage.Message, error) {
	now := c.s.nowMs()
	out := make([]storage.Message, 0, len(messageIDs))
	for _, mid := range messageIDs {
		rec, err := c.load(queue, project, mid)
		if err != nil {
			// Absent ids are omitted from a bulk result set.
			continue
		}
		out = append(out, rec.view(mid, now))
	}
	return out, nil
}

func (c *messageController) Delete(ctx context.Context, queue, project, messageID, claimID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	rec, err := c.load(queue, project, messageID)
	if err != nil {
		// Deleting an absent or expired message is a no-op.
		return nil
	}

	now := c.s.nowMs()
	isClaimed := rec.claimed(now)
	if claimID == "" {
		if isClaimed {
			return storage.ErrNotPermitted
		}
	} else {
		if !isClaimed {
			return storage.ErrMessageNotClaimed
		}
		if rec.ClaimID != claimID {
			return storage.ErrClaimDoesNotExist
		}
	}
	if err := c.s.db.Delete(messageKey(project, queue, messageID)); err != nil {
		return fmt.Errorf("message delete: %w", err)
	}
	return nil
}

func (c *messageController) BulkDelete(ctx context.Context, queue, project string, messageIDs []string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	b := c.s.db.NewBatch()
	defer b.Close()
	for _, mid := range messageIDs {
		if err := b.Delete(messageKey(project, queue, mid), nil); err != nil {
			return err
		}
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return fmt.Errorf("message bulk delete: %w", err)
	}
	return nil
}

func (c *messageController) Pop(ctx context.Context, queue, project string, limit int) ([]storage.Message, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if err := c.requireQueue(queue, project); err != nil {
		return nil, err
	}

	prefix := messageScanPrefix(project, queue)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("message pop iter: %w", err)
	}
	defer iter.Close()

	now := c.s.nowMs()
	b := c.s.db.NewBatch()
	defer b.Close()

	var popped []storage.Message
	for ok := iter.First(); ok && len(popped) < limit; ok = iter.Next() {
		mid := string(iter.Key()[len(prefix):])
		var rec messageRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.expired(now) || rec.claimed(now) {
			continue
		}
		if err := b.Delete(iter.Key(), nil); err != nil {
			return nil, err
		}
		popped = append(popped, rec.view(mid, now))
	}
	if len(popped) > 0 {
		if err := c.s.db.CommitBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("message pop: %w", err)
		}
	}
	return popped, nil
}

// load fetches and decodes a message record, treating expired records as
// absent.
func (c *messageController) load(queue, project, messageID string) (*messageRecord, error) {
	raw, err := c.s.db.Get(messageKey(project, queue, messageID))
	if err != nil {
		if IsNotFound(err) {
			return nil, storage.ErrMessageDoesNotExist
		}
		return nil, fmt.Errorf("message lookup: %w", err)
	}
	var rec messageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("message record %s: %w", messageID, err)
	}
	if rec.expired(c.s.nowMs()) {
		return nil, storage.ErrMessageDoesNotExist
	}
	return &rec, nil
}
