package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

// queueRecord is the stored representation of a queue.
type queueRecord struct {
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAtMs int64                  `json:"createdAtMs"`
}

type queueController struct {
	s *Store
}

func (c *queueController) List(ctx context.Context, project string, opts storage.ListQueuesOptions) (storage.QueuePage, error) {
	prefix := queueScanPrefix(project)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return storage.QueuePage{}, fmt.Errorf("queue list iter: %w", err)
	}
	defer iter.Close()

	page := storage.QueuePage{}
	ok := iter.First()
	if opts.Marker != "" {
		// Resume strictly after the marker.
		ok = iter.SeekGE(append(queueKey(project, opts.Marker), 0x00))
	}
	for ; ok; ok = iter.Next() {
		name := strings.TrimPrefix(string(iter.Key()), string(prefix))
		q := storage.Queue{Name: name}
		if opts.Detailed {
			var rec queueRecord
			if err := json.Unmarshal(iter.Value(), &rec); err != nil {
				return storage.QueuePage{}, fmt.Errorf("queue record %s: %w", name, err)
			}
			q.Metadata = rec.Metadata
		}
		page.Queues = append(page.Queues, q)
		page.NextMarker = name
		if opts.Limit > 0 && len(page.Queues) >= opts.Limit {
			break
		}
	}
	return page, nil
}

func (c *queueController) Create(ctx context.Context, name, project string, metadata map[string]interface{}) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := queueKey(project, name)
	if _, err := c.s.db.Get(key); err == nil {
		// Existing queue: creation is idempotent, and a concurrent create
		// racing past the exists check above lands here as a no-op.
		return false, nil
	} else if !IsNotFound(err) {
		return false, fmt.Errorf("queue lookup: %w", err)
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	rec := queueRecord{Metadata: metadata, CreatedAtMs: c.s.nowMs()}
	b, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("queue record marshal: %w", err)
	}
	if err := c.s.db.Set(key, b); err != nil {
		return false, fmt.Errorf("queue create: %w", err)
	}
	return true, nil
}

func (c *queueController) Update(ctx context.Context, name, project string, metadata map[string]interface{}) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	key := queueKey(project, name)
	raw, err := c.s.db.Get(key)
	if err != nil {
		if IsNotFound(err) {
			return storage.ErrQueueDoesNotExist
		}
		return fmt.Errorf("queue lookup: %w", err)
	}
	var rec queueRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("queue record %s: %w", name, err)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	rec.Metadata = metadata
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("queue record marshal: %w", err)
	}
	if err := c.s.db.Set(key, b); err != nil {
		return fmt.Errorf("queue update: %w", err)
	}
	return nil
}

func (c *queueController) Get(ctx context.Context, name, project string) (storage.Queue, error) {
	raw, err := c.s.db.Get(queueKey(project, name))
	if err != nil {
		if IsNotFound(err) {
			return storage.Queue{}, storage.ErrQueueDoesNotExist
		}
		return storage.Queue{}, fmt.Errorf("queue lookup: %w", err)
	}
	var rec queueRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return storage.Queue{}, fmt.Errorf("queue record %s: %w", name, err)
	}
	return storage.Queue{Name: name, Metadata: rec.Metadata}, nil
}

func (c *queueController) Delete(ctx context.Context, name, project string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	b := c.s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(queueKey(project, name), nil); err != nil {
		return err
	}
	// Drop everything under the queue: messages and claims.
	mp := messageScanPrefix(project, name)
	if err := b.DeleteRange(mp, keyUpperBound(mp), nil); err != nil {
		return err
	}
	cp := claimScanPrefix(project, name)
	if err := b.DeleteRange(cp, keyUpperBound(cp), nil); err != nil {
		return err
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return fmt.Errorf("queue delete: %w", err)
	}
	return nil
}

func (c *queueController) Stats(ctx context.Context, name, project string) (storage.QueueStats, error) {
	if ok, err := c.Exists(ctx, name, project); err != nil {
		return storage.QueueStats{}, err
	} else if !ok {
		return storage.QueueStats{}, storage.ErrQueueDoesNotExist
	}

	now := c.s.nowMs()
	prefix := messageScanPrefix(project, name)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return storage.QueueStats{}, fmt.Errorf("queue stats iter: %w", err)
	}
	defer iter.Close()

	stats := storage.QueueStats{}
	for ok := iter.First(); ok; ok = iter.Next() {
		var rec messageRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.expired(now) {
			continue
		}
		stats.Total++
		if rec.claimed(now) {
			stats.Claimed++
		} else {
			stats.Free++
		}
	}
	return stats, nil
}

func (c *queueController) Exists(ctx context.Context, name, project string) (bool, error) {
	_, err := c.s.db.Get(queueKey(project, name))
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("queue lookup: %w", err)
	}
	return true, nil
}
