package pebblestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

// claimRecord is the stored representation of a claim.
type claimRecord struct {
	TTL         int      `json:"ttl"`
	Grace       int      `json:"grace"`
	CreatedAtMs int64    `json:"createdAtMs"`
	ExpiresAtMs int64    `json:"expiresAtMs"`
	MessageIDs  []string `json:"messageIds"`
}

func (r *claimRecord) expired(nowMs int64) bool { return nowMs >= r.ExpiresAtMs }

func (r *claimRecord) ageSeconds(nowMs int64) int {
	return int((nowMs - r.CreatedAtMs) / 1000)
}

type claimController struct {
	s *Store
}

func (c *claimController) Create(ctx context.Context, queue, project string, opts storage.ClaimOptions) (storage.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, err := c.s.db.Get(queueKey(project, queue)); err != nil {
		if IsNotFound(err) {
			return storage.Claim{}, storage.ErrQueueDoesNotExist
		}
		return storage.Claim{}, fmt.Errorf("queue lookup: %w", err)
	}

	now := c.s.nowMs()
	claimID := uuid.NewString()
	expiresAt := now + int64(opts.TTL)*1000

	prefix := messageScanPrefix(project, queue)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return storage.Claim{}, fmt.Errorf("claim create iter: %w", err)
	}
	defer iter.Close()

	b := c.s.db.NewBatch()
	defer b.Close()

	claim := storage.Claim{ID: claimID, TTL: opts.TTL}
	var claimedIDs []string
	for ok := iter.First(); ok && len(claimedIDs) < opts.Limit; ok = iter.Next() {
		mid := string(iter.Key()[len(prefix):])
		var rec messageRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.expired(now) || rec.claimed(now) {
			continue
		}
		rec.ClaimID = claimID
		rec.ClaimExpiresAtMs = expiresAt
		// The message must outlive the claim plus its grace period.
		if floor := opts.TTL + opts.Grace; rec.TTL < floor {
			rec.TTL = floor
			rec.CreatedAtMs = now
		}
		val, err := json.Marshal(&rec)
		if err != nil {
			return storage.Claim{}, fmt.Errorf("message record marshal: %w", err)
		}
		if err := b.Set(iter.Key(), val, nil); err != nil {
			return storage.Claim{}, err
		}
		claimedIDs = append(claimedIDs, mid)
		claim.Messages = append(claim.Messages, rec.view(mid, now))
	}

	if len(claimedIDs) == 0 {
		// Nothing to claim; no record is written.
		return claim, nil
	}

	crec := claimRecord{
		TTL:         opts.TTL,
		Grace:       opts.Grace,
		CreatedAtMs: now,
		ExpiresAtMs: expiresAt,
		MessageIDs:  claimedIDs,
	}
	val, err := json.Marshal(&crec)
	if err != nil {
		return storage.Claim{}, fmt.Errorf("claim record marshal: %w", err)
	}
	if err := b.Set(claimKey(project, queue, claimID), val, nil); err != nil {
		return storage.Claim{}, err
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return storage.Claim{}, fmt.Errorf("claim create: %w", err)
	}
	return claim, nil
}

func (c *claimController) List(ctx context.Context, queue, project string) ([]storage.Claim, error) {
	if _, err := c.s.db.Get(queueKey(project, queue)); err != nil {
		if IsNotFound(err) {
			return nil, storage.ErrQueueDoesNotExist
		}
		return nil, fmt.Errorf("queue lookup: %w", err)
	}

	prefix := claimScanPrefix(project, queue)
	iter, err := c.s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: keyUpperBound(prefix)})
	if err != nil {
		return nil, fmt.Errorf("claim list iter: %w", err)
	}
	defer iter.Close()

	now := c.s.nowMs()
	var out []storage.Claim
	for ok := iter.First(); ok; ok = iter.Next() {
		var rec claimRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if rec.expired(now) {
			continue
		}
		out = append(out, storage.Claim{
			ID:  string(iter.Key()[len(prefix):]),
			TTL: rec.TTL,
			Age: rec.ageSeconds(now),
		})
	}
	return out, nil
}

func (c *claimController) Get(ctx context.Context, queue, project, claimID string) (storage.Claim, error) {
	rec, err := c.load(queue, project, claimID)
	if err != nil {
		return storage.Claim{}, err
	}

	now := c.s.nowMs()
	claim := storage.Claim{ID: claimID, TTL: rec.TTL, Age: rec.ageSeconds(now)}
	for _, mid := range rec.MessageIDs {
		raw, err := c.s.db.Get(messageKey(project, queue, mid))
		if err != nil {
			continue
		}
		var mrec messageRecord
		if err := json.Unmarshal(raw, &mrec); err != nil {
			continue
		}
		if mrec.expired(now) || mrec.ClaimID != claimID {
			continue
		}
		claim.Messages = append(claim.Messages, mrec.view(mid, now))
	}
	return claim, nil
}

func (c *claimController) Update(ctx context.Context, queue, project, claimID string, ttl, grace int) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	rec, err := c.load(queue, project, claimID)
	if err != nil {
		return err
	}

	now := c.s.nowMs()
	rec.TTL = ttl
	rec.Grace = grace
	rec.ExpiresAtMs = now + int64(ttl)*1000

	b := c.s.db.NewBatch()
	defer b.Close()

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("claim record marshal: %w", err)
	}
	if err := b.Set(claimKey(project, queue, claimID), val, nil); err != nil {
		return err
	}
	// Push the new expiry down to the claimed messages.
	for _, mid := range rec.MessageIDs {
		raw, err := c.s.db.Get(messageKey(project, queue, mid))
		if err != nil {
			continue
		}
		var mrec messageRecord
		if err := json.Unmarshal(raw, &mrec); err != nil || mrec.ClaimID != claimID {
			continue
		}
		mrec.ClaimExpiresAtMs = rec.ExpiresAtMs
		if floor := ttl + grace; mrec.TTL < floor {
			mrec.TTL = floor
			mrec.CreatedAtMs = now
		}
		mval, err := json.Marshal(&mrec)
		if err != nil {
			continue
		}
		if err := b.Set(messageKey(project, queue, mid), mval, nil); err != nil {
			return err
		}
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return fmt.Errorf("claim update: %w", err)
	}
	return nil
}

func (c *claimController) Delete(ctx context.Context, queue, project, claimID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	rec, err := c.load(queue, project, claimID)
	if err != nil {
		// Deleting an absent or expired claim is a no-op.
		return nil
	}

	b := c.s.db.NewBatch()
	defer b.Close()
	if err := b.Delete(claimKey(project, queue, claimID), nil); err != nil {
		return err
	}
	// Release the claim's messages back to the free pool.
	for _, mid := range rec.MessageIDs {
		raw, err := c.s.db.Get(messageKey(project, queue, mid))
		if err != nil {
			continue
		}
		var mrec messageRecord
		if err := json.Unmarshal(raw, &mrec); err != nil || mrec.ClaimID != claimID {
			continue
		}
		mrec.ClaimID = ""
		mrec.ClaimExpiresAtMs = 0
		mval, err := json.Marshal(&mrec)
		if err != nil {
			continue
		}
		if err := b.Set(messageKey(project, queue, mid), mval, nil); err != nil {
			return err
		}
	}
	if err := c.s.db.CommitBatch(ctx, b); err != nil {
		return fmt.Errorf("claim delete: %w", err)
	}
	return nil
}

// load fetches and decodes a claim record, treating expired records as
// absent.
func (c *claimController) load(queue, project, claimID string) (*claimRecord, error) {
	raw, err := c.s.db.Get(claimKey(project, queue, claimID))
	if err != nil {
		if IsNotFound(err) {
			return nil, storage.ErrClaimDoesNotExist
		}
		return nil, fmt.Errorf("claim lookup: %w", err)
	}
	var rec claimRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("claim record %s: %w", claimID, err)
	}
	if rec.expired(c.s.nowMs()) {
		return nil, storage.ErrClaimDoesNotExist
	}
	return &rec, nil
}
