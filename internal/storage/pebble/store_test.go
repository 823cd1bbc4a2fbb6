package pebblestore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func body(s string) json.RawMessage { return json.RawMessage(s) }

func postN(t *testing.T, s *Store, queue, project, client string, n int) []string {
	t.Helper()
	msgs := make([]storage.NewMessage, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, storage.NewMessage{TTL: 300, Body: body(`"m"`)})
	}
	ids, err := s.MessageController().Post(context.Background(), queue, project, client, msgs)
	require.NoError(t, err)
	return ids
}

func TestQueueCreateIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	qc := s.QueueController()

	created, err := qc.Create(ctx, "orders", "demo", map[string]interface{}{"team": "billing"})
	require.NoError(t, err)
	require.True(t, created)

	created, err = qc.Create(ctx, "orders", "demo", nil)
	require.NoError(t, err)
	require.False(t, created)

	// metadata from the first create survives the second
	q, err := qc.Get(ctx, "orders", "demo")
	require.NoError(t, err)
	require.Equal(t, "billing", q.Metadata["team"])
}

func TestQueueGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.QueueController().Get(context.Background(), "nope", "demo")
	require.ErrorIs(t, err, storage.ErrQueueDoesNotExist)
}

func TestQueueDeleteIdempotentAndCascading(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	qc := s.QueueController()

	_, err := qc.Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	ids := postN(t, s, "q", "demo", "producer", 3)
	require.Len(t, ids, 3)

	require.NoError(t, qc.Delete(ctx, "q", "demo"))
	require.NoError(t, qc.Delete(ctx, "q", "demo")) // second delete still fine

	// messages are gone with the queue
	_, err = qc.Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	page, err := s.MessageController().List(ctx, "q", "demo", "", storage.ListMessagesOptions{Echo: true})
	require.NoError(t, err)
	require.Empty(t, page.Messages)
}

func TestQueueListPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	qc := s.QueueController()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		_, err := qc.Create(ctx, name, "demo", nil)
		require.NoError(t, err)
	}

	page1, err := qc.List(ctx, "demo", storage.ListQueuesOptions{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, queueNames(page1.Queues))

	page2, err := qc.List(ctx, "demo", storage.ListQueuesOptions{Limit: 2, Marker: page1.NextMarker})
	require.NoError(t, err)
	require.Equal(t, []string{"gamma"}, queueNames(page2.Queues))
}

func queueNames(qs []storage.Queue) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Name)
	}
	return out
}

func TestQueueListProjectsIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	qc := s.QueueController()
	_, err := qc.Create(ctx, "mine", "p1", nil)
	require.NoError(t, err)
	_, err = qc.Create(ctx, "theirs", "p2", nil)
	require.NoError(t, err)

	page, err := qc.List(ctx, "p1", storage.ListQueuesOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"mine"}, queueNames(page.Queues))
}

func TestMessagePostPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)

	ids := postN(t, s, "q", "demo", "producer", 5)
	page, err := s.MessageController().List(ctx, "q", "demo", "consumer", storage.ListMessagesOptions{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, ids, messageIDs(page.Messages))
}

func messageIDs(ms []storage.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestMessagePostToMissingQueue(t *testing.T) {
	s := newTestStore(t)
	_, err := s.MessageController().Post(context.Background(), "ghost", "demo", "c",
		[]storage.NewMessage{{TTL: 60, Body: body(`1`)}})
	require.ErrorIs(t, err, storage.ErrQueueDoesNotExist)
}

func TestMessageListMarkerNeverRepeats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "producer", 7)

	seen := map[string]bool{}
	marker := ""
	for {
		page, err := s.MessageController().List(ctx, "q", "demo", "consumer",
			storage.ListMessagesOptions{Limit: 3, Marker: marker})
		require.NoError(t, err)
		if len(page.Messages) == 0 {
			break
		}
		for _, m := range page.Messages {
			require.False(t, seen[m.ID], "message %s repeated across pages", m.ID)
			seen[m.ID] = true
		}
		marker = page.NextMarker
	}
	require.Len(t, seen, 7)
}

func TestMessageListEchoFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "me", 2)

	mc := s.MessageController()
	page, err := mc.List(ctx, "q", "demo", "me", storage.ListMessagesOptions{Limit: 10})
	require.NoError(t, err)
	require.Empty(t, page.Messages, "own messages hidden without echo")

	page, err = mc.List(ctx, "q", "demo", "me", storage.ListMessagesOptions{Limit: 10, Echo: true})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
}

func TestMessageListSkipsClaimedUnlessAsked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "producer", 4)

	claim, err := s.ClaimController().Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 2})
	require.NoError(t, err)
	require.Len(t, claim.Messages, 2)

	mc := s.MessageController()
	page, err := mc.List(ctx, "q", "demo", "consumer", storage.ListMessagesOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)

	page, err = mc.List(ctx, "q", "demo", "consumer", storage.ListMessagesOptions{Limit: 10, IncludeClaimed: true})
	require.NoError(t, err)
	require.Len(t, page.Messages, 4)
}

func TestMessageExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)

	now := int64(1_000_000)
	s.nowMs = func() int64 { return now }
	ids, err := s.MessageController().Post(ctx, "q", "demo", "p",
		[]storage.NewMessage{{TTL: 60, Body: body(`1`)}})
	require.NoError(t, err)

	now += 59_000
	_, err = s.MessageController().Get(ctx, "q", "demo", ids[0])
	require.NoError(t, err)

	now += 2_000 // past the 60s ttl
	_, err = s.MessageController().Get(ctx, "q", "demo", ids[0])
	require.ErrorIs(t, err, storage.ErrMessageDoesNotExist)

	stats, err := s.QueueController().Stats(ctx, "q", "demo")
	require.NoError(t, err)
	require.Equal(t, storage.QueueStats{}, stats)
}

func TestMessageBulkGetOmitsAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	ids := postN(t, s, "q", "demo", "p", 2)

	got, err := s.MessageController().BulkGet(ctx, "q", "demo", []string{ids[0], "missing", ids[1]})
	require.NoError(t, err)
	require.Equal(t, []string{ids[0], ids[1]}, messageIDs(got))
}

func TestMessageDeleteClaimRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "p", 1)

	claim, err := s.ClaimController().Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 1})
	require.NoError(t, err)
	require.Len(t, claim.Messages, 1)
	mid := claim.Messages[0].ID

	mc := s.MessageController()
	// claimed, no claim id given
	require.ErrorIs(t, mc.Delete(ctx, "q", "demo", mid, ""), storage.ErrNotPermitted)
	// claimed, wrong claim id
	require.ErrorIs(t, mc.Delete(ctx, "q", "demo", mid, "bogus"), storage.ErrClaimDoesNotExist)
	// correct claim id
	require.NoError(t, mc.Delete(ctx, "q", "demo", mid, claim.ID))
	// repeat delete is a no-op
	require.NoError(t, mc.Delete(ctx, "q", "demo", mid, ""))
}

func TestMessageDeleteUnclaimedWithClaim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	ids := postN(t, s, "q", "demo", "p", 1)

	err = s.MessageController().Delete(ctx, "q", "demo", ids[0], "some-claim")
	require.ErrorIs(t, err, storage.ErrMessageNotClaimed)
}

func TestMessagePopTakesOldestUnclaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	ids := postN(t, s, "q", "demo", "p", 5)

	// claim the two oldest so pop must skip them
	claim, err := s.ClaimController().Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, ids[:2], messageIDs(claim.Messages))

	popped, err := s.MessageController().Pop(ctx, "q", "demo", 2)
	require.NoError(t, err)
	require.Equal(t, ids[2:4], messageIDs(popped))

	// popped messages are gone
	got, err := s.MessageController().BulkGet(ctx, "q", "demo", ids)
	require.NoError(t, err)
	require.Equal(t, []string{ids[0], ids[1], ids[4]}, messageIDs(got))
}

func TestClaimLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "p", 3)

	cc := s.ClaimController()
	claim, err := cc.Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 120, Grace: 60, Limit: 2})
	require.NoError(t, err)
	require.Len(t, claim.Messages, 2)

	got, err := cc.Get(ctx, "q", "demo", claim.ID)
	require.NoError(t, err)
	require.Equal(t, messageIDs(claim.Messages), messageIDs(got.Messages))

	require.NoError(t, cc.Update(ctx, "q", "demo", claim.ID, 300, 60))

	list, err := cc.List(ctx, "q", "demo")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 300, list[0].TTL)

	require.NoError(t, cc.Delete(ctx, "q", "demo", claim.ID))
	_, err = cc.Get(ctx, "q", "demo", claim.ID)
	require.ErrorIs(t, err, storage.ErrClaimDoesNotExist)

	// released messages are free again
	page, err := s.MessageController().List(ctx, "q", "demo", "c", storage.ListMessagesOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Messages, 3)
}

func TestClaimExpiryFreesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)

	now := int64(1_000_000)
	s.nowMs = func() int64 { return now }
	postN(t, s, "q", "demo", "p", 1)

	cc := s.ClaimController()
	claim, err := cc.Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 1})
	require.NoError(t, err)
	require.Len(t, claim.Messages, 1)

	now += 61_000
	_, err = cc.Get(ctx, "q", "demo", claim.ID)
	require.ErrorIs(t, err, storage.ErrClaimDoesNotExist)

	page, err := s.MessageController().List(ctx, "q", "demo", "c", storage.ListMessagesOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Messages, 1, "message freed after claim expiry")
}

func TestClaimCreateEmptyQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)

	claim, err := s.ClaimController().Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 5})
	require.NoError(t, err)
	require.Empty(t, claim.Messages)
}

func TestStatsShape(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.QueueController().Create(ctx, "q", "demo", nil)
	require.NoError(t, err)
	postN(t, s, "q", "demo", "p", 3)
	_, err = s.ClaimController().Create(ctx, "q", "demo", storage.ClaimOptions{TTL: 60, Grace: 60, Limit: 1})
	require.NoError(t, err)

	stats, err := s.QueueController().Stats(ctx, "q", "demo")
	require.NoError(t, err)
	require.Equal(t, storage.QueueStats{Claimed: 1, Free: 2, Total: 3}, stats)
}
