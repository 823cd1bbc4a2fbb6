package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkmc/zaqar-websocket/internal/config"
	"github.com/vkmc/zaqar-websocket/internal/storage"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(config.Default())
	require.NoError(t, err)
	return v
}

func TestQueueIdentification(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.QueueIdentification("orders", "demo"))
	require.NoError(t, v.QueueIdentification("a-b_C9", "demo"))

	cases := []struct {
		name    string
		queue   string
		project string
	}{
		{"empty project", "orders", ""},
		{"empty name", "", "demo"},
		{"bad charset", "or ders", "demo"},
		{"slash", "a/b", "demo"},
		{"too long", strings.Repeat("q", 65), "demo"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.QueueIdentification(tc.queue, tc.project)
			require.Error(t, err)
			require.Equal(t, 400, AsError(err).Status())
		})
	}
}

func TestListingLimits(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.MessageListing(1))
	require.NoError(t, v.MessageListing(20))
	require.Error(t, v.MessageListing(0))
	require.Error(t, v.MessageListing(-1))
	require.Error(t, v.MessageListing(21))

	require.NoError(t, v.QueueListing(20))
	require.Error(t, v.QueueListing(0))
	require.Error(t, v.QueueListing(21))
}

func TestQueueMetadataLength(t *testing.T) {
	v := newTestValidator(t)
	require.NoError(t, v.QueueMetadataLength(64<<10))
	require.Error(t, v.QueueMetadataLength(64<<10+1))
}

func TestMessagePosting(t *testing.T) {
	v := newTestValidator(t)

	ok := []storage.NewMessage{{TTL: 300, Body: []byte(`"hi"`)}}
	require.NoError(t, v.MessagePosting(ok))

	require.Error(t, v.MessagePosting(nil), "empty batch")
	require.Error(t, v.MessagePosting([]storage.NewMessage{{TTL: 59, Body: []byte(`1`)}}), "ttl below floor")
	require.Error(t, v.MessagePosting([]storage.NewMessage{{TTL: 1209601, Body: []byte(`1`)}}), "ttl above ceiling")

	big := storage.NewMessage{TTL: 300, Body: []byte(strings.Repeat("x", 256<<10+1))}
	require.Error(t, v.MessagePosting([]storage.NewMessage{big}), "oversized body")

	many := make([]storage.NewMessage, 21)
	for i := range many {
		many[i] = storage.NewMessage{TTL: 300, Body: []byte(`1`)}
	}
	require.Error(t, v.MessagePosting(many), "too many messages")
}

func TestMessageDeletionModes(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.MessageDeletion([]string{"a"}, 0))
	require.NoError(t, v.MessageDeletion(nil, 5))
	require.Error(t, v.MessageDeletion([]string{"a"}, 5), "both modes")
	require.Error(t, v.MessageDeletion(nil, 0), "neither mode")
	require.Error(t, v.MessageDeletion(nil, 21), "pop above ceiling")
}

func TestClaimBounds(t *testing.T) {
	v := newTestValidator(t)

	require.NoError(t, v.ClaimCreation(60, 0, 1))
	require.NoError(t, v.ClaimCreation(43200, 43200, 20))
	require.Error(t, v.ClaimCreation(59, 60, 10))
	require.Error(t, v.ClaimCreation(43201, 60, 10))
	require.Error(t, v.ClaimCreation(300, -1, 10))
	require.Error(t, v.ClaimCreation(300, 60, 0))
	require.Error(t, v.ClaimCreation(300, 60, 21))

	require.NoError(t, v.ClaimUpdate(300, 60))
	require.Error(t, v.ClaimUpdate(0, 60))
}
