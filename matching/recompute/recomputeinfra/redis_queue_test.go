package recomputeinfra

import (
	"context"
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, "test:recompute"), mr
}

func TestEnqueue_CoalescesSameUser(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1", Reason: recompute.ReasonProfileChanged}))
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1", Reason: recompute.ReasonSweep}))
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u2", Reason: recompute.ReasonSweep}))

	items, err := mr.List("test:recompute")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestDequeue_FIFOAndReleasesMember(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1", Reason: recompute.ReasonManual}))
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u2", Reason: recompute.ReasonManual}))

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.EqualValues(t, "u1", first.UserID)
	assert.Equal(t, recompute.ReasonManual, first.Reason)

	// u1 left the queue, so it may be enqueued again
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1"}))

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, "u2", second.UserID)

	third, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, "u1", third.UserID)
}

func TestDelayed_MovesDueTriggers(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueDelayed(ctx, recompute.Trigger{UserID: "u1", Attempt: 1}, 0))
	require.NoError(t, q.EnqueueDelayed(ctx, recompute.Trigger{UserID: "u2", Attempt: 1}, time.Hour))

	moved, err := q.MoveDelayedToReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["ready"])
	assert.EqualValues(t, 1, stats["delayed"])

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempt)
}

func TestJobEmbedded_CoalescesAndDrainsInOrder(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.PublishJobEmbedded(ctx, "j1"))
	require.NoError(t, q.PublishJobEmbedded(ctx, "j2"))
	require.NoError(t, q.PublishJobEmbedded(ctx, "j1"))

	items, err := mr.List("test:recompute:fanout")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.False(t, mr.Exists("test:recompute"), "fan-out must not touch the trigger list")

	var got []kernel.JobID
	for range 2 {
		id, err := q.NextJobEmbedded(ctx, time.Second)
		require.NoError(t, err)
		got = append(got, id)
	}
	assert.Equal(t, []kernel.JobID{"j1", "j2"}, got)

	// j1 was drained, so it may be published again
	require.NoError(t, q.PublishJobEmbedded(ctx, "j1"))
	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats["fanout"])
}

func TestNextJobEmbedded_TimeoutReturnsEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	id, err := q.NextJobEmbedded(context.Background(), time.Second)

	require.NoError(t, err)
	assert.Empty(t, id)
}
