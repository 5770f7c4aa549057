package recomputeinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/redis/go-redis/v9"
)

// enqueueScript pushes a trigger only when its user is not already waiting.
// KEYS[1] ready list, KEYS[2] member set; ARGV[1] user id, ARGV[2] payload
var enqueueScript = redis.NewScript(`
if redis.call('SADD', KEYS[2], ARGV[1]) == 1 then
	redis.call('LPUSH', KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisQueue implements recompute.Queue on a Redis list with a member set
// for coalescing and a sorted set for delayed retries. Embedded jobs wait for
// fan-out on a second list and set with the same coalescing.
type RedisQueue struct {
	client    *redis.Client
	queueName string
}

var _ recompute.Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a new Redis-based trigger queue
func NewRedisQueue(client *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: queueName,
	}
}

func (q *RedisQueue) membersKey() string { return q.queueName + ":members" }
func (q *RedisQueue) delayedKey() string { return q.queueName + ":delayed" }
func (q *RedisQueue) fanoutKey() string { return q.queueName + ":fanout" }
func (q *RedisQueue) fanoutMembersKey() string { return q.queueName + ":fanout:members" }

// Enqueue adds a trigger unless the user is already waiting
func (q *RedisQueue) Enqueue(ctx context.Context, t recompute.Trigger) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trigger for user %s: %w", t.UserID, err)
	}

	keys := []string{q.queueName, q.membersKey()}
	if err := enqueueScript.Run(ctx, q.client, keys, t.UserID.String(), data).Err(); err != nil {
		return recompute.ErrQueueFailed().WithCause(fmt.Errorf("enqueue user %s: %w", t.UserID, err))
	}
	return nil
}

// Dequeue gets a trigger from the queue (blocking with timeout)
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*recompute.Trigger, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		// redis.Nil is returned when timeout occurs
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue trigger: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result from queue: expected 2 elements, got %d", len(result))
	}

	var t recompute.Trigger
	if err := json.Unmarshal([]byte(result[1]), &t); err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}

	if err := q.client.SRem(ctx, q.membersKey(), t.UserID.String()).Err(); err != nil {
		return nil, fmt.Errorf("release member %s: %w", t.UserID, err)
	}
	return &t, nil
}

// EnqueueDelayed schedules a trigger for later processing (for retries)
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, t recompute.Trigger, delay time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal delayed trigger for user %s: %w", t.UserID, err)
	}

	score := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayedKey(), redis.Z{Score: score, Member: data}).Err(); err != nil {
		return recompute.ErrQueueFailed().WithCause(fmt.Errorf("enqueue delayed user %s: %w", t.UserID, err))
	}
	return nil
}

// MoveDelayedToReady moves due delayed triggers to the ready list
func (q *RedisQueue) MoveDelayedToReady(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("get delayed triggers: %w", err)
	}

	moved := 0
	for _, raw := range due {
		var t recompute.Trigger
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			// unreadable payloads would block the set forever
			q.client.ZRem(ctx, q.delayedKey(), raw)
			continue
		}
		if err := q.Enqueue(ctx, t); err != nil {
			return moved, err
		}
		if err := q.client.ZRem(ctx, q.delayedKey(), raw).Err(); err != nil {
			return moved, fmt.Errorf("remove delayed trigger: %w", err)
		}
		moved++
	}
	return moved, nil
}

// PublishJobEmbedded queues a job for fan-out unless it is already waiting
func (q *RedisQueue) PublishJobEmbedded(ctx context.Context, jobID kernel.JobID) error {
	keys := []string{q.fanoutKey(), q.fanoutMembersKey()}
	if err := enqueueScript.Run(ctx, q.client, keys, jobID.String(), jobID.String()).Err(); err != nil {
		return recompute.ErrQueueFailed().WithCause(fmt.Errorf("publish embedded job %s: %w", jobID, err))
	}
	return nil
}

// NextJobEmbedded pops the oldest job waiting for fan-out (blocking with timeout)
func (q *RedisQueue) NextJobEmbedded(ctx context.Context, timeout time.Duration) (kernel.JobID, error) {
	result, err := q.client.BRPop(ctx, timeout, q.fanoutKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("dequeue embedded job: %w", err)
	}
	if len(result) < 2 {
		return "", fmt.Errorf("invalid result from fan-out queue: expected 2 elements, got %d", len(result))
	}

	jobID := kernel.JobID(result[1])
	if err := q.client.SRem(ctx, q.fanoutMembersKey(), result[1]).Err(); err != nil {
		return "", fmt.Errorf("release embedded job %s: %w", jobID, err)
	}
	return jobID, nil
}

// Ping checks if Redis connection is alive
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// GetStats returns queue statistics
func (q *RedisQueue) GetStats(ctx context.Context) (map[string]any, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.queueName)
	delayed := pipe.ZCard(ctx, q.delayedKey())
	fanout := pipe.LLen(ctx, q.fanoutKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("get queue stats: %w", err)
	}

	return map[string]any{
		"queue_name": q.queueName,
		"ready":      ready.Val(),
		"delayed":    delayed.Val(),
		"fanout":     fanout.Val(),
	}, nil
}
