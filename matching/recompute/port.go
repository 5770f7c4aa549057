package recompute

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// StateStore persists per-user lease rows. Every method is a single atomic
// transition so several worker processes can share one store.
type StateStore interface {
	// MarkTriggered applies a trigger; true when the caller must enqueue the user
	MarkTriggered(ctx context.Context, userID kernel.UserID, now, staleBefore time.Time) (bool, error)

	// Acquire takes the lease; nil when a live one is held
	Acquire(ctx context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (*UserState, error)

	// Extend renews owner's lease to now+ttl; false when owner no longer holds it
	Extend(ctx context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (bool, error)

	// Release ends a run; requeue is true when a trigger arrived meanwhile
	Release(ctx context.Context, userID kernel.UserID, owner string, out Outcome) (state *UserState, requeue bool, err error)

	// Get returns a user's state; NewUserState when none is stored
	Get(ctx context.Context, userID kernel.UserID) (*UserState, error)

	// GetMany returns stored states keyed by user; unknown users are absent
	GetMany(ctx context.Context, userIDs []kernel.UserID) (map[kernel.UserID]*UserState, error)
}

// Queue carries triggers to workers
type Queue interface {
	// Enqueue adds a trigger; a user already waiting in the queue is not added twice
	Enqueue(ctx context.Context, t Trigger) error

	// EnqueueDelayed schedules a trigger for later (retries)
	EnqueueDelayed(ctx context.Context, t Trigger, delay time.Duration) error

	// Dequeue blocks up to timeout; nil trigger when nothing arrived
	Dequeue(ctx context.Context, timeout time.Duration) (*Trigger, error)

	// MoveDelayedToReady promotes due delayed triggers
	MoveDelayedToReady(ctx context.Context) (int, error)

	// PublishJobEmbedded hands a newly embedded job to the fan-out consumer;
	// a job already waiting is not added twice
	PublishJobEmbedded(ctx context.Context, jobID kernel.JobID) error

	// NextJobEmbedded blocks up to timeout; empty id when nothing arrived
	NextJobEmbedded(ctx context.Context, timeout time.Duration) (kernel.JobID, error)
}
