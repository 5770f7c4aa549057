package matchingtest

import (
	"context"
	"sync"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// StateStore is an in-memory recompute.StateStore built on the UserState
// transitions
type StateStore struct {
	mu     sync.Mutex
	states map[kernel.UserID]*recompute.UserState
}

var _ recompute.StateStore = (*StateStore)(nil)

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[kernel.UserID]*recompute.UserState)}
}

func (s *StateStore) state(userID kernel.UserID) *recompute.UserState {
	st, ok := s.states[userID]
	if !ok {
		st = recompute.NewUserState(userID)
		s.states[userID] = st
	}
	return st
}

func (s *StateStore) MarkTriggered(_ context.Context, userID kernel.UserID, now, staleBefore time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(userID).MarkTriggered(now, staleBefore), nil
}

func (s *StateStore) Acquire(_ context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (*recompute.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)
	if !st.Acquire(owner, ttl, now) {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *StateStore) Extend(_ context.Context, userID kernel.UserID, owner string, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(userID).Extend(owner, ttl, now), nil
}

func (s *StateStore) Release(_ context.Context, userID kernel.UserID, owner string, out recompute.Outcome) (*recompute.UserState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)
	requeue, err := st.Release(owner, out)
	if err != nil {
		return nil, false, err
	}
	cp := *st
	return &cp, requeue, nil
}

func (s *StateStore) Get(_ context.Context, userID kernel.UserID) (*recompute.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return recompute.NewUserState(userID), nil
}

func (s *StateStore) GetMany(_ context.Context, userIDs []kernel.UserID) (map[kernel.UserID]*recompute.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[kernel.UserID]*recompute.UserState)
	for _, id := range userIDs {
		if st, ok := s.states[id]; ok {
			cp := *st
			out[id] = &cp
		}
	}
	return out, nil
}

// Queue is an in-memory recompute.Queue with the same per-user coalescing
// as the Redis queue
type Queue struct {
	mu      sync.Mutex
	ready   []recompute.Trigger
	members map[kernel.UserID]bool
	Delayed []recompute.Trigger
	signal  chan struct{}

	embedded       []kernel.JobID
	embeddedSet    map[kernel.JobID]bool
	embeddedSignal chan struct{}
}

var _ recompute.Queue = (*Queue)(nil)

func NewQueue() *Queue {
	return &Queue{
		members:        make(map[kernel.UserID]bool),
		signal:         make(chan struct{}, 1),
		embeddedSet:    make(map[kernel.JobID]bool),
		embeddedSignal: make(chan struct{}, 1),
	}
}

func (q *Queue) Enqueue(_ context.Context, t recompute.Trigger) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.members[t.UserID] {
		return nil
	}
	q.members[t.UserID] = true
	q.ready = append(q.ready, t)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) EnqueueDelayed(_ context.Context, t recompute.Trigger, _ time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Delayed = append(q.Delayed, t)
	return nil
}

func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*recompute.Trigger, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if t, ok := q.pop(); ok {
			return &t, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.signal:
		}
	}
}

// MoveDelayedToReady treats every delayed trigger as due
func (q *Queue) MoveDelayedToReady(ctx context.Context) (int, error) {
	q.mu.Lock()
	due := q.Delayed
	q.Delayed = nil
	q.mu.Unlock()
	for _, t := range due {
		if err := q.Enqueue(ctx, t); err != nil {
			return 0, err
		}
	}
	return len(due), nil
}

func (q *Queue) PublishJobEmbedded(_ context.Context, jobID kernel.JobID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.embeddedSet[jobID] {
		return nil
	}
	q.embeddedSet[jobID] = true
	q.embedded = append(q.embedded, jobID)
	select {
	case q.embeddedSignal <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) NextJobEmbedded(ctx context.Context, timeout time.Duration) (kernel.JobID, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if id, ok := q.popEmbedded(); ok {
			return id, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", nil
		case <-q.embeddedSignal:
		}
	}
}

// Embedded returns the jobs waiting for fan-out
func (q *Queue) Embedded() []kernel.JobID {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]kernel.JobID(nil), q.embedded...)
}

func (q *Queue) popEmbedded() (kernel.JobID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.embedded) == 0 {
		return "", false
	}
	id := q.embedded[0]
	q.embedded = q.embedded[1:]
	delete(q.embeddedSet, id)
	return id, true
}

// Pending returns the triggers waiting in the ready list
func (q *Queue) Pending() []recompute.Trigger {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]recompute.Trigger(nil), q.ready...)
}

func (q *Queue) pop() (recompute.Trigger, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return recompute.Trigger{}, false
	}
	t := q.ready[0]
	q.ready = q.ready[1:]
	delete(q.members, t.UserID)
	return t, true
}
