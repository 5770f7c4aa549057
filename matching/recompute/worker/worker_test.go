package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TryAwesome/CVibe-sub002/matching/matchingtest"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

type recordingProcessor struct {
	mu     sync.Mutex
	seen   []kernel.UserID
	jobs   []kernel.JobID
	err    error
	calls  chan struct{}
	fanned chan struct{}
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{calls: make(chan struct{}, 16), fanned: make(chan struct{}, 16)}
}

func (p *recordingProcessor) FanOut(_ context.Context, jobID kernel.JobID) error {
	p.mu.Lock()
	p.jobs = append(p.jobs, jobID)
	p.mu.Unlock()
	p.fanned <- struct{}{}
	return p.err
}

func (p *recordingProcessor) fannedJobs() []kernel.JobID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kernel.JobID(nil), p.jobs...)
}

func (p *recordingProcessor) Process(_ context.Context, t recompute.Trigger) error {
	p.mu.Lock()
	p.seen = append(p.seen, t.UserID)
	p.mu.Unlock()
	p.calls <- struct{}{}
	return p.err
}

func (p *recordingProcessor) users() []kernel.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kernel.UserID(nil), p.seen...)
}

func waitCalls(t *testing.T, p *recordingProcessor, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d calls", i, n)
		}
	}
}

func TestRecomputeWorker_ProcessesQueuedTriggers(t *testing.T) {
	q := matchingtest.NewQueue()
	p := newRecordingProcessor()
	ctx, cancel := context.WithCancel(context.Background())

	w := NewRecomputeWorker(p, q, 2).WithIntervals(50*time.Millisecond, time.Hour)
	w.Start(ctx)

	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1"}))
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u2"}))
	waitCalls(t, p, 2)

	cancel()
	w.Wait()
	assert.ElementsMatch(t, []kernel.UserID{"u1", "u2"}, p.users())
}

func TestRecomputeWorker_KeepsRunningAfterFailure(t *testing.T) {
	q := matchingtest.NewQueue()
	p := newRecordingProcessor()
	p.err = errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())

	w := NewRecomputeWorker(p, q, 1).WithIntervals(50*time.Millisecond, time.Hour)
	w.Start(ctx)

	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u1"}))
	waitCalls(t, p, 1)
	require.NoError(t, q.Enqueue(ctx, recompute.Trigger{UserID: "u2"}))
	waitCalls(t, p, 1)

	cancel()
	w.Wait()
	assert.Equal(t, []kernel.UserID{"u1", "u2"}, p.users())
}

func TestRecomputeWorker_PromotesDelayedTriggers(t *testing.T) {
	q := matchingtest.NewQueue()
	p := newRecordingProcessor()
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, q.EnqueueDelayed(ctx, recompute.Trigger{UserID: "u1", Reason: recompute.ReasonRetry}, time.Minute))

	w := NewRecomputeWorker(p, q, 1).WithIntervals(50*time.Millisecond, 20*time.Millisecond)
	w.Start(ctx)
	waitCalls(t, p, 1)

	cancel()
	w.Wait()
	assert.Equal(t, []kernel.UserID{"u1"}, p.users())
}

func TestRecomputeWorker_FansOutEmbeddedJobs(t *testing.T) {
	q := matchingtest.NewQueue()
	p := newRecordingProcessor()
	p.err = errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())

	w := NewRecomputeWorker(p, q, 1).WithIntervals(50*time.Millisecond, time.Hour)
	w.Start(ctx)

	require.NoError(t, q.PublishJobEmbedded(ctx, "j1"))
	require.NoError(t, q.PublishJobEmbedded(ctx, "j2"))
	for i := 0; i < 2; i++ {
		select {
		case <-p.fanned:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of 2 fan-outs", i)
		}
	}

	cancel()
	w.Wait()
	assert.Equal(t, []kernel.JobID{"j1", "j2"}, p.fannedJobs())
	assert.Empty(t, q.Embedded())
	assert.Empty(t, p.users(), "fan-out does not run recomputes itself")
}
