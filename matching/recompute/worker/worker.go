package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

// Processor handles one dequeued trigger or embedded job
type Processor interface {
	Process(ctx context.Context, t recompute.Trigger) error
	FanOut(ctx context.Context, jobID kernel.JobID) error
}

type RecomputeWorker struct {
	processor    Processor
	queue        recompute.Queue
	workers      int
	pollTimeout  time.Duration
	delayedEvery time.Duration
	wg           sync.WaitGroup
}

func NewRecomputeWorker(processor Processor, queue recompute.Queue, workers int) *RecomputeWorker {
	if workers <= 0 {
		workers = 1
	}
	return &RecomputeWorker{
		processor:    processor,
		queue:        queue,
		workers:      workers,
		pollTimeout:  5 * time.Second,
		delayedEvery: 30 * time.Second,
	}
}

// WithIntervals overrides the dequeue timeout and delayed-mover period
func (w *RecomputeWorker) WithIntervals(pollTimeout, delayedEvery time.Duration) *RecomputeWorker {
	w.pollTimeout = pollTimeout
	w.delayedEvery = delayedEvery
	return w
}

func (w *RecomputeWorker) Start(ctx context.Context) {
	logx.Infof("Starting %d recompute workers", w.workers)

	w.wg.Add(2)
	go w.moveDelayed(ctx)
	go w.fanOut(ctx)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.process(ctx, i)
	}
}

// Wait blocks until every goroutine started by Start has returned
func (w *RecomputeWorker) Wait() {
	w.wg.Wait()
}

func (w *RecomputeWorker) process(ctx context.Context, workerID int) {
	defer w.wg.Done()
	logx.Debugf("Recompute worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			logx.Debugf("Recompute worker %d stopping", workerID)
			return
		default:
			t, err := w.queue.Dequeue(ctx, w.pollTimeout)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logx.Errorf("Recompute worker %d dequeue error: %v", workerID, err)
					sleep(ctx, time.Second)
				}
				continue
			}
			if t == nil {
				continue
			}

			logx.Debugf("Recompute worker %d processing user %s (%s, attempt %d)", workerID, t.UserID, t.Reason, t.Attempt)
			if err := w.processor.Process(ctx, *t); err != nil {
				logx.Errorf("Recompute worker %d: user %s failed: %v", workerID, t.UserID, err)
			}
		}
	}
}

// fanOut turns embedded jobs into per-user triggers off the ingest path
func (w *RecomputeWorker) fanOut(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			jobID, err := w.queue.NextJobEmbedded(ctx, w.pollTimeout)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logx.Errorf("Fan-out dequeue error: %v", err)
					sleep(ctx, time.Second)
				}
				continue
			}
			if jobID == "" {
				continue
			}
			if err := w.processor.FanOut(ctx, jobID); err != nil {
				logx.Errorf("Fan-out for job %s failed: %v", jobID, err)
			}
		}
	}
}

func (w *RecomputeWorker) moveDelayed(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.delayedEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := w.queue.MoveDelayedToReady(ctx)
			if err != nil {
				logx.Errorf("Failed to move delayed recomputes: %v", err)
			} else if count > 0 {
				logx.Infof("Moved %d delayed recomputes to ready queue", count)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
