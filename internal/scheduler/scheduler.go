// Package scheduler runs the periodic maintenance tasks of the matching
// engine (sweeps, stale job deactivation, embedding backfill) on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

// Task is one periodic job. An empty Spec disables it.
type Task struct {
	Name       string
	Spec       string
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler wraps robfig/cron. Runs of the same task never overlap.
type Scheduler struct {
	cron  *cron.Cron
	tasks []Task

	mu   sync.Mutex
	runs map[string]int
}

func New(tasks ...Task) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		tasks: tasks,
		runs:  make(map[string]int),
	}
}

// Start registers every task and starts the cron loop. Tasks flagged
// RunOnStart fire once immediately without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, t := range s.tasks {
		if t.Spec == "" {
			logx.Infof("Scheduler task %s disabled", t.Name)
			continue
		}
		if _, err := s.cron.AddFunc(t.Spec, func() { s.execute(ctx, t) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", t.Name, t.Spec, err)
		}
	}

	s.cron.Start()
	logx.Infof("Scheduler started with %d tasks", len(s.cron.Entries()))

	for _, t := range s.tasks {
		if t.Spec != "" && t.RunOnStart {
			go s.execute(ctx, t)
		}
	}
	return nil
}

// Stop halts the cron loop and waits for running tasks to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logx.Info("Scheduler stopped")
}

// Runs returns how many times a task has completed
func (s *Scheduler) Runs(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[name]
}

func (s *Scheduler) execute(ctx context.Context, t Task) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := t.Run(ctx); err != nil {
		logx.Errorf("Scheduler task %s failed: %v", t.Name, err)
	} else {
		logx.Debugf("Scheduler task %s finished in %s", t.Name, time.Since(start))
	}

	s.mu.Lock()
	s.runs[t.Name]++
	s.mu.Unlock()
}

// cronLogger routes cron's own logging to logx
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logx.With(keysAndValues...).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logx.With(append(keysAndValues, "error", err)...).Error(msg)
}
