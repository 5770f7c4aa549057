package recomputesrv

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/matching/profile"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/matching/scoring"
	"github.com/TryAwesome/CVibe-sub002/matching/search"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

// Options tunes the recompute pipeline
type Options struct {
	Owner          string
	Dimension      int
	LeaseTTL       time.Duration
	FreshnessFloor time.Duration
	TopK           int
	CandidateLimit int
	MinScore       int
	UpsertAttempts int
	UpsertBackoff  time.Duration
	MaxAttempts    int
	Parallelism    int
	FanoutBatch    int
	SweepBatch     int
}

func (o Options) withDefaults() Options {
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = 10 * time.Minute
	}
	if o.TopK <= 0 {
		o.TopK = 50
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 20000
	}
	if o.UpsertAttempts <= 0 {
		o.UpsertAttempts = 3
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 8
	}
	if o.FanoutBatch <= 0 {
		o.FanoutBatch = 1000
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 500
	}
	return o
}

// RecomputeService keeps each user's stored matches in line with their
// profile and the active job corpus
type RecomputeService struct {
	states   recompute.StateStore
	queue    recompute.Queue
	profiles profile.Provider
	jobs     job.Repository
	vectors  embedding.Repository
	strategy search.Strategy
	scorer   *scoring.Scorer
	matches  match.Repository
	opts     Options
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

var _ embedding.Listener = (*RecomputeService)(nil)

func NewRecomputeService(
	states recompute.StateStore,
	queue recompute.Queue,
	profiles profile.Provider,
	jobs job.Repository,
	vectors embedding.Repository,
	strategy search.Strategy,
	scorer *scoring.Scorer,
	matches match.Repository,
	opts Options,
) *RecomputeService {
	return &RecomputeService{
		states:   states,
		queue:    queue,
		profiles: profiles,
		jobs:     jobs,
		vectors:  vectors,
		strategy: strategy,
		scorer:   scorer,
		matches:  matches,
		opts:     opts.withDefaults(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// WithClock overrides the time source (tests)
func (s *RecomputeService) WithClock(now func() time.Time) *RecomputeService {
	s.now = now
	return s
}

// WithSleep overrides the backoff wait (tests)
func (s *RecomputeService) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *RecomputeService {
	s.sleep = sleep
	return s
}

// ============================================================================
// Triggers
// ============================================================================

// Trigger asks for a recompute of userID. Triggers for a user that is already
// queued coalesce; a trigger during a run is replayed when the run ends.
func (s *RecomputeService) Trigger(ctx context.Context, userID kernel.UserID, reason recompute.Reason) (*recompute.TriggerResponse, error) {
	now := s.now().UTC()
	enqueue, err := s.states.MarkTriggered(ctx, userID, now, now.Add(-s.opts.LeaseTTL))
	if err != nil {
		return nil, errx.Wrap(err, "failed to record recompute trigger", errx.TypeInternal)
	}

	if enqueue {
		t := recompute.Trigger{UserID: userID, Reason: reason, EnqueuedAt: now}
		if err := s.queue.Enqueue(ctx, t); err != nil {
			return nil, errx.Wrap(err, "failed to enqueue recompute", errx.TypeUnavailable)
		}
		logx.Debugf("Queued recompute for user %s (%s)", userID, reason)
	}

	return &recompute.TriggerResponse{UserID: userID.String(), Enqueued: enqueue}, nil
}

// OnProfileChanged is called by the profile service after an edit
func (s *RecomputeService) OnProfileChanged(ctx context.Context, userID kernel.UserID) (*recompute.TriggerResponse, error) {
	return s.Trigger(ctx, userID, recompute.ReasonProfileChanged)
}

// OnEmbeddingWritten publishes the job for fan-out. The user scan happens
// later in FanOut on a worker.
func (s *RecomputeService) OnEmbeddingWritten(ctx context.Context, jobID kernel.JobID) error {
	return s.queue.PublishJobEmbedded(ctx, jobID)
}

// FanOut triggers every user whose pre-filter admits a newly embedded job
func (s *RecomputeService) FanOut(ctx context.Context, jobID kernel.JobID) error {
	j, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errx.Is(err, job.CodeJobNotFound) {
			logx.Debugf("Job %s vanished before fan-out", jobID)
			return nil
		}
		return errx.Wrap(err, "failed to load job for fan-out", errx.TypeInternal)
	}
	if !j.IsMatchable(s.now()) {
		return nil
	}

	triggered := 0
	err = s.eachUser(ctx, s.opts.FanoutBatch, func(users []profile.UserVersion) error {
		for _, u := range users {
			if !u.Preferences.CandidateFilter().Admits(j) {
				continue
			}
			if _, err := s.Trigger(ctx, u.UserID, recompute.ReasonJobEmbedded); err != nil {
				logx.Warnf("Fan-out trigger for user %s failed: %v", u.UserID, err)
				continue
			}
			triggered++
		}
		return nil
	})
	if err != nil {
		return err
	}

	logx.Debugf("Job %s fanned out to %d users", jobID, triggered)
	return nil
}

// Sweep triggers users whose matches are older than the freshness floor or
// whose profile changed since their last run
func (s *RecomputeService) Sweep(ctx context.Context) (*recompute.SweepResponse, error) {
	resp := &recompute.SweepResponse{}
	now := s.now().UTC()

	err := s.eachUser(ctx, s.opts.SweepBatch, func(users []profile.UserVersion) error {
		ids := make([]kernel.UserID, len(users))
		for i, u := range users {
			ids[i] = u.UserID
		}
		states, err := s.states.GetMany(ctx, ids)
		if err != nil {
			return errx.Wrap(err, "failed to load recompute states", errx.TypeInternal)
		}

		for _, u := range users {
			resp.Scanned++
			if !recompute.NeedsRecompute(states[u.UserID], u.Version, now, s.opts.FreshnessFloor) {
				continue
			}
			tr, err := s.Trigger(ctx, u.UserID, recompute.ReasonSweep)
			if err != nil {
				logx.Warnf("Sweep trigger for user %s failed: %v", u.UserID, err)
				continue
			}
			if tr.Enqueued {
				resp.Triggered++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Triggered > 0 {
		logx.Infof("Sweep scanned %d users, triggered %d", resp.Scanned, resp.Triggered)
	}
	return resp, nil
}

// Status returns a user's recompute state
func (s *RecomputeService) Status(ctx context.Context, userID kernel.UserID) (*recompute.StatusResponse, error) {
	st, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to get recompute state", errx.TypeInternal)
	}
	resp := st.ToResponse()
	return &resp, nil
}

func (s *RecomputeService) eachUser(ctx context.Context, batch int, fn func([]profile.UserVersion) error) error {
	var cursor kernel.UserID
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		users, next, err := s.profiles.ListUsers(ctx, cursor, batch)
		if err != nil {
			return errx.Wrap(err, "failed to list profile users", errx.TypeInternal)
		}
		if len(users) > 0 {
			if err := fn(users); err != nil {
				return err
			}
		}
		if next.IsEmpty() {
			return nil
		}
		cursor = next
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
