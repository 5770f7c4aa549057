package recomputesrv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

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

// Process handles one dequeued trigger. Retryable failures are scheduled
// again with exponential backoff until MaxAttempts is reached.
func (s *RecomputeService) Process(ctx context.Context, t recompute.Trigger) error {
	_, err := s.Run(ctx, t.UserID)
	if err == nil {
		return nil
	}

	if errx.Is(err, recompute.CodeLeaseHeld) {
		// The holder replays the trigger through the pending flag
		logx.Debugf("Recompute for user %s already running", t.UserID)
		return nil
	}
	if errx.Is(err, recompute.CodeLeaseLost) {
		// Whoever took the lease over runs the user with fresh data
		logx.Warnf("Recompute for user %s abandoned: %v", t.UserID, err)
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	attempt := t.Attempt + 1
	if !retryable(err) || attempt >= s.opts.MaxAttempts {
		logx.Errorf("Recompute for user %s failed permanently after %d attempts: %v", t.UserID, attempt, err)
		return err
	}

	now := s.now().UTC()
	enqueue, markErr := s.states.MarkTriggered(ctx, t.UserID, now, now.Add(-s.opts.LeaseTTL))
	if markErr != nil {
		return errx.Wrap(markErr, "failed to mark retry", errx.TypeInternal)
	}
	if !enqueue {
		return err
	}

	delay := time.Duration(1<<uint(attempt)) * time.Minute
	retry := recompute.Trigger{UserID: t.UserID, Reason: recompute.ReasonRetry, Attempt: attempt, EnqueuedAt: now}
	if qErr := s.queue.EnqueueDelayed(ctx, retry, delay); qErr != nil {
		return recompute.ErrQueueFailed().WithCause(qErr)
	}

	logx.Warnf("Recompute for user %s failed (attempt %d), retrying in %s: %v", t.UserID, attempt, delay, err)
	return err
}

func retryable(err error) bool {
	return !errx.Is(err, scoring.CodeInvalidProfile) && !errx.Is(err, profile.CodeProfileNotFound)
}

// Run recomputes one user's matches under the user's lease. Flags on existing
// matches are never touched; only score fields are written.
//
// Every run holds its own lease token, so two runs for one user are exclusive
// even inside a single worker process.
func (s *RecomputeService) Run(ctx context.Context, userID kernel.UserID) (*recompute.RunResult, error) {
	start := s.now()
	l := &lease{userID: userID, owner: s.opts.Owner + ":" + uuid.NewString()}

	st, err := s.states.Acquire(ctx, userID, l.owner, s.opts.LeaseTTL, start.UTC())
	if err != nil {
		return nil, errx.Wrap(err, "failed to acquire recompute lease", errx.TypeInternal)
	}
	if st == nil {
		return nil, recompute.ErrLeaseHeld().WithDetail("user_id", userID.String())
	}
	l.until = start.UTC().Add(s.opts.LeaseTTL)
	if st.LeaseUntil != nil {
		l.until = *st.LeaseUntil
	}

	result, runErr := s.execute(ctx, l)
	if errx.Is(runErr, recompute.CodeLeaseLost) {
		// The row belongs to the new holder now; releasing would clobber it
		return nil, runErr
	}

	out := recompute.Outcome{At: s.now().UTC()}
	switch {
	case runErr == nil:
		out.ProfileVersion = result.ProfileVersion
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		out.Cancelled = true
		out.Err = runErr.Error()
	default:
		out.Failed = true
		out.Err = runErr.Error()
	}

	// The lease must be released even when the caller's context is gone
	releaseCtx := context.WithoutCancel(ctx)
	_, requeue, relErr := s.states.Release(releaseCtx, userID, l.owner, out)
	if relErr != nil {
		logx.Errorf("Failed to release recompute lease for user %s: %v", userID, relErr)
	}
	if requeue {
		t := recompute.Trigger{UserID: userID, Reason: recompute.ReasonPending, EnqueuedAt: out.At}
		if err := s.queue.Enqueue(releaseCtx, t); err != nil {
			logx.Errorf("Failed to requeue pending recompute for user %s: %v", userID, err)
		}
	}

	if runErr != nil {
		if out.Cancelled {
			return nil, runErr
		}
		return nil, recompute.ErrRecomputeFailed().
			WithDetail("user_id", userID.String()).
			WithCause(runErr)
	}

	result.Duration = s.now().Sub(start)
	logx.Infof("Recomputed user %s: %d candidates, %d upserted, %d below threshold in %s",
		userID, result.Candidates, result.Upserted, result.BelowThreshold, result.Duration)
	return result, nil
}

type scored struct {
	result *scoring.Result
	ok     bool
}

// lease is the token a single Run holds on its user
type lease struct {
	userID kernel.UserID
	owner  string
	until  time.Time
}

// renew extends the lease once half of it has elapsed and aborts the run when
// the lease has passed to another holder.
func (s *RecomputeService) renew(ctx context.Context, l *lease) error {
	now := s.now().UTC()
	if now.Before(l.until.Add(-s.opts.LeaseTTL / 2)) {
		return nil
	}
	ok, err := s.states.Extend(ctx, l.userID, l.owner, s.opts.LeaseTTL, now)
	if err != nil {
		return fmt.Errorf("failed to extend recompute lease: %w", err)
	}
	if !ok {
		return recompute.ErrLeaseLost().
			WithDetail("user_id", l.userID.String()).
			WithDetail("owner", l.owner)
	}
	l.until = now.Add(s.opts.LeaseTTL)
	return nil
}

func (s *RecomputeService) execute(ctx context.Context, l *lease) (*recompute.RunResult, error) {
	userID := l.userID
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.HasVector() {
		return nil, profile.ErrProfileNotFound().WithDetail("user_id", userID.String())
	}
	if s.opts.Dimension > 0 && p.Vector.Dim() != s.opts.Dimension {
		return nil, scoring.ErrInvalidProfile().
			WithDetail("user_id", userID.String()).
			WithDetail("profile_dim", p.Vector.Dim()).
			WithDetail("expected_dim", s.opts.Dimension)
	}

	res := &recompute.RunResult{UserID: userID, ProfileVersion: p.Version}

	var pool []kernel.JobID
	if filter := p.Preferences.CandidateFilter(); !filter.IsZero() {
		pool, err = s.jobs.ListCandidateIDs(ctx, filter, s.opts.CandidateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list candidate jobs: %w", err)
		}
		if pool == nil {
			pool = []kernel.JobID{}
		}
	}

	hits, err := s.strategy.TopK(ctx, p.Vector, s.opts.TopK, pool)
	if err != nil {
		return nil, err
	}
	if err := s.renew(ctx, l); err != nil {
		return nil, err
	}
	res.Candidates = len(hits)
	if len(hits) == 0 {
		return res, nil
	}

	ids := make([]kernel.JobID, len(hits))
	for i, h := range hits {
		ids[i] = h.JobID
	}
	jobs, err := s.jobs.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate jobs: %w", err)
	}
	vectors, err := s.vectors.GetAllWithVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate vectors: %w", err)
	}

	byID := make(map[kernel.JobID]*job.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	vecByID := make(map[kernel.JobID]kernel.Vector, len(vectors))
	for _, v := range vectors {
		vecByID[v.JobID] = v.Vector
	}

	results, err := s.scoreAll(ctx, p, hits, byID, vecByID)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if !r.ok {
			res.Skipped++
			continue
		}
		res.Scored++
	}

	now := s.now().UTC()
	for _, r := range results {
		if !r.ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.renew(ctx, l); err != nil {
			return nil, err
		}
		upserted, err := s.write(ctx, userID, r.result, now)
		if err != nil {
			return nil, err
		}
		if upserted {
			res.Upserted++
		} else {
			res.BelowThreshold++
		}
	}

	return res, nil
}

// scoreAll scores hits concurrently; output keeps hit order
func (s *RecomputeService) scoreAll(
	ctx context.Context,
	p *profile.Profile,
	hits []search.Hit,
	jobs map[kernel.JobID]*job.Job,
	vectors map[kernel.JobID]kernel.Vector,
) ([]scored, error) {
	out := make([]scored, len(hits))
	sp := scoring.Profile{Vector: p.Vector, Skills: p.Skills}
	now := s.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)

	for i, h := range hits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			j, ok := jobs[h.JobID]
			if !ok || !j.IsMatchable(now) {
				return nil
			}
			r, err := s.scorer.Score(sp, scoring.Candidate{
				JobID:  h.JobID,
				Vector: vectors[h.JobID],
				Skills: j.RequiredSkills,
			}, h.Score)
			if err != nil {
				logx.Warnf("Skipping job %s for user %s: %v", h.JobID, p.UserID, err)
				return nil
			}
			out[i] = scored{result: r, ok: true}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// write persists one score with retries. Scores under MinScore only refresh
// an existing match so a user's feedback never disappears.
func (s *RecomputeService) write(ctx context.Context, userID kernel.UserID, r *scoring.Result, now time.Time) (bool, error) {
	update := match.ScoreUpdate{
		Score:         r.Score,
		Rationale:     r.Rationale,
		MatchedSkills: r.MatchedSkills,
		MissingSkills: r.MissingSkills,
	}
	below := r.Score < s.opts.MinScore

	var lastErr error
	for attempt := 0; attempt < s.opts.UpsertAttempts; attempt++ {
		if attempt > 0 {
			backoff := s.opts.UpsertBackoff * time.Duration(1<<uint(attempt-1))
			if err := s.sleep(ctx, backoff); err != nil {
				return false, err
			}
		}

		var err error
		if below {
			_, err = s.matches.UpdateScore(ctx, userID, r.JobID, update, now)
		} else {
			_, err = s.matches.Upsert(ctx, userID, r.JobID, update, now)
		}
		if err == nil {
			return !below, nil
		}
		if errx.Is(err, match.CodeInvalidScore) {
			return false, err
		}
		lastErr = err
		logx.Warnf("Match write for user %s job %s failed (attempt %d): %v", userID, r.JobID, attempt+1, err)
	}

	return false, fmt.Errorf("match write for job %s exhausted retries: %w", r.JobID, lastErr)
}
