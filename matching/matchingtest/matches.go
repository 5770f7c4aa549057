package matchingtest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/google/uuid"
)

type matchKey struct {
	user kernel.UserID
	job  kernel.JobID
}

// MatchRepository is an in-memory match.Repository
type MatchRepository struct {
	mu      sync.Mutex
	matches map[matchKey]*match.Match
	jobs    *JobRepository

	// UpsertErrs are returned, one per call, before upserts start succeeding
	UpsertErrs  []error
	UpsertCalls int
	// AfterUpsert runs after every successful upsert
	AfterUpsert func(*match.Match)
}

var _ match.Repository = (*MatchRepository)(nil)

// NewMatchRepository builds the fake; jobs may be nil when no job summary is needed
func NewMatchRepository(jobs *JobRepository) *MatchRepository {
	return &MatchRepository{
		matches: make(map[matchKey]*match.Match),
		jobs:    jobs,
	}
}

func (r *MatchRepository) Upsert(_ context.Context, userID kernel.UserID, jobID kernel.JobID, u match.ScoreUpdate, now time.Time) (*match.Match, error) {
	r.mu.Lock()
	r.UpsertCalls++
	if len(r.UpsertErrs) > 0 {
		err := r.UpsertErrs[0]
		r.UpsertErrs = r.UpsertErrs[1:]
		r.mu.Unlock()
		return nil, err
	}

	key := matchKey{userID, jobID}
	m, ok := r.matches[key]
	if !ok {
		m = &match.Match{
			ID:        kernel.MatchID(uuid.NewString()),
			UserID:    userID,
			JobID:     jobID,
			MatchedAt: now,
		}
		r.matches[key] = m
	}
	apply(m, u, now)
	cp := *m
	hook := r.AfterUpsert
	r.mu.Unlock()

	if hook != nil {
		hook(&cp)
	}
	return &cp, nil
}

func (r *MatchRepository) UpdateScore(_ context.Context, userID kernel.UserID, jobID kernel.JobID, u match.ScoreUpdate, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchKey{userID, jobID}]
	if !ok {
		return false, nil
	}
	apply(m, u, now)
	return true, nil
}

func (r *MatchRepository) Get(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.Match, error) {
	r.mu.Lock()
	m, ok := r.matches[matchKey{userID, jobID}]
	var cp match.Match
	if ok {
		cp = *m
	}
	r.mu.Unlock()
	if !ok {
		return nil, match.ErrMatchNotFound()
	}
	r.attachJob(ctx, &cp)
	return &cp, nil
}

func (r *MatchRepository) MarkViewed(_ context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.mutate(userID, jobID, func(m *match.Match) {
		m.IsViewed = true
		if m.ViewedAt == nil {
			m.ViewedAt = &now
		}
		m.UpdatedAt = now
	})
}

func (r *MatchRepository) MarkApplied(_ context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.mutate(userID, jobID, func(m *match.Match) {
		m.IsApplied = true
		if m.AppliedAt == nil {
			m.AppliedAt = &now
		}
		m.UpdatedAt = now
	})
}

func (r *MatchRepository) ToggleSaved(_ context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.mutate(userID, jobID, func(m *match.Match) {
		m.IsSaved = !m.IsSaved
		if m.IsSaved {
			m.SavedAt = &now
		} else {
			m.SavedAt = nil
		}
		m.UpdatedAt = now
	})
}

func (r *MatchRepository) RecordRating(_ context.Context, userID kernel.UserID, jobID kernel.JobID, stars int, feedback string, now time.Time) (*match.Match, error) {
	return r.mutate(userID, jobID, func(m *match.Match) {
		m.UserRating = &stars
		m.UserFeedback = feedback
		m.UpdatedAt = now
	})
}

func (r *MatchRepository) List(ctx context.Context, userID kernel.UserID, filter match.ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[match.Match], error) {
	pagination = pagination.Normalize()
	all := r.forUser(userID)

	filtered := all[:0]
	for _, m := range all {
		if filter.SavedOnly && !m.IsSaved {
			continue
		}
		if filter.AppliedOnly && !m.IsApplied {
			continue
		}
		filtered = append(filtered, m)
	}

	sort.Slice(filtered, func(i, k int) bool {
		a, b := filtered[i], filtered[k]
		if filter.Sort != match.SortByDate && a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.MatchedAt.Equal(b.MatchedAt) {
			return a.MatchedAt.After(b.MatchedAt)
		}
		return a.ID < b.ID
	})

	start := min(pagination.Offset(), len(filtered))
	end := min(start+pagination.PageSize, len(filtered))
	items := append([]match.Match(nil), filtered[start:end]...)
	for i := range items {
		r.attachJob(ctx, &items[i])
	}
	page := kernel.NewPaginated(items, pagination, len(filtered))
	return &page, nil
}

func (r *MatchRepository) Counts(_ context.Context, userID kernel.UserID) (*match.Summary, error) {
	s := &match.Summary{}
	sum := 0
	for _, m := range r.forUser(userID) {
		s.Total++
		sum += m.Score
		if m.IsHighScore() {
			s.HighScore++
		}
		if !m.IsViewed {
			s.Unviewed++
		}
		if m.IsSaved {
			s.Saved++
		}
		if m.IsApplied {
			s.Applied++
		}
	}
	if s.Total > 0 {
		s.AverageScore = float64(sum) / float64(s.Total)
	}
	return s, nil
}

// All returns copies of a user's matches in no particular order
func (r *MatchRepository) All(userID kernel.UserID) []match.Match {
	return r.forUser(userID)
}

func (r *MatchRepository) forUser(userID kernel.UserID) []match.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []match.Match
	for k, m := range r.matches {
		if k.user == userID {
			out = append(out, *m)
		}
	}
	return out
}

func (r *MatchRepository) mutate(userID kernel.UserID, jobID kernel.JobID, fn func(*match.Match)) (*match.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchKey{userID, jobID}]
	if !ok {
		return nil, match.ErrMatchNotFound()
	}
	fn(m)
	cp := *m
	return &cp, nil
}

func (r *MatchRepository) attachJob(ctx context.Context, m *match.Match) {
	if r.jobs == nil {
		return
	}
	j, err := r.jobs.GetByID(ctx, m.JobID)
	if err != nil {
		return
	}
	m.Job = &match.JobSummary{
		Title:     j.Title,
		Company:   j.Company,
		Location:  j.Location,
		SourceURL: j.SourceURL,
		IsRemote:  j.IsRemote,
		IsActive:  j.IsActive,
	}
}

func apply(m *match.Match, u match.ScoreUpdate, now time.Time) {
	m.Score = u.Score
	m.Rationale = u.Rationale
	m.MatchedSkills = append([]string(nil), u.MatchedSkills...)
	m.MissingSkills = append([]string(nil), u.MissingSkills...)
	m.UpdatedAt = now
}

// ErrTransient is a storage error used to exercise retries
var ErrTransient = errors.New("transient storage error")
