package matchsrv

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

const summaryListSize = 5

// MatchService serves a user's matches and records their interactions
type MatchService struct {
	matchRepo match.Repository
	now       func() time.Time
}

// NewMatchService creates a new instance of the match service
func NewMatchService(matchRepo match.Repository) *MatchService {
	return &MatchService{
		matchRepo: matchRepo,
		now:       time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *MatchService) WithClock(now func() time.Time) *MatchService {
	s.now = now
	return s
}

// ListMatches returns a ranked page of the user's matches
func (s *MatchService) ListMatches(ctx context.Context, userID kernel.UserID, sort match.SortOrder, pagination kernel.PaginationOptions) (*match.PaginatedMatchesResponse, error) {
	return s.list(ctx, userID, match.ListFilter{Sort: sort}, pagination)
}

// ListSaved returns the user's saved matches, best first
func (s *MatchService) ListSaved(ctx context.Context, userID kernel.UserID, pagination kernel.PaginationOptions) (*match.PaginatedMatchesResponse, error) {
	return s.list(ctx, userID, match.ListFilter{SavedOnly: true}, pagination)
}

// ListApplied returns the matches the user applied to, newest match first
func (s *MatchService) ListApplied(ctx context.Context, userID kernel.UserID, pagination kernel.PaginationOptions) (*match.PaginatedMatchesResponse, error) {
	return s.list(ctx, userID, match.ListFilter{AppliedOnly: true, Sort: match.SortByDate}, pagination)
}

// Summary aggregates counts with the top and most recent matches
func (s *MatchService) Summary(ctx context.Context, userID kernel.UserID) (*match.SummaryResponse, error) {
	summary, err := s.matchRepo.Counts(ctx, userID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to summarize matches", errx.TypeInternal)
	}

	first := kernel.PaginationOptions{Page: 1, PageSize: summaryListSize}

	top, err := s.matchRepo.List(ctx, userID, match.ListFilter{Sort: match.SortByScore}, first)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list top matches", errx.TypeInternal)
	}
	recent, err := s.matchRepo.List(ctx, userID, match.ListFilter{Sort: match.SortByDate}, first)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list recent matches", errx.TypeInternal)
	}

	summary.Top = top.Items
	summary.Recent = recent.Items

	resp := summary.ToResponse()
	return &resp, nil
}

// GetMatch returns one match
func (s *MatchService) GetMatch(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.MatchResponse, error) {
	m, err := s.matchRepo.Get(ctx, userID, jobID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to get match", errx.TypeInternal)
	}
	resp := m.ToResponse()
	return &resp, nil
}

// MarkViewed records that the user opened the match
func (s *MatchService) MarkViewed(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.MatchResponse, error) {
	return s.respond(s.matchRepo.MarkViewed(ctx, userID, jobID, s.now().UTC()))
}

// MarkApplied records that the user applied. It cannot be undone.
func (s *MatchService) MarkApplied(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.MatchResponse, error) {
	resp, err := s.respond(s.matchRepo.MarkApplied(ctx, userID, jobID, s.now().UTC()))
	if err == nil {
		logx.Infof("User %s applied to job %s", userID, jobID)
	}
	return resp, err
}

// ToggleSaved flips the saved flag
func (s *MatchService) ToggleSaved(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.MatchResponse, error) {
	return s.respond(s.matchRepo.ToggleSaved(ctx, userID, jobID, s.now().UTC()))
}

// RecordFeedback stores a 1 to 5 star rating with optional text
func (s *MatchService) RecordFeedback(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, req match.FeedbackRequest) (*match.MatchResponse, error) {
	if err := match.ValidateRating(req.Rating); err != nil {
		return nil, err
	}
	return s.respond(s.matchRepo.RecordRating(ctx, userID, jobID, req.Rating, req.Feedback, s.now().UTC()))
}

// ============================================================================
// Helpers
// ============================================================================

func (s *MatchService) list(ctx context.Context, userID kernel.UserID, filter match.ListFilter, pagination kernel.PaginationOptions) (*match.PaginatedMatchesResponse, error) {
	page, err := s.matchRepo.List(ctx, userID, filter, pagination)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list matches", errx.TypeInternal)
	}
	resp := kernel.MapPaginated(*page, match.Match.ToResponse)
	return &resp, nil
}

func (s *MatchService) respond(m *match.Match, err error) (*match.MatchResponse, error) {
	if err != nil {
		return nil, errx.Wrap(err, "failed to update match", errx.TypeInternal)
	}
	resp := m.ToResponse()
	return &resp, nil
}
