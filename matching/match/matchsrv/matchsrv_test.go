package matchsrv

import (
	"context"
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/matching/matchingtest"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const user = kernel.UserID("user-1")

func seed(t *testing.T) (*MatchService, *matchingtest.MatchRepository, *matchingtest.Clock) {
	t.Helper()
	ctx := context.Background()
	clock := matchingtest.NewClock(t0)
	jobs := matchingtest.NewJobRepository()
	repo := matchingtest.NewMatchRepository(jobs)

	scores := map[kernel.JobID]int{"a": 90, "b": 70, "c": 90, "d": 40}
	for i, id := range []kernel.JobID{"a", "b", "c", "d"} {
		jobs.Put(&job.Job{ID: id, Title: "Job " + id.String(), Company: "Acme", IsActive: true, FirstSeenAt: t0})
		_, err := repo.Upsert(ctx, user, id, match.ScoreUpdate{Score: scores[id], Rationale: "r"}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	svc := NewMatchService(repo).WithClock(clock.Now)
	return svc, repo, clock
}

func jobIDs(items []match.MatchResponse) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.JobID
	}
	return out
}

func TestListMatches_RankedOrder(t *testing.T) {
	svc, _, _ := seed(t)

	page, err := svc.ListMatches(context.Background(), user, match.SortByScore, kernel.PaginationOptions{Page: 1, PageSize: 10})

	require.NoError(t, err)
	// equal scores fall back to the newest match
	assert.Equal(t, []string{"c", "a", "b", "d"}, jobIDs(page.Items))
	assert.Equal(t, 4, page.Page.Total)
	require.NotNil(t, page.Items[0].Job)
	assert.Equal(t, "Job c", page.Items[0].Job.Title)
}

func TestListMatches_SortByDateAndPaging(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()

	first, err := svc.ListMatches(ctx, user, match.SortByDate, kernel.PaginationOptions{Page: 1, PageSize: 3})
	require.NoError(t, err)
	second, err := svc.ListMatches(ctx, user, match.SortByDate, kernel.PaginationOptions{Page: 2, PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "c", "b"}, jobIDs(first.Items))
	assert.Equal(t, []string{"a"}, jobIDs(second.Items))
	assert.Equal(t, 2, first.Page.Pages)
}

func TestFlags(t *testing.T) {
	svc, _, clock := seed(t)
	ctx := context.Background()

	viewed, err := svc.MarkViewed(ctx, user, "b")
	require.NoError(t, err)
	assert.True(t, viewed.IsViewed)

	clock.Advance(time.Hour)
	applied, err := svc.MarkApplied(ctx, user, "b")
	require.NoError(t, err)
	assert.True(t, applied.IsApplied)

	saved, err := svc.ToggleSaved(ctx, user, "a")
	require.NoError(t, err)
	assert.True(t, saved.IsSaved)
	unsaved, err := svc.ToggleSaved(ctx, user, "a")
	require.NoError(t, err)
	assert.False(t, unsaved.IsSaved)
	_, err = svc.ToggleSaved(ctx, user, "c")
	require.NoError(t, err)

	savedPage, err := svc.ListSaved(ctx, user, kernel.PaginationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, jobIDs(savedPage.Items))

	appliedPage, err := svc.ListApplied(ctx, user, kernel.PaginationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, jobIDs(appliedPage.Items))

	_, err = svc.MarkViewed(ctx, user, "missing")
	assert.True(t, errx.Is(err, match.CodeMatchNotFound))
}

func TestRecordFeedback(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()

	resp, err := svc.RecordFeedback(ctx, user, "a", match.FeedbackRequest{Rating: 4, Feedback: "good fit"})
	require.NoError(t, err)
	require.NotNil(t, resp.UserRating)
	assert.Equal(t, 4, *resp.UserRating)
	assert.Equal(t, "good fit", resp.UserFeedback)

	for _, bad := range []int{0, 6, -1} {
		_, err := svc.RecordFeedback(ctx, user, "a", match.FeedbackRequest{Rating: bad})
		assert.True(t, errx.Is(err, match.CodeInvalidRating), "rating %d", bad)
	}
}

func TestSummary(t *testing.T) {
	svc, _, _ := seed(t)
	ctx := context.Background()
	_, err := svc.MarkViewed(ctx, user, "a")
	require.NoError(t, err)

	s, err := svc.Summary(ctx, user)

	require.NoError(t, err)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.HighScore)
	assert.Equal(t, 3, s.Unviewed)
	assert.InDelta(t, 72.5, s.AverageScore, 1e-9)
	assert.Equal(t, []string{"c", "a", "b", "d"}, jobIDs(s.Top))
	assert.Equal(t, []string{"d", "c", "b", "a"}, jobIDs(s.Recent))
}

func TestSummary_NoMatches(t *testing.T) {
	svc := NewMatchService(matchingtest.NewMatchRepository(nil))

	s, err := svc.Summary(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.Top)
}
