package matchinfra

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var matchCols = []string{
	"id", "user_id", "job_id", "score", "rationale", "matched_skills", "missing_skills",
	"is_viewed", "viewed_at", "is_saved", "saved_at", "is_applied", "applied_at",
	"user_rating", "user_feedback", "matched_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresMatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresMatchRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestUpsert_OnlyRefreshesScoreFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	applied := now.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, job_id) DO UPDATE SET")).
		WithArgs(sqlmock.AnyArg(), "user-1", "job-1", 81, "Excellent match.", sqlmock.AnyArg(), sqlmock.AnyArg(), now).
		WillReturnRows(sqlmock.NewRows(matchCols).AddRow(
			"m-1", "user-1", "job-1", 81, "Excellent match.", "{Go,SQL}", "{Kafka}",
			true, applied, false, nil, true, applied,
			nil, nil, applied, now,
		))

	got, err := repo.Upsert(context.Background(), "user-1", "job-1", match.ScoreUpdate{
		Score:         81,
		Rationale:     "Excellent match.",
		MatchedSkills: []string{"Go", "SQL"},
		MissingSkills: []string{"Kafka"},
	}, now)

	require.NoError(t, err)
	assert.Equal(t, 81, got.Score)
	assert.True(t, got.IsApplied)
	assert.Equal(t, applied, *got.AppliedAt)
	assert.Equal(t, []string{"Go", "SQL"}, got.MatchedSkills)
	assert.Nil(t, got.UserRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScore_ReportsMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE job_matches SET").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateScore(context.Background(), "user-1", "job-1", match.ScoreUpdate{Score: 10}, now)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkViewed_KeepsFirstTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := now.Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("viewed_at = COALESCE(viewed_at, $3)")).
		WithArgs("user-1", "job-1", now).
		WillReturnRows(sqlmock.NewRows(matchCols).AddRow(
			"m-1", "user-1", "job-1", 50, "", "{}", "{}",
			true, first, false, nil, false, nil,
			nil, nil, first, now,
		))

	got, err := repo.MarkViewed(context.Background(), "user-1", "job-1", now)

	require.NoError(t, err)
	assert.Equal(t, first, *got.ViewedAt)
}

func TestToggleSaved_NoRowIsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("is_saved = NOT is_saved").
		WillReturnRows(sqlmock.NewRows(matchCols))

	_, err := repo.ToggleSaved(context.Background(), "user-1", "job-1", now)

	assert.True(t, errx.Is(err, match.CodeMatchNotFound))
}

func TestRecordRating_PassesStarsAndFeedback(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("user_rating = \\$4").
		WithArgs("user-1", "job-1", now, 4, "great").
		WillReturnRows(sqlmock.NewRows(matchCols).AddRow(
			"m-1", "user-1", "job-1", 50, "", "{}", "{}",
			false, nil, false, nil, false, nil,
			4, "great", now, now,
		))

	got, err := repo.RecordRating(context.Background(), "user-1", "job-1", 4, "great", now)

	require.NoError(t, err)
	require.NotNil(t, got.UserRating)
	assert.Equal(t, 4, *got.UserRating)
	assert.Equal(t, "great", got.UserFeedback)
}

func TestList_OrdersByScoreThenDateThenID(t *testing.T) {
	repo, mock := newMockRepo(t)
	cols := append(append([]string{}, matchCols...),
		"job_title", "job_company", "job_location", "job_salary_range",
		"job_source_url", "job_is_remote", "job_is_active")

	mock.ExpectQuery("SELECT COUNT").WithArgs("user-1", false, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY m.score DESC, m.matched_at DESC, m.id")).
		WithArgs("user-1", false, false, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"m-1", "user-1", "job-1", 90, "", "{Go}", "{}",
			false, nil, false, nil, false, nil,
			nil, nil, now, now,
			"Go Engineer", "Acme", "Lima", "", "https://example.com/1", true, false,
		))

	page, err := repo.List(context.Background(), "user-1", match.ListFilter{}, kernel.PaginationOptions{})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Page.Total)
	require.NotNil(t, page.Items[0].Job)
	assert.Equal(t, "Go Engineer", page.Items[0].Job.Title)
	assert.False(t, page.Items[0].Job.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_DateSort(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY m.matched_at DESC, m.id")).
		WillReturnRows(sqlmock.NewRows(matchCols))

	page, err := repo.List(context.Background(), "user-1", match.ListFilter{Sort: match.SortByDate}, kernel.PaginationOptions{})

	require.NoError(t, err)
	assert.True(t, page.Empty)
}

func TestCounts(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("COUNT\\(\\*\\) FILTER").WithArgs("user-1", match.HighScoreThreshold).
		WillReturnRows(sqlmock.NewRows([]string{"total", "high_score", "unviewed", "saved", "applied", "average_score"}).
			AddRow(5, 2, 3, 1, 1, 64.2))

	s, err := repo.Counts(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.HighScore)
	assert.InDelta(t, 64.2, s.AverageScore, 1e-9)
}
