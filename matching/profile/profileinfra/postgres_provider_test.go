package profileinfra

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/profile"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockProvider(t *testing.T) (*PostgresProfileProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresProfileProvider(sqlx.NewDb(db, "postgres")), mock
}

func TestGetProfile(t *testing.T) {
	p, mock := newMockProvider(t)
	updated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM profile_embeddings pe").WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "embedding", "remote_only", "preferred_locations",
			"min_experience_level", "max_experience_level", "updated_at",
		}).AddRow("user-1", "[0.5,0.5]", true, "{Lima,Remote}", "MID", "bogus", updated))
	mock.ExpectQuery("FROM profile_skills").WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"skill_name"}).AddRow("Go").AddRow("SQL"))

	got, err := p.GetProfile(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, kernel.Vector{0.5, 0.5}, got.Vector)
	assert.Equal(t, []string{"Go", "SQL"}, got.Skills)
	assert.True(t, got.Preferences.RemoteOnly)
	assert.Equal(t, []string{"Lima", "Remote"}, got.Preferences.Locations)
	assert.Equal(t, job.LevelMid, got.Preferences.MinLevel)
	assert.Empty(t, got.Preferences.MaxLevel)
	assert.Equal(t, profile.VersionOf(updated), got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NoVectorIsNotFound(t *testing.T) {
	p, mock := newMockProvider(t)
	mock.ExpectQuery("FROM profile_embeddings pe").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := p.GetProfile(context.Background(), "user-1")

	assert.True(t, errx.Is(err, profile.CodeProfileNotFound))
}

func TestListUsers_Cursor(t *testing.T) {
	p, mock := newMockProvider(t)
	updated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"user_id", "remote_only", "preferred_locations", "min_experience_level", "max_experience_level", "updated_at"}

	mock.ExpectQuery("ORDER BY pe.user_id").WithArgs("", 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("u1", false, "{}", "", "", updated).
			AddRow("u2", false, "{}", "", "", updated))

	users, next, err := p.ListUsers(context.Background(), "", 2)

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, kernel.UserID("u2"), next)
}
