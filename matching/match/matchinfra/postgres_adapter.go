package matchinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresMatchRepository implements match.Repository using PostgreSQL
type PostgresMatchRepository struct {
	db *sqlx.DB
}

var _ match.Repository = (*PostgresMatchRepository)(nil)

// NewPostgresMatchRepository creates a new PostgreSQL match repository
func NewPostgresMatchRepository(db *sqlx.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{
		db: db,
	}
}

// ============================================================================
// Database Model
// ============================================================================

const matchColumns = `
	id, user_id, job_id, score, rationale, matched_skills, missing_skills,
	is_viewed, viewed_at, is_saved, saved_at, is_applied, applied_at,
	user_rating, user_feedback, matched_at, updated_at`

const joinedColumns = `
	m.id, m.user_id, m.job_id, m.score, m.rationale, m.matched_skills, m.missing_skills,
	m.is_viewed, m.viewed_at, m.is_saved, m.saved_at, m.is_applied, m.applied_at,
	m.user_rating, m.user_feedback, m.matched_at, m.updated_at,
	j.title AS job_title, j.company AS job_company, j.location AS job_location,
	j.salary_range AS job_salary_range, j.source_url AS job_source_url,
	j.is_remote AS job_is_remote, j.is_active AS job_is_active`

type matchModel struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	JobID         string         `db:"job_id"`
	Score         int            `db:"score"`
	Rationale     string         `db:"rationale"`
	MatchedSkills pq.StringArray `db:"matched_skills"`
	MissingSkills pq.StringArray `db:"missing_skills"`
	IsViewed      bool           `db:"is_viewed"`
	ViewedAt      *time.Time     `db:"viewed_at"`
	IsSaved       bool           `db:"is_saved"`
	SavedAt       *time.Time     `db:"saved_at"`
	IsApplied     bool           `db:"is_applied"`
	AppliedAt     *time.Time     `db:"applied_at"`
	UserRating    sql.NullInt32  `db:"user_rating"`
	UserFeedback  sql.NullString `db:"user_feedback"`
	MatchedAt     time.Time      `db:"matched_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// joinedModel carries the job summary columns of read paths
type joinedModel struct {
	matchModel
	JobTitle       string `db:"job_title"`
	JobCompany     string `db:"job_company"`
	JobLocation    string `db:"job_location"`
	JobSalaryRange string `db:"job_salary_range"`
	JobSourceURL   string `db:"job_source_url"`
	JobIsRemote    bool   `db:"job_is_remote"`
	JobIsActive    bool   `db:"job_is_active"`
}

// toEntity converts database model to domain entity
func (m *matchModel) toEntity() *match.Match {
	var rating *int
	if m.UserRating.Valid {
		r := int(m.UserRating.Int32)
		rating = &r
	}
	return &match.Match{
		ID:            kernel.MatchID(m.ID),
		UserID:        kernel.UserID(m.UserID),
		JobID:         kernel.JobID(m.JobID),
		Score:         m.Score,
		Rationale:     m.Rationale,
		MatchedSkills: nonNil(m.MatchedSkills),
		MissingSkills: nonNil(m.MissingSkills),
		IsViewed:      m.IsViewed,
		ViewedAt:      m.ViewedAt,
		IsSaved:       m.IsSaved,
		SavedAt:       m.SavedAt,
		IsApplied:     m.IsApplied,
		AppliedAt:     m.AppliedAt,
		UserRating:    rating,
		UserFeedback:  m.UserFeedback.String,
		MatchedAt:     m.MatchedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (m *joinedModel) toEntity() *match.Match {
	entity := m.matchModel.toEntity()
	entity.Job = &match.JobSummary{
		Title:       m.JobTitle,
		Company:     m.JobCompany,
		Location:    m.JobLocation,
		SalaryRange: m.JobSalaryRange,
		SourceURL:   m.JobSourceURL,
		IsRemote:    m.JobIsRemote,
		IsActive:    m.JobIsActive,
	}
	return entity
}

// ============================================================================
// Repository Implementation
// ============================================================================

// Upsert inserts a match or refreshes its score fields. Flags and matched_at
// are left untouched on conflict.
func (r *PostgresMatchRepository) Upsert(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, update match.ScoreUpdate, now time.Time) (*match.Match, error) {
	query := `
		INSERT INTO job_matches (
			id, user_id, job_id, score, rationale, matched_skills, missing_skills,
			matched_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, job_id) DO UPDATE SET
			score = EXCLUDED.score,
			rationale = EXCLUDED.rationale,
			matched_skills = EXCLUDED.matched_skills,
			missing_skills = EXCLUDED.missing_skills,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + matchColumns

	var model matchModel
	err := r.db.GetContext(ctx, &model, query,
		uuid.NewString(),
		userID.String(),
		jobID.String(),
		update.Score,
		update.Rationale,
		pq.StringArray(nonNil(update.MatchedSkills)),
		pq.StringArray(nonNil(update.MissingSkills)),
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert match: %w", err)
	}
	return model.toEntity(), nil
}

// UpdateScore refreshes the score fields of an existing match only
func (r *PostgresMatchRepository) UpdateScore(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, update match.ScoreUpdate, now time.Time) (bool, error) {
	query := `
		UPDATE job_matches SET
			score = $3,
			rationale = $4,
			matched_skills = $5,
			missing_skills = $6,
			updated_at = $7
		WHERE user_id = $1 AND job_id = $2`

	result, err := r.db.ExecContext(ctx, query,
		userID.String(),
		jobID.String(),
		update.Score,
		update.Rationale,
		pq.StringArray(nonNil(update.MatchedSkills)),
		pq.StringArray(nonNil(update.MissingSkills)),
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update match score: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Get retrieves one match with its job summary
func (r *PostgresMatchRepository) Get(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*match.Match, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM job_matches m
		JOIN jobs j ON j.id = m.job_id
		WHERE m.user_id = $1 AND m.job_id = $2`

	var model joinedModel
	if err := r.db.GetContext(ctx, &model, query, userID.String(), jobID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(userID, jobID)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return model.toEntity(), nil
}

// MarkViewed sets is_viewed; viewed_at keeps the first view
func (r *PostgresMatchRepository) MarkViewed(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.updateFlags(ctx, userID, jobID, `
		is_viewed = true,
		viewed_at = COALESCE(viewed_at, $3),
		updated_at = $3`, now)
}

// MarkApplied sets is_applied; applied_at keeps the first apply
func (r *PostgresMatchRepository) MarkApplied(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.updateFlags(ctx, userID, jobID, `
		is_applied = true,
		applied_at = COALESCE(applied_at, $3),
		updated_at = $3`, now)
}

// ToggleSaved flips is_saved and stamps or clears saved_at
func (r *PostgresMatchRepository) ToggleSaved(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*match.Match, error) {
	return r.updateFlags(ctx, userID, jobID, `
		is_saved = NOT is_saved,
		saved_at = CASE WHEN is_saved THEN NULL ELSE $3 END,
		updated_at = $3`, now)
}

// RecordRating stores a rating and optional feedback
func (r *PostgresMatchRepository) RecordRating(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, stars int, feedback string, now time.Time) (*match.Match, error) {
	return r.updateFlags(ctx, userID, jobID, `
		user_rating = $4,
		user_feedback = NULLIF($5, ''),
		updated_at = $3`, now, stars, feedback)
}

// List returns a page of a user's matches in a total order
func (r *PostgresMatchRepository) List(ctx context.Context, userID kernel.UserID, filter match.ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[match.Match], error) {
	pagination = pagination.Normalize()

	where := `
		WHERE m.user_id = $1
		  AND ($2 = false OR m.is_saved)
		  AND ($3 = false OR m.is_applied)`

	var total int
	countQuery := `SELECT COUNT(*) FROM job_matches m` + where
	if err := r.db.GetContext(ctx, &total, countQuery, userID.String(), filter.SavedOnly, filter.AppliedOnly); err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}

	orderBy := `ORDER BY m.score DESC, m.matched_at DESC, m.id`
	if filter.Sort == match.SortByDate {
		orderBy = `ORDER BY m.matched_at DESC, m.id`
	}

	query := `
		SELECT ` + joinedColumns + `
		FROM job_matches m
		JOIN jobs j ON j.id = m.job_id` + where + `
		` + orderBy + `
		LIMIT $4 OFFSET $5`

	var models []joinedModel
	err := r.db.SelectContext(ctx, &models, query,
		userID.String(),
		filter.SavedOnly,
		filter.AppliedOnly,
		pagination.PageSize,
		pagination.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	matches := make([]match.Match, 0, len(models))
	for i := range models {
		matches = append(matches, *models[i].toEntity())
	}

	page := kernel.NewPaginated(matches, pagination, total)
	return &page, nil
}

// Counts aggregates the numeric part of a summary
func (r *PostgresMatchRepository) Counts(ctx context.Context, userID kernel.UserID) (*match.Summary, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE score >= $2) AS high_score,
			COUNT(*) FILTER (WHERE NOT is_viewed) AS unviewed,
			COUNT(*) FILTER (WHERE is_saved) AS saved,
			COUNT(*) FILTER (WHERE is_applied) AS applied,
			COALESCE(AVG(score), 0)::float8 AS average_score
		FROM job_matches
		WHERE user_id = $1`

	s := &match.Summary{}
	row := r.db.QueryRowxContext(ctx, query, userID.String(), match.HighScoreThreshold)
	if err := row.Scan(&s.Total, &s.HighScore, &s.Unviewed, &s.Saved, &s.Applied, &s.AverageScore); err != nil {
		return nil, fmt.Errorf("failed to summarize matches: %w", err)
	}
	return s, nil
}

// ============================================================================
// Helpers
// ============================================================================

// updateFlags applies a SET clause; $1 user, $2 job, $3 now, extra args follow
func (r *PostgresMatchRepository) updateFlags(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, set string, now time.Time, extra ...any) (*match.Match, error) {
	query := `
		UPDATE job_matches SET` + set + `
		WHERE user_id = $1 AND job_id = $2
		RETURNING ` + matchColumns

	args := append([]any{userID.String(), jobID.String(), now}, extra...)

	var model matchModel
	if err := r.db.GetContext(ctx, &model, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(userID, jobID)
		}
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	return model.toEntity(), nil
}

func notFound(userID kernel.UserID, jobID kernel.JobID) error {
	return match.ErrMatchNotFound().
		WithDetail("user_id", userID.String()).
		WithDetail("job_id", jobID.String())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
