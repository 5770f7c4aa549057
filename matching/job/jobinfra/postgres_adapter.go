package jobinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresJobRepository implements job.Repository using PostgreSQL
type PostgresJobRepository struct {
	db *sqlx.DB
}

var _ job.Repository = (*PostgresJobRepository)(nil)

// NewPostgresJobRepository creates a new PostgreSQL job repository
func NewPostgresJobRepository(db *sqlx.DB) *PostgresJobRepository {
	return &PostgresJobRepository{
		db: db,
	}
}

// ============================================================================
// Database Model
// ============================================================================

const jobColumns = `
	id, fingerprint, source_url, source, title, company, location,
	salary_range, employment_type, experience_level, is_remote, description,
	required_skills, requirements, raw_source_ref, is_active,
	first_seen_at, last_crawled_at, expires_at, updated_at`

type jobModel struct {
	ID              string          `db:"id"`
	Fingerprint     string          `db:"fingerprint"`
	SourceURL       string          `db:"source_url"`
	Source          string          `db:"source"`
	Title           string          `db:"title"`
	Company         string          `db:"company"`
	Location        string          `db:"location"`
	SalaryRange     string          `db:"salary_range"`
	EmploymentType  string          `db:"employment_type"`
	ExperienceLevel string          `db:"experience_level"`
	IsRemote        bool            `db:"is_remote"`
	Description     string          `db:"description"`
	RequiredSkills  pq.StringArray  `db:"required_skills"`
	Requirements    json.RawMessage `db:"requirements"`
	RawSourceRef    string          `db:"raw_source_ref"`
	IsActive        bool            `db:"is_active"`
	FirstSeenAt     time.Time       `db:"first_seen_at"`
	LastCrawledAt   time.Time       `db:"last_crawled_at"`
	ExpiresAt       *time.Time      `db:"expires_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// toEntity converts database model to domain entity
func (m *jobModel) toEntity() (*job.Job, error) {
	var req job.Requirements
	if len(m.Requirements) > 0 {
		if err := json.Unmarshal(m.Requirements, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal requirements: %w", err)
		}
	}

	skills := []string(m.RequiredSkills)
	if skills == nil {
		skills = []string{}
	}

	return &job.Job{
		ID:              kernel.JobID(m.ID),
		Fingerprint:     kernel.Fingerprint(m.Fingerprint),
		SourceURL:       m.SourceURL,
		Source:          job.Source(m.Source),
		Title:           m.Title,
		Company:         m.Company,
		Location:        m.Location,
		SalaryRange:     m.SalaryRange,
		EmploymentType:  job.EmploymentType(m.EmploymentType),
		ExperienceLevel: job.ExperienceLevel(m.ExperienceLevel),
		IsRemote:        m.IsRemote,
		Description:     m.Description,
		RequiredSkills:  skills,
		Requirements:    req,
		RawSourceRef:    m.RawSourceRef,
		IsActive:        m.IsActive,
		FirstSeenAt:     m.FirstSeenAt,
		LastCrawledAt:   m.LastCrawledAt,
		ExpiresAt:       m.ExpiresAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}

// fromEntity converts domain entity to database model
func fromEntity(j *job.Job) (*jobModel, error) {
	req, err := json.Marshal(j.Requirements)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal requirements: %w", err)
	}

	skills := j.RequiredSkills
	if skills == nil {
		skills = []string{}
	}

	return &jobModel{
		ID:              j.ID.String(),
		Fingerprint:     j.Fingerprint.String(),
		SourceURL:       j.SourceURL,
		Source:          string(j.Source),
		Title:           j.Title,
		Company:         j.Company,
		Location:        j.Location,
		SalaryRange:     j.SalaryRange,
		EmploymentType:  string(j.EmploymentType),
		ExperienceLevel: string(j.ExperienceLevel),
		IsRemote:        j.IsRemote,
		Description:     j.Description,
		RequiredSkills:  pq.StringArray(skills),
		Requirements:    req,
		RawSourceRef:    j.RawSourceRef,
		IsActive:        j.IsActive,
		FirstSeenAt:     j.FirstSeenAt,
		LastCrawledAt:   j.LastCrawledAt,
		ExpiresAt:       j.ExpiresAt,
		UpdatedAt:       j.UpdatedAt,
	}, nil
}

// ============================================================================
// Repository Implementation
// ============================================================================

// Create creates a new job
func (r *PostgresJobRepository) Create(ctx context.Context, jobEntity *job.Job) error {
	model, err := fromEntity(jobEntity)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (` + jobColumns + `
		) VALUES (
			:id, :fingerprint, :source_url, :source, :title, :company, :location,
			:salary_range, :employment_type, :experience_level, :is_remote, :description,
			:required_skills, :requirements, :raw_source_ref, :is_active,
			:first_seen_at, :last_crawled_at, :expires_at, :updated_at
		)
	`

	_, err = r.db.NamedExecContext(ctx, query, model)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return job.ErrDuplicateFingerprintRace().
				WithDetail("fingerprint", jobEntity.Fingerprint.String()).
				WithCause(err)
		}
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// Update overwrites mutable fields. last_crawled_at never moves backwards.
func (r *PostgresJobRepository) Update(ctx context.Context, jobEntity *job.Job) error {
	model, err := fromEntity(jobEntity)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs SET
			source_url = :source_url,
			source = :source,
			title = :title,
			company = :company,
			location = :location,
			salary_range = :salary_range,
			employment_type = :employment_type,
			experience_level = :experience_level,
			is_remote = :is_remote,
			description = :description,
			required_skills = :required_skills,
			requirements = :requirements,
			raw_source_ref = :raw_source_ref,
			is_active = :is_active,
			last_crawled_at = GREATEST(last_crawled_at, :last_crawled_at),
			expires_at = :expires_at,
			updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, model)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return job.ErrJobNotFound().WithDetail("job_id", jobEntity.ID.String())
	}

	return nil
}

// GetByID retrieves a job by ID
func (r *PostgresJobRepository) GetByID(ctx context.Context, id kernel.JobID) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	var model jobModel
	if err := r.db.GetContext(ctx, &model, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, job.ErrJobNotFound().WithDetail("job_id", id.String())
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return model.toEntity()
}

// GetByFingerprint retrieves a job by URL fingerprint
func (r *PostgresJobRepository) GetByFingerprint(ctx context.Context, fp kernel.Fingerprint) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE fingerprint = $1`

	var model jobModel
	if err := r.db.GetContext(ctx, &model, query, fp.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, job.ErrJobNotFound().WithDetail("fingerprint", fp.String())
		}
		return nil, fmt.Errorf("failed to get job by fingerprint: %w", err)
	}

	return model.toEntity()
}

// ListByIDs retrieves several jobs in one round trip
func (r *PostgresJobRepository) ListByIDs(ctx context.Context, ids []kernel.JobID) ([]*job.Job, error) {
	if len(ids) == 0 {
		return []*job.Job{}, nil
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ANY($1::uuid[])`

	var models []jobModel
	if err := r.db.SelectContext(ctx, &models, query, pq.Array(idStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to list jobs by ids: %w", err)
	}

	return toEntities(models)
}

// ListActive lists matchable jobs, newest first
func (r *PostgresJobRepository) ListActive(ctx context.Context, filter job.ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[job.Job], error) {
	pagination = pagination.Normalize()

	where := `
		WHERE is_active
		  AND (expires_at IS NULL OR expires_at > now())
		  AND ($1 = false OR is_remote)
		  AND ($2 = '' OR company ILIKE $2)
		  AND ($3 = '' OR title ILIKE $3 OR company ILIKE $3 OR description ILIKE $3
		       OR EXISTS (SELECT 1 FROM unnest(required_skills) s WHERE s ILIKE $3))
		  AND ($4 = '' OR location ILIKE $4)
		  AND ($5 = '' OR employment_type = $5)
		  AND ($6 = '' OR experience_level = $6)`
	args := []any{
		filter.RemoteOnly,
		filter.Company,
		containsPattern(filter.Keyword),
		containsPattern(filter.Location),
		string(filter.EmploymentType),
		string(filter.ExperienceLevel),
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs`+where, args...); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs` + where + `
		ORDER BY first_seen_at DESC, id
		LIMIT $7 OFFSET $8`

	var models []jobModel
	if err := r.db.SelectContext(ctx, &models, query, append(args, pagination.PageSize, pagination.Offset())...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]job.Job, 0, len(models))
	for i := range models {
		entity, err := models[i].toEntity()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *entity)
	}

	page := kernel.NewPaginated(jobs, pagination, total)
	return &page, nil
}

// ListCandidateIDs returns ids of matchable, embedded jobs admitted by filter
func (r *PostgresJobRepository) ListCandidateIDs(ctx context.Context, filter job.CandidateFilter, limit int) ([]kernel.JobID, error) {
	query := `
		SELECT j.id
		FROM jobs j
		JOIN job_embeddings e ON e.job_id = j.id
		WHERE j.is_active
		  AND (j.expires_at IS NULL OR j.expires_at > now())
		  AND ($1 = false OR j.is_remote)
		  AND (cardinality($2::text[]) = 0 OR j.is_remote OR EXISTS (
		        SELECT 1 FROM unnest($2::text[]) loc WHERE j.location ILIKE '%' || loc || '%'))
		  AND ($3 < 0 OR COALESCE(array_position($5::text[], j.experience_level) - 1, $3) >= $3)
		  AND ($4 < 0 OR COALESCE(array_position($5::text[], j.experience_level) - 1, $4) <= $4)
		ORDER BY j.first_seen_at DESC, j.id
		LIMIT $6`

	locations := filter.Locations
	if locations == nil {
		locations = []string{}
	}

	lo, hi := filter.LevelBounds()

	var ids []string
	err := r.db.SelectContext(ctx, &ids, query,
		filter.RemoteOnly,
		pq.Array(locations),
		lo,
		hi,
		pq.Array(levelOrder),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate jobs: %w", err)
	}

	out := make([]kernel.JobID, len(ids))
	for i, id := range ids {
		out[i] = kernel.JobID(id)
	}
	return out, nil
}

// DeactivateStale soft-deletes jobs missing from recent crawls or past expiry
func (r *PostgresJobRepository) DeactivateStale(ctx context.Context, before, now time.Time) (int64, error) {
	query := `
		UPDATE jobs SET is_active = false, updated_at = $2
		WHERE is_active
		  AND (last_crawled_at < $1 OR (expires_at IS NOT NULL AND expires_at <= $2))`

	result, err := r.db.ExecContext(ctx, query, before, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale jobs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// Stats aggregates counts over active jobs
func (r *PostgresJobRepository) Stats(ctx context.Context, since time.Time, top int) (*job.Stats, error) {
	stats := &job.Stats{}

	counts := `
		SELECT
			COUNT(*) FILTER (WHERE j.is_active) AS active_jobs,
			COUNT(*) FILTER (WHERE j.is_active AND j.first_seen_at >= $1) AS new_since,
			COUNT(e.job_id) FILTER (WHERE j.is_active) AS with_embeddings
		FROM jobs j
		LEFT JOIN job_embeddings e ON e.job_id = j.id`

	row := r.db.QueryRowxContext(ctx, counts, since)
	if err := row.Scan(&stats.ActiveJobs, &stats.NewSince, &stats.WithEmbeddings); err != nil {
		return nil, fmt.Errorf("failed to count job stats: %w", err)
	}

	topCompanies := `
		SELECT company AS name, COUNT(*) AS count FROM jobs
		WHERE is_active AND company <> ''
		GROUP BY company ORDER BY count DESC, name LIMIT $1`
	if err := r.db.SelectContext(ctx, &stats.TopCompanies, topCompanies, top); err != nil {
		return nil, fmt.Errorf("failed to list top companies: %w", err)
	}

	topLocations := `
		SELECT location AS name, COUNT(*) AS count FROM jobs
		WHERE is_active AND location <> ''
		GROUP BY location ORDER BY count DESC, name LIMIT $1`
	if err := r.db.SelectContext(ctx, &stats.TopLocations, topLocations, top); err != nil {
		return nil, fmt.Errorf("failed to list top locations: %w", err)
	}

	return stats, nil
}

// ============================================================================
// Helpers
// ============================================================================

// levelOrder mirrors job.ExperienceLevel.Rank for SQL-side filtering
var levelOrder = []string{
	string(job.LevelEntry),
	string(job.LevelJunior),
	string(job.LevelMid),
	string(job.LevelSenior),
	string(job.LevelLead),
	string(job.LevelPrincipal),
	string(job.LevelExecutive),
}

// containsPattern builds an ILIKE substring pattern; empty input disables the condition
func containsPattern(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func idStrings(ids []kernel.JobID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func toEntities(models []jobModel) ([]*job.Job, error) {
	out := make([]*job.Job, 0, len(models))
	for i := range models {
		entity, err := models[i].toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
