package embeddinginfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresEmbeddingRepository implements embedding.Repository on pgvector
type PostgresEmbeddingRepository struct {
	db *sqlx.DB
}

var _ embedding.Repository = (*PostgresEmbeddingRepository)(nil)

// NewPostgresEmbeddingRepository creates a new pgvector embedding repository
func NewPostgresEmbeddingRepository(db *sqlx.DB) *PostgresEmbeddingRepository {
	return &PostgresEmbeddingRepository{db: db}
}

// ============================================================================
// Database Model
// ============================================================================

type embeddingModel struct {
	JobID     string          `db:"job_id"`
	Embedding pgvector.Vector `db:"embedding"`
	Model     string          `db:"model"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (m *embeddingModel) toEntity() *embedding.Embedding {
	return &embedding.Embedding{
		JobID:     kernel.JobID(m.JobID),
		Vector:    kernel.Vector(m.Embedding.Slice()),
		Model:     m.Model,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type jobVectorModel struct {
	JobID       string          `db:"job_id"`
	Embedding   pgvector.Vector `db:"embedding"`
	FirstSeenAt time.Time       `db:"first_seen_at"`
	IsActive    bool            `db:"is_active"`
}

func (m *jobVectorModel) toEntity() embedding.JobVector {
	return embedding.JobVector{
		JobID:       kernel.JobID(m.JobID),
		Vector:      kernel.Vector(m.Embedding.Slice()),
		FirstSeenAt: m.FirstSeenAt,
		IsActive:    m.IsActive,
	}
}

// ============================================================================
// Repository Implementation
// ============================================================================

// Insert stores the first embedding of a job
func (r *PostgresEmbeddingRepository) Insert(ctx context.Context, e *embedding.Embedding) error {
	query := `
		INSERT INTO job_embeddings (job_id, embedding, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (job_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, e.JobID.String(), pgvector.NewVector(e.Vector), e.Model, e.CreatedAt)
	if err != nil {
		return mapWriteError(err, e.JobID)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return embedding.ErrEmbeddingAlreadyExists().WithDetail("job_id", e.JobID.String())
	}
	return nil
}

// Replace stores or overwrites the embedding of a job
func (r *PostgresEmbeddingRepository) Replace(ctx context.Context, e *embedding.Embedding) error {
	query := `
		INSERT INTO job_embeddings (job_id, embedding, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (job_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			model = EXCLUDED.model,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, query, e.JobID.String(), pgvector.NewVector(e.Vector), e.Model, e.CreatedAt); err != nil {
		return mapWriteError(err, e.JobID)
	}
	return nil
}

// Get retrieves the embedding of a job
func (r *PostgresEmbeddingRepository) Get(ctx context.Context, jobID kernel.JobID) (*embedding.Embedding, error) {
	query := `
		SELECT job_id, embedding, model, created_at, updated_at
		FROM job_embeddings WHERE job_id = $1`

	var model embeddingModel
	if err := r.db.GetContext(ctx, &model, query, jobID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, embedding.ErrEmbeddingNotFound().WithDetail("job_id", jobID.String())
		}
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return model.toEntity(), nil
}

// GetAllWithVectors retrieves the vectors of the given jobs
func (r *PostgresEmbeddingRepository) GetAllWithVectors(ctx context.Context, jobIDs []kernel.JobID) ([]embedding.JobVector, error) {
	if len(jobIDs) == 0 {
		return []embedding.JobVector{}, nil
	}

	query := `
		SELECT e.job_id, e.embedding, j.first_seen_at,
		       (j.is_active AND (j.expires_at IS NULL OR j.expires_at > now())) AS is_active
		FROM job_embeddings e
		JOIN jobs j ON j.id = e.job_id
		WHERE e.job_id = ANY($1::uuid[])
		ORDER BY e.job_id`

	ids := make([]string, len(jobIDs))
	for i, id := range jobIDs {
		ids[i] = id.String()
	}

	var models []jobVectorModel
	if err := r.db.SelectContext(ctx, &models, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get embeddings: %w", err)
	}
	return toJobVectors(models), nil
}

// AllActiveWithVectors pages through matchable jobs' vectors by job id
func (r *PostgresEmbeddingRepository) AllActiveWithVectors(ctx context.Context, limit int, cursor kernel.JobID) ([]embedding.JobVector, kernel.JobID, error) {
	if limit <= 0 {
		return []embedding.JobVector{}, "", nil
	}

	query := `
		SELECT e.job_id, e.embedding, j.first_seen_at, true AS is_active
		FROM job_embeddings e
		JOIN jobs j ON j.id = e.job_id
		WHERE j.is_active
		  AND (j.expires_at IS NULL OR j.expires_at > now())
		  AND ($1 = '' OR e.job_id > $1::uuid)
		ORDER BY e.job_id
		LIMIT $2`

	var models []jobVectorModel
	if err := r.db.SelectContext(ctx, &models, query, cursor.String(), limit); err != nil {
		return nil, "", fmt.Errorf("failed to scan active embeddings: %w", err)
	}

	var next kernel.JobID
	if len(models) == limit {
		next = kernel.JobID(models[len(models)-1].JobID)
	}
	return toJobVectors(models), next, nil
}

// CountActive counts matchable jobs that have an embedding
func (r *PostgresEmbeddingRepository) CountActive(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM job_embeddings e
		JOIN jobs j ON j.id = e.job_id
		WHERE j.is_active AND (j.expires_at IS NULL OR j.expires_at > now())`

	var n int
	if err := r.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// ListJobsMissingEmbeddings lists active jobs still waiting for an embedding, oldest first
func (r *PostgresEmbeddingRepository) ListJobsMissingEmbeddings(ctx context.Context, limit int) ([]kernel.JobID, error) {
	query := `
		SELECT j.id
		FROM jobs j
		LEFT JOIN job_embeddings e ON e.job_id = j.id
		WHERE e.job_id IS NULL AND j.is_active
		ORDER BY j.first_seen_at, j.id
		LIMIT $1`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list jobs missing embeddings: %w", err)
	}

	out := make([]kernel.JobID, len(ids))
	for i, id := range ids {
		out[i] = kernel.JobID(id)
	}
	return out, nil
}

// ============================================================================
// Helpers
// ============================================================================

func toJobVectors(models []jobVectorModel) []embedding.JobVector {
	out := make([]embedding.JobVector, len(models))
	for i := range models {
		out[i] = models[i].toEntity()
	}
	return out
}

// mapWriteError turns a missing parent job (23503) into a not-found error
func mapWriteError(err error, jobID kernel.JobID) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
		return embedding.ErrEmbeddingNotFound().
			WithDetail("job_id", jobID.String()).
			WithDetail("reason", "job does not exist").
			WithCause(err)
	}
	return fmt.Errorf("failed to write embedding: %w", err)
}
