package embedding

import (
	"context"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

type Repository interface {
	// Insert stores the first embedding of a job; ErrEmbeddingAlreadyExists if one exists
	Insert(ctx context.Context, e *Embedding) error

	// Replace stores or overwrites the embedding of a job (model upgrade)
	Replace(ctx context.Context, e *Embedding) error

	// Get retrieves the embedding of a job
	Get(ctx context.Context, jobID kernel.JobID) (*Embedding, error)

	// GetAllWithVectors retrieves the vectors of the given jobs; jobs without one are skipped
	GetAllWithVectors(ctx context.Context, jobIDs []kernel.JobID) ([]JobVector, error)

	// AllActiveWithVectors pages through matchable jobs' vectors ordered by job id,
	// starting after cursor; the returned cursor is empty on the last page
	AllActiveWithVectors(ctx context.Context, limit int, cursor kernel.JobID) ([]JobVector, kernel.JobID, error)

	// CountActive counts matchable jobs that have an embedding
	CountActive(ctx context.Context) (int, error)

	// ListJobsMissingEmbeddings lists active jobs still waiting for an embedding
	ListJobsMissingEmbeddings(ctx context.Context, limit int) ([]kernel.JobID, error)
}

// TextEmbedder calls the external embedding provider
type TextEmbedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Listener is notified after an embedding is written. It runs inside the
// write path, so it must only hand the job off and return.
type Listener interface {
	OnEmbeddingWritten(ctx context.Context, jobID kernel.JobID) error
}
