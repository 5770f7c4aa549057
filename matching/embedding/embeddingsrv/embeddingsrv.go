package embeddingsrv

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
)

type EmbeddingService struct {
	repo      embedding.Repository
	jobRepo   job.Repository
	embedder  embedding.TextEmbedder
	listener  embedding.Listener
	dimension int
	batchSize int
	now       func() time.Time
}

// NewEmbeddingService wires the embedding store. embedder may be nil when no
// provider is configured; backfill is then a no-op.
func NewEmbeddingService(
	repo embedding.Repository,
	jobRepo job.Repository,
	embedder embedding.TextEmbedder,
	dimension int,
	batchSize int,
) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &EmbeddingService{
		repo:      repo,
		jobRepo:   jobRepo,
		embedder:  embedder,
		dimension: dimension,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetListener registers the recompute fan-out hook
func (s *EmbeddingService) SetListener(l embedding.Listener) {
	s.listener = l
}

func (s *EmbeddingService) WithClock(now func() time.Time) *EmbeddingService {
	s.now = now
	return s
}

// Put stores a job's embedding. A second write fails with
// ErrEmbeddingAlreadyExists unless upgrade is set.
func (s *EmbeddingService) Put(ctx context.Context, jobID kernel.JobID, req embedding.PutEmbeddingRequest) (*embedding.Embedding, error) {
	vector := kernel.Vector(req.Vector)
	if err := embedding.Validate(vector, s.dimension); err != nil {
		return nil, err
	}

	if _, err := s.jobRepo.GetByID(ctx, jobID); err != nil {
		return nil, err
	}

	e := &embedding.Embedding{
		JobID:     jobID,
		Vector:    vector,
		Model:     req.Model,
		CreatedAt: s.now().UTC(),
	}
	e.UpdatedAt = e.CreatedAt

	var err error
	if req.Upgrade {
		err = s.repo.Replace(ctx, e)
	} else {
		err = s.repo.Insert(ctx, e)
	}
	if err != nil {
		return nil, errx.Wrap(err, "failed to store embedding", errx.TypeInternal)
	}

	logx.Debugf("Stored embedding for job %s (model=%s upgrade=%t)", jobID, req.Model, req.Upgrade)
	s.notify(ctx, jobID)
	return e, nil
}

// Get returns the stored embedding of a job
func (s *EmbeddingService) Get(ctx context.Context, jobID kernel.JobID) (*embedding.Embedding, error) {
	e, err := s.repo.Get(ctx, jobID)
	if err != nil {
		return nil, errx.Wrap(err, "failed to get embedding", errx.TypeInternal)
	}
	return e, nil
}

// Backfill embeds one batch of active jobs that have no vector yet
func (s *EmbeddingService) Backfill(ctx context.Context) (*embedding.BackfillResponse, error) {
	resp := &embedding.BackfillResponse{}
	if s.embedder == nil {
		return resp, nil
	}

	ids, err := s.repo.ListJobsMissingEmbeddings(ctx, s.batchSize)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list jobs missing embeddings", errx.TypeInternal)
	}
	if len(ids) == 0 {
		return resp, nil
	}

	jobs, err := s.jobRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load jobs for backfill", errx.TypeInternal)
	}

	texts := make([]string, len(jobs))
	for i, j := range jobs {
		texts[i] = j.EmbeddingText()
	}
	resp.Requested = len(texts)

	vectors, err := s.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return nil, embedding.ErrProviderUnavailable().WithCause(err)
	}
	if len(vectors) != len(jobs) {
		return nil, embedding.ErrProviderUnavailable().
			WithDetail("requested", len(jobs)).
			WithDetail("received", len(vectors))
	}

	for i, j := range jobs {
		_, err := s.Put(ctx, j.ID, embedding.PutEmbeddingRequest{
			Vector: vectors[i],
			Model:  s.embedder.Model(),
		})
		switch {
		case err == nil:
			resp.Stored++
		case errx.Is(err, embedding.CodeEmbeddingAlreadyExists):
			// the crawler wrote one first
			resp.Skipped++
		default:
			logx.Warnf("Backfill skipped job %s: %v", j.ID, err)
			resp.Skipped++
		}
	}

	logx.Infof("Embedding backfill stored %d of %d jobs", resp.Stored, resp.Requested)
	return resp, nil
}

func (s *EmbeddingService) notify(ctx context.Context, jobID kernel.JobID) {
	if s.listener == nil {
		return
	}
	if err := s.listener.OnEmbeddingWritten(ctx, jobID); err != nil {
		logx.Warnf("Failed to publish job %s for recompute fan-out: %v", jobID, err)
	}
}
