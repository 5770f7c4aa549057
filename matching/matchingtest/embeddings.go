package matchingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// EmbeddingRepository is an in-memory embedding.Repository joined against a
// JobRepository for activity and first-seen times.
type EmbeddingRepository struct {
	mu      sync.Mutex
	vectors map[kernel.JobID]*embedding.Embedding
	jobs    *JobRepository
}

var _ embedding.Repository = (*EmbeddingRepository)(nil)

func NewEmbeddingRepository(jobs *JobRepository) *EmbeddingRepository {
	r := &EmbeddingRepository{
		vectors: make(map[kernel.JobID]*embedding.Embedding),
		jobs:    jobs,
	}
	jobs.Embedded = r.Has
	return r
}

func (r *EmbeddingRepository) Has(id kernel.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.vectors[id]
	return ok
}

func (r *EmbeddingRepository) Insert(ctx context.Context, e *embedding.Embedding) error {
	if _, err := r.jobs.GetByID(ctx, e.JobID); err != nil {
		return embedding.ErrEmbeddingNotFound().WithDetail("job_id", e.JobID.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vectors[e.JobID]; ok {
		return embedding.ErrEmbeddingAlreadyExists().WithDetail("job_id", e.JobID.String())
	}
	cp := *e
	r.vectors[e.JobID] = &cp
	return nil
}

func (r *EmbeddingRepository) Replace(ctx context.Context, e *embedding.Embedding) error {
	if _, err := r.jobs.GetByID(ctx, e.JobID); err != nil {
		return embedding.ErrEmbeddingNotFound().WithDetail("job_id", e.JobID.String())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	if old, ok := r.vectors[e.JobID]; ok {
		cp.CreatedAt = old.CreatedAt
	}
	r.vectors[e.JobID] = &cp
	return nil
}

func (r *EmbeddingRepository) Get(_ context.Context, jobID kernel.JobID) (*embedding.Embedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.vectors[jobID]
	if !ok {
		return nil, embedding.ErrEmbeddingNotFound().WithDetail("job_id", jobID.String())
	}
	cp := *e
	return &cp, nil
}

func (r *EmbeddingRepository) GetAllWithVectors(ctx context.Context, jobIDs []kernel.JobID) ([]embedding.JobVector, error) {
	out := []embedding.JobVector{}
	for _, id := range jobIDs {
		if v, ok := r.jobVector(ctx, id); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *EmbeddingRepository) AllActiveWithVectors(ctx context.Context, limit int, cursor kernel.JobID) ([]embedding.JobVector, kernel.JobID, error) {
	out := []embedding.JobVector{}
	for _, id := range r.ids() {
		if cursor != "" && id <= cursor {
			continue
		}
		v, ok := r.jobVector(ctx, id)
		if !ok || !v.IsActive {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}

func (r *EmbeddingRepository) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, id := range r.ids() {
		if v, ok := r.jobVector(ctx, id); ok && v.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *EmbeddingRepository) ListJobsMissingEmbeddings(_ context.Context, limit int) ([]kernel.JobID, error) {
	out := []kernel.JobID{}
	jobs := r.jobs.sorted()
	for i := len(jobs) - 1; i >= 0 && len(out) < limit; i-- {
		j := jobs[i]
		if j.IsActive && !r.Has(j.ID) {
			out = append(out, j.ID)
		}
	}
	return out, nil
}

func (r *EmbeddingRepository) ids() []kernel.JobID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]kernel.JobID, 0, len(r.vectors))
	for id := range r.vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, k int) bool { return ids[i] < ids[k] })
	return ids
}

func (r *EmbeddingRepository) jobVector(ctx context.Context, id kernel.JobID) (embedding.JobVector, bool) {
	r.mu.Lock()
	e, ok := r.vectors[id]
	r.mu.Unlock()
	if !ok {
		return embedding.JobVector{}, false
	}
	j, err := r.jobs.GetByID(ctx, id)
	if err != nil {
		return embedding.JobVector{}, false
	}
	return embedding.JobVector{
		JobID:       id,
		Vector:      e.Vector,
		FirstSeenAt: j.FirstSeenAt,
		IsActive:    j.IsMatchable(r.jobs.Now()),
	}, true
}

// StaticEmbedder returns the same vector for every text
type StaticEmbedder struct {
	Vector []float32
	Err    error
	Calls  int
}

func (e *StaticEmbedder) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.Vector
	}
	return out, nil
}

func (e *StaticEmbedder) Model() string { return "static" }

// RecordingListener collects embedding notifications
type RecordingListener struct {
	mu   sync.Mutex
	Jobs []kernel.JobID
}

func (l *RecordingListener) OnEmbeddingWritten(_ context.Context, jobID kernel.JobID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Jobs = append(l.Jobs, jobID)
	return nil
}

// Clock is a settable time source
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{t: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
