// Package matchingtest provides in-memory stores for service tests.
package matchingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// JobRepository is an in-memory job.Repository. Embedded marks which jobs
// ListCandidateIDs may return, mirroring the join on job_embeddings.
type JobRepository struct {
	mu       sync.Mutex
	jobs     map[kernel.JobID]*job.Job
	Embedded func(kernel.JobID) bool
	Now      func() time.Time

	// BeforeCreate runs inside Create before the uniqueness check
	BeforeCreate func(*job.Job)
}

var _ job.Repository = (*JobRepository)(nil)

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[kernel.JobID]*job.Job),
		Now:  time.Now,
	}
}

// Put stores a job directly
func (r *JobRepository) Put(j *job.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *j
	r.jobs[j.ID] = &cp
}

func (r *JobRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *JobRepository) Create(_ context.Context, j *job.Job) error {
	if r.BeforeCreate != nil {
		r.BeforeCreate(j)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.jobs {
		if existing.Fingerprint == j.Fingerprint {
			return job.ErrDuplicateFingerprintRace().WithDetail("fingerprint", j.Fingerprint.String())
		}
	}
	cp := *j
	r.jobs[j.ID] = &cp
	return nil
}

func (r *JobRepository) Update(_ context.Context, j *job.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[j.ID]
	if !ok {
		return job.ErrJobNotFound().WithDetail("job_id", j.ID.String())
	}
	cp := *j
	if existing.LastCrawledAt.After(cp.LastCrawledAt) {
		cp.LastCrawledAt = existing.LastCrawledAt
	}
	r.jobs[j.ID] = &cp
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id kernel.JobID) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, job.ErrJobNotFound().WithDetail("job_id", id.String())
	}
	cp := *j
	return &cp, nil
}

func (r *JobRepository) GetByFingerprint(_ context.Context, fp kernel.Fingerprint) (*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Fingerprint == fp {
			cp := *j
			return &cp, nil
		}
	}
	return nil, job.ErrJobNotFound().WithDetail("fingerprint", fp.String())
}

func (r *JobRepository) ListByIDs(_ context.Context, ids []kernel.JobID) ([]*job.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := r.jobs[id]; ok {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *JobRepository) ListActive(_ context.Context, filter job.ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[job.Job], error) {
	pagination = pagination.Normalize()
	now := r.Now()

	var all []job.Job
	for _, j := range r.sorted() {
		if !j.IsMatchable(now) {
			continue
		}
		if !filter.Admits(j) {
			continue
		}
		all = append(all, *j)
	}

	start := min(pagination.Offset(), len(all))
	end := min(start+pagination.PageSize, len(all))
	page := kernel.NewPaginated(all[start:end], pagination, len(all))
	return &page, nil
}

func (r *JobRepository) ListCandidateIDs(_ context.Context, filter job.CandidateFilter, limit int) ([]kernel.JobID, error) {
	now := r.Now()
	out := []kernel.JobID{}
	for _, j := range r.sorted() {
		if len(out) >= limit {
			break
		}
		if !j.IsMatchable(now) || !filter.Admits(j) {
			continue
		}
		if r.Embedded != nil && !r.Embedded(j.ID) {
			continue
		}
		out = append(out, j.ID)
	}
	return out, nil
}

func (r *JobRepository) DeactivateStale(_ context.Context, before, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, j := range r.jobs {
		if j.IsActive && (j.IsStale(before) || j.IsExpired(now)) {
			j.Deactivate(now)
			n++
		}
	}
	return n, nil
}

func (r *JobRepository) Stats(_ context.Context, since time.Time, top int) (*job.Stats, error) {
	stats := &job.Stats{}
	companies := map[string]int64{}
	for _, j := range r.sorted() {
		if !j.IsActive {
			continue
		}
		stats.ActiveJobs++
		if !j.FirstSeenAt.Before(since) {
			stats.NewSince++
		}
		if r.Embedded != nil && r.Embedded(j.ID) {
			stats.WithEmbeddings++
		}
		if j.Company != "" {
			companies[j.Company]++
		}
	}
	for name, count := range companies {
		stats.TopCompanies = append(stats.TopCompanies, job.NamedCount{Name: name, Count: count})
	}
	sort.Slice(stats.TopCompanies, func(i, k int) bool {
		a, b := stats.TopCompanies[i], stats.TopCompanies[k]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(stats.TopCompanies) > top {
		stats.TopCompanies = stats.TopCompanies[:top]
	}
	return stats, nil
}

// sorted returns copies newest first, then by id
func (r *JobRepository) sorted() []*job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*job.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].FirstSeenAt.Equal(out[k].FirstSeenAt) {
			return out[i].FirstSeenAt.After(out[k].FirstSeenAt)
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// RawStore records raw source writes
type RawStore struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

func NewRawStore() *RawStore {
	return &RawStore{Files: map[string][]byte{}}
}

func (s *RawStore) WriteFile(_ context.Context, path string, data []byte, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Files[path] = data
	return "mem://" + path, nil
}
