package job

import (
	"context"
	"strings"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

type Repository interface {
	// Create inserts a new job; a fingerprint collision yields ErrDuplicateFingerprintRace
	Create(ctx context.Context, job *Job) error

	// Update overwrites the mutable fields of an existing job
	Update(ctx context.Context, job *Job) error

	// GetByID retrieves a job by ID
	GetByID(ctx context.Context, id kernel.JobID) (*Job, error)

	// GetByFingerprint retrieves a job by its URL fingerprint
	GetByFingerprint(ctx context.Context, fp kernel.Fingerprint) (*Job, error)

	// ListByIDs retrieves the given jobs in no particular order; missing ids are skipped
	ListByIDs(ctx context.Context, ids []kernel.JobID) ([]*Job, error)

	// ListActive lists matchable jobs, newest first
	ListActive(ctx context.Context, filter ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[Job], error)

	// ListCandidateIDs returns matchable jobs that have an embedding and pass the filter
	ListCandidateIDs(ctx context.Context, filter CandidateFilter, limit int) ([]kernel.JobID, error)

	// DeactivateStale marks jobs not crawled since before, or expired at now, as inactive
	DeactivateStale(ctx context.Context, before, now time.Time) (int64, error)

	// Stats aggregates counts over active jobs
	Stats(ctx context.Context, since time.Time, top int) (*Stats, error)
}

// RawSourceStore keeps the unprocessed crawl payload out of the database
type RawSourceStore interface {
	WriteFile(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// ListFilter narrows job listings. Keyword matches the title, company,
// description or a required skill; Location matches part of the location.
type ListFilter struct {
	RemoteOnly      bool
	Company         string
	Keyword         string
	Location        string
	EmploymentType  EmploymentType
	ExperienceLevel ExperienceLevel
}

// Admits applies the listing filter to a single job in memory
func (f ListFilter) Admits(j *Job) bool {
	if f.RemoteOnly && !j.IsRemote {
		return false
	}
	if f.Company != "" && !strings.EqualFold(f.Company, j.Company) {
		return false
	}
	if f.Location != "" && !containsFold(j.Location, f.Location) {
		return false
	}
	if f.EmploymentType != "" && j.EmploymentType != f.EmploymentType {
		return false
	}
	if f.ExperienceLevel != "" && j.ExperienceLevel != f.ExperienceLevel {
		return false
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		if containsFold(j.Title, kw) || containsFold(j.Company, kw) || containsFold(j.Description, kw) {
			return true
		}
		for _, s := range j.RequiredSkills {
			if containsFold(s, kw) {
				return true
			}
		}
		return false
	}
	return true
}

// CandidateFilter is the coarse pre-filter applied before similarity search.
// Zero values disable each condition; an empty level leaves that bound open.
type CandidateFilter struct {
	RemoteOnly bool
	Locations  []string
	MinLevel   ExperienceLevel
	MaxLevel   ExperienceLevel
}

// IsZero reports whether the filter admits every matchable job
func (f CandidateFilter) IsZero() bool {
	return !f.RemoteOnly && len(f.Locations) == 0 && f.MinLevel == "" && f.MaxLevel == ""
}

// LevelBounds returns the rank bounds; -1 means unbounded
func (f CandidateFilter) LevelBounds() (lo, hi int) {
	return f.MinLevel.Rank(), f.MaxLevel.Rank()
}

// Admits applies the filter to a single job in memory
func (f CandidateFilter) Admits(j *Job) bool {
	if f.RemoteOnly && !j.IsRemote {
		return false
	}
	if len(f.Locations) > 0 && !j.IsRemote {
		ok := false
		for _, loc := range f.Locations {
			if loc != "" && containsFold(j.Location, loc) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if rank := j.ExperienceLevel.Rank(); rank >= 0 {
		lo, hi := f.LevelBounds()
		if lo >= 0 && rank < lo {
			return false
		}
		if hi >= 0 && rank > hi {
			return false
		}
	}
	return true
}

// NamedCount is a label with its occurrence count
type NamedCount struct {
	Name  string `db:"name" json:"name"`
	Count int64  `db:"count" json:"count"`
}

// Stats summarizes the active job corpus
type Stats struct {
	ActiveJobs     int64        `json:"active_jobs"`
	NewSince       int64        `json:"new_since"`
	WithEmbeddings int64        `json:"with_embeddings"`
	TopCompanies   []NamedCount `json:"top_companies"`
	TopLocations   []NamedCount `json:"top_locations"`
}
