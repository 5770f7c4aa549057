package jobsrv

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/internal/htmlclean"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/google/uuid"
)

const statsTopN = 10

// JobService ingests crawled postings and serves job reads
type JobService struct {
	jobRepo    job.Repository
	rawStore   job.RawSourceStore
	cleaner    *htmlclean.Cleaner
	staleAfter time.Duration
	now        func() time.Time
}

// NewJobService creates a new instance of the job service. rawStore may be nil,
// in which case raw HTML is dropped after cleaning.
func NewJobService(
	jobRepo job.Repository,
	rawStore job.RawSourceStore,
	cleaner *htmlclean.Cleaner,
	staleAfter time.Duration,
) *JobService {
	return &JobService{
		jobRepo:    jobRepo,
		rawStore:   rawStore,
		cleaner:    cleaner,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *JobService) WithClock(now func() time.Time) *JobService {
	s.now = now
	return s
}

// UpsertJob records one crawl observation. Identical normalized URLs always
// resolve to the same stored job; isNew is true only for the first sighting.
func (s *JobService) UpsertJob(ctx context.Context, req job.UpsertJobRequest) (*job.UpsertJobResponse, error) {
	obs, err := s.buildObservation(ctx, req)
	if err != nil {
		return nil, err
	}

	existing, err := s.jobRepo.GetByFingerprint(ctx, obs.Fingerprint)
	switch {
	case err == nil:
		return s.merge(ctx, existing, obs)
	case !errx.Is(err, job.CodeJobNotFound):
		return nil, errx.Wrap(err, "failed to look up job", errx.TypeInternal)
	}

	obs.ID = kernel.NewJobID(uuid.NewString())
	obs.FirstSeenAt = obs.LastCrawledAt
	obs.IsActive = true

	if err := s.jobRepo.Create(ctx, obs); err != nil {
		if !errx.Is(err, job.CodeDuplicateFingerprintRace) {
			return nil, errx.Wrap(err, "failed to create job", errx.TypeInternal)
		}

		// Lost the insert race: the winner's row is authoritative, our fields win
		logx.Infof("Fingerprint race on %s, merging into existing job", obs.Fingerprint)
		winner, getErr := s.jobRepo.GetByFingerprint(ctx, obs.Fingerprint)
		if getErr != nil {
			return nil, errx.Wrap(getErr, "failed to re-read job after fingerprint race", errx.TypeInternal)
		}
		return s.merge(ctx, winner, obs)
	}

	logx.Debugf("New job %s (%s)", obs.ID, obs.SourceURL)
	return &job.UpsertJobResponse{Job: obs.ToResponse(), IsNew: true}, nil
}

func (s *JobService) merge(ctx context.Context, existing, obs *job.Job) (*job.UpsertJobResponse, error) {
	existing.Observe(obs)
	if err := s.jobRepo.Update(ctx, existing); err != nil {
		return nil, errx.Wrap(err, "failed to update job", errx.TypeInternal)
	}
	return &job.UpsertJobResponse{Job: existing.ToResponse(), IsNew: false}, nil
}

func (s *JobService) buildObservation(ctx context.Context, req job.UpsertJobRequest) (*job.Job, error) {
	fp, normalized, err := job.ComputeFingerprint(req.SourceURL)
	if err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, job.ErrInvalidField().WithDetail("title", "required")
	}

	employment, err := job.ParseEmploymentType(req.EmploymentType)
	if err != nil {
		return nil, err
	}
	level, err := job.ParseExperienceLevel(req.ExperienceLevel)
	if err != nil {
		return nil, err
	}
	requirements, err := job.DecodeRequirements(req.Requirements)
	if err != nil {
		return nil, err
	}

	source := req.DescriptionHTML
	if source == "" {
		source = req.Description
	}
	description, err := s.cleaner.ToMarkdown(source)
	if err != nil {
		return nil, job.ErrInvalidField().WithDetail("description", err.Error())
	}

	crawledAt := s.now().UTC()
	if req.CrawledAt != nil && !req.CrawledAt.IsZero() {
		crawledAt = req.CrawledAt.UTC()
	}

	obs := &job.Job{
		Fingerprint:     fp,
		SourceURL:       normalized,
		Source:          job.ParseSource(req.Source),
		Title:           req.Title,
		Company:         req.Company,
		Location:        req.Location,
		SalaryRange:     req.SalaryRange,
		EmploymentType:  employment,
		ExperienceLevel: level,
		IsRemote:        req.IsRemote,
		Description:     description,
		RequiredSkills:  job.MergeSkills(req.Skills, requirements),
		Requirements:    requirements,
		LastCrawledAt:   crawledAt,
		ExpiresAt:       req.ExpiresAt,
		UpdatedAt:       crawledAt,
	}

	if req.RawHTML != "" && s.rawStore != nil {
		ref, err := s.rawStore.WriteFile(ctx, "jobs/"+fp.String()+".html", []byte(req.RawHTML), "text/html; charset=utf-8")
		if err != nil {
			// the posting is still usable without its raw copy
			logx.Warnf("Failed to store raw source for %s: %v", normalized, err)
		} else {
			obs.RawSourceRef = ref
		}
	}

	return obs, nil
}

// GetJob retrieves a job by ID, including inactive ones
func (s *JobService) GetJob(ctx context.Context, id kernel.JobID) (*job.JobResponse, error) {
	j, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := j.ToResponse()
	return &resp, nil
}

// ListActiveJobs lists matchable jobs, newest first
func (s *JobService) ListActiveJobs(ctx context.Context, filter job.ListFilter, pagination kernel.PaginationOptions) (*job.PaginatedJobsResponse, error) {
	jobs, err := s.jobRepo.ListActive(ctx, filter, pagination)
	if err != nil {
		return nil, errx.Wrap(err, "failed to list jobs", errx.TypeInternal)
	}

	resp := kernel.MapPaginated(*jobs, func(j job.Job) job.JobResponse { return j.ToResponse() })
	return &resp, nil
}

// DeactivateStale soft-deletes jobs not seen since before (default: now - staleAfter)
func (s *JobService) DeactivateStale(ctx context.Context, before *time.Time) (*job.DeactivateStaleResponse, error) {
	now := s.now().UTC()
	cutoff := now.Add(-s.staleAfter)
	if before != nil && !before.IsZero() {
		cutoff = before.UTC()
	}

	n, err := s.jobRepo.DeactivateStale(ctx, cutoff, now)
	if err != nil {
		return nil, errx.Wrap(err, "failed to deactivate stale jobs", errx.TypeInternal)
	}
	if n > 0 {
		logx.Infof("Deactivated %d stale jobs (not crawled since %s)", n, cutoff.Format(time.RFC3339))
	}
	return &job.DeactivateStaleResponse{Before: cutoff, Deactivated: n}, nil
}

// Stats returns corpus statistics for the last 24 hours
func (s *JobService) Stats(ctx context.Context) (*job.Stats, error) {
	stats, err := s.jobRepo.Stats(ctx, s.now().Add(-24*time.Hour), statsTopN)
	if err != nil {
		return nil, errx.Wrap(err, "failed to compute job stats", errx.TypeInternal)
	}
	return stats, nil
}
