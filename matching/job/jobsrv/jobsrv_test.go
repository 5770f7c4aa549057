package jobsrv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/internal/htmlclean"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/matchingtest"
	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*JobService, *matchingtest.JobRepository, *matchingtest.RawStore, *matchingtest.Clock) {
	t.Helper()
	clock := matchingtest.NewClock(t0)
	repo := matchingtest.NewJobRepository()
	repo.Now = clock.Now
	raw := matchingtest.NewRawStore()
	svc := NewJobService(repo, raw, htmlclean.New(0), 14*24*time.Hour).WithClock(clock.Now)
	return svc, repo, raw, clock
}

func request(url string) job.UpsertJobRequest {
	return job.UpsertJobRequest{
		SourceURL:       url,
		Title:           "Backend Engineer",
		Company:         "Acme",
		Location:        "Berlin",
		EmploymentType:  "full-time",
		ExperienceLevel: "senior",
		DescriptionHTML: "<p>Build <b>APIs</b></p>",
		Skills:          []string{"Go", "PostgreSQL"},
	}
}

func TestUpsertJob_EquivalentURLsDeduplicate(t *testing.T) {
	svc, repo, _, clock := newService(t)
	ctx := context.Background()

	first, err := svc.UpsertJob(ctx, request("https://jobs.example.com/42?utm_source=feed"))
	require.NoError(t, err)
	assert.True(t, first.IsNew)

	clock.Advance(time.Hour)
	req := request("HTTPS://Jobs.Example.com/42/#apply")
	req.SalaryRange = "80k-100k"
	second, err := svc.UpsertJob(ctx, req)
	require.NoError(t, err)

	assert.False(t, second.IsNew)
	assert.Equal(t, first.Job.ID, second.Job.ID)
	assert.Equal(t, "80k-100k", second.Job.SalaryRange)
	assert.Equal(t, 1, repo.Len())

	stored, err := repo.GetByID(ctx, first.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, t0, stored.FirstSeenAt)
	assert.Equal(t, t0.Add(time.Hour), stored.LastCrawledAt)
}

func TestUpsertJob_ConcurrentInsertKeepsFirstID(t *testing.T) {
	svc, repo, _, _ := newService(t)
	url := "https://jobs.example.com/race"
	fp, normalized, err := job.ComputeFingerprint(url)
	require.NoError(t, err)

	repo.BeforeCreate = func(*job.Job) {
		repo.BeforeCreate = nil
		repo.Put(&job.Job{
			ID:            "winner",
			Fingerprint:   fp,
			SourceURL:     normalized,
			Title:         "Old title",
			IsActive:      true,
			FirstSeenAt:   t0.Add(-time.Minute),
			LastCrawledAt: t0.Add(-time.Minute),
		})
	}

	resp, err := svc.UpsertJob(context.Background(), request(url))

	require.NoError(t, err)
	assert.False(t, resp.IsNew)
	assert.Equal(t, kernel.JobID("winner"), resp.Job.ID)
	assert.Equal(t, "Backend Engineer", resp.Job.Title)
	assert.Equal(t, 1, repo.Len())
}

func TestUpsertJob_Validation(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertJob(ctx, request("ftp://example.com/x"))
	assert.True(t, errx.Is(err, job.CodeInvalidSourceURL))

	req := request("https://example.com/a")
	req.Title = ""
	_, err = svc.UpsertJob(ctx, req)
	assert.True(t, errx.Is(err, job.CodeInvalidField))

	req = request("https://example.com/a")
	req.Requirements = map[string]any{"years": "many"}
	_, err = svc.UpsertJob(ctx, req)
	assert.True(t, errx.Is(err, job.CodeInvalidRequirements))
}

func TestUpsertJob_CleansDescriptionAndMergesRequirements(t *testing.T) {
	svc, _, _, _ := newService(t)
	req := request("https://example.com/a")
	req.Requirements = map[string]any{"years": 3, "tech": []any{"Kubernetes", "go"}}

	resp, err := svc.UpsertJob(context.Background(), req)

	require.NoError(t, err)
	assert.NotContains(t, resp.Job.Description, "<p>")
	assert.Contains(t, resp.Job.Description, "**APIs**")
	assert.Equal(t, []string{"Go", "PostgreSQL", "Kubernetes"}, resp.Job.RequiredSkills)
}

func TestUpsertJob_RawSource(t *testing.T) {
	svc, repo, raw, _ := newService(t)
	ctx := context.Background()
	req := request("https://example.com/raw")
	req.RawHTML = "<html>raw</html>"

	resp, err := svc.UpsertJob(ctx, req)
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, resp.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, "mem://jobs/"+stored.Fingerprint.String()+".html", stored.RawSourceRef)
	assert.Len(t, raw.Files, 1)

	raw.Err = errors.New("s3 down")
	req.SourceURL = "https://example.com/raw-2"
	resp, err = svc.UpsertJob(ctx, req)
	require.NoError(t, err, "raw storage failures must not block ingestion")
	assert.True(t, resp.IsNew)
}

func TestDeactivateStale(t *testing.T) {
	svc, repo, _, clock := newService(t)
	ctx := context.Background()

	old, err := svc.UpsertJob(ctx, request("https://example.com/old"))
	require.NoError(t, err)
	clock.Advance(10 * 24 * time.Hour)
	fresh, err := svc.UpsertJob(ctx, request("https://example.com/fresh"))
	require.NoError(t, err)
	clock.Advance(5 * 24 * time.Hour)

	resp, err := svc.DeactivateStale(ctx, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Deactivated)
	j, err := repo.GetByID(ctx, old.Job.ID)
	require.NoError(t, err)
	assert.False(t, j.IsActive)
	j, err = repo.GetByID(ctx, fresh.Job.ID)
	require.NoError(t, err)
	assert.True(t, j.IsActive)

	// a later crawl revives the posting under the same id
	again, err := svc.UpsertJob(ctx, request("https://example.com/old"))
	require.NoError(t, err)
	assert.Equal(t, old.Job.ID, again.Job.ID)
	assert.True(t, again.Job.IsActive)
}

func TestListActiveJobsAndStats(t *testing.T) {
	svc, _, _, clock := newService(t)
	ctx := context.Background()

	_, err := svc.UpsertJob(ctx, request("https://example.com/1"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	remote := request("https://example.com/2")
	remote.IsRemote = true
	remote.Company = "Globex"
	_, err = svc.UpsertJob(ctx, remote)
	require.NoError(t, err)

	page, err := svc.ListActiveJobs(ctx, job.ListFilter{}, kernel.PaginationOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Globex", page.Items[0].Company, "newest first")

	page, err = svc.ListActiveJobs(ctx, job.ListFilter{RemoteOnly: true}, kernel.PaginationOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ActiveJobs)
	assert.Equal(t, int64(2), stats.NewSince)
}
