package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_IsMatchable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Job{IsActive: true}).IsMatchable(now))
	assert.True(t, (&Job{IsActive: true, ExpiresAt: &future}).IsMatchable(now))
	assert.False(t, (&Job{IsActive: true, ExpiresAt: &past}).IsMatchable(now))
	assert.False(t, (&Job{IsActive: false}).IsMatchable(now))
}

func TestJob_Observe_KeepsIdentity(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	existing := &Job{
		ID:            "job-1",
		Fingerprint:   "fp",
		Title:         "Backend Engineer",
		SalaryRange:   "100k",
		RawSourceRef:  "s3://bucket/old",
		IsActive:      false,
		FirstSeenAt:   first,
		LastCrawledAt: first,
	}
	obs := &Job{
		ID:             "job-2",
		Fingerprint:    "fp",
		Title:          "Senior Backend Engineer",
		SalaryRange:    "120k",
		RequiredSkills: []string{"Go"},
		FirstSeenAt:    later,
		LastCrawledAt:  later,
	}

	existing.Observe(obs)

	assert.Equal(t, "job-1", existing.ID.String())
	assert.Equal(t, first, existing.FirstSeenAt)
	assert.Equal(t, later, existing.LastCrawledAt)
	assert.Equal(t, "120k", existing.SalaryRange)
	assert.Equal(t, "Senior Backend Engineer", existing.Title)
	assert.Equal(t, "s3://bucket/old", existing.RawSourceRef)
	assert.True(t, existing.IsActive)
}

func TestJob_Observe_OlderCrawlDoesNotRewindTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	existing := &Job{LastCrawledAt: now}
	existing.Observe(&Job{LastCrawledAt: now.Add(-time.Hour)})
	assert.Equal(t, now, existing.LastCrawledAt)
}

func TestParseEnums(t *testing.T) {
	et, err := ParseEmploymentType("full-time")
	require.NoError(t, err)
	assert.Equal(t, EmploymentFullTime, et)

	lvl, err := ParseExperienceLevel("Senior")
	require.NoError(t, err)
	assert.Equal(t, LevelSenior, lvl)
	assert.Equal(t, 3, lvl.Rank())

	_, err = ParseExperienceLevel("wizard")
	assert.Error(t, err)

	empty, err := ParseEmploymentType("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Equal(t, SourceLinkedIn, ParseSource("linkedin"))
	assert.Equal(t, SourceOther, ParseSource("monster"))
}

func TestCandidateFilter_Admits(t *testing.T) {
	remote := &Job{IsRemote: true, Location: "Anywhere", ExperienceLevel: LevelMid}
	lima := &Job{Location: "Lima, Peru", ExperienceLevel: LevelSenior}
	berlin := &Job{Location: "Berlin", ExperienceLevel: LevelEntry}

	assert.True(t, CandidateFilter{}.IsZero())

	f := CandidateFilter{RemoteOnly: true}
	assert.True(t, f.Admits(remote))
	assert.False(t, f.Admits(lima))

	f = CandidateFilter{Locations: []string{"lima"}}
	assert.True(t, f.Admits(lima))
	assert.True(t, f.Admits(remote))
	assert.False(t, f.Admits(berlin))

	f = CandidateFilter{MinLevel: LevelMid, MaxLevel: LevelLead}
	assert.True(t, f.Admits(lima))
	assert.False(t, f.Admits(berlin))

	f = CandidateFilter{MaxLevel: LevelEntry}
	assert.False(t, f.IsZero())
	assert.True(t, f.Admits(berlin))
	assert.False(t, f.Admits(lima), "ENTRY is an upper bound, not an unset one")
	assert.False(t, f.Admits(remote))
}

func TestCandidateFilter_LevelBounds(t *testing.T) {
	lo, hi := CandidateFilter{}.LevelBounds()
	assert.Equal(t, -1, lo)
	assert.Equal(t, -1, hi)

	lo, hi = CandidateFilter{MinLevel: LevelEntry, MaxLevel: LevelEntry}.LevelBounds()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 0, hi)
}

func TestListFilter_Admits(t *testing.T) {
	j := &Job{
		Title:           "Platform Engineer",
		Company:         "Acme",
		Location:        "Lima, Peru",
		Description:     "Operate our clusters",
		RequiredSkills:  []string{"Kubernetes"},
		EmploymentType:  EmploymentFullTime,
		ExperienceLevel: LevelSenior,
	}

	assert.True(t, ListFilter{}.Admits(j))
	assert.True(t, ListFilter{Keyword: "platform"}.Admits(j))
	assert.True(t, ListFilter{Keyword: "clusters"}.Admits(j))
	assert.True(t, ListFilter{Keyword: "kube"}.Admits(j))
	assert.False(t, ListFilter{Keyword: "rust"}.Admits(j))
	assert.True(t, ListFilter{Location: "lima"}.Admits(j))
	assert.False(t, ListFilter{Location: "berlin"}.Admits(j))
	assert.False(t, ListFilter{Company: "Globex"}.Admits(j))
	assert.True(t, ListFilter{EmploymentType: EmploymentFullTime, ExperienceLevel: LevelSenior}.Admits(j))
	assert.False(t, ListFilter{ExperienceLevel: LevelJunior}.Admits(j))
	assert.False(t, ListFilter{RemoteOnly: true}.Admits(j))
}

func TestEmbeddingText(t *testing.T) {
	j := &Job{Title: "Go Developer", Company: "Acme", RequiredSkills: []string{"Go", "SQL"}, Description: "Build APIs"}
	assert.Equal(t, "Go Developer at Acme\nSkills: Go, SQL\n\nBuild APIs", j.EmbeddingText())
}
