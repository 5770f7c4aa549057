package profile

import (
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/stretchr/testify/assert"
)

func TestPreferences_CandidateFilter(t *testing.T) {
	f := Preferences{
		RemoteOnly: true,
		Locations:  []string{"Lima"},
		MinLevel:   job.LevelMid,
		MaxLevel:   job.LevelLead,
	}.CandidateFilter()

	assert.True(t, f.RemoteOnly)
	assert.Equal(t, []string{"Lima"}, f.Locations)
	assert.Equal(t, job.LevelMid, f.MinLevel)
	assert.Equal(t, job.LevelLead, f.MaxLevel)
}

func TestPreferences_EntryMaxLevelIsABound(t *testing.T) {
	f := Preferences{MaxLevel: job.LevelEntry}.CandidateFilter()

	assert.False(t, f.IsZero())
	assert.Equal(t, job.LevelEntry, f.MaxLevel)
	assert.True(t, f.Admits(&job.Job{ExperienceLevel: job.LevelEntry}))
	assert.False(t, f.Admits(&job.Job{ExperienceLevel: job.LevelSenior}))
}

func TestPreferences_EmptyIsZeroFilter(t *testing.T) {
	assert.True(t, Preferences{}.CandidateFilter().IsZero())
	assert.True(t, Preferences{MinLevel: "WIZARD"}.CandidateFilter().IsZero(), "unknown level is ignored")
}

func TestVersionOf_Monotonic(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Less(t, VersionOf(t0), VersionOf(t0.Add(time.Millisecond)))
}
