// Package profile reads what the matching engine needs from the profile
// service's tables: the profile vector, its skills and search preferences.
package profile

import (
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Preferences are the coarse job filters a user declared
type Preferences struct {
	RemoteOnly bool                `json:"remote_only"`
	Locations  []string            `json:"locations"`
	MinLevel   job.ExperienceLevel `json:"min_level,omitempty"`
	MaxLevel   job.ExperienceLevel `json:"max_level,omitempty"`
}

type Profile struct {
	UserID      kernel.UserID
	Vector      kernel.Vector
	Skills      []string
	Preferences Preferences
	Version     kernel.ProfileVersion
	UpdatedAt   time.Time
}

// UserVersion is the lightweight row used by sweeps and fan-out
type UserVersion struct {
	UserID      kernel.UserID
	Version     kernel.ProfileVersion
	Preferences Preferences
}

// ============================================================================
// Domain Methods
// ============================================================================

// CandidateFilter converts preferences to the job pre-filter
func (p Preferences) CandidateFilter() job.CandidateFilter {
	f := job.CandidateFilter{
		RemoteOnly: p.RemoteOnly,
		Locations:  p.Locations,
	}
	// unset or unrecognised levels leave the bound open; ENTRY is a real bound
	if p.MinLevel != "" && p.MinLevel.Rank() >= 0 {
		f.MinLevel = p.MinLevel
	}
	if p.MaxLevel != "" && p.MaxLevel.Rank() >= 0 {
		f.MaxLevel = p.MaxLevel
	}
	return f
}

// VersionOf derives a profile version from its last update
func VersionOf(updatedAt time.Time) kernel.ProfileVersion {
	return kernel.ProfileVersion(updatedAt.UnixMilli())
}

// HasVector reports whether the profile can be matched at all
func (p *Profile) HasVector() bool {
	return !p.Vector.IsZero()
}
