package job

import (
	"strings"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// Source identifies where a posting was crawled from
type Source string

const (
	SourceLinkedIn       Source = "LINKEDIN"
	SourceIndeed         Source = "INDEED"
	SourceGlassdoor      Source = "GLASSDOOR"
	SourceCompanyWebsite Source = "COMPANY_WEBSITE"
	SourceOther          Source = "OTHER"
)

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "FULL_TIME"
	EmploymentPartTime   EmploymentType = "PART_TIME"
	EmploymentContract   EmploymentType = "CONTRACT"
	EmploymentInternship EmploymentType = "INTERNSHIP"
	EmploymentFreelance  EmploymentType = "FREELANCE"
	EmploymentTemporary  EmploymentType = "TEMPORARY"
)

type ExperienceLevel string

const (
	LevelEntry     ExperienceLevel = "ENTRY"
	LevelJunior    ExperienceLevel = "JUNIOR"
	LevelMid       ExperienceLevel = "MID"
	LevelSenior    ExperienceLevel = "SENIOR"
	LevelLead      ExperienceLevel = "LEAD"
	LevelPrincipal ExperienceLevel = "PRINCIPAL"
	LevelExecutive ExperienceLevel = "EXECUTIVE"
)

var (
	validSources = map[Source]bool{
		SourceLinkedIn: true, SourceIndeed: true, SourceGlassdoor: true,
		SourceCompanyWebsite: true, SourceOther: true,
	}
	validEmploymentTypes = map[EmploymentType]bool{
		EmploymentFullTime: true, EmploymentPartTime: true, EmploymentContract: true,
		EmploymentInternship: true, EmploymentFreelance: true, EmploymentTemporary: true,
	}
	levelRank = map[ExperienceLevel]int{
		LevelEntry: 0, LevelJunior: 1, LevelMid: 2, LevelSenior: 3,
		LevelLead: 4, LevelPrincipal: 5, LevelExecutive: 6,
	}
)

// ParseSource maps a crawler label to a Source; unknown labels become OTHER
func ParseSource(s string) Source {
	src := Source(strings.ToUpper(strings.TrimSpace(s)))
	if validSources[src] {
		return src
	}
	return SourceOther
}

// ParseEmploymentType accepts "full-time", "FULL_TIME" and similar spellings
func ParseEmploymentType(s string) (EmploymentType, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	et := EmploymentType(enumKey(s))
	if !validEmploymentTypes[et] {
		return "", ErrInvalidField().WithDetail("employment_type", s)
	}
	return et, nil
}

func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	lvl := ExperienceLevel(enumKey(s))
	if _, ok := levelRank[lvl]; !ok {
		return "", ErrInvalidField().WithDetail("experience_level", s)
	}
	return lvl, nil
}

// Rank orders levels from ENTRY (0) to EXECUTIVE (6); unknown is -1
func (l ExperienceLevel) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return -1
}

func enumKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// Job is a deduplicated crawled posting
type Job struct {
	ID              kernel.JobID       `db:"id" json:"id"`
	Fingerprint     kernel.Fingerprint `db:"fingerprint" json:"fingerprint"`
	SourceURL       string             `db:"source_url" json:"source_url"`
	Source          Source             `db:"source" json:"source"`
	Title           string             `db:"title" json:"title"`
	Company         string             `db:"company" json:"company"`
	Location        string             `db:"location" json:"location"`
	SalaryRange     string             `db:"salary_range" json:"salary_range"`
	EmploymentType  EmploymentType     `db:"employment_type" json:"employment_type"`
	ExperienceLevel ExperienceLevel    `db:"experience_level" json:"experience_level"`
	IsRemote        bool               `db:"is_remote" json:"is_remote"`
	Description     string             `db:"description" json:"description"`
	RequiredSkills  []string           `db:"required_skills" json:"required_skills"`
	Requirements    Requirements       `db:"requirements" json:"requirements"`
	RawSourceRef    string             `db:"raw_source_ref" json:"raw_source_ref,omitempty"`
	IsActive        bool               `db:"is_active" json:"is_active"`
	FirstSeenAt     time.Time          `db:"first_seen_at" json:"first_seen_at"`
	LastCrawledAt   time.Time          `db:"last_crawled_at" json:"last_crawled_at"`
	ExpiresAt       *time.Time         `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// IsExpired checks whether the posting's expiry has passed
func (j *Job) IsExpired(now time.Time) bool {
	return j.ExpiresAt != nil && !j.ExpiresAt.After(now)
}

// IsMatchable reports whether the job may enter new candidate pools
func (j *Job) IsMatchable(now time.Time) bool {
	return j.IsActive && !j.IsExpired(now)
}

// IsStale reports whether the job has not been re-observed since before
func (j *Job) IsStale(before time.Time) bool {
	return j.LastCrawledAt.Before(before)
}

// Deactivate soft-deletes the job
func (j *Job) Deactivate(now time.Time) {
	j.IsActive = false
	j.UpdatedAt = now
}

// Observe applies a fresh crawl of the same posting. Mutable fields follow
// the latest observation; identity and first-seen time never change.
func (j *Job) Observe(obs *Job) {
	j.SourceURL = obs.SourceURL
	j.Source = obs.Source
	j.Title = obs.Title
	j.Company = obs.Company
	j.Location = obs.Location
	j.SalaryRange = obs.SalaryRange
	j.EmploymentType = obs.EmploymentType
	j.ExperienceLevel = obs.ExperienceLevel
	j.IsRemote = obs.IsRemote
	j.Description = obs.Description
	j.RequiredSkills = obs.RequiredSkills
	j.Requirements = obs.Requirements
	j.ExpiresAt = obs.ExpiresAt
	if obs.RawSourceRef != "" {
		j.RawSourceRef = obs.RawSourceRef
	}
	if obs.LastCrawledAt.After(j.LastCrawledAt) {
		j.LastCrawledAt = obs.LastCrawledAt
	}
	j.IsActive = true
	j.UpdatedAt = obs.LastCrawledAt
}

// EmbeddingText is the text sent to the embedding provider
func (j *Job) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(j.Title)
	if j.Company != "" {
		b.WriteString(" at ")
		b.WriteString(j.Company)
	}
	if len(j.RequiredSkills) > 0 {
		b.WriteString("\nSkills: ")
		b.WriteString(strings.Join(j.RequiredSkills, ", "))
	}
	if j.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(j.Description)
	}
	return b.String()
}
