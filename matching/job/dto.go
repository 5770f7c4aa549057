package job

import (
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// UpsertJobRequest - DTO sent by the crawler for every observed posting
type UpsertJobRequest struct {
	SourceURL       string         `json:"source_url" validate:"required"`
	Source          string         `json:"source,omitempty"`
	Title           string         `json:"title" validate:"required"`
	Company         string         `json:"company,omitempty"`
	Location        string         `json:"location,omitempty"`
	SalaryRange     string         `json:"salary_range,omitempty"`
	EmploymentType  string         `json:"employment_type,omitempty"`
	ExperienceLevel string         `json:"experience_level,omitempty"`
	IsRemote        bool           `json:"is_remote"`
	DescriptionHTML string         `json:"description_html,omitempty"`
	Description     string         `json:"description,omitempty"`
	Skills          []string       `json:"skills,omitempty"`
	Requirements    map[string]any `json:"requirements,omitempty"`
	RawHTML         string         `json:"raw_html,omitempty"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	CrawledAt       *time.Time     `json:"crawled_at,omitempty"`
}

// UpsertJobResponse - DTO returned to the crawler
type UpsertJobResponse struct {
	Job   JobResponse `json:"job"`
	IsNew bool        `json:"is_new"`
}

// DeactivateStaleRequest - DTO for the stale sweep; Before defaults to now minus the configured window
type DeactivateStaleRequest struct {
	Before *time.Time `json:"before,omitempty"`
}

type DeactivateStaleResponse struct {
	Before      time.Time `json:"before"`
	Deactivated int64     `json:"deactivated"`
}

// Response type alias for paginated jobs
type PaginatedJobsResponse = kernel.Paginated[JobResponse]

// JobResponse - DTO for returning job data
type JobResponse struct {
	ID              kernel.JobID    `json:"id"`
	SourceURL       string          `json:"source_url"`
	Source          Source          `json:"source"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	SalaryRange     string          `json:"salary_range,omitempty"`
	EmploymentType  EmploymentType  `json:"employment_type,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	IsRemote        bool            `json:"is_remote"`
	Description     string          `json:"description"`
	RequiredSkills  []string        `json:"required_skills"`
	Requirements    Requirements    `json:"requirements"`
	IsActive        bool            `json:"is_active"`
	FirstSeenAt     time.Time       `json:"first_seen_at"`
	LastCrawledAt   time.Time       `json:"last_crawled_at"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
}

// ToResponse converts the entity to its API shape
func (j *Job) ToResponse() JobResponse {
	skills := j.RequiredSkills
	if skills == nil {
		skills = []string{}
	}
	return JobResponse{
		ID:              j.ID,
		SourceURL:       j.SourceURL,
		Source:          j.Source,
		Title:           j.Title,
		Company:         j.Company,
		Location:        j.Location,
		SalaryRange:     j.SalaryRange,
		EmploymentType:  j.EmploymentType,
		ExperienceLevel: j.ExperienceLevel,
		IsRemote:        j.IsRemote,
		Description:     j.Description,
		RequiredSkills:  skills,
		Requirements:    j.Requirements,
		IsActive:        j.IsActive,
		FirstSeenAt:     j.FirstSeenAt,
		LastCrawledAt:   j.LastCrawledAt,
		ExpiresAt:       j.ExpiresAt,
	}
}
