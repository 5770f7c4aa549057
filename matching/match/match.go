package match

import (
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// SortOrder selects how a user's matches are ranked
type SortOrder string

const (
	SortByScore SortOrder = "score"
	SortByDate  SortOrder = "date"
)

// ParseSortOrder defaults to score ranking
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortByDate {
		return SortByDate
	}
	return SortByScore
}

// HighScoreThreshold is the score counted as a high match in summaries
const HighScoreThreshold = 80

// Match is the persisted pairing of a user and a job
type Match struct {
	ID            kernel.MatchID `db:"id" json:"id"`
	UserID        kernel.UserID  `db:"user_id" json:"user_id"`
	JobID         kernel.JobID   `db:"job_id" json:"job_id"`
	Score         int            `db:"score" json:"score"`
	Rationale     string         `db:"rationale" json:"rationale"`
	MatchedSkills []string       `db:"matched_skills" json:"matched_skills"`
	MissingSkills []string       `db:"missing_skills" json:"missing_skills"`
	IsViewed      bool           `db:"is_viewed" json:"is_viewed"`
	ViewedAt      *time.Time     `db:"viewed_at" json:"viewed_at,omitempty"`
	IsSaved       bool           `db:"is_saved" json:"is_saved"`
	SavedAt       *time.Time     `db:"saved_at" json:"saved_at,omitempty"`
	IsApplied     bool           `db:"is_applied" json:"is_applied"`
	AppliedAt     *time.Time     `db:"applied_at" json:"applied_at,omitempty"`
	UserRating    *int           `db:"user_rating" json:"user_rating,omitempty"`
	UserFeedback  string         `db:"user_feedback" json:"user_feedback,omitempty"`
	MatchedAt     time.Time      `db:"matched_at" json:"matched_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`

	// Job is filled by read paths that join the job row
	Job *JobSummary `db:"-" json:"job,omitempty"`
}

// JobSummary is the slice of a job shown next to a match
type JobSummary struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	SalaryRange string `json:"salary_range,omitempty"`
	SourceURL   string `json:"source_url"`
	IsRemote    bool   `json:"is_remote"`
	IsActive    bool   `json:"is_active"`
}

// ScoreUpdate is what a recompute writes; interaction flags are never part of it
type ScoreUpdate struct {
	Score         int
	Rationale     string
	MatchedSkills []string
	MissingSkills []string
}

// Summary aggregates a user's matches
type Summary struct {
	Total        int     `json:"total"`
	HighScore    int     `json:"high_score"`
	Unviewed     int     `json:"unviewed"`
	Saved        int     `json:"saved"`
	Applied      int     `json:"applied"`
	AverageScore float64 `json:"average_score"`
	Top          []Match `json:"top"`
	Recent       []Match `json:"recent"`
}

// ============================================================================
// Domain Methods
// ============================================================================

// ValidateRating checks a 1 to 5 star rating
func ValidateRating(stars int) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating().WithDetail("rating", stars)
	}
	return nil
}

// IsHighScore reports whether the match counts as a high match
func (m *Match) IsHighScore() bool {
	return m.Score >= HighScoreThreshold
}
