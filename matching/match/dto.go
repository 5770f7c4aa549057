package match

import (
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// FeedbackRequest - DTO for rating a match
type FeedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback"`
}

// MatchResponse - public representation of a match
type MatchResponse struct {
	ID            string      `json:"id"`
	JobID         string      `json:"job_id"`
	Score         int         `json:"score"`
	Rationale     string      `json:"rationale"`
	MatchedSkills []string    `json:"matched_skills"`
	MissingSkills []string    `json:"missing_skills"`
	IsViewed      bool        `json:"is_viewed"`
	IsSaved       bool        `json:"is_saved"`
	IsApplied     bool        `json:"is_applied"`
	UserRating    *int        `json:"user_rating,omitempty"`
	UserFeedback  string      `json:"user_feedback,omitempty"`
	MatchedAt     time.Time   `json:"matched_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Job           *JobSummary `json:"job,omitempty"`
}

// Response type alias for a ranked page
type PaginatedMatchesResponse = kernel.Paginated[MatchResponse]

// SummaryResponse - DTO for the dashboard summary
type SummaryResponse struct {
	Total        int             `json:"total"`
	HighScore    int             `json:"high_score"`
	Unviewed     int             `json:"unviewed"`
	Saved        int             `json:"saved"`
	Applied      int             `json:"applied"`
	AverageScore float64         `json:"average_score"`
	Top          []MatchResponse `json:"top"`
	Recent       []MatchResponse `json:"recent"`
}

func (m Match) ToResponse() MatchResponse {
	matched := m.MatchedSkills
	if matched == nil {
		matched = []string{}
	}
	missing := m.MissingSkills
	if missing == nil {
		missing = []string{}
	}
	return MatchResponse{
		ID:            m.ID.String(),
		JobID:         m.JobID.String(),
		Score:         m.Score,
		Rationale:     m.Rationale,
		MatchedSkills: matched,
		MissingSkills: missing,
		IsViewed:      m.IsViewed,
		IsSaved:       m.IsSaved,
		IsApplied:     m.IsApplied,
		UserRating:    m.UserRating,
		UserFeedback:  m.UserFeedback,
		MatchedAt:     m.MatchedAt,
		UpdatedAt:     m.UpdatedAt,
		Job:           m.Job,
	}
}

func (s *Summary) ToResponse() SummaryResponse {
	return SummaryResponse{
		Total:        s.Total,
		HighScore:    s.HighScore,
		Unviewed:     s.Unviewed,
		Saved:        s.Saved,
		Applied:      s.Applied,
		AverageScore: s.AverageScore,
		Top:          toResponses(s.Top),
		Recent:       toResponses(s.Recent),
	}
}

func toResponses(ms []Match) []MatchResponse {
	out := make([]MatchResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ToResponse())
	}
	return out
}
