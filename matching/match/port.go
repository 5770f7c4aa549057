package match

import (
	"context"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
)

// ListFilter narrows a user's match listing
type ListFilter struct {
	SavedOnly   bool
	AppliedOnly bool
	Sort        SortOrder
}

type Repository interface {
	// Upsert inserts or refreshes the score of a (user, job) pair in one statement
	Upsert(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, update ScoreUpdate, now time.Time) (*Match, error)

	// UpdateScore refreshes an existing pair only; false when none exists
	UpdateScore(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, update ScoreUpdate, now time.Time) (bool, error)

	// Get retrieves one match with its job summary
	Get(ctx context.Context, userID kernel.UserID, jobID kernel.JobID) (*Match, error)

	// MarkViewed sets the viewed flag; the timestamp is kept from the first view
	MarkViewed(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*Match, error)

	// MarkApplied sets the applied flag; the timestamp is kept from the first apply
	MarkApplied(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*Match, error)

	// ToggleSaved flips the saved flag
	ToggleSaved(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, now time.Time) (*Match, error)

	// RecordRating stores a rating and optional feedback
	RecordRating(ctx context.Context, userID kernel.UserID, jobID kernel.JobID, stars int, feedback string, now time.Time) (*Match, error)

	// List returns a page of a user's matches in a total order
	List(ctx context.Context, userID kernel.UserID, filter ListFilter, pagination kernel.PaginationOptions) (*kernel.Paginated[Match], error)

	// Counts aggregates the numeric part of a summary
	Counts(ctx context.Context, userID kernel.UserID) (*Summary, error)
}
