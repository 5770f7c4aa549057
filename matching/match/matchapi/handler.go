package matchapi

import (
	"github.com/TryAwesome/CVibe-sub002/matching/match"
	"github.com/TryAwesome/CVibe-sub002/matching/match/matchsrv"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// Handlers serves a user's own matches
type Handlers struct {
	service *matchsrv.MatchService
}

func NewHandlers(service *matchsrv.MatchService) *Handlers {
	return &Handlers{service: service}
}

// ============================================================================
// Listing Handlers
// ============================================================================

// ListMatches returns the ranked page of the caller's matches
// GET /api/matches?sort=score|date&page=1&page_size=20
func (h *Handlers) ListMatches(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	matches, err := h.service.ListMatches(c.Context(), userID, match.ParseSortOrder(c.Query("sort")), parsePaginationOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(matches)
}

// GetSummary returns counts, top matches and recent matches
// GET /api/matches/summary
func (h *Handlers) GetSummary(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	summary, err := h.service.Summary(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// ListSaved returns the caller's saved matches
// GET /api/matches/saved
func (h *Handlers) ListSaved(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	matches, err := h.service.ListSaved(c.Context(), userID, parsePaginationOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(matches)
}

// ListApplied returns the caller's applied matches
// GET /api/matches/applied
func (h *Handlers) ListApplied(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	matches, err := h.service.ListApplied(c.Context(), userID, parsePaginationOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(matches)
}

// GetMatch returns one match with its job summary
// GET /api/matches/:jobId
func (h *Handlers) GetMatch(c *fiber.Ctx) error {
	userID, jobID, err := matchParams(c)
	if err != nil {
		return err
	}

	m, err := h.service.GetMatch(c.Context(), userID, jobID)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// ============================================================================
// Flag Handlers
// ============================================================================

// MarkViewed records that the caller opened a match
// POST /api/matches/:jobId/view
func (h *Handlers) MarkViewed(c *fiber.Ctx) error {
	userID, jobID, err := matchParams(c)
	if err != nil {
		return err
	}

	m, err := h.service.MarkViewed(c.Context(), userID, jobID)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// MarkApplied records that the caller applied
// POST /api/matches/:jobId/apply
func (h *Handlers) MarkApplied(c *fiber.Ctx) error {
	userID, jobID, err := matchParams(c)
	if err != nil {
		return err
	}

	m, err := h.service.MarkApplied(c.Context(), userID, jobID)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// ToggleSaved flips the saved flag
// POST /api/matches/:jobId/save
func (h *Handlers) ToggleSaved(c *fiber.Ctx) error {
	userID, jobID, err := matchParams(c)
	if err != nil {
		return err
	}

	m, err := h.service.ToggleSaved(c.Context(), userID, jobID)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// RecordFeedback stores a 1-5 rating with optional text
// POST /api/matches/:jobId/feedback
func (h *Handlers) RecordFeedback(c *fiber.Ctx) error {
	userID, jobID, err := matchParams(c)
	if err != nil {
		return err
	}

	var req match.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return match.ErrInvalidRating().WithDetail("parse_error", err.Error())
	}

	m, err := h.service.RecordFeedback(c.Context(), userID, jobID, req)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func matchParams(c *fiber.Ctx) (kernel.UserID, kernel.JobID, error) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return "", "", auth.ErrMissingCredentials()
	}
	jobID := kernel.JobID(c.Params("jobId"))
	if jobID.IsEmpty() {
		return "", "", match.ErrMatchNotFound().WithDetail("job_id", "missing or empty")
	}
	return userID, jobID, nil
}

func parsePaginationOptions(c *fiber.Ctx) kernel.PaginationOptions {
	return kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}.Normalize()
}

// RegisterRoutes registers the match routes. The recompute route lives in
// recomputeapi under the same prefix.
func RegisterRoutes(app *fiber.App, handlers *Handlers, authMiddleware *auth.Middleware) {
	api := app.Group("/api/matches", authMiddleware.Authenticate())

	read := authMiddleware.RequireScope(auth.ScopeMatchesRead)
	write := authMiddleware.RequireScope(auth.ScopeMatchesWrite)

	api.Get("/", read, handlers.ListMatches)
	api.Get("/summary", read, handlers.GetSummary)
	api.Get("/saved", read, handlers.ListSaved)
	api.Get("/applied", read, handlers.ListApplied)
	api.Get("/:jobId", read, handlers.GetMatch)

	api.Post("/:jobId/view", write, handlers.MarkViewed)
	api.Post("/:jobId/apply", write, handlers.MarkApplied)
	api.Post("/:jobId/save", write, handlers.ToggleSaved)
	api.Post("/:jobId/feedback", write, handlers.RecordFeedback)
}
