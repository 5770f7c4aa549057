package jobapi

import (
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/job/jobsrv"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// Handlers provides HTTP handlers for job ingestion and job reads
type Handlers struct {
	service *jobsrv.JobService
}

func NewHandlers(service *jobsrv.JobService) *Handlers {
	return &Handlers{service: service}
}

// ============================================================================
// Crawler Handlers
// ============================================================================

// UpsertJob ingests one crawled posting
// POST /api/crawler/jobs
func (h *Handlers) UpsertJob(c *fiber.Ctx) error {
	var req job.UpsertJobRequest
	if err := c.BodyParser(&req); err != nil {
		return job.ErrInvalidField().WithDetail("parse_error", err.Error())
	}

	resp, err := h.service.UpsertJob(c.Context(), req)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if resp.IsNew {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(resp)
}

// DeactivateStale soft-deletes jobs the crawler stopped seeing
// POST /api/crawler/jobs/deactivate-stale
func (h *Handlers) DeactivateStale(c *fiber.Ctx) error {
	var req job.DeactivateStaleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return job.ErrInvalidField().WithDetail("parse_error", err.Error())
		}
	}

	resp, err := h.service.DeactivateStale(c.Context(), req.Before)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ============================================================================
// Read Handlers
// ============================================================================

// ListJobs lists active jobs filtered by keyword, location, company,
// employment type, experience level and remote flag
// GET /api/jobs?keyword=&location=&company=&type=&experience_level=&remote=
func (h *Handlers) ListJobs(c *fiber.Ctx) error {
	employment, err := job.ParseEmploymentType(c.Query("type"))
	if err != nil {
		return err
	}
	level, err := job.ParseExperienceLevel(c.Query("experience_level"))
	if err != nil {
		return err
	}

	filter := job.ListFilter{
		RemoteOnly:      c.QueryBool("remote", false),
		Company:         c.Query("company"),
		Keyword:         c.Query("keyword"),
		Location:        c.Query("location"),
		EmploymentType:  employment,
		ExperienceLevel: level,
	}

	jobs, err := h.service.ListActiveJobs(c.Context(), filter, parsePaginationOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(jobs)
}

// ListLatestJobs returns the newest active jobs
// GET /api/jobs/latest
func (h *Handlers) ListLatestJobs(c *fiber.Ctx) error {
	pagination := kernel.PaginationOptions{Page: 1, PageSize: c.QueryInt("limit", 20)}

	jobs, err := h.service.ListActiveJobs(c.Context(), job.ListFilter{}, pagination.Normalize())
	if err != nil {
		return err
	}
	return c.JSON(jobs.Items)
}

// ListRemoteJobs lists active remote jobs
// GET /api/jobs/remote
func (h *Handlers) ListRemoteJobs(c *fiber.Ctx) error {
	jobs, err := h.service.ListActiveJobs(c.Context(), job.ListFilter{RemoteOnly: true}, parsePaginationOptions(c))
	if err != nil {
		return err
	}
	return c.JSON(jobs)
}

// GetJob retrieves a job by ID
// GET /api/jobs/:id
func (h *Handlers) GetJob(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("id"))
	if jobID.IsEmpty() {
		return job.ErrJobNotFound().WithDetail("id", "missing or empty")
	}

	resp, err := h.service.GetJob(c.Context(), jobID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetStats returns corpus statistics
// GET /api/jobs/stats
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// parsePaginationOptions extracts pagination options from query parameters
func parsePaginationOptions(c *fiber.Ctx) kernel.PaginationOptions {
	return kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}.Normalize()
}

// RegisterRoutes registers crawler and job read routes
func RegisterRoutes(app *fiber.App, handlers *Handlers, authMiddleware *auth.Middleware) {
	crawler := app.Group("/api/crawler/jobs")
	crawler.Post("/",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsIngest),
		handlers.UpsertJob,
	)
	crawler.Post("/deactivate-stale",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsAdmin),
		handlers.DeactivateStale,
	)

	api := app.Group("/api/jobs")
	api.Get("/",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsRead),
		handlers.ListJobs,
	)
	api.Get("/latest",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsRead),
		handlers.ListLatestJobs,
	)
	api.Get("/remote",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsRead),
		handlers.ListRemoteJobs,
	)
	api.Get("/stats",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsAdmin),
		handlers.GetStats,
	)
	// Must stay after the static paths
	api.Get("/:id",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsRead),
		handlers.GetJob,
	)
}
