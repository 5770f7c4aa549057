package embeddingapi

import (
	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddingsrv"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	service *embeddingsrv.EmbeddingService
}

func NewHandlers(service *embeddingsrv.EmbeddingService) *Handlers {
	return &Handlers{service: service}
}

// PutEmbedding stores a job's vector. ?upgrade=true replaces an existing one.
// PUT /api/crawler/jobs/:id/embedding
func (h *Handlers) PutEmbedding(c *fiber.Ctx) error {
	jobID := kernel.JobID(c.Params("id"))
	if jobID.IsEmpty() {
		return embedding.ErrEmbeddingNotFound().WithDetail("id", "missing or empty")
	}

	var req embedding.PutEmbeddingRequest
	if err := c.BodyParser(&req); err != nil {
		return embedding.ErrInvalidVector().WithDetail("parse_error", err.Error())
	}
	if c.QueryBool("upgrade", false) {
		req.Upgrade = true
	}

	e, err := h.service.Put(c.Context(), jobID, req)
	if err != nil {
		return err
	}
	return c.JSON(e.ToResponse())
}

// GetEmbedding returns the metadata of a job's vector
// GET /api/crawler/jobs/:id/embedding
func (h *Handlers) GetEmbedding(c *fiber.Ctx) error {
	e, err := h.service.Get(c.Context(), kernel.JobID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(e.ToResponse())
}

// Backfill embeds active jobs that have no vector yet
// POST /api/crawler/embeddings/backfill
func (h *Handlers) Backfill(c *fiber.Ctx) error {
	resp, err := h.service.Backfill(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func RegisterRoutes(app *fiber.App, handlers *Handlers, authMiddleware *auth.Middleware) {
	crawler := app.Group("/api/crawler")

	crawler.Put("/jobs/:id/embedding",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsIngest),
		handlers.PutEmbedding,
	)
	crawler.Get("/jobs/:id/embedding",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsIngest, auth.ScopeJobsAdmin),
		handlers.GetEmbedding,
	)
	crawler.Post("/embeddings/backfill",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeJobsAdmin),
		handlers.Backfill,
	)
}
