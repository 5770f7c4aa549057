package recomputeapi

import (
	"github.com/TryAwesome/CVibe-sub002/matching/recompute"
	"github.com/TryAwesome/CVibe-sub002/matching/recompute/recomputesrv"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	service *recomputesrv.RecomputeService
}

func NewHandlers(service *recomputesrv.RecomputeService) *Handlers {
	return &Handlers{service: service}
}

// RequestRecompute queues a fresh ranking for the caller
// POST /api/matches/recompute
func (h *Handlers) RequestRecompute(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	resp, err := h.service.Trigger(c.Context(), userID, recompute.ReasonManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// GetStatus returns the caller's recompute state
// GET /api/matches/recompute
func (h *Handlers) GetStatus(c *fiber.Ctx) error {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return auth.ErrMissingCredentials()
	}

	status, err := h.service.Status(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(status)
}

// ProfileChanged is called by the profile service after a profile edit
// POST /api/profiles/:userId/changed
func (h *Handlers) ProfileChanged(c *fiber.Ctx) error {
	userID := kernel.NewUserID(c.Params("userId"))
	if userID.IsEmpty() {
		return auth.ErrMissingCredentials().WithDetail("user_id", "missing or empty")
	}

	resp, err := h.service.OnProfileChanged(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// RegisterRoutes must run before matchapi.RegisterRoutes so /recompute is not
// captured by /:jobId
func RegisterRoutes(app *fiber.App, handlers *Handlers, authMiddleware *auth.Middleware) {
	app.Post("/api/matches/recompute",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeMatchesRecompute),
		handlers.RequestRecompute,
	)
	app.Get("/api/matches/recompute",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeMatchesRead),
		handlers.GetStatus,
	)

	app.Post("/api/profiles/:userId/changed",
		authMiddleware.Authenticate(),
		authMiddleware.RequireScope(auth.ScopeProfilesNotify),
		handlers.ProfileChanged,
	)
}
