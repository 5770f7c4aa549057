package recompute

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("RECOMPUTE")

// Error codes
var (
	CodeRecomputeFailed = ErrRegistry.Register("FAILED", errx.TypeInternal, http.StatusInternalServerError, "Recompute run failed")
	CodeLeaseLost       = ErrRegistry.Register("LEASE_LOST", errx.TypeConflict, http.StatusConflict, "Recompute lease is no longer held")
	CodeLeaseHeld       = ErrRegistry.Register("LEASE_HELD", errx.TypeConflict, http.StatusConflict, "Another worker is recomputing this user")
	CodeQueueFailed     = ErrRegistry.Register("QUEUE_FAILED", errx.TypeUnavailable, http.StatusServiceUnavailable, "Recompute queue is unavailable")
)

// Helper functions
func ErrRecomputeFailed() *errx.Error {
	return ErrRegistry.New(CodeRecomputeFailed)
}

func ErrLeaseLost() *errx.Error {
	return ErrRegistry.New(CodeLeaseLost)
}

func ErrLeaseHeld() *errx.Error {
	return ErrRegistry.New(CodeLeaseHeld)
}

func ErrQueueFailed() *errx.Error {
	return ErrRegistry.New(CodeQueueFailed)
}
