package search

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("SEARCH")

// Error codes
var (
	CodeSearchUnavailable = ErrRegistry.Register("UNAVAILABLE", errx.TypeUnavailable, http.StatusServiceUnavailable, "Similarity search is unavailable")
	CodeUnknownStrategy   = ErrRegistry.Register("UNKNOWN_STRATEGY", errx.TypeValidation, http.StatusBadRequest, "Unknown search strategy")
)

func ErrSearchUnavailable() *errx.Error {
	return ErrRegistry.New(CodeSearchUnavailable)
}

func ErrUnknownStrategy() *errx.Error {
	return ErrRegistry.New(CodeUnknownStrategy)
}
