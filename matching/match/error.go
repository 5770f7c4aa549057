package match

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("MATCH")

// Error codes
var (
	CodeMatchNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Match not found")
	CodeInvalidRating = ErrRegistry.Register("INVALID_RATING", errx.TypeValidation, http.StatusBadRequest, "Rating must be between 1 and 5")
	CodeInvalidScore  = ErrRegistry.Register("INVALID_SCORE", errx.TypeValidation, http.StatusBadRequest, "Score must be between 0 and 100")
)

// Helper functions
func ErrMatchNotFound() *errx.Error {
	return ErrRegistry.New(CodeMatchNotFound)
}

func ErrInvalidRating() *errx.Error {
	return ErrRegistry.New(CodeInvalidRating)
}

func ErrInvalidScore() *errx.Error {
	return ErrRegistry.New(CodeInvalidScore)
}
