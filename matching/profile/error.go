package profile

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("PROFILE")

var (
	CodeProfileNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Profile has no embedding yet")
)

func ErrProfileNotFound() *errx.Error {
	return ErrRegistry.New(CodeProfileNotFound)
}
