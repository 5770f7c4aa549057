package scoring

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("SCORING")

var (
	CodeInvalidProfile = ErrRegistry.Register("INVALID_PROFILE", errx.TypeValidation, http.StatusUnprocessableEntity, "Profile vector dimension does not match the job vector")
)

func ErrInvalidProfile() *errx.Error {
	return ErrRegistry.New(CodeInvalidProfile)
}
