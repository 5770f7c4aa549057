package job

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("JOB")

// Error codes
var (
	CodeJobNotFound              = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Job not found")
	CodeDuplicateFingerprintRace = ErrRegistry.Register("DUPLICATE_FINGERPRINT_RACE", errx.TypeConflict, http.StatusConflict, "Job with the same fingerprint was inserted concurrently")
	CodeInvalidSourceURL         = ErrRegistry.Register("INVALID_SOURCE_URL", errx.TypeValidation, http.StatusBadRequest, "Invalid source URL")
	CodeInvalidField             = ErrRegistry.Register("INVALID_FIELD", errx.TypeValidation, http.StatusBadRequest, "Invalid job field")
	CodeInvalidRequirements      = ErrRegistry.Register("INVALID_REQUIREMENTS", errx.TypeValidation, http.StatusBadRequest, "Invalid requirements payload")
	CodeRawSourceStorageFailed   = ErrRegistry.Register("RAW_SOURCE_STORAGE_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to store raw job source")
)

// Helper functions
func ErrJobNotFound() *errx.Error {
	return ErrRegistry.New(CodeJobNotFound)
}

func ErrDuplicateFingerprintRace() *errx.Error {
	return ErrRegistry.New(CodeDuplicateFingerprintRace)
}

func ErrInvalidSourceURL() *errx.Error {
	return ErrRegistry.New(CodeInvalidSourceURL)
}

func ErrInvalidField() *errx.Error {
	return ErrRegistry.New(CodeInvalidField)
}

func ErrInvalidRequirements() *errx.Error {
	return ErrRegistry.New(CodeInvalidRequirements)
}

func ErrRawSourceStorageFailed() *errx.Error {
	return ErrRegistry.New(CodeRawSourceStorageFailed)
}
