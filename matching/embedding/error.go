package embedding

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("EMBEDDING")

// Error codes
var (
	CodeEmbeddingNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Embedding not found")
	CodeEmbeddingAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "Job already has an embedding; pass upgrade to replace it")
	CodeInvalidDimension       = ErrRegistry.Register("INVALID_DIMENSION", errx.TypeValidation, http.StatusBadRequest, "Embedding dimension does not match the configured dimension")
	CodeInvalidVector          = ErrRegistry.Register("INVALID_VECTOR", errx.TypeValidation, http.StatusBadRequest, "Embedding contains non-finite values")
	CodeProviderUnavailable    = ErrRegistry.Register("PROVIDER_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Embedding provider is not configured or failed")
)

// Helper functions
func ErrEmbeddingNotFound() *errx.Error {
	return ErrRegistry.New(CodeEmbeddingNotFound)
}

func ErrEmbeddingAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeEmbeddingAlreadyExists)
}

func ErrInvalidDimension() *errx.Error {
	return ErrRegistry.New(CodeInvalidDimension)
}

func ErrInvalidVector() *errx.Error {
	return ErrRegistry.New(CodeInvalidVector)
}

func ErrProviderUnavailable() *errx.Error {
	return ErrRegistry.New(CodeProviderUnavailable)
}
