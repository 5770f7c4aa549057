package auth

import (
	"net/http"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeMissingCredentials = ErrRegistry.Register("MISSING_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Missing authorization header")
	CodeInvalidToken       = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired token")
	CodeInvalidAPIKey      = ErrRegistry.Register("INVALID_API_KEY", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid API key")
	CodeInsufficientScope  = ErrRegistry.Register("INSUFFICIENT_SCOPE", errx.TypeAuthorization, http.StatusForbidden, "Insufficient permissions")
)

func ErrMissingCredentials() *errx.Error {
	return ErrRegistry.New(CodeMissingCredentials)
}

func ErrInvalidToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidToken)
}

func ErrInvalidAPIKey() *errx.Error {
	return ErrRegistry.New(CodeInvalidAPIKey)
}

func ErrInsufficientScope() *errx.Error {
	return ErrRegistry.New(CodeInsufficientScope)
}
