package matchingtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/internal/httpserver"
	"github.com/TryAwesome/CVibe-sub002/pkg/auth"
	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// ServiceKey is the API key accepted by Auth
const ServiceKey = "test-service-key"

// Auth bundles a middleware that accepts ServiceKey and tokens from Verifier
type Auth struct {
	Verifier   *auth.TokenVerifier
	Middleware *auth.Middleware
}

func NewAuth(t *testing.T) *Auth {
	t.Helper()
	hash, err := auth.HashAPIKey(ServiceKey)
	require.NoError(t, err)
	v := auth.NewTokenVerifier("test-secret", "cvibe")
	return &Auth{Verifier: v, Middleware: auth.NewMiddleware(v, []string{hash})}
}

// UserHeader returns an Authorization header for userID with default scopes
func (a *Auth) UserHeader(t *testing.T, userID kernel.UserID) http.Header {
	t.Helper()
	token, err := a.Verifier.Issue(userID, nil, time.Hour)
	require.NoError(t, err)
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// ServiceHeader returns an API-key header
func (a *Auth) ServiceHeader() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", ServiceKey)
	return h
}

// NewApp returns an app with the production error handler
func NewApp() *fiber.App {
	return httpserver.New(httpserver.Options{AppName: "test"})
}

// Do sends a request with an optional JSON body and decodes the JSON response into out
func Do(t *testing.T, app *fiber.App, method, path string, header http.Header, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}
