package auth

import (
	"strings"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	localUserID    = "user_id"
	localScopes    = "scopes"
	localPrincipal = "principal"
)

// Middleware authenticates end users by bearer token and internal services
// (crawler, profile service) by API key.
type Middleware struct {
	verifier     *TokenVerifier
	apiKeyHashes []string
}

// NewMiddleware creates a middleware. apiKeyHashes are bcrypt hashes of the
// accepted service keys.
func NewMiddleware(verifier *TokenVerifier, apiKeyHashes []string) *Middleware {
	return &Middleware{
		verifier:     verifier,
		apiKeyHashes: apiKeyHashes,
	}
}

// Authenticate resolves the caller and stores it in the request locals
func (m *Middleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key := c.Get("X-API-Key"); key != "" {
			if !m.validAPIKey(key) {
				return ErrInvalidAPIKey()
			}
			c.Locals(localPrincipal, "service")
			c.Locals(localScopes, ServiceScopes)
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return ErrMissingCredentials()
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return ErrInvalidToken().WithDetail("reason", "invalid authorization format")
		}

		claims, err := m.verifier.Verify(parts[1])
		if err != nil {
			return err
		}

		scopes := claims.Scopes
		if len(scopes) == 0 {
			scopes = DefaultUserScopes
		}

		c.Locals(localPrincipal, "user")
		c.Locals(localUserID, claims.UserID())
		c.Locals(localScopes, scopes)
		return c.Next()
	}
}

// RequireScope rejects callers lacking every one of the listed scopes
func (m *Middleware) RequireScope(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals(localScopes).([]string)
		for _, s := range scopes {
			if HasScope(granted, s) {
				return c.Next()
			}
		}
		return ErrInsufficientScope().WithDetail("required_scope", strings.Join(scopes, ","))
	}
}

func (m *Middleware) validAPIKey(key string) bool {
	for _, h := range m.apiKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
			return true
		}
	}
	return false
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(c *fiber.Ctx) (kernel.UserID, bool) {
	userID, ok := c.Locals(localUserID).(kernel.UserID)
	return userID, ok && !userID.IsEmpty()
}

// HashAPIKey returns the bcrypt hash stored in configuration for a service key
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
