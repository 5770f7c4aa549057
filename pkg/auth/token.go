package auth

import (
	"fmt"
	"time"

	"github.com/TryAwesome/CVibe-sub002/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token payload issued by the session service.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a user id.
func (c *Claims) UserID() kernel.UserID {
	return kernel.NewUserID(c.Subject)
}

// TokenVerifier validates HS256 access tokens. Issuance belongs to the session
// service; Issue exists for local tooling and tests.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Verify parses and validates a signed token
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken().WithCause(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken()
	}
	return claims, nil
}

// Issue signs a token for userID with the given scopes
func (v *TokenVerifier) Issue(userID kernel.UserID, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
