package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTTL is the fixed expiry horizon for every session token.
	TokenTTL = 7 * 24 * time.Hour

	// RoleClaim is the claim key carrying the API role on access tokens.
	RoleClaim = "role"
	// RoleAPI is the elevated role required for mutating share operations.
	RoleAPI = "api"
)

// Verification failures, from most to least specific. Callers match with
// errors.Is; the wrapped detail is safe to surface in error responses.
var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenMalformed   = errors.New("token is malformed")
)

// SessionClaims is the decoded payload of a verified session token.
type SessionClaims struct {
	Subject   string
	Claims    map[string]string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Role returns the role claim, or "" when absent.
func (c *SessionClaims) Role() string {
	return c.Claims[RoleClaim]
}

// sessionClaims is the wire shape used for JWT signing and parsing.
type sessionClaims struct {
	jwt.RegisteredClaims
	Claims map[string]string `json:"claims,omitempty"`
}

// CreateToken signs a session token for subject with the given claim payload.
// Expiry is always issuance time plus TokenTTL.
func CreateToken(subject string, claims map[string]string, secret []byte) (string, error) {
	return createTokenAt(subject, claims, secret, time.Now())
}

// createTokenAt exists so tests can mint tokens at arbitrary issuance times.
func createTokenAt(subject string, claims map[string]string, secret []byte, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("signing secret is required")
	}

	now = now.UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Claims: claims,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature and expiry and returns the decoded claims.
// Failures map to ErrInvalidSignature, ErrTokenExpired or ErrTokenMalformed.
func VerifyToken(token string, secret []byte) (*SessionClaims, error) {
	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if parsed.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	claims := &SessionClaims{
		Subject:   parsed.Subject,
		Claims:    parsed.Claims,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors into the package sentinels.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
