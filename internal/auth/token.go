// Package auth provides session token issuance, external credential
// verification, password hashing, and the HTTP authentication middleware.
//
// Two kinds of tokens flow through here. Session tokens are ours: issued
// after registration or login, signed HS256, carried in an HttpOnly cookie
// (or an Authorization header). External ID tokens belong to the identity
// provider; we only verify them (verifier.go) and never mint them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/booknest/internal/apperror"
)

const sessionIssuer = "booknest"

// DefaultSessionDuration is how long a session token stays valid.
const DefaultSessionDuration = 7 * 24 * time.Hour

// TokenService signs and validates session JWTs.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given HMAC secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Generate signs a session token for the given account ID, valid for
// DefaultSessionDuration.
func (s *TokenService) Generate(accountID string) (string, error) {
	return s.GenerateWithDuration(accountID, DefaultSessionDuration)
}

// GenerateWithDuration signs a session token with a custom lifetime.
// Used in tests and for short-lived tokens.
func (s *TokenService) GenerateWithDuration(accountID string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token, returning the account ID
// from the subject claim. Restricting the accepted algorithms to HS256
// closes the algorithm-confusion hole.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.Unauthorized("session expired, please log in again")
		}
		return "", apperror.Unauthorized("invalid session token")
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", apperror.Unauthorized("invalid session token")
	}
	if c.Subject == "" {
		return "", apperror.Unauthorized("session token has no subject")
	}
	return c.Subject, nil
}
