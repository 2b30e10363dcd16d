package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/booknest/internal/apperror"
)

// Identity is the verified result of an external credential: the
// provider's stable subject ID plus the profile hints we sync onto the
// local account.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
	PhotoURL  string
}

// CredentialVerifier turns an opaque bearer credential from the external
// identity provider into a verified identity. Implementations hold no
// state beyond the provider's verification material.
type CredentialVerifier interface {
	// VerifyCredential fails with apperror.ErrUnauthorized for missing,
	// malformed, or expired credentials.
	VerifyCredential(ctx context.Context, credential string) (*Identity, error)
}

// JWTVerifier verifies provider-issued ID tokens signed with a shared
// HS256 secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

var _ CredentialVerifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: identity provider secret must be at least 16 characters")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}, nil
}

type identityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) VerifyCredential(_ context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, apperror.Unauthorized("no credential provided")
	}

	token, err := jwt.ParseWithClaims(
		credential,
		&identityClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.Unauthorized("credential expired, please sign in again")
		}
		return nil, apperror.Unauthorized("invalid credential")
	}

	c, ok := token.Claims.(*identityClaims)
	if !ok || !token.Valid {
		return nil, apperror.Unauthorized("invalid credential")
	}
	if c.Subject == "" || c.Email == "" {
		return nil, apperror.Unauthorized("credential is missing subject or email")
	}

	return &Identity{
		SubjectID: c.Subject,
		Email:     c.Email,
		Name:      c.Name,
		PhotoURL:  c.Picture,
	}, nil
}
