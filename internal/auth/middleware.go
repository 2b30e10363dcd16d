package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// contextKey is an unexported type for context keys in this package, so no
// other package can read or shadow the principal we store.
type contextKey string

const principalKey contextKey = "principal"

// SessionCookie is the cookie that carries the session token.
const SessionCookie = "token"

// RequireAuth authenticates the request and loads the principal.
//
// It accepts the session token from the "token" HttpOnly cookie or an
// "Authorization: Bearer" header, validates it, and then resolves the
// subject to a local account — a valid token whose subject has no account
// is still rejected (the caller must register first). The loaded account
// is stored in the request context for handlers.
func RequireAuth(tokens *TokenService, accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, err := loadPrincipal(r, tokens, accounts)
			if err != nil {
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`,
					http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth loads the principal when a valid token is present but
// lets anonymous requests through. Public endpoints use it so listings
// can widen for privileged callers.
func OptionalAuth(tokens *TokenService, accounts repository.AccountRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if account, err := loadPrincipal(r, tokens, accounts); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), principalKey, account))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext retrieves the authenticated account from the
// request context. Returns (nil, false) for anonymous requests.
func PrincipalFromContext(ctx context.Context) (*model.Account, bool) {
	account, ok := ctx.Value(principalKey).(*model.Account)
	return account, ok && account != nil
}

// loadPrincipal extracts and validates the session token, then maps its
// subject to an account. Shared by RequireAuth and OptionalAuth.
func loadPrincipal(r *http.Request, tokens *TokenService, accounts repository.AccountRepository) (*model.Account, error) {
	tokenStr := extractToken(r)
	if tokenStr == "" {
		return nil, apperror.Unauthorized("no token provided, please log in")
	}

	accountID, err := tokens.Validate(tokenStr)
	if err != nil {
		return nil, err
	}

	account, err := accounts.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account not found, please register first")
		}
		return nil, err
	}
	return account, nil
}

// extractToken prefers the cookie; an Authorization header works for
// non-browser clients.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
