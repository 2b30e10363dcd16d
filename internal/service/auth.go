package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// AuthService handles registration, login, and external identity sync.
type AuthService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	verifier  auth.CredentialVerifier
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	verifier auth.CredentialVerifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		verifier:  verifier,
		logger:    logger,
	}
}

// AuthResult is a freshly authenticated account plus its session token.
type AuthResult struct {
	Account *model.Account
	Token   string
}

// RegisterInput is the payload for local account registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a local account and issues a session token. Email is
// normalized to lowercase; a taken email fails with ErrDuplicate.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var violations []apperror.Violation
	if strings.TrimSpace(in.Name) == "" {
		violations = append(violations, apperror.Violation{Field: "name", Message: "name is required"})
	}
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		violations = append(violations, apperror.Violation{Field: "email", Message: "a valid email is required"})
	}
	if len(in.Password) < 6 {
		violations = append(violations, apperror.Violation{Field: "password", Message: "password must be at least 6 characters"})
	}
	if len(violations) > 0 {
		return nil, apperror.ValidationFailedAll(violations)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := &model.Account{
		ID:           xid.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		AuthProvider: model.ProviderLocal,
		CreatedAt:    now,
		LastLoginAt:  now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, apperror.Duplicate("an account with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("account registered", "account_id", account.ID, "email", account.Email)
	return s.issueSession(account)
}

// Login authenticates a local account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Same message as a wrong password, so login probes cannot
			// enumerate registered emails.
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if account.PasswordHash == "" {
		return nil, apperror.Unauthorized("this account signs in through its identity provider")
	}
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, err
	}

	account.LastLoginAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	return s.issueSession(account)
}

// LoginExternal verifies a provider-issued credential and syncs the
// resulting identity to a local account, creating one on first sign-in.
func (s *AuthService) LoginExternal(ctx context.Context, credential string) (*AuthResult, error) {
	identity, err := s.verifier.VerifyCredential(ctx, credential)
	if err != nil {
		return nil, err
	}
	return s.LoginIdentity(ctx, identity)
}

// LoginIdentity syncs an already-verified external identity. Used by
// LoginExternal and by the OAuth callback, which verifies via the code
// exchange instead of a bearer credential.
func (s *AuthService) LoginIdentity(ctx context.Context, identity *auth.Identity) (*AuthResult, error) {
	account, err := s.syncAccount(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.issueSession(account)
}

// syncAccount maps a verified identity to an account:
//
//  1. subject ID already linked → refresh profile hints and log in
//  2. email matches an existing account → link the subject ID to it
//     (provider and password untouched, so local login keeps working)
//  3. otherwise → create a new external account with the user role
func (s *AuthService) syncAccount(ctx context.Context, identity *auth.Identity) (*model.Account, error) {
	now := time.Now()

	account, err := s.accounts.GetByExternalSubject(ctx, identity.SubjectID)
	if err == nil {
		syncProfile(account, identity)
		account.LastLoginAt = now
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	email := normalizeEmail(identity.Email)
	account, err = s.accounts.GetByEmail(ctx, email)
	if err == nil {
		account.ExternalSubjectID = identity.SubjectID
		syncProfile(account, identity)
		account.LastLoginAt = now
		if err := s.accounts.Update(ctx, account); err != nil {
			return nil, err
		}
		s.logger.Info("linked external identity to existing account",
			"account_id", account.ID, "email", account.Email)
		return account, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	account = &model.Account{
		ID:                xid.New().String(),
		Name:              identity.Name,
		Email:             email,
		PhotoURL:          identity.PhotoURL,
		Role:              model.RoleUser,
		AuthProvider:      model.ProviderExternal,
		ExternalSubjectID: identity.SubjectID,
		CreatedAt:         now,
		LastLoginAt:       now,
	}
	if account.Name == "" {
		account.Name = email
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created from external identity",
		"account_id", account.ID, "email", account.Email)
	return account, nil
}

func (s *AuthService) issueSession(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Account: account, Token: token}, nil
}

// syncProfile copies fresher profile hints from the provider. The local
// name wins once set; the photo follows the provider.
func syncProfile(account *model.Account, identity *auth.Identity) {
	if account.Name == "" && identity.Name != "" {
		account.Name = identity.Name
	}
	if identity.PhotoURL != "" {
		account.PhotoURL = identity.PhotoURL
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail is a sanity check, not RFC 5322: one @ with something on
// both sides and a dot in the domain.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.Contains(domain, "@")
}
