package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// AccountService covers account reads, profile edits, and the admin-only
// listing and role management operations.
type AccountService struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

func NewAccountService(accounts repository.AccountRepository, logger *slog.Logger) *AccountService {
	return &AccountService{accounts: accounts, logger: logger}
}

// Get returns an account. Callers may read their own; admins may read any.
func (s *AccountService) Get(ctx context.Context, actor *model.Account, id string) (*model.Account, error) {
	if err := authorize(actor, policy.AccountRead, policy.Resource{OwnerID: id}); err != nil {
		return nil, err
	}
	return s.accounts.GetByID(ctx, id)
}

// List returns every account. Admin only.
func (s *AccountService) List(ctx context.Context, actor *model.Account) ([]model.Account, error) {
	if err := authorize(actor, policy.AccountList, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx)
}

// UpdateProfileInput carries the editable profile fields. Nil pointers
// leave the field unchanged.
type UpdateProfileInput struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photoUrl"`
}

// UpdateProfile edits an account's own profile fields. Email, role, and
// provider identity are not editable here.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *model.Account, id string, in UpdateProfileInput) (*model.Account, error) {
	if err := authorize(actor, policy.AccountUpdate, policy.Resource{OwnerID: id}); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "name cannot be empty")
		}
		account.Name = name
	}
	if in.PhotoURL != nil {
		account.PhotoURL = *in.PhotoURL
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SetRole changes an account's role. Admin only. An admin demoting their
// own account is refused so the system cannot lose its last admin by
// accident.
func (s *AccountService) SetRole(ctx context.Context, actor *model.Account, id string, role model.Role) (*model.Account, error) {
	if err := authorize(actor, policy.AccountSetRole, policy.Resource{OwnerID: id}); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be user, librarian, or admin")
	}
	if actor.ID == id && role != model.RoleAdmin {
		return nil, apperror.ValidationFailed("role", "you cannot demote your own account")
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := account.Role
	account.Role = role
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account role changed",
		"account_id", id, "from", previous, "to", role, "by", actor.ID)
	return account, nil
}
