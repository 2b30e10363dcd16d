// Package model defines the data structures used throughout the application.
package model

import "time"

// Role determines which actions an account may perform. See internal/policy
// for the full decision rules.
type Role string

const (
	RoleUser      Role = "user"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLibrarian, RoleAdmin:
		return true
	}
	return false
}

// AuthProvider says how an account authenticates: a locally stored bcrypt
// hash, or an external identity provider whose tokens we only verify.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderExternal AuthProvider = "external"
)

// Account represents a registered account.
//
// Email is stored lowercased and is unique. PasswordHash is present iff
// AuthProvider is local; externally-authenticated accounts carry the
// provider's stable subject ID instead (unique when present). Accounts are
// never hard-deleted.
type Account struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"`
	PhotoURL          string       `json:"photoUrl,omitempty"`
	Role              Role         `json:"role"`
	AuthProvider      AuthProvider `json:"authProvider"`
	ExternalSubjectID string       `json:"-"`
	CreatedAt         time.Time    `json:"createdAt"`
	LastLoginAt       time.Time    `json:"lastLoginAt"`
}
