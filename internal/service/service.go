// Package service implements the application's business logic on top of
// the repository interfaces. Handlers stay thin: decode, call a service,
// encode. Services own validation, authorization (via internal/policy),
// lifecycle rules, and derived data.
package service

import (
	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
)

// authorize runs the policy decision and converts a deny into the
// forbidden error handed back to the caller, reason code included.
func authorize(actor *model.Account, action policy.Action, res policy.Resource) error {
	d := policy.Decide(principalOf(actor), action, res)
	if !d.Allowed {
		return apperror.Denied(string(d.Reason), d.Message)
	}
	return nil
}

func principalOf(a *model.Account) policy.Principal {
	return policy.Principal{ID: a.ID, Role: a.Role}
}
