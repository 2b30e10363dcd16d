package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/service"
)

// AccountHandler exposes account reads, profile edits, and the admin
// management endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// HandleList returns every account. Admin only.
//
// GET /api/accounts
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleGet returns one account: your own, or any if you are an admin.
//
// GET /api/accounts/{id}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleUpdate edits an account's profile fields.
//
// PATCH /api/accounts/{id}
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.UpdateProfileInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.UpdateProfile(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleSetRole changes an account's role. Admin only.
//
// PUT /api/accounts/{id}/role
func (h *AccountHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		Role model.Role `json:"role"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.SetRole(r.Context(), actor, chi.URLParam(r, "id"), in.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
