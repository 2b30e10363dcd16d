package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/service"
)

// PaymentHandler exposes payment intents, confirmation, and the ledger.
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// HandleCreateIntent prepares a provider payment for an order.
//
// POST /api/payments/intent
func (h *PaymentHandler) HandleCreateIntent(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), actor, in.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"transactionRef": intent.TransactionRef,
		"checkoutUrl":    intent.CheckoutURL,
	})
}

// HandleConfirm reconciles a completed provider transaction against an
// order. Safe to retry: replaying a confirmation that already succeeded
// returns the original ledger entry.
//
// POST /api/payments/confirm
func (h *PaymentHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		OrderID        string `json:"orderId"`
		TransactionRef string `json:"transactionRef"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.payments.Confirm(r.Context(), actor, in.OrderID, in.TransactionRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleHistory returns a user's payment ledger entries. Defaults to the
// caller's own; an admin may pass ?user= to read someone else's.
//
// GET /api/payments
func (h *PaymentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = actor.ID
	}

	entries, err := h.payments.History(r.Context(), actor, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGet returns one ledger entry.
//
// GET /api/payments/{id}
func (h *PaymentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	entry, err := h.payments.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
