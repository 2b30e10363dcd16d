package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/service"
)

// OrderHandler exposes order placement, listings, and the fulfilment
// state machine. Everything here requires authentication.
type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// HandleCreate places an order.
//
// POST /api/orders
func (h *OrderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.CreateOrderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orders.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// HandleGet returns one order, visible to its user, the book's
// librarian, or an admin.
//
// GET /api/orders/{id}
func (h *OrderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleListMine returns a user's orders. Defaults to the caller's own;
// an admin may pass ?user= to read someone else's.
//
// GET /api/orders
func (h *OrderHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = actor.ID
	}

	orders, err := h.orders.ListForUser(r.Context(), actor, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleListManaged returns orders on the caller's books. Librarian
// only.
//
// GET /api/orders/managed
func (h *OrderHandler) HandleListManaged(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListForLibrarian(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// HandleUpdateStatus advances an order through the state machine.
//
// PUT /api/orders/{id}/status
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), in.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// HandleCancel cancels an order.
//
// POST /api/orders/{id}/cancel
func (h *OrderHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
