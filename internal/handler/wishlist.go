package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/service"
)

// WishlistHandler exposes the caller's wishlist.
type WishlistHandler struct {
	wishlist *service.WishlistService
}

func NewWishlistHandler(wishlist *service.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlist: wishlist}
}

// HandleList returns the caller's wishlist with books populated.
//
// GET /api/wishlist
func (h *WishlistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	items, err := h.wishlist.List(r.Context(), actor, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAdd puts a book on the caller's wishlist.
//
// POST /api/wishlist
func (h *WishlistHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		BookID string `json:"bookId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	item, err := h.wishlist.Add(r.Context(), actor, in.BookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleRemove deletes a wishlist entry.
//
// DELETE /api/wishlist/{id}
func (h *WishlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.wishlist.Remove(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
