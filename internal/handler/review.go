package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/service"
)

// ReviewHandler covers review edits and the caller's review listing.
// Creation and per-book listings live on the book routes.
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// HandleListMine returns the caller's reviews.
//
// GET /api/reviews
func (h *ReviewHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	reviews, err := h.reviews.ListByUser(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleUpdate edits the caller's review.
//
// PUT /api/reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HandleDelete removes a review.
//
// DELETE /api/reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.reviews.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
