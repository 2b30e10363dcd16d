package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
	"github.com/sakif/booknest/internal/service"
)

// BookHandler exposes the catalog. Listing and reading are public;
// mutation endpoints sit behind authentication.
type BookHandler struct {
	books   *service.BookService
	reviews *service.ReviewService
}

func NewBookHandler(books *service.BookService, reviews *service.ReviewService) *BookHandler {
	return &BookHandler{books: books, reviews: reviews}
}

// HandleList returns catalog entries matching the query parameters.
// Anonymous and user callers only see published books.
//
// GET /api/books?search=&category=&status=&owner=&sort=
func (h *BookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	// Optional principal: the endpoint is public but librarians and
	// admins see more.
	actor, _ := auth.PrincipalFromContext(r.Context())

	q := r.URL.Query()
	filter := repository.BookFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Status:   model.BookStatus(q.Get("status")),
		OwnerID:  q.Get("owner"),
		Sort:     repository.BookSort(q.Get("sort")),
	}

	books, err := h.books.List(r.Context(), actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// HandleGet returns one book by ID.
//
// GET /api/books/{id}
func (h *BookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	book, err := h.books.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// HandleCreate adds a book to the catalog. Librarian only.
//
// POST /api/books
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.BookInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// HandleUpdate edits a book. Owning librarian or admin.
//
// PUT /api/books/{id}
func (h *BookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.BookInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// HandleSetStatus publishes or unpublishes a book. Admin only.
//
// PUT /api/books/{id}/status
func (h *BookHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in struct {
		Status model.BookStatus `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.books.SetStatus(r.Context(), actor, chi.URLParam(r, "id"), in.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// HandleDelete removes a book. Admin only.
//
// DELETE /api/books/{id}
func (h *BookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	if err := h.books.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListReviews returns a book's reviews. Public.
//
// GET /api/books/{id}/reviews
func (h *BookHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviews.ListByBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleCreateReview posts a review for a delivered book.
//
// POST /api/books/{id}/reviews
func (h *BookHandler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var in service.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// HandleCanReview reports whether the caller may review the book.
//
// GET /api/books/{id}/reviews/eligibility
func (h *BookHandler) HandleCanReview(w http.ResponseWriter, r *http.Request) {
	actor, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	eligible, err := h.reviews.CanReview(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canReview": eligible})
}
