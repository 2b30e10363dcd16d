package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/imagehost"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// BookService manages the catalog: creation and mutation by librarians,
// visibility-filtered listings for everyone else.
type BookService struct {
	books  repository.BookRepository
	images imagehost.Uploader
	logger *slog.Logger
}

func NewBookService(books repository.BookRepository, images imagehost.Uploader, logger *slog.Logger) *BookService {
	return &BookService{books: books, images: images, logger: logger}
}

// BookInput is the client payload for creating or updating a book.
// CoverImageData, when set, is a base64-encoded image to upload to the
// image host; CoverImageURL is used as-is otherwise.
type BookInput struct {
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	ISBN           string          `json:"isbn"`
	Publisher      string          `json:"publisher"`
	Pages          int             `json:"pages"`
	Language       string          `json:"language"`
	CoverImageURL  string          `json:"coverImageUrl"`
	CoverImageData string          `json:"coverImageData"`
}

func (in *BookInput) validate() error {
	var violations []apperror.Violation
	if strings.TrimSpace(in.Title) == "" {
		violations = append(violations, apperror.Violation{Field: "title", Message: "title is required"})
	}
	if strings.TrimSpace(in.Author) == "" {
		violations = append(violations, apperror.Violation{Field: "author", Message: "author is required"})
	}
	if !model.ValidCategory(in.Category) {
		violations = append(violations, apperror.Violation{Field: "category", Message: "unknown category"})
	}
	if in.Price.IsNegative() {
		violations = append(violations, apperror.Violation{Field: "price", Message: "price cannot be negative"})
	}
	if in.Pages < 0 {
		violations = append(violations, apperror.Violation{Field: "pages", Message: "pages cannot be negative"})
	}
	if len(violations) > 0 {
		return apperror.ValidationFailedAll(violations)
	}
	return nil
}

// Create adds a book owned by the acting librarian. Books start as draft
// and stay invisible to regular listings until published.
func (s *BookService) Create(ctx context.Context, actor *model.Account, in BookInput) (*model.Book, error) {
	if err := authorize(actor, policy.BookCreate, policy.Resource{}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	coverURL, err := s.resolveCover(ctx, in)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	book := &model.Book{
		ID:            xid.New().String(),
		Title:         strings.TrimSpace(in.Title),
		Author:        strings.TrimSpace(in.Author),
		Description:   in.Description,
		Category:      in.Category,
		Price:         in.Price,
		ISBN:          in.ISBN,
		Publisher:     in.Publisher,
		Pages:         in.Pages,
		Language:      in.Language,
		CoverImageURL: coverURL,
		Status:        model.BookDraft,
		OwnerID:       actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book created", "book_id", book.ID, "owner_id", actor.ID, "title", book.Title)
	return book, nil
}

// Get returns a single book by ID, whatever its status. Listings are
// where visibility is enforced; a direct link keeps working after a book
// is unpublished.
func (s *BookService) Get(ctx context.Context, id string) (*model.Book, error) {
	return s.books.GetByID(ctx, id)
}

// List returns catalog entries matching the filter. Anonymous callers and
// regular users only ever see published books; a librarian listing their
// own books, or an admin, sees every status.
func (s *BookService) List(ctx context.Context, actor *model.Account, filter repository.BookFilter) ([]model.Book, error) {
	if !s.mayListUnpublished(actor, filter) {
		filter.Status = model.BookPublished
	}
	return s.books.List(ctx, filter)
}

func (s *BookService) mayListUnpublished(actor *model.Account, filter repository.BookFilter) bool {
	if actor == nil {
		return false
	}
	if actor.Role == model.RoleAdmin {
		return true
	}
	return actor.Role == model.RoleLibrarian && filter.OwnerID == actor.ID
}

// Update edits a book's attributes. Only the owning librarian (or an
// admin) may update; status changes go through SetStatus.
func (s *BookService) Update(ctx context.Context, actor *model.Account, id string, in BookInput) (*model.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.BookUpdate, policy.Resource{OwnerID: book.OwnerID}); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	coverURL, err := s.resolveCover(ctx, in)
	if err != nil {
		return nil, err
	}

	book.Title = strings.TrimSpace(in.Title)
	book.Author = strings.TrimSpace(in.Author)
	book.Description = in.Description
	book.Category = in.Category
	book.Price = in.Price
	book.ISBN = in.ISBN
	book.Publisher = in.Publisher
	book.Pages = in.Pages
	book.Language = in.Language
	if coverURL != "" {
		book.CoverImageURL = coverURL
	}
	book.UpdatedAt = time.Now()

	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// SetStatus moves a book between draft, published, and unpublished.
// Admin only.
func (s *BookService) SetStatus(ctx context.Context, actor *model.Account, id string, status model.BookStatus) (*model.Book, error) {
	if err := authorize(actor, policy.BookSetStatus, policy.Resource{}); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperror.ValidationFailed("status", "status must be draft, published, or unpublished")
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	book.Status = status
	book.UpdatedAt = time.Now()
	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book status changed", "book_id", id, "status", status, "by", actor.ID)
	return book, nil
}

// Delete removes a book from the catalog. Admin only. Orders, reviews,
// and wishlist entries referencing the book are left in place; listings
// that join against books tolerate the dangling reference.
func (s *BookService) Delete(ctx context.Context, actor *model.Account, id string) error {
	if err := authorize(actor, policy.BookDelete, policy.Resource{}); err != nil {
		return err
	}
	if _, err := s.books.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.books.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("book deleted", "book_id", id, "by", actor.ID)
	return nil
}

// resolveCover uploads inline image data to the image host when present,
// otherwise passes the given URL through.
func (s *BookService) resolveCover(ctx context.Context, in BookInput) (string, error) {
	if in.CoverImageData == "" {
		return in.CoverImageURL, nil
	}
	if s.images == nil {
		return "", apperror.ValidationFailed("coverImageData", "image uploads are not configured")
	}
	url, err := s.images.Upload(ctx, in.CoverImageData)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperror.Unavailable("image host", err)
	}
	return url, nil
}
