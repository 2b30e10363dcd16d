// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage provides the production
// implementation; tests substitute in-memory mocks.
//
// Uniqueness invariants (account email, (user,book) for reviews and
// wishlist entries, payment transaction refs) are enforced by the storage
// layer itself via unique indexes. Implementations translate index
// violations to apperror.ErrDuplicate so a storage-detected conflict looks
// identical to an application-level pre-check.
package repository

import (
	"context"
	"time"

	"github.com/sakif/booknest/internal/model"
)

// BookSort orders catalog listings. Zero value sorts newest first.
type BookSort string

const (
	SortNewest    BookSort = "newest"
	SortOldest    BookSort = "oldest"
	SortTitle     BookSort = "title"
	SortPriceAsc  BookSort = "price-asc"
	SortPriceDesc BookSort = "price-desc"
)

// BookFilter narrows and orders a catalog listing. Empty fields are
// ignored. Search matches title or author, case-insensitively.
type BookFilter struct {
	Search   string
	Category string
	Status   model.BookStatus
	OwnerID  string
	Sort     BookSort
}

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByExternalSubject(ctx context.Context, subjectID string) (*model.Account, error)
	Update(ctx context.Context, account *model.Account) error
	List(ctx context.Context) ([]model.Account, error)
}

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	List(ctx context.Context, filter BookFilter) ([]model.Book, error)
	Update(ctx context.Context, book *model.Book) error
	Delete(ctx context.Context, id string) error

	// SetRating atomically writes the derived rating and review count.
	// Only the review service's recompute may call this.
	SetRating(ctx context.Context, bookID string, rating float64, reviewCount int) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	// ListByBookOwner returns orders placed against books owned by the
	// given librarian.
	ListByBookOwner(ctx context.Context, ownerID string) ([]model.Order, error)
	// ListPendingBefore returns pending, unpaid orders created before the
	// cutoff. Used by the expiry sweeper.
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error)
	// SetStatus atomically updates the fulfilment status.
	SetStatus(ctx context.Context, id string, status model.OrderStatus) error
	// MarkPaid atomically records a successful payment reconciliation:
	// paymentStatus becomes paid, the transaction ref is stored, and a
	// pending order is promoted to confirmed — all in one update.
	MarkPaid(ctx context.Context, id, transactionRef string) error
	// FindDelivered returns the user's delivered order for the book, or
	// apperror.ErrNotFound.
	FindDelivered(ctx context.Context, userID, bookID string) (*model.Order, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	GetByID(ctx context.Context, id string) (*model.Review, error)
	GetByUserAndBook(ctx context.Context, userID, bookID string) (*model.Review, error)
	ListByBook(ctx context.Context, bookID string) ([]model.Review, error)
	ListByUser(ctx context.Context, userID string) ([]model.Review, error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, id string) error
}

type WishlistRepository interface {
	Add(ctx context.Context, item *model.WishlistItem) error
	GetByID(ctx context.Context, id string) (*model.WishlistItem, error)
	// ListByUser joins each entry to its book and silently omits entries
	// whose book no longer exists.
	ListByUser(ctx context.Context, userID string) ([]model.WishlistItem, error)
	Delete(ctx context.Context, id string) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	GetByTransactionRef(ctx context.Context, ref string) (*model.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
}
