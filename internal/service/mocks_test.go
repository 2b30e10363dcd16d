package service_test

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/payment"
	"github.com/sakif/booknest/internal/repository"
)

// In-memory repositories for service tests. They mirror the storage
// contract, including duplicate detection, so services see the same
// behavior as against sqlite.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- accounts ---

type memAccounts struct {
	byID map[string]model.Account
}

var _ repository.AccountRepository = (*memAccounts)(nil)

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: make(map[string]model.Account)}
}

func (m *memAccounts) Create(_ context.Context, account *model.Account) error {
	for _, a := range m.byID {
		if a.Email == account.Email {
			return apperror.Duplicate("an account with this email already exists")
		}
		if account.ExternalSubjectID != "" && a.ExternalSubjectID == account.ExternalSubjectID {
			return apperror.Duplicate("this external identity is already linked")
		}
	}
	m.byID[account.ID] = *account
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	out := a
	return &out, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range m.byID {
		if a.Email == email {
			out := a
			return &out, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (m *memAccounts) GetByExternalSubject(_ context.Context, subjectID string) (*model.Account, error) {
	for _, a := range m.byID {
		if a.ExternalSubjectID == subjectID && subjectID != "" {
			out := a
			return &out, nil
		}
	}
	return nil, apperror.NotFound("account", subjectID)
}

func (m *memAccounts) Update(_ context.Context, account *model.Account) error {
	if _, ok := m.byID[account.ID]; !ok {
		return apperror.NotFound("account", account.ID)
	}
	m.byID[account.ID] = *account
	return nil
}

func (m *memAccounts) List(_ context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- books ---

type memBooks struct {
	byID map[string]model.Book
}

var _ repository.BookRepository = (*memBooks)(nil)

func newMemBooks() *memBooks {
	return &memBooks{byID: make(map[string]model.Book)}
}

func (m *memBooks) Create(_ context.Context, book *model.Book) error {
	m.byID[book.ID] = *book
	return nil
}

func (m *memBooks) GetByID(_ context.Context, id string) (*model.Book, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("book", id)
	}
	out := b
	return &out, nil
}

func (m *memBooks) List(_ context.Context, filter repository.BookFilter) ([]model.Book, error) {
	var out []model.Book
	for _, b := range m.byID {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && b.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && b.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			s := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(b.Title), s) &&
				!strings.Contains(strings.ToLower(b.Author), s) {
				continue
			}
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memBooks) Update(_ context.Context, book *model.Book) error {
	if _, ok := m.byID[book.ID]; !ok {
		return apperror.NotFound("book", book.ID)
	}
	m.byID[book.ID] = *book
	return nil
}

func (m *memBooks) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("book", id)
	}
	delete(m.byID, id)
	return nil
}

func (m *memBooks) SetRating(_ context.Context, bookID string, rating float64, reviewCount int) error {
	b, ok := m.byID[bookID]
	if !ok {
		return apperror.NotFound("book", bookID)
	}
	b.Rating = rating
	b.ReviewCount = reviewCount
	m.byID[bookID] = b
	return nil
}

// --- orders ---

type memOrders struct {
	byID  map[string]model.Order
	books *memBooks
}

var _ repository.OrderRepository = (*memOrders)(nil)

func newMemOrders(books *memBooks) *memOrders {
	return &memOrders{byID: make(map[string]model.Order), books: books}
}

func (m *memOrders) Create(_ context.Context, order *model.Order) error {
	m.byID[order.ID] = *order
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*model.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("order", id)
	}
	out := o
	return &out, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListByBookOwner(_ context.Context, ownerID string) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.byID {
		if b, ok := m.books.byID[o.BookID]; ok && b.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListPendingBefore(_ context.Context, cutoff time.Time) ([]model.Order, error) {
	var out []model.Order
	for _, o := range m.byID {
		if o.Status == model.OrderPending && o.PaymentStatus == model.PaymentPending && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) SetStatus(_ context.Context, id string, status model.OrderStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return apperror.NotFound("order", id)
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.byID[id] = o
	return nil
}

func (m *memOrders) MarkPaid(_ context.Context, id, transactionRef string) error {
	o, ok := m.byID[id]
	if !ok {
		return apperror.NotFound("order", id)
	}
	o.PaymentStatus = model.PaymentPaid
	o.TransactionRef = transactionRef
	if o.Status == model.OrderPending {
		o.Status = model.OrderConfirmed
	}
	o.UpdatedAt = time.Now()
	m.byID[id] = o
	return nil
}

func (m *memOrders) FindDelivered(_ context.Context, userID, bookID string) (*model.Order, error) {
	for _, o := range m.byID {
		if o.UserID == userID && o.BookID == bookID && o.Status == model.OrderDelivered {
			out := o
			return &out, nil
		}
	}
	return nil, apperror.NotFound("order", bookID)
}

// --- reviews ---

type memReviews struct {
	byID map[string]model.Review
}

var _ repository.ReviewRepository = (*memReviews)(nil)

func newMemReviews() *memReviews {
	return &memReviews{byID: make(map[string]model.Review)}
}

func (m *memReviews) Create(_ context.Context, review *model.Review) error {
	for _, r := range m.byID {
		if r.UserID == review.UserID && r.BookID == review.BookID {
			return apperror.Duplicate("you have already reviewed this book")
		}
	}
	m.byID[review.ID] = *review
	return nil
}

func (m *memReviews) GetByID(_ context.Context, id string) (*model.Review, error) {
	r, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("review", id)
	}
	out := r
	return &out, nil
}

func (m *memReviews) GetByUserAndBook(_ context.Context, userID, bookID string) (*model.Review, error) {
	for _, r := range m.byID {
		if r.UserID == userID && r.BookID == bookID {
			out := r
			return &out, nil
		}
	}
	return nil, apperror.NotFound("review", bookID)
}

func (m *memReviews) ListByBook(_ context.Context, bookID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range m.byID {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReviews) ListByUser(_ context.Context, userID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range m.byID {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReviews) Update(_ context.Context, review *model.Review) error {
	if _, ok := m.byID[review.ID]; !ok {
		return apperror.NotFound("review", review.ID)
	}
	m.byID[review.ID] = *review
	return nil
}

func (m *memReviews) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("review", id)
	}
	delete(m.byID, id)
	return nil
}

// --- wishlist ---

type memWishlist struct {
	byID  map[string]model.WishlistItem
	books *memBooks
}

var _ repository.WishlistRepository = (*memWishlist)(nil)

func newMemWishlist(books *memBooks) *memWishlist {
	return &memWishlist{byID: make(map[string]model.WishlistItem), books: books}
}

func (m *memWishlist) Add(_ context.Context, item *model.WishlistItem) error {
	for _, w := range m.byID {
		if w.UserID == item.UserID && w.BookID == item.BookID {
			return apperror.Duplicate("this book is already on your wishlist")
		}
	}
	stored := *item
	stored.Book = nil
	m.byID[item.ID] = stored
	return nil
}

func (m *memWishlist) GetByID(_ context.Context, id string) (*model.WishlistItem, error) {
	w, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("wishlist item", id)
	}
	out := w
	return &out, nil
}

func (m *memWishlist) ListByUser(_ context.Context, userID string) ([]model.WishlistItem, error) {
	var out []model.WishlistItem
	for _, w := range m.byID {
		if w.UserID != userID {
			continue
		}
		b, ok := m.books.byID[w.BookID]
		if !ok {
			// Book deleted since the entry was added; omit.
			continue
		}
		book := b
		item := w
		item.Book = &book
		out = append(out, item)
	}
	return out, nil
}

func (m *memWishlist) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return apperror.NotFound("wishlist item", id)
	}
	delete(m.byID, id)
	return nil
}

// --- payments ---

type memPayments struct {
	byID map[string]model.Payment
}

var _ repository.PaymentRepository = (*memPayments)(nil)

func newMemPayments() *memPayments {
	return &memPayments{byID: make(map[string]model.Payment)}
}

func (m *memPayments) Create(_ context.Context, p *model.Payment) error {
	for _, existing := range m.byID {
		if existing.TransactionRef == p.TransactionRef {
			return apperror.Duplicate("transaction has already been recorded")
		}
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id string) (*model.Payment, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("payment", id)
	}
	out := p
	return &out, nil
}

func (m *memPayments) GetByTransactionRef(_ context.Context, ref string) (*model.Payment, error) {
	for _, p := range m.byID {
		if p.TransactionRef == ref {
			out := p
			return &out, nil
		}
	}
	return nil, apperror.NotFound("payment", ref)
}

func (m *memPayments) ListByUser(_ context.Context, userID string) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- payment gateway ---

// mockGateway returns canned confirmations keyed by transaction ref.
type mockGateway struct {
	confirmations map[string]payment.Confirmation
	intent        *payment.Intent
	verifyErr     error
}

var _ payment.Gateway = (*mockGateway)(nil)

func (g *mockGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if g.intent != nil {
		return g.intent, nil
	}
	return &payment.Intent{TransactionRef: "txn_" + req.OrderID, CheckoutURL: "https://pay.example.com/" + req.OrderID}, nil
}

func (g *mockGateway) VerifyTransaction(_ context.Context, ref string) (*payment.Confirmation, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	c, ok := g.confirmations[ref]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return &c, nil
}

// --- fixtures ---

func adminAccount() *model.Account {
	return &model.Account{ID: "adm1", Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
}

func librarianAccount(id string) *model.Account {
	return &model.Account{ID: id, Name: "Librarian " + id, Email: id + "@example.com", Role: model.RoleLibrarian}
}

func userAccount(id string) *model.Account {
	return &model.Account{ID: id, Name: "User " + id, Email: id + "@example.com", Role: model.RoleUser}
}
