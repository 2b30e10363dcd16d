package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// OrderService owns the order lifecycle: placement, the fulfilment state
// machine, cancellation, and expiry of stale unpaid orders.
type OrderService struct {
	orders repository.OrderRepository
	books  repository.BookRepository
	logger *slog.Logger
}

func NewOrderService(orders repository.OrderRepository, books repository.BookRepository, logger *slog.Logger) *OrderService {
	return &OrderService{orders: orders, books: books, logger: logger}
}

// CreateOrderInput is the client payload for placing an order. The total
// is never part of it — the server derives it from the book's price.
type CreateOrderInput struct {
	BookID          string             `json:"bookId"`
	DeliveryType    model.DeliveryType `json:"deliveryType"`
	DeliveryAddress model.Address      `json:"deliveryAddress"`
	PickupLocation  string             `json:"pickupLocation"`
	RequestedDate   time.Time          `json:"requestedDate"`
	Notes           string             `json:"notes"`
}

// Create places an order for a published book. The order starts pending
// with payment pending; the total amount is the book's current price.
func (s *OrderService) Create(ctx context.Context, actor *model.Account, in CreateOrderInput) (*model.Order, error) {
	if in.BookID == "" {
		return nil, apperror.ValidationFailed("bookId", "bookId is required")
	}

	book, err := s.books.GetByID(ctx, in.BookID)
	if err != nil {
		return nil, err
	}
	if book.Status != model.BookPublished {
		return nil, apperror.ValidationFailed("bookId", "this book is not available for ordering")
	}

	var violations []apperror.Violation
	switch in.DeliveryType {
	case model.DeliveryShip:
		if in.DeliveryAddress.Empty() {
			violations = append(violations, apperror.Violation{Field: "deliveryAddress", Message: "delivery address is required for delivery orders"})
		}
	case model.DeliveryPickup:
		if in.PickupLocation == "" {
			violations = append(violations, apperror.Violation{Field: "pickupLocation", Message: "pickup location is required for pickup orders"})
		}
	default:
		violations = append(violations, apperror.Violation{Field: "deliveryType", Message: "deliveryType must be delivery or pickup"})
	}
	if !in.RequestedDate.After(time.Now()) {
		violations = append(violations, apperror.Violation{Field: "requestedDate", Message: "requested date must be in the future"})
	}
	if len(violations) > 0 {
		return nil, apperror.ValidationFailedAll(violations)
	}

	now := time.Now()
	order := &model.Order{
		ID:              xid.New().String(),
		UserID:          actor.ID,
		BookID:          book.ID,
		DeliveryType:    in.DeliveryType,
		DeliveryAddress: in.DeliveryAddress,
		PickupLocation:  in.PickupLocation,
		RequestedDate:   in.RequestedDate,
		Notes:           in.Notes,
		TotalAmount:     book.Price,
		Status:          model.OrderPending,
		PaymentStatus:   model.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", order.ID, "user_id", actor.ID, "book_id", book.ID,
		"total", order.TotalAmount.String())
	return order, nil
}

// Get returns an order visible to the caller: the placing user, the
// librarian owning the ordered book, or an admin.
func (s *OrderService) Get(ctx context.Context, actor *model.Account, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := policy.Resource{OwnerID: order.UserID, BookOwnerID: s.bookOwner(ctx, order.BookID)}
	if err := authorize(actor, policy.OrderRead, res); err != nil {
		return nil, err
	}
	return order, nil
}

// ListForUser returns the orders placed by the given user.
func (s *OrderService) ListForUser(ctx context.Context, actor *model.Account, userID string) ([]model.Order, error) {
	if err := authorize(actor, policy.OrderListForUser, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	return s.orders.ListByUser(ctx, userID)
}

// ListForLibrarian returns orders placed against the librarian's books.
func (s *OrderService) ListForLibrarian(ctx context.Context, actor *model.Account, librarianID string) ([]model.Order, error) {
	if err := authorize(actor, policy.OrderListForLibrarian, policy.Resource{OwnerID: librarianID}); err != nil {
		return nil, err
	}
	return s.orders.ListByBookOwner(ctx, librarianID)
}

// UpdateStatus advances an order through the fulfilment state machine.
// Only the librarian owning the ordered book (or an admin) may call it,
// and the transition must be legal from the order's current status.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *model.Account, id string, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, apperror.ValidationFailed("status", "unknown order status")
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res := policy.Resource{
		OwnerID:     order.UserID,
		BookOwnerID: s.bookOwner(ctx, order.BookID),
		State:       string(order.Status),
	}
	if err := authorize(actor, policy.OrderTransition, res); err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, to) {
		return nil, apperror.InvalidTransition(string(order.Status), string(to))
	}
	if err := s.orders.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}

	s.logger.Info("order status changed",
		"order_id", id, "from", order.Status, "to", to, "by", actor.ID)
	order.Status = to
	order.UpdatedAt = time.Now()
	return order, nil
}

// Cancel cancels an order. The placing user may cancel while pending; the
// book's librarian may cancel up to confirmed; admins at any non-terminal
// point (the state machine still refuses shipped → cancelled for no one —
// delivered and cancelled stay terminal for admins too).
func (s *OrderService) Cancel(ctx context.Context, actor *model.Account, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res := policy.Resource{
		OwnerID:     order.UserID,
		BookOwnerID: s.bookOwner(ctx, order.BookID),
		State:       string(order.Status),
	}
	if err := authorize(actor, policy.OrderCancel, res); err != nil {
		return nil, err
	}

	if !model.CanTransition(order.Status, model.OrderCancelled) {
		return nil, apperror.InvalidTransition(string(order.Status), string(model.OrderCancelled))
	}
	if err := s.orders.SetStatus(ctx, id, model.OrderCancelled); err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "order_id", id, "by", actor.ID)
	order.Status = model.OrderCancelled
	order.UpdatedAt = time.Now()
	return order, nil
}

// ExpirePending cancels unpaid pending orders older than maxAge. The
// sweeper calls this on a schedule; it returns how many orders it
// cancelled. Individual failures are logged and skipped so one bad row
// cannot stall the sweep.
func (s *OrderService) ExpirePending(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	stale, err := s.orders.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, order := range stale {
		if err := s.orders.SetStatus(ctx, order.ID, model.OrderCancelled); err != nil {
			s.logger.Error("failed to expire stale order", "order_id", order.ID, "error", err)
			continue
		}
		cancelled++
	}
	if cancelled > 0 {
		s.logger.Info("expired stale pending orders", "count", cancelled, "cutoff", cutoff)
	}
	return cancelled, nil
}

// bookOwner resolves the owning librarian of a book for policy checks.
// A deleted book has no owner; ownership-based access simply stops
// matching then.
func (s *OrderService) bookOwner(ctx context.Context, bookID string) string {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to resolve book owner", "book_id", bookID, "error", err)
		}
		return ""
	}
	return book.OwnerID
}
