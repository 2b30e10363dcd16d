package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/payment"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// Currency every order is charged in.
const paymentCurrency = "USD"

// PaymentService bridges orders to the external payment provider:
// creating intents, reconciling confirmed transactions against orders,
// and keeping the local payment ledger.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	books    repository.BookRepository
	gateway  payment.Gateway
	logger   *slog.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	books repository.BookRepository,
	gateway payment.Gateway,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		books:    books,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateIntent asks the provider to prepare a payment for the caller's
// pending order. The amount sent to the provider is the order's stored
// total, never a client-supplied figure.
func (s *PaymentService) CreateIntent(ctx context.Context, actor *model.Account, orderID string) (*payment.Intent, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.PaymentRead, policy.Resource{OwnerID: order.UserID}); err != nil {
		return nil, err
	}
	if order.PaymentStatus == model.PaymentPaid {
		return nil, apperror.Duplicate("this order has already been paid")
	}
	if order.Status == model.OrderCancelled {
		return nil, apperror.NotEligible("cancelled orders cannot be paid")
	}

	description := "BookNest order " + order.ID
	if book, err := s.books.GetByID(ctx, order.BookID); err == nil {
		description = fmt.Sprintf("BookNest: %s by %s", book.Title, book.Author)
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Currency:      paymentCurrency,
		CustomerEmail: actor.Email,
		Description:   description,
	})
	if err != nil {
		return nil, apperror.Unavailable("payment provider", err)
	}

	s.logger.Info("payment intent created",
		"order_id", order.ID, "transaction_ref", intent.TransactionRef)
	return intent, nil
}

// Confirm reconciles a provider transaction against the caller's order.
// The transaction is re-verified with the provider; its amount must equal
// the order total and the payer email must match the account. On success
// the order is atomically marked paid (and promoted from pending to
// confirmed) and a ledger entry is recorded.
//
// Replaying a confirmation that already succeeded returns the original
// ledger entry — clients can safely retry after a timeout.
func (s *PaymentService) Confirm(ctx context.Context, actor *model.Account, orderID, transactionRef string) (*model.Payment, error) {
	if transactionRef == "" {
		return nil, apperror.ValidationFailed("transactionRef", "transactionRef is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.PaymentRead, policy.Resource{OwnerID: order.UserID}); err != nil {
		return nil, err
	}

	// Replay of an already-reconciled confirmation.
	if order.PaymentStatus == model.PaymentPaid {
		if order.TransactionRef == transactionRef {
			return s.payments.GetByTransactionRef(ctx, transactionRef)
		}
		return nil, apperror.Duplicate("this order has already been paid")
	}

	if order.Status == model.OrderCancelled {
		return nil, apperror.NotEligible("cancelled orders cannot be paid")
	}

	conf, err := s.gateway.VerifyTransaction(ctx, transactionRef)
	if err != nil {
		return nil, apperror.Unavailable("payment provider", err)
	}

	if conf.Status != model.ProviderCompleted {
		return nil, apperror.PaymentMismatch(
			fmt.Sprintf("transaction is %s, not completed", conf.Status))
	}
	if !conf.Amount.Equal(order.TotalAmount) {
		return nil, apperror.PaymentMismatch(fmt.Sprintf(
			"paid amount %s does not match order total %s",
			conf.Amount.StringFixed(2), order.TotalAmount.StringFixed(2)))
	}
	if conf.PayerEmail != "" && normalizeEmail(conf.PayerEmail) != actor.Email {
		return nil, apperror.PaymentMismatch("payer email does not match your account")
	}

	method := conf.Method
	if !method.Valid() {
		method = model.MethodStripe
	}

	entry := &model.Payment{
		ID:             xid.New().String(),
		UserID:         actor.ID,
		OrderID:        order.ID,
		Amount:         conf.Amount,
		Method:         method,
		TransactionRef: transactionRef,
		ProviderStatus: conf.Status,
		CreatedAt:      time.Now(),
	}
	if err := s.payments.Create(ctx, entry); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			// The ref was recorded by a concurrent confirm. If it was for
			// this same order and caller, treat the replay as success.
			existing, getErr := s.payments.GetByTransactionRef(ctx, transactionRef)
			if getErr == nil && existing.OrderID == order.ID && existing.UserID == actor.ID {
				return existing, nil
			}
			return nil, apperror.Duplicate("this transaction has already been applied to another order")
		}
		return nil, err
	}

	if err := s.orders.MarkPaid(ctx, order.ID, transactionRef); err != nil {
		return nil, err
	}

	s.logger.Info("payment reconciled",
		"order_id", order.ID, "transaction_ref", transactionRef,
		"amount", conf.Amount.StringFixed(2))
	return entry, nil
}

// History returns a user's payment ledger entries, newest first.
func (s *PaymentService) History(ctx context.Context, actor *model.Account, userID string) ([]model.Payment, error) {
	if err := authorize(actor, policy.PaymentRead, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	return s.payments.ListByUser(ctx, userID)
}

// Get returns a single ledger entry visible to its owner or an admin.
func (s *PaymentService) Get(ctx context.Context, actor *model.Account, id string) (*model.Payment, error) {
	entry, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.PaymentRead, policy.Resource{OwnerID: entry.UserID}); err != nil {
		return nil, err
	}
	return entry, nil
}
