package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// PaymentRepo implements repository.PaymentRepository over SQLite. The
// unique index on transaction_ref is what makes confirmation replays
// detectable.
type PaymentRepo struct {
	conn *sql.DB
}

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

func NewPaymentRepo(db *DB) *PaymentRepo {
	return &PaymentRepo{conn: db.conn}
}

const paymentColumns = `id, user_id, order_id, amount, method, transaction_ref,
	provider_status, created_at`

func (r *PaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, order_id, amount, method,
			transaction_ref, provider_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		payment.OrderID,
		payment.Amount.String(),
		payment.Method,
		payment.TransactionRef,
		payment.ProviderStatus,
		payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("transaction has already been recorded")
		}
		return fmt.Errorf("sqlite: inserting payment (ref=%s): %w", payment.TransactionRef, err)
	}
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *PaymentRepo) GetByTransactionRef(ctx context.Context, ref string) (*model.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_ref = ?`, ref)
}

func (r *PaymentRepo) get(ctx context.Context, query, arg string) (*model.Payment, error) {
	var (
		p      model.Payment
		amount string
	)
	err := r.conn.QueryRowContext(ctx, query, arg).Scan(
		&p.ID, &p.UserID, &p.OrderID, &amount, &p.Method,
		&p.TransactionRef, &p.ProviderStatus, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("payment", arg)
		}
		return nil, fmt.Errorf("sqlite: getting payment %s: %w", arg, err)
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parsing stored payment amount %q: %w", amount, err)
	}
	p.Amount = parsed
	return &p, nil
}

func (r *PaymentRepo) ListByUser(ctx context.Context, userID string) ([]model.Payment, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		var (
			p      model.Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.OrderID, &amount, &p.Method,
			&p.TransactionRef, &p.ProviderStatus, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning payment: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parsing stored payment amount %q: %w", amount, err)
		}
		p.Amount = parsed
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing payments for user %s: %w", userID, err)
	}
	return payments, nil
}
