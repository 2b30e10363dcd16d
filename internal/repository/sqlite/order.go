package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// OrderRepo implements repository.OrderRepository over SQLite.
type OrderRepo struct {
	conn *sql.DB
}

var _ repository.OrderRepository = (*OrderRepo)(nil)

func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{conn: db.conn}
}

const orderColumns = `id, user_id, book_id, delivery_type, delivery_address,
	pickup_location, requested_date, notes, total_amount, status,
	payment_status, transaction_ref, created_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, order *model.Order) error {
	address := ""
	if !order.DeliveryAddress.Empty() {
		raw, err := json.Marshal(order.DeliveryAddress)
		if err != nil {
			return fmt.Errorf("sqlite: encoding delivery address: %w", err)
		}
		address = string(raw)
	}

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, book_id, delivery_type, delivery_address,
			pickup_location, requested_date, notes, total_amount, status,
			payment_status, transaction_ref, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.UserID,
		order.BookID,
		order.DeliveryType,
		address,
		order.PickupLocation,
		order.RequestedDate,
		order.Notes,
		order.TotalAmount.String(),
		order.Status,
		order.PaymentStatus,
		nullable(order.TransactionRef),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting order (user=%s book=%s): %w",
			order.UserID, order.BookID, err)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)

	order, err := scanOrder(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("order", id)
		}
		return nil, fmt.Errorf("sqlite: getting order %s: %w", id, err)
	}
	return order, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

func (r *OrderRepo) ListByBookOwner(ctx context.Context, ownerID string) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE book_id IN (SELECT id FROM books WHERE owner_id = ?)
		 ORDER BY created_at DESC`,
		ownerID)
}

func (r *OrderRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]model.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = ? AND payment_status = ? AND created_at < ?
		 ORDER BY created_at ASC`,
		model.OrderPending, model.PaymentPending, cutoff)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepo) SetStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: setting order %s status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting order %s status: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("order", id)
	}
	return nil
}

// MarkPaid applies the whole payment side-effect as one atomic statement:
// paymentStatus=paid, the transaction ref recorded, and a pending order
// promoted to confirmed. Non-pending orders keep their fulfilment status.
func (r *OrderRepo) MarkPaid(ctx context.Context, id, transactionRef string) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE orders SET
			payment_status = ?,
			transaction_ref = ?,
			status = CASE WHEN status = ? THEN ? ELSE status END,
			updated_at = ?
		 WHERE id = ?`,
		model.PaymentPaid,
		transactionRef,
		model.OrderPending,
		model.OrderConfirmed,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: marking order %s paid: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: marking order %s paid: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("order", id)
	}
	return nil
}

func (r *OrderRepo) FindDelivered(ctx context.Context, userID, bookID string) (*model.Order, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE user_id = ? AND book_id = ? AND status = ?
		 LIMIT 1`,
		userID, bookID, model.OrderDelivered)

	order, err := scanOrder(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("delivered order", bookID)
		}
		return nil, fmt.Errorf("sqlite: finding delivered order (user=%s book=%s): %w",
			userID, bookID, err)
	}
	return order, nil
}

func scanOrder(scan func(...any) error) (*model.Order, error) {
	var (
		o       model.Order
		address string
		amount  string
		txRef   sql.NullString
	)
	if err := scan(
		&o.ID,
		&o.UserID,
		&o.BookID,
		&o.DeliveryType,
		&address,
		&o.PickupLocation,
		&o.RequestedDate,
		&o.Notes,
		&amount,
		&o.Status,
		&o.PaymentStatus,
		&txRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if address != "" {
		if err := json.Unmarshal([]byte(address), &o.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("decoding stored delivery address: %w", err)
		}
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing stored total amount %q: %w", amount, err)
	}
	o.TotalAmount = parsed
	o.TransactionRef = txRef.String
	return &o, nil
}
