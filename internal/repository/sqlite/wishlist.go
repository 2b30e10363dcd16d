package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// WishlistRepo implements repository.WishlistRepository over SQLite.
type WishlistRepo struct {
	conn *sql.DB
}

var _ repository.WishlistRepository = (*WishlistRepo)(nil)

func NewWishlistRepo(db *DB) *WishlistRepo {
	return &WishlistRepo{conn: db.conn}
}

func (r *WishlistRepo) Add(ctx context.Context, item *model.WishlistItem) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO wishlist_items (id, user_id, book_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		item.ID, item.UserID, item.BookID, item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("book is already in your wishlist")
		}
		return fmt.Errorf("sqlite: inserting wishlist item (user=%s book=%s): %w",
			item.UserID, item.BookID, err)
	}
	return nil
}

func (r *WishlistRepo) GetByID(ctx context.Context, id string) (*model.WishlistItem, error) {
	var item model.WishlistItem
	err := r.conn.QueryRowContext(ctx,
		`SELECT id, user_id, book_id, created_at FROM wishlist_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.UserID, &item.BookID, &item.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("wishlist item", id)
		}
		return nil, fmt.Errorf("sqlite: getting wishlist item %s: %w", id, err)
	}
	return &item, nil
}

// ListByUser returns the user's wishlist with each entry's book attached.
// The INNER JOIN drops entries whose book has been deleted since they were
// added — referential drift is tolerated, not reported.
func (r *WishlistRepo) ListByUser(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT w.id, w.user_id, w.book_id, w.created_at, `+prefixedBookColumns("b")+`
		 FROM wishlist_items w
		 JOIN books b ON b.id = w.book_id
		 WHERE w.user_id = ?
		 ORDER BY w.created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing wishlist for user %s: %w", userID, err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var item model.WishlistItem
		book, err := scanBookAfter(rows.Scan, &item.ID, &item.UserID, &item.BookID, &item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning wishlist item: %w", err)
		}
		item.Book = book
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing wishlist for user %s: %w", userID, err)
	}
	return items, nil
}

func (r *WishlistRepo) Delete(ctx context.Context, id string) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM wishlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting wishlist item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting wishlist item %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("wishlist item", id)
	}
	return nil
}
