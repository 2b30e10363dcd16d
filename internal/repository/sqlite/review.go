package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// ReviewRepo implements repository.ReviewRepository over SQLite. The
// UNIQUE(user_id, book_id) index is the authoritative one-review-per-pair
// guard.
type ReviewRepo struct {
	conn *sql.DB
}

var _ repository.ReviewRepository = (*ReviewRepo)(nil)

func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{conn: db.conn}
}

const reviewColumns = `id, user_id, book_id, rating, comment, created_at, updated_at`

func (r *ReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO reviews (id, user_id, book_id, rating, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.UserID,
		review.BookID,
		review.Rating,
		review.Comment,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("you have already reviewed this book")
		}
		return fmt.Errorf("sqlite: inserting review (user=%s book=%s): %w",
			review.UserID, review.BookID, err)
	}
	return nil
}

func (r *ReviewRepo) GetByID(ctx context.Context, id string) (*model.Review, error) {
	var rev model.Review
	err := r.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`, id,
	).Scan(&rev.ID, &rev.UserID, &rev.BookID, &rev.Rating, &rev.Comment,
		&rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", id)
		}
		return nil, fmt.Errorf("sqlite: getting review %s: %w", id, err)
	}
	return &rev, nil
}

func (r *ReviewRepo) GetByUserAndBook(ctx context.Context, userID, bookID string) (*model.Review, error) {
	var rev model.Review
	err := r.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	).Scan(&rev.ID, &rev.UserID, &rev.BookID, &rev.Rating, &rev.Comment,
		&rev.CreatedAt, &rev.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", bookID)
		}
		return nil, fmt.Errorf("sqlite: getting review (user=%s book=%s): %w",
			userID, bookID, err)
	}
	return &rev, nil
}

func (r *ReviewRepo) ListByBook(ctx context.Context, bookID string) ([]model.Review, error) {
	return r.list(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE book_id = ? ORDER BY created_at DESC`,
		bookID)
}

func (r *ReviewRepo) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	return r.list(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE user_id = ? ORDER BY created_at DESC`,
		userID)
}

func (r *ReviewRepo) list(ctx context.Context, query string, arg string) ([]model.Review, error) {
	rows, err := r.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rev model.Review
		if err := rows.Scan(&rev.ID, &rev.UserID, &rev.BookID, &rev.Rating,
			&rev.Comment, &rev.CreatedAt, &rev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning review: %w", err)
		}
		reviews = append(reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	return reviews, nil
}

func (r *ReviewRepo) Update(ctx context.Context, review *model.Review) error {
	review.UpdatedAt = time.Now()
	res, err := r.conn.ExecContext(ctx,
		`UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?`,
		review.Rating, review.Comment, review.UpdatedAt, review.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", review.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating review %s: %w", review.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("review", review.ID)
	}
	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("review", id)
	}
	return nil
}
