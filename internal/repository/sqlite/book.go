package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// BookRepo implements repository.BookRepository over SQLite.
type BookRepo struct {
	conn *sql.DB
}

var _ repository.BookRepository = (*BookRepo)(nil)

func NewBookRepo(db *DB) *BookRepo {
	return &BookRepo{conn: db.conn}
}

const bookColumns = `id, title, author, description, category, price, isbn,
	publisher, pages, language, cover_image_url, status, owner_id, rating,
	review_count, created_at, updated_at`

func (r *BookRepo) Create(ctx context.Context, book *model.Book) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO books (id, title, author, description, category, price, isbn,
			publisher, pages, language, cover_image_url, status, owner_id, rating,
			review_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		book.Author,
		book.Description,
		book.Category,
		book.Price.String(),
		book.ISBN,
		book.Publisher,
		nullableInt(book.Pages),
		book.Language,
		book.CoverImageURL,
		book.Status,
		book.OwnerID,
		book.Rating,
		book.ReviewCount,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting book %q: %w", book.Title, err)
	}
	return nil
}

func (r *BookRepo) GetByID(ctx context.Context, id string) (*model.Book, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)

	book, err := scanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("book", id)
		}
		return nil, fmt.Errorf("sqlite: getting book %s: %w", id, err)
	}
	return book, nil
}

// List applies the filter in SQL. Search is a case-insensitive substring
// match over title and author; the default ordering is newest first.
func (r *BookRepo) List(ctx context.Context, filter repository.BookFilter) ([]model.Book, error) {
	var (
		where []string
		args  []any
	)

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, `(LOWER(title) LIKE ? OR LOWER(author) LIKE ?)`)
		args = append(args, like, like)
	}
	if filter.Category != "" {
		where = append(where, `category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		where = append(where, `owner_id = ?`)
		args = append(args, filter.OwnerID)
	}

	query := `SELECT ` + bookColumns + ` FROM books`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY ` + orderClause(filter.Sort)

	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		book, err := scanBook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	return books, nil
}

func orderClause(sort repository.BookSort) string {
	switch sort {
	case repository.SortOldest:
		return `created_at ASC`
	case repository.SortTitle:
		return `LOWER(title) ASC`
	case repository.SortPriceAsc:
		return `CAST(price AS REAL) ASC`
	case repository.SortPriceDesc:
		return `CAST(price AS REAL) DESC`
	default:
		return `created_at DESC`
	}
}

func (r *BookRepo) Update(ctx context.Context, book *model.Book) error {
	book.UpdatedAt = time.Now()
	res, err := r.conn.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, description = ?, category = ?,
			price = ?, isbn = ?, publisher = ?, pages = ?, language = ?,
			cover_image_url = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		book.Title,
		book.Author,
		book.Description,
		book.Category,
		book.Price.String(),
		book.ISBN,
		book.Publisher,
		nullableInt(book.Pages),
		book.Language,
		book.CoverImageURL,
		book.Status,
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating book %s: %w", book.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating book %s: %w", book.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("book", book.ID)
	}
	return nil
}

func (r *BookRepo) Delete(ctx context.Context, id string) error {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting book %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting book %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("book", id)
	}
	return nil
}

// SetRating writes the derived rating fields in a single atomic update.
func (r *BookRepo) SetRating(ctx context.Context, bookID string, rating float64, reviewCount int) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE books SET rating = ?, review_count = ?, updated_at = ? WHERE id = ?`,
		rating, reviewCount, time.Now(), bookID)
	if err != nil {
		return fmt.Errorf("sqlite: setting rating for book %s: %w", bookID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting rating for book %s: %w", bookID, err)
	}
	if n == 0 {
		return apperror.NotFound("book", bookID)
	}
	return nil
}

// scanBook reads one book row. It takes the Scan function so the same code
// serves both QueryRow and Rows.
func scanBook(scan func(...any) error) (*model.Book, error) {
	return scanBookAfter(scan)
}

// scanBookAfter scans any leading destinations first and a full book row
// after them. Used by joins that select other columns ahead of the book's.
func scanBookAfter(scan func(...any) error, leading ...any) (*model.Book, error) {
	var (
		b     model.Book
		price string
		pages sql.NullInt64
	)
	dest := append(leading,
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Description,
		&b.Category,
		&price,
		&b.ISBN,
		&b.Publisher,
		&pages,
		&b.Language,
		&b.CoverImageURL,
		&b.Status,
		&b.OwnerID,
		&b.Rating,
		&b.ReviewCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err := scan(dest...); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing stored price %q: %w", price, err)
	}
	b.Price = parsed
	b.Pages = int(pages.Int64)
	return &b, nil
}

// prefixedBookColumns qualifies every book column with a table alias, for
// joined selects.
func prefixedBookColumns(alias string) string {
	cols := strings.Split(bookColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
