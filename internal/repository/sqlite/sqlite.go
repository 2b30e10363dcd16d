// Package sqlite implements the repository interfaces using SQLite as the
// storage backend (modernc.org/sqlite — pure Go, no CGo).
//
// The uniqueness invariants the services depend on live here as unique
// indexes: accounts.email, accounts.external_subject_id (when present),
// reviews(user_id, book_id), wishlist_items(user_id, book_id), and
// payments.transaction_ref. Two concurrent writers racing past an
// application-level pre-check both land on the index, and the loser's
// constraint violation is translated to apperror.ErrDuplicate so callers
// see one consistent error either way.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces declared in the parent package.
type DB struct {
	conn *sql.DB
}

// New opens a SQLite database at dbPath (":memory:" for tests), applies
// pragmas, and runs migrations.
//
// WAL mode allows concurrent reads while a write is in flight, which
// matters for a web server where many requests hit the store at once.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying pool for callers that need raw SQL, such
// as test fixtures.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps this safe to
// run on every start.
//
// book_id columns in orders, reviews, and wishlist_items deliberately have
// no foreign key: books can be deleted by an admin, and the rows that
// referenced them outlive the book (wishlist listings silently skip them,
// orders keep their history).
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id                  TEXT PRIMARY KEY,
			name                TEXT NOT NULL,
			email               TEXT NOT NULL UNIQUE,
			password_hash       TEXT NOT NULL DEFAULT '',
			photo_url           TEXT NOT NULL DEFAULT '',
			role                TEXT NOT NULL DEFAULT 'user',
			auth_provider       TEXT NOT NULL DEFAULT 'local',
			external_subject_id TEXT,
			created_at          DATETIME NOT NULL,
			last_login_at       DATETIME NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_external_subject
			ON accounts(external_subject_id) WHERE external_subject_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS books (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			author          TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			category        TEXT NOT NULL,
			price           TEXT NOT NULL,
			isbn            TEXT NOT NULL DEFAULT '',
			publisher       TEXT NOT NULL DEFAULT '',
			pages           INTEGER,
			language        TEXT NOT NULL DEFAULT 'English',
			cover_image_url TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'draft',
			owner_id        TEXT NOT NULL REFERENCES accounts(id),
			rating          REAL NOT NULL DEFAULT 0,
			review_count    INTEGER NOT NULL DEFAULT 0,
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_books_status ON books(status);
		CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating books table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES accounts(id),
			book_id          TEXT NOT NULL,
			delivery_type    TEXT NOT NULL,
			delivery_address TEXT NOT NULL DEFAULT '',
			pickup_location  TEXT NOT NULL DEFAULT '',
			requested_date   DATETIME NOT NULL,
			notes            TEXT NOT NULL DEFAULT '',
			total_amount     TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			payment_status   TEXT NOT NULL DEFAULT 'pending',
			transaction_ref  TEXT,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
		CREATE INDEX IF NOT EXISTS idx_orders_book ON orders(book_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, payment_status);
	`)
	if err != nil {
		return fmt.Errorf("creating orders table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS reviews (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES accounts(id),
			book_id    TEXT NOT NULL,
			rating     INTEGER NOT NULL,
			comment    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(user_id, book_id)
		);
		CREATE INDEX IF NOT EXISTS idx_reviews_book ON reviews(book_id);
	`)
	if err != nil {
		return fmt.Errorf("creating reviews table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS wishlist_items (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES accounts(id),
			book_id    TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE(user_id, book_id)
		);
		CREATE INDEX IF NOT EXISTS idx_wishlist_user ON wishlist_items(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating wishlist_items table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS payments (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES accounts(id),
			order_id        TEXT NOT NULL,
			amount          TEXT NOT NULL,
			method          TEXT NOT NULL,
			transaction_ref TEXT NOT NULL UNIQUE,
			provider_status TEXT NOT NULL,
			created_at      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating payments table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-index
// violation. This is the storage-level half of duplicate detection — the
// single source of truth when two writers race.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
