package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/repository"
)

// AccountRepo implements repository.AccountRepository over SQLite.
type AccountRepo struct {
	conn *sql.DB
}

var _ repository.AccountRepository = (*AccountRepo)(nil)

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{conn: db.conn}
}

const accountColumns = `id, name, email, password_hash, photo_url, role,
	auth_provider, external_subject_id, created_at, last_login_at`

func (r *AccountRepo) Create(ctx context.Context, account *model.Account) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, password_hash, photo_url, role,
			auth_provider, external_subject_id, created_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.PhotoURL,
		account.Role,
		account.AuthProvider,
		nullable(account.ExternalSubjectID),
		account.CreatedAt,
		account.LastLoginAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("an account already exists with this email")
		}
		return fmt.Errorf("sqlite: inserting account (email=%s): %w", account.Email, err)
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (r *AccountRepo) GetByExternalSubject(ctx context.Context, subjectID string) (*model.Account, error) {
	return r.getAccount(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_subject_id = ?`, subjectID)
}

func (r *AccountRepo) getAccount(ctx context.Context, query, arg string) (*model.Account, error) {
	var (
		a       model.Account
		subject sql.NullString
	)
	err := r.conn.QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.PhotoURL,
		&a.Role,
		&a.AuthProvider,
		&subject,
		&a.CreatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", arg)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", arg, err)
	}
	a.ExternalSubjectID = subject.String
	return &a, nil
}

func (r *AccountRepo) Update(ctx context.Context, account *model.Account) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE accounts SET name = ?, photo_url = ?, role = ?,
			external_subject_id = ?, last_login_at = ?
		 WHERE id = ?`,
		account.Name,
		account.PhotoURL,
		account.Role,
		nullable(account.ExternalSubjectID),
		account.LastLoginAt,
		account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("external identity is already linked to another account")
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("account", account.ID)
	}
	return nil
}

func (r *AccountRepo) List(ctx context.Context) ([]model.Account, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var (
			a       model.Account
			subject sql.NullString
		)
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.PhotoURL, &a.Role,
			&a.AuthProvider, &subject, &a.CreatedAt, &a.LastLoginAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning account: %w", err)
		}
		a.ExternalSubjectID = subject.String
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	return accounts, nil
}

// nullable maps "" to NULL so the partial unique index on
// external_subject_id ignores accounts without one.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
