package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"maintline/internal/domain"
)

// Directory resolves user ids to users.
type Directory interface {
	LookupUser(ctx context.Context, id string) (domain.User, error)
}

const userColumns = `id,name,email,password_hash,role,created_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// InsertUser stores a user; a duplicate email yields ErrConflict.
func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?)`,
		u.ID, u.Name, normalizeEmail(u.Email), u.PasswordHash, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s already registered: %w", u.Email, domain.ErrConflict)
	}
	return err
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	u, err := scanUser(r.conn(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
	if errors.Is(err, ErrNotFound) {
		return u, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, err
}

// LookupUser implements Directory.
func (r Repo) LookupUser(ctx context.Context, id string) (domain.User, error) {
	return r.GetUser(ctx, nil, id)
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, normalizeEmail(email)))
	if errors.Is(err, ErrNotFound) {
		return u, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	return u, err
}

// ListUsers returns users ordered by name, optionally filtered by role.
func (r Repo) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role=?`
		args = append(args, role)
	}
	query += ` ORDER BY name, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) CountUsers(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	err := r.conn(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
