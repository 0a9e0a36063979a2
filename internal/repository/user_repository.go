package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/gym-server/internal/model"
)

const userColumns = "u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role, u.is_active, u.is_staff, u.is_superuser, u.created_at, u.updated_at"

func userDest(u *model.User) []any {
	return []any{&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.IsStaff, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt}
}

// UserRepo is the user half of the credential store.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u and fills its ID and timestamps.  A taken email
// yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, role, is_active, is_staff, is_superuser)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role, u.IsActive, u.IsStaff, u.IsSuperuser)
	if err != nil {
		return translate(err, ErrEmailExists)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM users WHERE id = ?", u.ID).Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.email = ? LIMIT 1",
		NormalizeEmail(email)).Scan(userDest(&u)...)
	return u, translate(err, ErrDuplicate)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u WHERE u.id = ? LIMIT 1", id).Scan(userDest(&u)...)
	return u, translate(err, ErrDuplicate)
}

// SetActive flips users.is_active.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_active = ?, updated_at = CURRENT_DATE WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// usersByIDs loads users in id order; used for staff client lists.
func usersByIDs(ctx context.Context, q querier, query string, args ...any) ([]model.User, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(userDest(&u)...); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
