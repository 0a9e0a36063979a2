package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/gym-server/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// applyUserPatch writes the validated fields of p to the user row.  The
// caller has already rejected id changes and restricted fields for
// non-admins.
func applyUserPatch(ctx context.Context, tx *sql.Tx, userID uint64, p *model.UserPatch) error {
	if p == nil {
		return nil
	}
	var sets []string
	var args []any
	if p.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *p.FirstName)
	}
	if p.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *p.LastName)
	}
	if p.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, NormalizeEmail(*p.Email))
	}
	if p.PasswordHash != "" {
		sets = append(sets, "password_hash = ?")
		args = append(args, p.PasswordHash)
	}
	if p.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *p.Role)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = CURRENT_DATE")
	args = append(args, userID)
	_, err := tx.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	return translate(err, ErrEmailExists)
}

// replaceLinks rewrites a profile's many-to-many link table.
func replaceLinks(ctx context.Context, tx *sql.Tx, table, column string, profileID uint64, ids []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile_id = ?", profileID); err != nil {
		return err
	}
	for _, id := range dedupe(ids) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (profile_id, "+column+") VALUES (?, ?)", profileID, id); err != nil {
			return translate(err, ErrDuplicate)
		}
	}
	return nil
}

func deactivateUser(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET is_active = FALSE, updated_at = CURRENT_DATE WHERE id = ?", userID)
	return err
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// whereBuilder accumulates AND-ed list filter clauses.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// commonProfileFilters adds the filters shared by both profile kinds.
func commonProfileFilters(w *whereBuilder, f model.ProfileFilter) {
	if f.CreatedAfter != nil {
		w.add("u.created_at > ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		w.add("u.created_at < ?", *f.CreatedBefore)
	}
}

func likeContains(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
