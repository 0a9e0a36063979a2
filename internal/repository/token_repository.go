package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens.  refresh_tokens.user_id is the
// primary key, so a user has at most one live record.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// UpsertRefresh stores tokenHash as the user's only refresh token.  It is a
// single insert-or-update statement so concurrent refreshes for the same
// user serialize on the row lock instead of racing a read-then-write.
func (r *TokenRepo) UpsertRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE token_hash = VALUES(token_hash), expires_at = VALUES(expires_at)`,
		userID, tokenHash, exp.UTC())
	return translate(err, ErrDuplicate)
}

// RotateRefresh replaces the user's refresh token only if the stored hash
// is still oldHash.  It returns ErrNotFound when nothing matched: the
// token was already rotated, or the user logged out.  The DSN sets
// clientFoundRows, so a match always counts as one row.
func (r *TokenRepo) RotateRefresh(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET token_hash = ?, expires_at = ? WHERE user_id = ? AND token_hash = ?",
		newHash, exp.UTC(), userID, oldHash)
	return affected(res, err)
}

// DeleteForUser removes the user's refresh token record, if any.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id = ?", userID)
	return err
}
