package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/todo-app/internal/database"
)

// TokenRepo persists single-use password reset tokens.  Only the SHA‑256
// hash of the emailed token is stored.
type TokenRepo struct{ db *database.DB }

func NewTokenRepo(db *database.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreReset inserts a reset token hash row.
func (r *TokenRepo) StoreReset(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"INSERT INTO password_resets (token_hash, user_id, expires_at, created_at) VALUES (?,?,?,?)"),
		tokenHash, userID, exp.UTC(), time.Now().UTC())
	return err
}

// ValidateReset returns the userID if an unused, non-expired token exists.
func (r *TokenRepo) ValidateReset(ctx context.Context, tokenHash string) (string, error) {
	return r.validate(ctx, r.db, tokenHash)
}

// ConsumeReset validates the token and marks it used in one transaction,
// so a token can never be redeemed twice.
func (r *TokenRepo) ConsumeReset(ctx context.Context, tokenHash string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer rollback(tx)

	userID, err := r.validate(ctx, tx, tokenHash)
	if err != nil {
		return "", err
	}
	res, err := tx.ExecContext(ctx, r.db.Rebind(
		"UPDATE password_resets SET used_at = ? WHERE token_hash = ? AND used_at IS NULL"),
		time.Now().UTC(), tokenHash)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return "", ErrResetTokenInvalid
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return userID, nil
}

// RevokeAllForUser marks every outstanding reset token of the user as used.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE password_resets SET used_at = ? WHERE user_id = ? AND used_at IS NULL"),
		time.Now().UTC(), userID)
	return err
}

func (r *TokenRepo) validate(ctx context.Context, q queryer, tokenHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err := q.QueryRowContext(ctx, r.db.Rebind(
		"SELECT user_id, expires_at, used_at FROM password_resets WHERE token_hash = ? LIMIT 1"),
		tokenHash).Scan(&userID, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrResetTokenInvalid
		}
		return "", err
	}
	if usedAt.Valid {
		return "", ErrResetTokenInvalid
	}
	if time.Now().UTC().After(expiresAt) {
		return "", ErrResetTokenInvalid
	}
	return userID, nil
}
