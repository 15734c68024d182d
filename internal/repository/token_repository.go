package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/driftline/label-platform/internal/auth"
)

// TokenRepo is the MySQL-backed auth.RefreshStore. Rows hold only token
// hashes; expired rows are deleted rather than flagged.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Insert stores a refresh token row.
func (r *TokenRepo) Insert(ctx context.Context, rec auth.RefreshRecord) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		rec.UserID, rec.TokenHash, rec.ExpiresAt)
	return err
}

// FindByHash returns the row for a token hash, or auth.ErrRecordNotFound.
func (r *TokenRepo) FindByHash(ctx context.Context, tokenHash string) (auth.RefreshRecord, error) {
	var rec auth.RefreshRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&rec.UserID, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.RefreshRecord{}, auth.ErrRecordNotFound
		}
		return auth.RefreshRecord{}, err
	}
	return rec, nil
}

// DeleteByHash removes one token row; deleting an absent row is a no-op.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// DeleteByUser removes every token the user holds.
func (r *TokenRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}

// DeleteExpiredBefore bulk-deletes rows whose expiry precedes cutoff and
// reports how many were removed.
func (r *TokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
