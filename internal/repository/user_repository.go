package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/utils"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, email, password_hash, display_name, role, subscription_tier, subscription_ends_at, created_at, updated_at"

// Create inserts a user with tier "none" and returns the new id.
func (r *UserRepo) Create(ctx context.Context, email, password, displayName, role string, bcryptCost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, display_name, role, subscription_tier) VALUES (?,?,?,?,'none')",
		email, hash, displayName, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetSubscription records a purchased tier and its end date. The purchase
// flow is a stub (no billing); it only mutates these two columns.
func (r *UserRepo) SetSubscription(ctx context.Context, id uint64, tier string, endsAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET subscription_tier=?, subscription_ends_at=? WHERE id=?",
		tier, endsAt, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// ClearSubscription resets the account to tier "none" with no end date,
// used by cancellation.
func (r *UserRepo) ClearSubscription(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET subscription_tier='none', subscription_ends_at=NULL WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Delete removes the account. Refresh tokens, votes and demo submissions
// go with it via ON DELETE CASCADE foreign keys.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	var endsAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role,
		&u.SubscriptionTier, &endsAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if endsAt.Valid {
		t := endsAt.Time
		u.SubscriptionEndsAt = &t
	}
	return u, nil
}

// requireRowAffected maps a zero-row result to ErrNotFound. For UPDATEs
// this depends on the clientFoundRows DSN flag: the driver must count
// rows matched, not rows changed, or a no-op update on an existing row
// would read as missing.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
