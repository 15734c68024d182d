// Package model holds the persistence-layer structs mirroring the MySQL
// schema. Handlers define their own response types; nothing here is
// serialized to clients directly.
package model

import "time"

// User mirrors the `users` table. Role and subscription tier are
// independent columns: the role says what the account is (ADMIN, ARTIST,
// PREMIUM, FREE), the tier what it currently pays for (none/lite/fan/pro).
// SubscriptionEndsAt is not cleared when a subscription lapses; the access
// layer collapses lapsed tiers at read time.
type User struct {
	ID                 uint64     // users.id
	Email              string     // users.email (unique, lowercased)
	PasswordHash       string     // users.password_hash (bcrypt)
	DisplayName        string     // users.display_name
	Role               string     // users.role
	SubscriptionTier   string     // users.subscription_tier
	SubscriptionEndsAt *time.Time // users.subscription_ends_at (nullable)
	CreatedAt          time.Time  // users.created_at
	UpdatedAt          time.Time  // users.updated_at
}

// RefreshToken mirrors the `refresh_tokens` table. Only the SHA-256 hex
// digest of the raw token is stored. Rows are deleted on logout, on lazy
// expiry eviction, and by the periodic sweep; there is no revoked flag.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	UserID    uint64    // refresh_tokens.user_id
	TokenHash string    // refresh_tokens.token_hash
	ExpiresAt time.Time // refresh_tokens.expires_at
	CreatedAt time.Time // refresh_tokens.created_at
}
