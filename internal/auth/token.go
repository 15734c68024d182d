package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshTokenBytes is the entropy of a refresh token. 64 random bytes
// render as a 128-character hex string; predictability here would break
// the whole session model, so only crypto/rand is acceptable.
const refreshTokenBytes = 64

var (
	// ErrInvalidAccess covers malformed, badly signed and expired access
	// tokens alike. Callers must treat the credential as absent and fall
	// back to the refresh flow or full re-authentication.
	ErrInvalidAccess = errors.New("invalid access token")

	// ErrInvalidRefresh is returned for refresh tokens that are unknown or
	// past expiry. The two cases are deliberately indistinguishable so a
	// caller cannot probe whether a token ever existed. Store I/O failures
	// are NOT mapped to this error; they surface wrapped so callers do not
	// log a user out over a transient database problem.
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

// RefreshRecord is a stored refresh-token row. Only the SHA-256 digest of
// the raw token is persisted; a leaked table does not yield usable tokens.
type RefreshRecord struct {
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshStore is the persistence collaborator for refresh tokens. The
// production implementation lives in internal/repository; tests use an
// in-memory fake.
type RefreshStore interface {
	Insert(ctx context.Context, rec RefreshRecord) error
	FindByHash(ctx context.Context, tokenHash string) (RefreshRecord, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteByUser(ctx context.Context, userID uint64) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrRecordNotFound is returned by RefreshStore implementations when no
// row matches; the service maps it to ErrInvalidRefresh.
var ErrRecordNotFound = errors.New("refresh token record not found")

// AccessToken is a signed JWT plus its expiry, returned to clients in the
// login/refresh responses.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires"`
}

// RefreshToken carries the raw opaque token back to the client. The raw
// value exists only in this struct and on the wire, never in storage.
type RefreshToken struct {
	Raw string    `json:"token"`
	Exp time.Time `json:"expires"`
}

// Claims is the decoded payload of a verified access token.
type Claims struct {
	UserID uint64
	Email  string
}

// TokenService mints, verifies and revokes both credential types and hides
// the persistence layer from callers. It is safe for concurrent use: the
// secret is read-only after construction and all state lives in the store.
type TokenService struct {
	secret     []byte
	store      RefreshStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService builds a TokenService. accessTTL and refreshTTL fall back
// to the platform defaults (15 minutes, 7 days) when non-positive.
func NewTokenService(secret string, store RefreshStore, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IssueAccess signs an HS256 JWT for the user. Claims are sub, optional
// email, exp and iat. No role or tier goes in: authorization state is
// re-read from the user store on every request so changes apply without
// waiting out the token window.
func (s *TokenService) IssueAccess(userID uint64, email string) (AccessToken, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// VerifyAccess checks signature and expiry and returns the claims. Any
// defect (wrong algorithm, bad signature, garbage input, expiry) comes
// back as ErrInvalidAccess.
func (s *TokenService) VerifyAccess(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAccess
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidAccess
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidAccess
	}
	var c Claims
	switch sub := mc["sub"].(type) {
	case float64:
		c.UserID = uint64(sub)
	default:
		return Claims{}, ErrInvalidAccess
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	return c, nil
}

// IssueRefresh generates a fresh opaque token, persists its hash and
// returns the raw value. A user may hold several live refresh tokens at
// once (one per device/session).
func (s *TokenService) IssueRefresh(ctx context.Context, userID uint64) (RefreshToken, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	exp := s.now().Add(s.refreshTTL)
	rec := RefreshRecord{
		UserID:    userID,
		TokenHash: HashRefreshRaw(raw),
		ExpiresAt: exp,
		CreatedAt: s.now(),
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return RefreshToken{}, fmt.Errorf("store refresh token: %w", err)
	}
	return RefreshToken{Raw: raw, Exp: exp}, nil
}

// VerifyRefresh resolves a raw refresh token to its owning user id. An
// expired row is deleted on the spot (lazy eviction; the periodic sweep is
// hygiene, not a correctness requirement) and reported as invalid. The
// token is not consumed on success: refresh tokens stay valid until logout
// or natural expiry.
func (s *TokenService) VerifyRefresh(ctx context.Context, raw string) (uint64, error) {
	rec, err := s.store.FindByHash(ctx, HashRefreshRaw(raw))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return 0, ErrInvalidRefresh
		}
		return 0, fmt.Errorf("lookup refresh token: %w", err)
	}
	if rec.ExpiresAt.Before(s.now()) {
		_ = s.store.DeleteByHash(ctx, rec.TokenHash)
		return 0, ErrInvalidRefresh
	}
	return rec.UserID, nil
}

// RevokeRefresh deletes a single refresh token. Revoking a token that does
// not exist is not an error; logout must be idempotent.
func (s *TokenService) RevokeRefresh(ctx context.Context, raw string) error {
	if err := s.store.DeleteByHash(ctx, HashRefreshRaw(raw)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll deletes every refresh token the user holds ("log out
// everywhere").
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
	if err := s.store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// SweepExpired bulk-deletes rows past expiry and reports how many went.
// Run from a periodic job; lazy eviction in VerifyRefresh already keeps
// the service correct without it.
func (s *TokenService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep refresh tokens: %w", err)
	}
	return n, nil
}

// AccessTTL exposes the configured access-token lifetime (clients surface
// it in session UIs).
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// HashRefreshRaw returns the hex SHA-256 digest under which a raw refresh
// token is stored.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
