package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRefreshStore is an in-memory RefreshStore keyed by token hash.
type fakeRefreshStore struct {
	mu   sync.Mutex
	rows map[string]RefreshRecord
	err  error // when set, every call fails with it
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{rows: make(map[string]RefreshRecord)}
}

func (f *fakeRefreshStore) Insert(_ context.Context, rec RefreshRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[rec.TokenHash] = rec
	return nil
}

func (f *fakeRefreshStore) FindByHash(_ context.Context, hash string) (RefreshRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return RefreshRecord{}, f.err
	}
	rec, ok := f.rows[hash]
	if !ok {
		return RefreshRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (f *fakeRefreshStore) DeleteByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	delete(f.rows, hash)
	return nil
}

func (f *fakeRefreshStore) DeleteByUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for h, rec := range f.rows {
		if rec.UserID == userID {
			delete(f.rows, h)
		}
	}
	return nil
}

func (f *fakeRefreshStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for h, rec := range f.rows {
		if rec.ExpiresAt.Before(cutoff) {
			delete(f.rows, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeRefreshStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newTestService(store RefreshStore) (*TokenService, *time.Time) {
	ts := NewTokenService("test-secret", store, 15*time.Minute, 7*24*time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	ts.now = func() time.Time { return *clock }
	return ts, clock
}

func TestIssueRefreshShape(t *testing.T) {
	store := newFakeRefreshStore()
	ts, _ := newTestService(store)

	ref, err := ts.IssueRefresh(context.Background(), 123)
	require.NoError(t, err)
	// 64 random bytes rendered as hex.
	assert.Len(t, ref.Raw, 128)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{128}$`), ref.Raw)
	// Only the hash reaches storage.
	assert.Equal(t, 1, store.count())
	_, err = store.FindByHash(context.Background(), ref.Raw)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = store.FindByHash(context.Background(), HashRefreshRaw(ref.Raw))
	assert.NoError(t, err)
}

func TestRefreshRoundTrip(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())

	ref, err := ts.IssueRefresh(context.Background(), 42)
	require.NoError(t, err)

	uid, err := ts.VerifyRefresh(context.Background(), ref.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)

	// Not consumed: verifying again still works.
	uid, err = ts.VerifyRefresh(context.Background(), ref.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestVerifyRefreshUnknownToken(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())

	// A well-formed but never-issued token is indistinguishable from any
	// other invalid one.
	bogus := HashRefreshRaw("nope") + HashRefreshRaw("still nope")
	require.Len(t, bogus, 128)
	_, err := ts.VerifyRefresh(context.Background(), bogus)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestVerifyRefreshExpiryEvictsRow(t *testing.T) {
	store := newFakeRefreshStore()
	ts, clock := newTestService(store)

	ref, err := ts.IssueRefresh(context.Background(), 9)
	require.NoError(t, err)

	*clock = clock.Add(7*24*time.Hour + time.Second)

	_, err = ts.VerifyRefresh(context.Background(), ref.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	// Lazy eviction: the row is gone after the failed verify.
	assert.Equal(t, 0, store.count())
}

func TestRevokeRefreshIdempotent(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())

	ref, err := ts.IssueRefresh(context.Background(), 5)
	require.NoError(t, err)

	require.NoError(t, ts.RevokeRefresh(context.Background(), ref.Raw))
	require.NoError(t, ts.RevokeRefresh(context.Background(), ref.Raw))

	_, err = ts.VerifyRefresh(context.Background(), ref.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRevokeAllDropsEverySession(t *testing.T) {
	store := newFakeRefreshStore()
	ts, _ := newTestService(store)

	var mine []string
	for i := 0; i < 3; i++ {
		ref, err := ts.IssueRefresh(context.Background(), 11)
		require.NoError(t, err)
		mine = append(mine, ref.Raw)
	}
	other, err := ts.IssueRefresh(context.Background(), 12)
	require.NoError(t, err)

	require.NoError(t, ts.RevokeAll(context.Background(), 11))

	for _, raw := range mine {
		_, err := ts.VerifyRefresh(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	}
	uid, err := ts.VerifyRefresh(context.Background(), other.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), uid)
}

func TestSweepExpired(t *testing.T) {
	store := newFakeRefreshStore()
	ts, clock := newTestService(store)

	old1, err := ts.IssueRefresh(context.Background(), 1)
	require.NoError(t, err)
	_, err = ts.IssueRefresh(context.Background(), 2)
	require.NoError(t, err)

	*clock = clock.Add(3 * 24 * time.Hour)
	fresh, err := ts.IssueRefresh(context.Background(), 3)
	require.NoError(t, err)

	*clock = clock.Add(4*24*time.Hour + time.Minute)
	n, err := ts.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = ts.VerifyRefresh(context.Background(), old1.Raw)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
	uid, err := ts.VerifyRefresh(context.Background(), fresh.Raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), uid)
}

func TestStoreFailureIsNotInvalid(t *testing.T) {
	store := newFakeRefreshStore()
	ts, _ := newTestService(store)

	ref, err := ts.IssueRefresh(context.Background(), 8)
	require.NoError(t, err)

	boom := errors.New("connection refused")
	store.err = boom

	// A persistence failure must not masquerade as an invalid token; the
	// caller would otherwise log out a user holding a perfectly good one.
	_, err = ts.VerifyRefresh(context.Background(), ref.Raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRefresh)
	assert.ErrorIs(t, err, boom)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())

	at, err := ts.IssueAccess(77, "fan@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, at.Token)

	claims, err := ts.VerifyAccess(at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), claims.UserID)
	assert.Equal(t, "fan@example.com", claims.Email)
}

func TestAccessTokenOptionalEmail(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())

	at, err := ts.IssueAccess(5, "")
	require.NoError(t, err)
	claims, err := ts.VerifyAccess(at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), claims.UserID)
	assert.Empty(t, claims.Email)
}

func TestAccessTokenExpiry(t *testing.T) {
	ts, clock := newTestService(newFakeRefreshStore())

	at, err := ts.IssueAccess(77, "")
	require.NoError(t, err)

	*clock = clock.Add(16 * time.Minute)
	_, err = ts.VerifyAccess(at.Token)
	assert.ErrorIs(t, err, ErrInvalidAccess)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	ts, _ := newTestService(newFakeRefreshStore())
	other := NewTokenService("different-secret", newFakeRefreshStore(), 0, 0)

	at, err := ts.IssueAccess(1, "")
	require.NoError(t, err)

	_, err = other.VerifyAccess(at.Token)
	assert.ErrorIs(t, err, ErrInvalidAccess)

	_, err = ts.VerifyAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidAccess)
}
