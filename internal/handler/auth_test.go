package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/config"
	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/model"
	"github.com/driftline/label-platform/internal/repository"
	"github.com/driftline/label-platform/internal/utils"
	"github.com/driftline/label-platform/internal/validator"
)

// fakeUserStore is an in-memory UserStore keyed by id and email.
type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, byID: map[uint64]model.User{}}
}

func (s *fakeUserStore) Create(_ context.Context, email, password, displayName, role string, bcryptCost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.byID {
		if u.Email == email {
			return 0, repository.ErrDuplicate
		}
	}
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return 0, err
	}
	id := s.nextID
	s.nextID++
	s.byID[id] = model.User{
		ID: id, Email: email, PasswordHash: hash, DisplayName: displayName,
		Role: role, SubscriptionTier: "none",
	}
	return id, nil
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) SetSubscription(_ context.Context, id uint64, tier string, endsAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SubscriptionTier = tier
	u.SubscriptionEndsAt = &endsAt
	s.byID[id] = u
	return nil
}

func (s *fakeUserStore) ClearSubscription(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.SubscriptionTier = "none"
	u.SubscriptionEndsAt = nil
	s.byID[id] = u
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// fakeTokenStore is an in-memory auth.RefreshStore with error injection.
type fakeTokenStore struct {
	mu   sync.Mutex
	rows map[string]auth.RefreshRecord
	err  error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{rows: map[string]auth.RefreshRecord{}}
}

func (s *fakeTokenStore) Insert(_ context.Context, rec auth.RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows[rec.TokenHash] = rec
	return nil
}

func (s *fakeTokenStore) FindByHash(_ context.Context, hash string) (auth.RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return auth.RefreshRecord{}, s.err
	}
	rec, ok := s.rows[hash]
	if !ok {
		return auth.RefreshRecord{}, auth.ErrRecordNotFound
	}
	return rec, nil
}

func (s *fakeTokenStore) DeleteByHash(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.rows, hash)
	return nil
}

func (s *fakeTokenStore) DeleteByUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for h, rec := range s.rows {
		if rec.UserID == userID {
			delete(s.rows, h)
		}
	}
	return nil
}

func (s *fakeTokenStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for h, rec := range s.rows {
		if rec.ExpiresAt.Before(cutoff) {
			delete(s.rows, h)
			n++
		}
	}
	return n, nil
}

type authFixture struct {
	e      *echo.Echo
	h      *AuthHandler
	users  *fakeUserStore
	tokens *fakeTokenStore
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	e := echo.New()
	e.Validator = validator.New()
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	cfg := config.Config{Env: "test", JWTSecret: "test-secret", BcryptCost: 4, SubscriptionDays: 30}
	ts := auth.NewTokenService(cfg.JWTSecret, tokens, time.Minute, time.Hour)
	return &authFixture{e: e, h: NewAuthHandler(cfg, users, ts), users: users, tokens: tokens}
}

func (f *authFixture) do(t *testing.T, method, path, body string, fn echo.HandlerFunc, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	err := fn(c)
	if err != nil {
		f.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func (f *authFixture) register(t *testing.T, email string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"email":"` + email + `","password":"hunter2hunter2","display_name":"Fan"}`
	return f.do(t, http.MethodPost, "/v1/auth/register", body, f.h.Register)
}

func refreshCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	res := http.Response{Header: rec.Header()}
	for _, ck := range res.Cookies() {
		if ck.Name == refreshCookie {
			return ck
		}
	}
	return nil
}

func TestRegisterOpensSession(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.register(t, "fan@example.com")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"email":"fan@example.com"`)
	assert.Contains(t, body, `"role":"FREE"`)
	assert.Contains(t, body, `"tier":"none"`)
	assert.Contains(t, body, `"access"`)
	assert.Contains(t, body, `"refresh"`)

	ck := refreshCookieFrom(rec)
	require.NotNil(t, ck, "session must set the refresh cookie")
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/v1/auth", ck.Path)
	assert.Len(t, ck.Value, 128)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "fan@example.com")
	rec := f.register(t, "fan@example.com")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/auth/register",
		`{"email":"fan@example.com","password":"short","display_name":"Fan"}`, f.h.Register)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "fan@example.com")

	rec := f.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"FAN@example.com","password":"hunter2hunter2"}`, f.h.Login)
	assert.Equal(t, http.StatusOK, rec.Code, "email lookup is case-insensitive")

	rec = f.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"fan@example.com","password":"wrong-password"}`, f.h.Login)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec2 := f.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"nobody@example.com","password":"hunter2hunter2"}`, f.h.Login)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String(),
		"unknown email and wrong password must be indistinguishable")
}

func TestRefreshWithBodyToken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	raw := refreshCookieFrom(reg).Value

	rec := f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"access"`)

	// Not consumed: the same token works again.
	rec = f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshWithCookie(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	ck := refreshCookieFrom(reg)

	rec := f.do(t, http.MethodPost, "/v1/auth/refresh", "", f.h.Refresh,
		func(r *http.Request) { r.AddCookie(ck) })
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+strings.Repeat("ab", 64)+`"}`, f.h.Refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRequiresToken(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/auth/refresh", `{}`, f.h.Refresh)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshStoreOutageIs503(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	raw := refreshCookieFrom(reg).Value

	f.tokens.mu.Lock()
	f.tokens.err = context.DeadlineExceeded
	f.tokens.mu.Unlock()

	rec := f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code,
		"an outage must not read as a logged-out session")
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	raw := refreshCookieFrom(reg).Value

	rec := f.do(t, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+raw+`"}`, f.h.Logout)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ck := refreshCookieFrom(rec)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)

	rec = f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Idempotent.
	rec = f.do(t, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+raw+`"}`, f.h.Logout)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoutAllDropsEverySession(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	first := refreshCookieFrom(reg).Value
	login := f.do(t, http.MethodPost, "/v1/auth/login",
		`{"email":"fan@example.com","password":"hunter2hunter2"}`, f.h.Login)
	second := refreshCookieFrom(login).Value

	u, err := f.users.GetByEmail(context.Background(), "fan@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout-all", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	middleware.SetIdentity(c, &auth.Identity{ID: u.ID, Role: auth.RoleFree})
	require.NoError(t, f.h.LogoutAll(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, raw := range []string{first, second} {
		r := f.do(t, http.MethodPost, "/v1/auth/refresh",
			`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	}
}

func TestDeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	reg := f.register(t, "fan@example.com")
	raw := refreshCookieFrom(reg).Value
	u, err := f.users.GetByEmail(context.Background(), "fan@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	middleware.SetIdentity(c, &auth.Identity{ID: u.ID, Role: auth.RoleFree})
	require.NoError(t, f.h.DeleteAccount(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = f.users.GetByEmail(context.Background(), "fan@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	r := f.do(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`, f.h.Refresh)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	end := time.Now().UTC().Add(-time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	middleware.SetIdentity(c, &auth.Identity{
		ID: 5, Email: "fan@example.com", Name: "Fan",
		Role: auth.RolePremium, Tier: auth.TierPro, SubscriptionEnd: &end,
	})
	require.NoError(t, f.h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"pro"`)
	assert.Contains(t, rec.Body.String(), `"effective_tier":"none"`,
		"a lapsed subscription reads as none")
}
