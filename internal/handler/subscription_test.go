package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/label-platform/internal/auth"
	"github.com/driftline/label-platform/internal/config"
	"github.com/driftline/label-platform/internal/middleware"
	"github.com/driftline/label-platform/internal/validator"
)

func newSubFixture(t *testing.T) (*echo.Echo, *SubscriptionHandler, *fakeUserStore, uint64) {
	t.Helper()
	e := echo.New()
	e.Validator = validator.New()
	users := newFakeUserStore()
	uid, err := users.Create(context.Background(), "fan@example.com", "hunter2hunter2", "Fan", "FREE", 4)
	require.NoError(t, err)
	cfg := config.Config{Env: "test", SubscriptionDays: 30}
	return e, NewSubscriptionHandler(cfg, users), users, uid
}

func subCall(t *testing.T, e *echo.Echo, ident *auth.Identity, method, body string, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/v1/subscription", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if ident != nil {
		middleware.SetIdentity(c, ident)
	}
	if err := fn(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestPurchaseSetsTierAndWindow(t *testing.T) {
	e, h, users, uid := newSubFixture(t)
	ident := &auth.Identity{ID: uid, Role: auth.RoleFree, Tier: auth.TierNone}

	rec := subCall(t, e, ident, http.MethodPost, `{"tier":"fan"}`, h.Purchase)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tier":"fan"`)

	u, err := users.GetByID(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "fan", u.SubscriptionTier)
	require.NotNil(t, u.SubscriptionEndsAt)
	wantEnd := time.Now().UTC().AddDate(0, 0, 30)
	assert.WithinDuration(t, wantEnd, *u.SubscriptionEndsAt, time.Minute)
}

func TestPurchaseRejectsUnknownTier(t *testing.T) {
	e, h, _, uid := newSubFixture(t)
	ident := &auth.Identity{ID: uid, Role: auth.RoleFree}

	rec := subCall(t, e, ident, http.MethodPost, `{"tier":"platinum"}`, h.Purchase)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = subCall(t, e, ident, http.MethodPost, `{"tier":"none"}`, h.Purchase)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "none is not purchasable")
}

func TestCancelResetsToNone(t *testing.T) {
	e, h, users, uid := newSubFixture(t)
	ident := &auth.Identity{ID: uid, Role: auth.RoleFree, Tier: auth.TierPro}
	subCall(t, e, ident, http.MethodPost, `{"tier":"pro"}`, h.Purchase)

	rec := subCall(t, e, ident, http.MethodDelete, "", h.Cancel)
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err := users.GetByID(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "none", u.SubscriptionTier)
	assert.Nil(t, u.SubscriptionEndsAt)
}

func TestStatusReportsEffectiveTier(t *testing.T) {
	e, h, _, uid := newSubFixture(t)
	end := time.Now().UTC().Add(-time.Hour)
	ident := &auth.Identity{ID: uid, Role: auth.RoleFree, Tier: auth.TierFan, SubscriptionEnd: &end}

	rec := subCall(t, e, ident, http.MethodGet, "", h.Status)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tier":"fan"`)
	assert.Contains(t, rec.Body.String(), `"effective_tier":"none"`)
}

func TestSubscriptionRequiresAuth(t *testing.T) {
	e, h, _, _ := newSubFixture(t)
	rec := subCall(t, e, nil, http.MethodGet, "", h.Status)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
