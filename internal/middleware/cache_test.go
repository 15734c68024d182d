package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/label-platform/internal/config"
)

func cacheFixture(t *testing.T, cfg config.CacheConfig) echo.MiddlewareFunc {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return CacheResponses(cfg, rdb)
}

func cachedGet(t *testing.T, mw echo.MiddlewareFunc, path string, hits *int) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	h := mw(func(c echo.Context) error {
		*hits++
		return c.JSON(http.StatusOK, echo.Map{"items": []string{"slowdive"}})
	})
	require.NoError(t, h(c))
	return rec
}

func TestCacheServesSecondRequestFromRedis(t *testing.T) {
	mw := cacheFixture(t, config.CacheConfig{
		Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20,
	})
	var hits int

	rec := cachedGet(t, mw, "/v1/releases", &hits)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits)
	first := rec.Body.String()

	rec = cachedGet(t, mw, "/v1/releases", &hits)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, 1, hits, "handler must not run on a cache hit")
	assert.Equal(t, first, rec.Body.String())
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	mw := cacheFixture(t, config.CacheConfig{
		Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20,
	})
	var hits int

	cachedGet(t, mw, "/v1/releases?page=1", &hits)
	cachedGet(t, mw, "/v1/releases?page=2", &hits)
	assert.Equal(t, 2, hits, "different queries are different entries")
}

func TestCacheSkipsOversizedBodies(t *testing.T) {
	mw := cacheFixture(t, config.CacheConfig{
		Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 8,
	})
	var hits int

	cachedGet(t, mw, "/v1/releases", &hits)
	rec := cachedGet(t, mw, "/v1/releases", &hits)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, hits)
}

func TestCacheSkipsBodyOverflowingAcrossWrites(t *testing.T) {
	mw := cacheFixture(t, config.CacheConfig{
		Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 4,
	})
	e := echo.New()
	var hits int
	h := mw(func(c echo.Context) error {
		hits++
		c.Response().WriteHeader(http.StatusOK)
		// First write fills the budget exactly; the second pushes past it.
		if _, err := c.Response().Write([]byte("abcd")); err != nil {
			return err
		}
		_, err := c.Response().Write([]byte("efgh"))
		return err
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/releases", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/releases")
		require.NoError(t, h(c))
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		assert.Equal(t, "abcdefgh", rec.Body.String(), "the client always gets the full body")
	}
	assert.Equal(t, 2, hits, "a truncated body must never be cached")
}

func TestCacheIgnoresNonGET(t *testing.T) {
	mw := cacheFixture(t, config.CacheConfig{
		Enabled: true, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20,
	})
	e := echo.New()
	var hits int
	h := mw(func(c echo.Context) error {
		hits++
		return c.NoContent(http.StatusCreated)
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h(e.NewContext(req, rec)))
	}
	assert.Equal(t, 2, hits)
}

func TestCacheDisabledIsPassthrough(t *testing.T) {
	mw := CacheResponses(config.CacheConfig{Enabled: false}, nil)
	var hits int
	cachedGet(t, mw, "/v1/releases", &hits)
	cachedGet(t, mw, "/v1/releases", &hits)
	assert.Equal(t, 2, hits)
}
