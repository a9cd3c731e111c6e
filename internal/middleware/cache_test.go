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

	"github.com/cinemarket/movie-storefront/internal/config"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          30 * time.Second,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestCacheMissThenHit(t *testing.T) {
	_, rdb := testRedis(t)

	calls := 0
	e := echo.New()
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]any{"items": []string{"Heat"}})
	}, NewRedisCache(cacheTestConfig(), rdb))

	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	require.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, "MISS", rec1.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, "HIT", rec2.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls, "handler must not run on a hit")
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
	assert.Equal(t, rec1.Header().Get("Content-Type"), rec2.Header().Get("Content-Type"))
}

func TestCacheKeyIncludesQuery(t *testing.T) {
	_, rdb := testRedis(t)

	calls := 0
	e := echo.New()
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, c.QueryParam("search"))
	}, NewRedisCache(cacheTestConfig(), rdb))

	rec1 := httptest.NewRecorder()
	e.ServeHTTP(rec1, httptest.NewRequest(http.MethodGet, "/v1/movies?search=heat", nil))
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/v1/movies?search=ronin", nil))

	assert.Equal(t, 2, calls)
	assert.Equal(t, "heat", rec1.Body.String())
	assert.Equal(t, "ronin", rec2.Body.String())
}

func TestCacheSkipsErrorsAndOtherMethods(t *testing.T) {
	_, rdb := testRedis(t)

	gets := 0
	posts := 0
	mw := NewRedisCache(cacheTestConfig(), rdb)
	e := echo.New()
	e.GET("/v1/movies/:id", func(c echo.Context) error {
		gets++
		return c.JSON(http.StatusNotFound, map[string]string{"error": "movie not found"})
	}, mw)
	e.POST("/v1/movies", func(c echo.Context) error {
		posts++
		return c.NoContent(http.StatusCreated)
	}, mw)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/movies/99", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 2, gets, "non-200 responses are not cached")

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/movies", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, posts)
}

func TestCacheEntryExpires(t *testing.T) {
	mr, rdb := testRedis(t)

	calls := 0
	e := echo.New()
	e.GET("/v1/genres", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(cacheTestConfig(), rdb))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/genres", nil))
	require.Equal(t, 1, calls)

	mr.FastForward(time.Minute)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/genres", nil))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestCacheDisabledIsPassThrough(t *testing.T) {
	cfg := cacheTestConfig()
	cfg.Enabled = false

	calls := 0
	e := echo.New()
	e.GET("/v1/movies", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}, NewRedisCache(cfg, nil))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/movies", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 2, calls)
}
