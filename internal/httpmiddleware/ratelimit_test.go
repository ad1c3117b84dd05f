package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketRefills(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	l := NewSimpleTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "bucket exhausted")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(2 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "tokens refill at 60/min")
}

func TestRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2026, 3, 2, 9, 0, 10, 0, time.UTC)
	l := NewRedisWindow(client, 2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok, "new window")
}

type stubLimiter struct {
	allow bool
	err   error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allow, s.err }

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serve := func(l Limiter) int {
		r := gin.New()
		r.Use(RateLimit(l), Instrument(), SecurityHeaders())
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve(stubLimiter{allow: true}))
	assert.Equal(t, http.StatusTooManyRequests, serve(stubLimiter{allow: false}))
	assert.Equal(t, http.StatusOK, serve(stubLimiter{err: errors.New("redis down")}), "fails open")
}
