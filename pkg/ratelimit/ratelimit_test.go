package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/pkg/ratelimit"
)

func TestLimiterMemory(t *testing.T) {
	t.Parallel()

	l, err := ratelimit.New(ratelimit.NewMemoryStore(), 2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		res, err := l.Allow(ctx, "checkout:203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, want, res.Allowed, "call %d", i+1)
	}

	res, err := l.Allow(ctx, "checkout:203.0.113.8")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "keys are independent")
	assert.Equal(t, 1, res.Remaining)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := ratelimit.New(ratelimit.NewMemoryStore(), 0, time.Minute)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidLimit)
	_, err = ratelimit.New(ratelimit.NewMemoryStore(), 1, 0)
	assert.ErrorIs(t, err, ratelimit.ErrInvalidWindow)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l, err := ratelimit.New(ratelimit.NewRedisStore(client, "test:"), 1, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := l.Allow(ctx, "webhook:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, time.Minute, mr.TTL("test:webhook:1.2.3.4"))

	res, err = l.Allow(ctx, "webhook:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Minute + time.Second)
	res, err = l.Allow(ctx, "webhook:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "window expired")
}

type brokenStore struct{}

func (brokenStore) Increment(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	request := func(h http.Handler, ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		r.RemoteAddr = ip + ":4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("limits per ip", func(t *testing.T) {
		t.Parallel()
		l, err := ratelimit.New(ratelimit.NewMemoryStore(), 1, time.Minute)
		require.NoError(t, err)
		h := ratelimit.Middleware(l, ratelimit.ByClientIP("checkout"), nil)(ok)

		w := request(h, "198.51.100.1")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

		w = request(h, "198.51.100.1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))

		assert.Equal(t, http.StatusNoContent, request(h, "198.51.100.2").Code)
	})

	t.Run("fails open", func(t *testing.T) {
		t.Parallel()
		l, err := ratelimit.New(brokenStore{}, 1, time.Minute)
		require.NoError(t, err)
		h := ratelimit.Middleware(l, ratelimit.ByClientIP("checkout"), nil)(ok)

		for range 3 {
			assert.Equal(t, http.StatusNoContent, request(h, "198.51.100.3").Code)
		}
	})
}
