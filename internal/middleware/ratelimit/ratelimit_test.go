package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(rl *RateLimiter) *fiber.App {
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := New(Config{RequestsPerMinute: 1, Burst: 2})
	defer rl.Stop()
	app := newApp(rl)

	for i, want := range []int{200, 200, 429} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-ID", "u1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "request %d", i)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "u2")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRateLimiter_KeepsCallersInSeparateBuckets(t *testing.T) {
	rl := New(Config{RequestsPerMinute: 1, Burst: 1})
	defer rl.Stop()
	app := newApp(rl)

	users := []string{"u1", "u2", "u3"}
	for _, user := range users {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-User-ID", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode, user)
	}

	rl.mu.Lock()
	keys := make([]string, 0, len(rl.clients))
	for key := range rl.clients {
		keys = append(keys, key)
	}
	rl.mu.Unlock()
	assert.ElementsMatch(t, users, keys)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "u1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	rl := New(Config{RequestsPerMinute: 60})
	defer rl.Stop()

	current := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return current }

	assert.True(t, rl.allow("u1"))
	current = current.Add(idleTimeout + time.Second)
	assert.True(t, rl.allow("u2"))

	rl.evictIdle()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.clients, "u1")
	assert.Contains(t, rl.clients, "u2")
}
