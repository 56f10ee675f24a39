package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/milestone-escrow/backend/internal/auth"
	"github.com/milestone-escrow/backend/internal/ratelimit"
	"github.com/milestone-escrow/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Use(AuthMiddleware(testSecret, zap.NewNop()))
	chain := append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c).String() + "|" + GetRole(c))
	})
	app.Get("/", chain...)
	return app
}

func bearer(t *testing.T, role string) (string, uuid.UUID) {
	t.Helper()
	id := uuid.New()
	token, err := auth.GenerateJWT(testSecret, id, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token, id
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp()
	header, _ := bearer(t, rbac.RoleClient)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"valid", header, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestRequirePermission(t *testing.T) {
	app := newTestApp(RequirePermission(rbac.PermSettleEscrow))

	admin, _ := bearer(t, rbac.RoleAdmin)
	client, _ := bearer(t, rbac.RoleClient)

	for header, want := range map[string]int{admin: http.StatusOK, client: http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode)
	}
}

func TestRateLimitPerSubject(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), zap.NewNop())
	app := newTestApp(RateLimit(limiter, "escrow_action", 2, time.Minute))

	first, _ := bearer(t, rbac.RoleAdmin)
	second, _ := bearer(t, rbac.RoleAdmin)

	do := func(header string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusOK, do(first).StatusCode)
	assert.Equal(t, http.StatusOK, do(first).StatusCode)
	limited := do(first)
	assert.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, "60", limited.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(second).StatusCode)
}

func TestRequestIDPassThrough(t *testing.T) {
	app := fiber.New()
	app.Use(RequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}
