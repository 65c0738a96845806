package serverutils

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter int
	}{
		{name: "validation", err: apperror.Validation("bad"), status: 400},
		{name: "not found", err: apperror.NotFound("gone"), status: 404},
		{name: "throttled", err: apperror.Throttled("anthropic", 1500*time.Millisecond, nil), status: 429, retryAfter: 2},
		{name: "known down", err: apperror.BackendUnavailable("anthropic", true, 0, 10*time.Second, nil), status: 503, retryAfter: 10},
		{name: "timeout", err: apperror.Timeout("dispatch", nil), status: 504},
		{name: "rejected", err: apperror.BackendRejected("anthropic", 400, nil), status: 502},
		{name: "internal", err: errors.New("nil map"), status: 500},
		{name: "fiber error", err: fiber.NewError(401, "nope"), status: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := BuildErrorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.retryAfter, resp.RetryAfter)
			assert.False(t, resp.Success)
		})
	}

	_, resp := BuildErrorResponse(apperror.Internal("secret detail", nil))
	assert.NotContains(t, resp.Message, "secret detail")
}

func TestErrorHandlerSetsRetryAfter(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNopLogger())})
	app.Get("/", func(*fiber.Ctx) error {
		return apperror.Throttled("anthropic", 30*time.Second, nil)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.StatusCode)
	assert.Equal(t, "30", resp.Header.Get("Retry-After"))
}

type sample struct {
	Name     string `validate:"required"`
	Category string `validate:"omitempty,category"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sample{Name: "x", Category: "visual"}))

	err := ValidateRequest(sample{Category: "loud"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "Name is required")
	assert.Contains(t, err.Error(), "Category is not a known category")
}

func TestTenantMiddleware(t *testing.T) {
	handler := func(ctx *fiber.Ctx) error {
		tenant, user, err := Tenant(ctx)
		if err != nil {
			return err
		}
		return ctx.SendString(tenant + "/" + user)
	}

	t.Run("headers without secret", func(t *testing.T) {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNopLogger())})
		app.Get("/", TenantMiddleware(""), handler)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Tenant-Id", "acme")
		req.Header.Set("X-User-Id", "u1")
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "acme/u1", string(body))

		resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})

	t.Run("jwt claims", func(t *testing.T) {
		app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNopLogger())})
		app.Get("/", TenantMiddleware("s3cret"), handler)

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TenantClaims{TenantId: "acme", UserId: "u9"}).SignedString([]byte("s3cret"))
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "acme/u9", string(body))

		forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, TenantClaims{TenantId: "acme", UserId: "u9"}).SignedString([]byte("other"))
		req = httptest.NewRequest("GET", "/?token="+forged, nil)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
	})
}
