package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/request-checker/internal/api/http/handlers"
	"github.com/spec-kit/request-checker/internal/auth"
	"github.com/spec-kit/request-checker/internal/observability"
)

func newTestApp(t *testing.T, internalSecret string) (*fiber.App, *observability.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	hash := ""
	if internalSecret != "" {
		var err error
		hash, err = auth.HashSecret(internalSecret, bcrypt.MinCost)
		require.NoError(t, err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:             handlers.NewHealthHandler(handlers.HealthDependencies{ServiceName: "request-checker", Metrics: metrics}),
		Internal:           handlers.NewInternalHandler(nil, nil, logger),
		Tickets:            handlers.NewTicketsHandler(nil, nil),
		Users:              handlers.NewUsersHandler(nil),
		Dashboard:          handlers.NewDashboardHandler(nil),
		AuthMiddleware:     auth.NewAuthMiddleware(auth.NewTokenManager("router-secret", 60), nil),
		InternalSecretHash: hash,
	})
	return app, metrics
}

func do(t *testing.T, app *fiber.App, method, path, bearer string) (int, map[string]any, http.Header) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body, resp.Header
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestLiveProbeSetsRequestID(t *testing.T) {
	app, _ := newTestApp(t, "")
	status, _, header := do(t, app, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, header.Get(observability.RequestIDHeader))
}

func TestAPIRequiresBearerToken(t *testing.T) {
	app, metrics := newTestApp(t, "")

	status, body, _ := do(t, app, http.MethodGet, "/api/v1/tickets", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body, _ = do(t, app, http.MethodGet, "/api/v1/tickets", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid token", body["error"].(map[string]any)["message"])

	assert.NotEmpty(t, metrics.Snapshot().Errors)
}

func TestInternalRoutesCheckSharedSecret(t *testing.T) {
	app, _ := newTestApp(t, "cron-secret")

	status, body, _ := do(t, app, http.MethodGet, "/cron/sendReminders", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, _, _ = do(t, app, http.MethodGet, "/cron/sendReminders", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body, _ = do(t, app, http.MethodGet, "/cron/sendReminders", "cron-secret")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Use POST to trigger reminder emails", body["message"])
	assert.Equal(t, "/cron/sendReminders", body["endpoint"])
}

func TestInternalRoutesOpenWithoutHash(t *testing.T) {
	app, _ := newTestApp(t, "")
	status, _, _ := do(t, app, http.MethodGet, "/cron/sendReminders", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	app, _ := newTestApp(t, "")
	status, body, _ := do(t, app, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestInternalGuardDoesNotLeakIntoAPI(t *testing.T) {
	app, _ := newTestApp(t, "cron-secret")
	status, body, _ := do(t, app, http.MethodGet, "/api/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "missing authorization header", body["error"].(map[string]any)["message"])
}
