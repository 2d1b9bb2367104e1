package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(metrics *observability.Metrics) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": "t-1"})
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return apperrors.NewStatusChangeForbidden("IN_PROGRESS", "CLOSED")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("connection reset")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("unexpected")
	})
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string) (int, errorBody) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body errorBody
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)

	status, body := doRequest(t, app, "/missing")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, body.Error.Code)
	assert.Equal(t, "t-1", body.Error.Details["ticket_id"])

	status, body = doRequest(t, app, "/forbidden")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeStatusChangeForbidden, body.Error.Code)

	assert.NotEmpty(t, metrics.Snapshot().Errors)
}

func TestErrorMiddlewareHidesInternalErrors(t *testing.T) {
	app := newTestApp(nil)

	status, body := doRequest(t, app, "/boom")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "connection reset")

	status, body = doRequest(t, app, "/panic")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeInternal, body.Error.Code)
}

func TestErrorMiddlewareMapsUnknownRoutes(t *testing.T) {
	app := newTestApp(nil)

	status, body := doRequest(t, app, "/nowhere")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, body.Error.Code)
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	app := newTestApp(nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/deadline", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["deadline"])
}
