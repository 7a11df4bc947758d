package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	logger := zerolog.New(io.Discard)
	app := fiber.New()
	Register(app, Config{Logger: &logger})
	app.Get("/echo", func(c *fiber.Ctx) error {
		return c.SendString(CorrelationIDFromContext(c.UserContext()))
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	return app
}

func TestCorrelationIDPropagatesOrMints(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(HeaderCorrelationID, "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "req-123", string(body))
	require.Equal(t, "req-123", resp.Header.Get(HeaderCorrelationID))

	req = httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(HeaderCorrelationID, strings.Repeat("x", 200))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	minted := resp.Header.Get(HeaderCorrelationID)
	require.Len(t, minted, 36)

	req = httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(fiber.HeaderXRequestID, "upstream-7")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "upstream-7", resp.Header.Get(HeaderCorrelationID))
}

func TestRegisterRecoversFromPanics(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestLatencyBucket(t *testing.T) {
	require.Equal(t, "<=25ms", latencyBucket(0))
	require.Equal(t, ">5s", latencyBucket(6e9))
}
