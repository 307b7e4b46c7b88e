package instrument

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetInstrumenterDefaultsToNoop(t *testing.T) {
	inst := GetInstrumenter(context.Background())
	_, ok := inst.(*NoopInstrumenter)
	assert.True(t, ok)
}

func TestLogSpanParentChain(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inst := NewLogInstrumenter(zap.New(core))

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx, parent := inst.StartSpan(ctx, "http", "handler", "request")
	_, child := inst.StartSpan(ctx, "target", "connector", "open")
	child.End()
	child.End()
	parent.End()

	entries := logs.All()
	require.Len(t, entries, 2)
	childFields := entries[0].ContextMap()
	assert.Equal(t, "trace-1", childFields["trace_id"])
	assert.Equal(t, parent.SpanID(), childFields["parent_span_id"])
	assert.Equal(t, "open", childFields["action"])
	_, hasParent := entries[1].ContextMap()["parent_span_id"]
	assert.False(t, hasParent)
}

func TestMiddlewarePropagatesTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := fiber.New()
	app.Use(Middleware(zap.New(core), func(c *fiber.Ctx) string { return "u-1" }))
	app.Get("/ping", func(c *fiber.Ctx) error {
		assert.Equal(t, "abc", GetTraceID(c.UserContext()))
		return c.SendString("pong")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "nope")
	})

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Trace-ID", "abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "abc", resp.Header.Get("X-Trace-ID"))

	resp, err = app.Test(httptest.NewRequest("GET", "/fail", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(200), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(fiber.StatusTeapot), entries[1].ContextMap()["status"])
	assert.Equal(t, "u-1", entries[1].ContextMap()["user_id"])
}
