package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", fiber.MethodGet, 200)
	m.RecordRequest("/tickets", fiber.MethodGet, 200)
	m.RecordError("/tickets", fiber.MethodPost, "VALIDATION_FAILED")
	m.RecordClassification("classified")
	m.RecordTicketCreated()

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.Requests["GET /tickets|200"])
	assert.EqualValues(t, 1, snap.Errors["POST /tickets|VALIDATION_FAILED"])
	assert.EqualValues(t, 1, snap.Classification["classified"])
	assert.EqualValues(t, 1, snap.TicketsCreated)

	snap.Requests["GET /tickets|200"] = 99
	assert.EqualValues(t, 2, m.Snapshot().Requests["GET /tickets|200"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", fiber.MethodGet, 200)
	m.RecordTicketCreated()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestRequestLoggerPropagatesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])

	var total int64
	for _, n := range metrics.Snapshot().Requests {
		total += n
	}
	assert.EqualValues(t, 2, total)
}
