package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestSetup_ServesMetricsWithoutTracing(t *testing.T) {
	p, err := Setup(context.Background(), Settings{ServiceName: "storefront", ServiceVersion: "test"})
	require.NoError(t, err)
	assert.False(t, p.Tracing())

	counter, err := p.MeterProvider.Meter("test").Int64Counter("storefront_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	p.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_test_events_total")
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), `service_name="storefront"`)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_WithEndpointEnablesTracing(t *testing.T) {
	p, err := Setup(context.Background(), Settings{
		ServiceName:    "storefront",
		ServiceVersion: "test",
		OTLPEndpoint:   "localhost:4317",
	})
	require.NoError(t, err)
	assert.True(t, p.Tracing())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestDBSystem(t *testing.T) {
	assert.Equal(t, semconv.DBSystemPostgreSQL, dbSystem("postgres"))
	assert.Equal(t, semconv.DBSystemSqlite, dbSystem("sqlite"))
	assert.Equal(t, semconv.DBSystemOtherSQL, dbSystem("mysql"))
}
