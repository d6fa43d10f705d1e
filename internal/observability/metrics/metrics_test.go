package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("team_side", "A"),
		attribute.String("member_id", "456"),
		attribute.String("cycle_type", "MONTHLY"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("team_side"))
	assert.Contains(t, keys, attribute.Key("cycle_type"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordChargeRun(ctx, "MONTHLY", 1, 1)
	m.RecordChargeTransition(ctx, "PENDING", "PAID")
	m.RecordDraftPick(ctx, "A")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "clubhouse"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordChargeRun(context.Background(), "WEEKLY", 3, 0)
	m.RecordCaptainSelection(context.Background(), "RANDOM")
}

func TestGinMiddlewareRecordsWithNilMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(nil))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGinMiddlewareWithNoopProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := NewHTTPMetrics(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware(m))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
