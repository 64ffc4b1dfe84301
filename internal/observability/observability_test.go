package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"hoopgraph-backend/internal/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsSearchesAndLoads(t *testing.T) {
	c := NewCollector("test")

	c.ObserveSearch("found", 3)
	c.ObserveSearch("found", 1)
	c.ObserveSearch("no_connection", -1)
	c.ObserveGraphLoad(nil, 20*time.Millisecond)
	c.ObserveGraphLoad(errors.New("boom"), time.Millisecond)
	c.ObserveMetadataLookup("failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Searches.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Searches.WithLabelValues("no_connection")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GraphLoads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GraphLoads.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.MetadataLookups.WithLabelValues("failed")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")

	a.ObserveHTTP("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.HTTPRequests.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.HTTPRequests.WithLabelValues("GET", "/health", "200")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveHTTP("GET", "/", 200, time.Millisecond)
		c.ObserveSearch("found", 2)
		c.ObserveMetadataLookup("found")
		c.ObserveGraphLoad(nil, time.Millisecond)
	})
}

func TestCollectorHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("hoopgraph")
	c.ObserveSearch("same_player", 0)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `hoopgraph_connection_searches_total{outcome="same_player"} 1`)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.Logging{Level: "debug", Format: "console"}, config.Development)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger(config.Logging{Level: "loud", Format: "json"}, config.Production)
	assert.Error(t, err)
}

func TestInitTracingDisabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), config.Tracing{Enabled: false}, config.Development)
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}
