package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Record(t *testing.T) {
	t.Parallel()
	c := NewCollector()

	c.Record("web", "connected")
	c.Record("web", "connected")
	c.Record("android", "rejected")

	assert.InDelta(t, 2.0, testutil.ToFloat64(c.sessionOutcomes.WithLabelValues("web", "connected")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.sessionOutcomes.WithLabelValues("android", "rejected")), 0.001)
	assert.InDelta(t, 0.0, testutil.ToFloat64(c.sessionOutcomes.WithLabelValues("ios", "failed")), 0.001)
}

func TestCollector_ObserveRPC(t *testing.T) {
	t.Parallel()
	c := NewCollector()

	c.ObserveRPC("getSlot", "ok", 20*time.Millisecond)
	c.ObserveRPC("getSlot", "error", time.Second)

	assert.InDelta(t, 1.0, testutil.ToFloat64(c.rpcRequests.WithLabelValues("getSlot", "ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.rpcRequests.WithLabelValues("getSlot", "error")), 0.001)
	assert.Equal(t, 1, testutil.CollectAndCount(c.rpcLatency))
}

func TestCollector_Handler(t *testing.T) {
	t.Parallel()
	c := NewCollector()
	c.Record("web", "disconnected")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `shadowlend_session_outcomes_total{outcome="disconnected",platform="web"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
