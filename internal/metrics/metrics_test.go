package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveRequest("select", 200, 10*time.Millisecond)
	c.ObserveRequest("select", 200, 20*time.Millisecond)
	c.ObserveRequest("update", 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("select", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("update", "error")))
}

func TestCollectorIngest(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	c.ObserveIngest(nil)
	c.ObserveIngest(errors.New("bad file"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingested.WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingested.WithLabelValues("failed")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ObserveRequest("select", 200, time.Second)
	c.ObserveIngest(nil)
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)
	_, err = NewCollector(reg)
	assert.Error(t, err)
}
