// Package metrics exposes Prometheus collectors for store traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records requests sent to the triple store. A nil *Collector is
// valid and records nothing.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	ingested *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparqlconn",
			Name:      "store_requests_total",
			Help:      "Requests sent to the triple store, by operation and HTTP status.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sparqlconn",
			Name:      "store_request_duration_seconds",
			Help:      "Latency of triple store requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparqlconn",
			Name:      "ingested_files_total",
			Help:      "RDF files handed to the store by the bulk loader.",
		}, []string{"result"}),
	}
	for _, col := range []prometheus.Collector{c.requests, c.duration, c.ingested} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveRequest records one store round trip. code is 0 when no response
// was received.
func (c *Collector) ObserveRequest(operation string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	c.requests.WithLabelValues(operation, label).Inc()
	c.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveIngest records the outcome of loading one file.
func (c *Collector) ObserveIngest(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.ingested.WithLabelValues("failed").Inc()
		return
	}
	c.ingested.WithLabelValues("loaded").Inc()
}
