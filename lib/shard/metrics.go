package shard

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics collects per node call statistics of a Router.
type Metrics struct {
	set *metrics.Set
}

// NewMetrics creates an empty metrics set. Pass it to the router with WithMetrics.
func NewMetrics() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// observe records one call (or one batch) against a node
func (m *Metrics) observe(node string, kind string, start time.Time, ops int, err error) {
	if m == nil {
		return
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`shardkv_router_calls_total{node=%q,kind=%q}`, node, kind)).Inc()
	m.set.GetOrCreateCounter(fmt.Sprintf(`shardkv_router_ops_total{node=%q}`, node)).Add(ops)
	m.set.GetOrCreateHistogram(fmt.Sprintf(`shardkv_router_call_duration_seconds{node=%q,kind=%q}`, node, kind)).UpdateDuration(start)
	if err != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`shardkv_router_errors_total{node=%q,kind=%q}`, node, kind)).Inc()
	}
}

// rejected counts commands refused before any I/O
func (m *Metrics) rejected(command string) {
	if m == nil {
		return
	}
	m.set.GetOrCreateCounter(fmt.Sprintf(`shardkv_router_rejected_total{command=%q}`, command)).Inc()
}

// WritePrometheus writes the collected metrics in Prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	if m == nil {
		return
	}
	m.set.WritePrometheus(w)
}
