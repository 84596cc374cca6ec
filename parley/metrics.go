package parley

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a snapshot of a client's transport counters. Message counters
// are monotonic for the lifetime of the client; they are not reset by
// reconnection.
type Metrics struct {
	LastConnected     time.Time
	ReconnectAttempts int
	LastError         error
	MessagesSent      uint64
	MessagesReceived  uint64
	LastHeartbeat     time.Time
	Latency           time.Duration
}

// MetricsSink receives metric snapshots after every change. Updates are
// fire-and-forget; the client never reads back from the sink.
type MetricsSink interface {
	Update(Metrics)
}

// nopSink discards all updates.
type nopSink struct{}

func (nopSink) Update(Metrics) {}

// PrometheusSink exports client metrics to a Prometheus registry.
type PrometheusSink struct {
	mu   sync.Mutex
	prev Metrics

	messagesSent      prometheus.Counter
	messagesReceived  prometheus.Counter
	reconnectAttempts prometheus.Gauge
	lastConnected     prometheus.Gauge
	lastHeartbeat     prometheus.Gauge
	latency           prometheus.Gauge
}

// NewPrometheusSink registers the client metrics with reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		messagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_messages_sent_total",
			Help: "Total number of application frames written to the transport",
		}),
		messagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "parley_messages_received_total",
			Help: "Total number of application frames decoded from the transport",
		}),
		reconnectAttempts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_reconnect_attempts",
			Help: "Consecutive reconnection attempts since the last successful connect",
		}),
		lastConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_last_connected_timestamp_seconds",
			Help: "Unix time of the last successful connect",
		}),
		lastHeartbeat: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_last_heartbeat_timestamp_seconds",
			Help: "Unix time of the last heartbeat ack",
		}),
		latency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "parley_heartbeat_latency_seconds",
			Help: "Round-trip latency of the last heartbeat",
		}),
	}
}

// Update applies a snapshot, adding counter deltas and setting gauges.
func (s *PrometheusSink) Update(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d := counterDelta(s.prev.MessagesSent, m.MessagesSent); d > 0 {
		s.messagesSent.Add(float64(d))
	}
	if d := counterDelta(s.prev.MessagesReceived, m.MessagesReceived); d > 0 {
		s.messagesReceived.Add(float64(d))
	}
	s.reconnectAttempts.Set(float64(m.ReconnectAttempts))
	if !m.LastConnected.IsZero() {
		s.lastConnected.Set(float64(m.LastConnected.Unix()))
	}
	if !m.LastHeartbeat.IsZero() {
		s.lastHeartbeat.Set(float64(m.LastHeartbeat.Unix()))
	}
	if m.Latency > 0 {
		s.latency.Set(m.Latency.Seconds())
	}
	s.prev = m
}

func counterDelta(prev, cur uint64) uint64 {
	if cur < prev {
		// snapshot source was recreated; replay the full value
		return cur
	}
	return cur - prev
}
