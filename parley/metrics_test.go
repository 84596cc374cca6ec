package parley

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSinkCounters(t *testing.T) {
	s := NewPrometheusSink(prometheus.NewRegistry())

	s.Update(Metrics{MessagesSent: 3, MessagesReceived: 1})
	assert.Equal(t, float64(3), testutil.ToFloat64(s.messagesSent))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.messagesReceived))

	// snapshots are cumulative; only the delta is added
	s.Update(Metrics{MessagesSent: 5, MessagesReceived: 4})
	assert.Equal(t, float64(5), testutil.ToFloat64(s.messagesSent))
	assert.Equal(t, float64(4), testutil.ToFloat64(s.messagesReceived))

	// an unchanged snapshot adds nothing
	s.Update(Metrics{MessagesSent: 5, MessagesReceived: 4})
	assert.Equal(t, float64(5), testutil.ToFloat64(s.messagesSent))
}

func TestPrometheusSinkGauges(t *testing.T) {
	s := NewPrometheusSink(prometheus.NewRegistry())

	connectedAt := time.Unix(1700000000, 0)
	s.Update(Metrics{
		ReconnectAttempts: 3,
		LastConnected:     connectedAt,
		LastHeartbeat:     connectedAt.Add(30 * time.Second),
		Latency:           25 * time.Millisecond,
		LastError:         errors.New("boom"),
	})

	assert.Equal(t, float64(3), testutil.ToFloat64(s.reconnectAttempts))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(s.lastConnected))
	assert.Equal(t, float64(1700000030), testutil.ToFloat64(s.lastHeartbeat))
	assert.InDelta(t, 0.025, testutil.ToFloat64(s.latency), 1e-9)

	// zero timestamps leave the gauges untouched
	s.Update(Metrics{ReconnectAttempts: 0})
	assert.Equal(t, float64(0), testutil.ToFloat64(s.reconnectAttempts))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(s.lastConnected))
}

func TestClientPushesMetricSnapshots(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	c, _ := newTestClient(t, testConfig(), StaticProvider{Token: "tok-1"})
	c.SetMetricsSink(sink)

	require.NoError(t, c.Connect(context.Background()))
	c.SendMessage("general", "hi")

	assert.Equal(t, float64(1), testutil.ToFloat64(sink.messagesSent))
}
