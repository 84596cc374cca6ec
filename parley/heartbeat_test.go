package parley

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatSendsPings(t *testing.T) {
	var pings atomic.Int64
	h := newHeartbeatMonitor(5*time.Millisecond, noopLogger{}, func() bool {
		pings.Add(1)
		return true
	})

	h.start()
	defer h.stop()

	require.Eventually(t, func() bool { return pings.Load() >= 3 },
		2*time.Second, time.Millisecond)
}

func TestHeartbeatStopIdempotent(t *testing.T) {
	h := newHeartbeatMonitor(time.Hour, noopLogger{}, func() bool { return true })

	h.start()
	h.stop()
	h.stop() // must not panic or block

	// a stopped monitor restarts cleanly
	h.start()
	h.stop()
}

func TestHeartbeatStopWithoutStart(t *testing.T) {
	h := newHeartbeatMonitor(time.Hour, noopLogger{}, func() bool { return true })
	h.stop()
}

func TestHeartbeatDisabled(t *testing.T) {
	var pings atomic.Int64
	h := newHeartbeatMonitor(0, noopLogger{}, func() bool {
		pings.Add(1)
		return true
	})

	h.start()
	time.Sleep(20 * time.Millisecond)
	h.stop()
	assert.Zero(t, pings.Load())
}

func TestHeartbeatPongLatency(t *testing.T) {
	h := newHeartbeatMonitor(time.Hour, noopLogger{}, func() bool { return true })

	// no ping outstanding: ack recorded, latency unknown
	lat := h.pongReceived()
	assert.Zero(t, lat)
	assert.False(t, h.LastAck().IsZero())

	h.mu.Lock()
	h.lastPing = time.Now().Add(-40 * time.Millisecond)
	h.mu.Unlock()

	lat = h.pongReceived()
	assert.GreaterOrEqual(t, lat, 40*time.Millisecond)
}
