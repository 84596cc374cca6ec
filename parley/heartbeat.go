package parley

import (
	"sync"
	"time"
)

// heartbeatMonitor periodically sends a ping frame while a connection is up
// and records the matching pong. It signals liveness only: a missed pong is
// visible through LastAck but does not force a reconnect. See DESIGN.md.
type heartbeatMonitor struct {
	interval time.Duration
	logger   Logger
	send     func() bool

	mu       sync.Mutex
	done     chan struct{}
	running  bool
	lastPing time.Time
	lastPong time.Time
	latency  time.Duration
}

func newHeartbeatMonitor(interval time.Duration, logger Logger, send func() bool) *heartbeatMonitor {
	return &heartbeatMonitor{
		interval: interval,
		logger:   logger,
		send:     send,
	}
}

// start launches the ticker goroutine. Calling start on a running monitor is
// a no-op.
func (h *heartbeatMonitor) start() {
	if h.interval <= 0 {
		return
	}
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	go h.run(done)
}

// stop cancels the ticker. Safe to call repeatedly and on every teardown
// path; a tick must never fire against a closed socket.
func (h *heartbeatMonitor) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.done)
}

func (h *heartbeatMonitor) run(done chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.mu.Lock()
			h.lastPing = time.Now()
			h.mu.Unlock()
			if !h.send() {
				h.logger.Debug("heartbeat ping dropped", nil)
			}
		}
	}
}

// pongReceived records a liveness ack and returns the round-trip latency,
// or zero when no ping is outstanding.
func (h *heartbeatMonitor) pongReceived() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastPong = time.Now()
	if h.lastPing.IsZero() {
		return 0
	}
	h.latency = h.lastPong.Sub(h.lastPing)
	return h.latency
}

// LastAck returns the time of the most recent pong.
func (h *heartbeatMonitor) LastAck() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastPong
}
