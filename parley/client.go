package parley

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"
)

// errConnectSuperseded aborts a connection attempt overtaken by Disconnect or
// by a newer Connect. It never re-enters the reconnection schedule.
var errConnectSuperseded = NewError(ErrorDisconnected, "connection attempt superseded")

// Client maintains one live WebSocket connection to the chat relay. It owns
// the connection lifecycle: session validation, dialing, heartbeats, message
// dispatch, and bounded exponential-backoff reconnection after an unexpected
// transport loss.
//
// Configure callbacks and the logger before calling Connect; they are not
// synchronized against a running connection.
type Client struct {
	cfg        Config
	auth       TokenProvider
	logger     Logger
	sink       MetricsSink
	codec      codec
	backoff    BackoffPolicy
	machine    *stateMachine
	heartbeat  *heartbeatMonitor
	dispatcher Dispatcher

	newTransport TransportFactory

	mu             sync.Mutex
	transport      Transport
	gen            uint64 // bumped whenever the current transport is replaced or torn down
	epoch          uint64 // bumped by Connect and Disconnect; an in-flight Connect aborts when it changes
	intentional    bool   // set by Disconnect so the close event does not trigger reconnection
	reconnectTimer *time.Timer
	cancelRead     context.CancelFunc

	metricsMu sync.Mutex
	metrics   Metrics
}

// NewClient constructs a client for one chat session. Use DefaultConfig()
// as a starting point and modify as needed.
func NewClient(cfg Config, auth TokenProvider) *Client {
	c := &Client{
		cfg:    cfg,
		auth:   auth,
		logger: noopLogger{},
		sink:   nopSink{},
		codec:  newCodec(),
		backoff: BackoffPolicy{
			Base:   cfg.ReconnectBaseDelay,
			Max:    cfg.MaxReconnectDelay,
			Jitter: cfg.ReconnectJitter,
		},
		newTransport: defaultTransportFactory,
	}
	c.machine = newStateMachine(cfg.MaxReconnectTries, dynamicLogger{c})
	c.heartbeat = newHeartbeatMonitor(cfg.HeartbeatInterval, dynamicLogger{c}, func() bool {
		return c.writeFrame(framePing, nil)
	})
	c.dispatcher.onPong = c.handlePong
	c.dispatcher.onPing = func(Envelope) {
		// symmetric liveness: answer a server-initiated probe
		c.writeFrame(framePong, nil)
	}
	return c
}

// SetLogger overrides the logger (optional). Call before Connect.
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.logger = l
}

// SetMetricsSink overrides the metrics sink (optional). Call before Connect.
func (c *Client) SetMetricsSink(s MetricsSink) {
	if s == nil {
		return
	}
	c.sink = s
}

// SetTransportFactory overrides how sockets are created. Intended for tests.
func (c *Client) SetTransportFactory(f TransportFactory) {
	if f == nil {
		return
	}
	c.newTransport = f
}

// OnStateChanged registers a callback invoked once per state transition, in
// transition order.
func (c *Client) OnStateChanged(fn func(StateEvent)) { c.machine.subscribe(fn) }

// OnMessage registers a callback for message events.
func (c *Client) OnMessage(fn func(MessageEvent)) { c.dispatcher.SetOnMessage(fn) }

// OnUserJoined registers a callback for user joined events.
func (c *Client) OnUserJoined(fn func(UserEvent)) { c.dispatcher.SetOnUserJoined(fn) }

// OnUserLeft registers a callback for user left events.
func (c *Client) OnUserLeft(fn func(UserEvent)) { c.dispatcher.SetOnUserLeft(fn) }

// OnHistory registers a callback for history replays.
func (c *Client) OnHistory(fn func(HistoryEvent)) { c.dispatcher.SetOnHistory(fn) }

// OnFrame registers a callback invoked with every decoded application frame,
// before any typed callback.
func (c *Client) OnFrame(fn func(Envelope)) { c.dispatcher.SetOnFrame(fn) }

// OnError registers a callback for transport and server-reported errors.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// State returns the current connection state.
func (c *Client) State() ConnectionState { return c.machine.state() }

// Metrics returns a snapshot of the client's transport counters.
func (c *Client) Metrics() Metrics {
	c.metricsMu.Lock()
	defer c.metricsMu.Unlock()
	return c.metrics
}

// Connect validates the session, dials the relay, and starts the read loop
// and heartbeat. A failure to obtain a token or to dial puts the client in
// StateError and is returned to the caller; an explicit Connect never
// retries on its own. Connect supersedes any previous socket, so at most
// one socket is ever live per client. A Connect overtaken by Disconnect or
// by a newer Connect abandons its attempt without touching the state.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.cfg.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.intentional = false
	c.epoch++
	epoch := c.epoch
	c.stopReconnectTimerLocked()
	c.dropTransportLocked("superseded by new connect")
	c.mu.Unlock()
	c.heartbeat.stop()

	c.machine.set(StateConnecting, nil)

	token, err := c.auth.ValidateSession(ctx)
	if c.superseded(epoch) {
		return errConnectSuperseded
	}
	if err == nil && token == "" {
		err = ErrNoSession
	}
	if err != nil {
		aerr := WrapError(ErrorAuth, "session validation failed", err)
		c.logger.Error("authentication failed", map[string]any{"error": err.Error()})
		c.recordError(aerr)
		c.machine.set(StateError, aerr)
		return aerr
	}

	endpoint, err := c.buildURL(token)
	if err != nil {
		c.recordError(err)
		c.machine.set(StateError, err)
		return err
	}

	tr := c.newTransport(c.cfg)
	if err := tr.Dial(ctx, endpoint); err != nil {
		if c.superseded(epoch) {
			return errConnectSuperseded
		}
		cerr := WrapError(ErrorConnection, "dial failed", err)
		c.logger.Error("dial failed", map[string]any{"url": c.cfg.URL, "error": err.Error()})
		c.recordError(cerr)
		c.machine.set(StateError, cerr)
		return cerr
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if epoch != c.epoch {
		// Disconnect or a newer Connect won while we were suspended; the
		// freshly dialed socket must not go live
		c.mu.Unlock()
		cancel()
		_ = tr.Close("connection attempt superseded")
		return errConnectSuperseded
	}
	c.dropTransportLocked("superseded by concurrent connect")
	c.gen++
	gen := c.gen
	c.transport = tr
	c.cancelRead = cancel
	c.mu.Unlock()

	c.machine.set(StateConnected, nil)
	c.updateMetrics(func(m *Metrics) {
		m.LastConnected = time.Now()
		m.ReconnectAttempts = 0
	})

	c.writeFrame(frameHello, HelloPayload{Protocol: ProtocolVersion, User: c.cfg.User})

	c.heartbeat.start()
	go c.readLoop(readCtx, tr, gen)
	return nil
}

// Send encodes payload as an application frame of the given type and writes
// it to the socket. It returns true only when the client is connected and
// the write succeeds; otherwise it logs and returns false. Send never
// panics and never blocks beyond the configured write timeout.
func (c *Client) Send(frameType string, payload any) bool {
	if !c.writeFrame(frameType, payload) {
		return false
	}
	c.updateMetrics(func(m *Metrics) { m.MessagesSent++ })
	return true
}

// Join subscribes to a conversation.
func (c *Client) Join(conversation string) bool {
	return c.Send(frameJoin, JoinPayload{Conversation: conversation})
}

// Leave unsubscribes from a conversation.
func (c *Client) Leave(conversation string) bool {
	return c.Send(frameLeave, JoinPayload{Conversation: conversation})
}

// SendMessage publishes a message to a conversation.
func (c *Client) SendMessage(conversation, text string) bool {
	return c.Send(frameMsg, MsgPayload{Conversation: conversation, Text: text})
}

// Disconnect tears down the connection and cancels any pending reconnection
// timer and heartbeat. It is idempotent and is the only path that prevents
// automatic reconnection. After Disconnect returns no further state
// transitions or socket events occur until the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	c.epoch++
	c.stopReconnectTimerLocked()
	c.dropTransportLocked("client disconnect")
	c.mu.Unlock()

	c.heartbeat.stop()
	if c.machine.state() != StateDisconnected {
		c.machine.set(StateDisconnected, nil)
	}
}

func (c *Client) buildURL(token string) (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", WrapError(ErrorInvalidConfig, "parse URL", err)
	}
	q := u.Query()
	q.Set("session_id", c.cfg.SessionID)
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(ctx context.Context, tr Transport, gen uint64) {
	for {
		raw, err := tr.Read(ctx)
		if err != nil {
			c.handleTransportLoss(gen, tr, err)
			return
		}

		env, derr := c.codec.Decode(raw)
		if derr != nil {
			// malformed frames are dropped; they never crash the client
			// and never count as received messages
			c.logger.Error("dropping undecodable frame", map[string]any{
				"error": derr.Error(),
				"raw":   string(raw),
			})
			continue
		}

		if c.dispatcher.Dispatch(env) {
			c.updateMetrics(func(m *Metrics) { m.MessagesReceived++ })
		}
	}
}

// handleTransportLoss runs when the read loop exits. Losses belonging to a
// superseded socket generation are ignored; an intentional disconnect has
// already bumped the generation, so only a genuine failure of the current
// socket reaches the reconnection path.
func (c *Client) handleTransportLoss(gen uint64, tr Transport, cause error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	c.cancelRead = nil
	c.gen++
	c.mu.Unlock()

	_ = tr.Close("read failure")
	c.heartbeat.stop()

	err := WrapError(ErrorConnection, "transport lost", cause)
	c.logger.Warn("transport lost", map[string]any{"error": cause.Error()})
	c.recordError(err)
	c.dispatcher.fireError(err)

	if !c.cfg.AutoReconnect {
		c.machine.set(StateDisconnected, err)
		return
	}
	c.scheduleReconnect()
}

// scheduleReconnect consumes one reconnection attempt and arms a single
// backoff timer. When the attempt budget is spent the client transitions to
// the terminal StateFailed and nothing further is scheduled.
func (c *Client) scheduleReconnect() {
	if !c.machine.incrementAttempts() {
		err := NewError(ErrorRetriesExhausted, "maximum reconnection attempts exhausted")
		c.logger.Error("giving up on reconnection", map[string]any{
			"attempts": c.cfg.MaxReconnectTries,
		})
		c.recordError(err)
		c.dispatcher.fireError(err)
		c.machine.set(StateFailed, err)
		return
	}

	attempt := c.machine.attemptCount()
	c.machine.set(StateReconnecting, nil)
	c.updateMetrics(func(m *Metrics) { m.ReconnectAttempts = attempt })

	delay := c.backoff.Delay(attempt - 1)
	c.logger.Info("scheduling reconnect", map[string]any{
		"attempt": attempt,
		"max":     c.cfg.MaxReconnectTries,
		"delay":   delay.String(),
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intentional {
		return
	}
	c.stopReconnectTimerLocked()
	c.reconnectTimer = time.AfterFunc(delay, c.retryConnect)
}

// retryConnect fires from the backoff timer. Connect revalidates the session
// token, so an expired token is never replayed across attempts. A failed
// retry re-enters the backoff schedule instead of escaping.
func (c *Client) retryConnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	intentional := c.intentional
	c.mu.Unlock()
	if intentional {
		return
	}

	if err := c.Connect(context.Background()); err != nil {
		if errors.Is(err, errConnectSuperseded) {
			return
		}
		c.logger.Warn("reconnect attempt failed", map[string]any{"error": err.Error()})
		c.scheduleReconnect()
	}
}

func (c *Client) handlePong(Envelope) {
	latency := c.heartbeat.pongReceived()
	c.updateMetrics(func(m *Metrics) {
		m.LastHeartbeat = time.Now()
		if latency > 0 {
			m.Latency = latency
		}
	})
}

func (c *Client) writeFrame(frameType string, payload any) bool {
	c.mu.Lock()
	tr := c.transport
	c.mu.Unlock()

	if tr == nil || c.machine.state() != StateConnected {
		c.logger.Warn("frame dropped: not connected", map[string]any{"type": frameType})
		return false
	}

	raw, err := c.codec.Encode(frameType, payload)
	if err != nil {
		c.logger.Error("frame encoding failed", map[string]any{
			"type":  frameType,
			"error": err.Error(),
		})
		return false
	}

	if err := tr.Write(context.Background(), raw); err != nil {
		c.logger.Error("frame write failed", map[string]any{
			"type":  frameType,
			"error": err.Error(),
		})
		c.recordError(WrapError(ErrorSend, "write failed", err))
		return false
	}
	return true
}

// superseded reports whether a newer Connect or a Disconnect has overtaken
// the connection attempt that captured epoch.
func (c *Client) superseded(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return epoch != c.epoch
}

func (c *Client) recordError(err error) {
	c.updateMetrics(func(m *Metrics) { m.LastError = err })
}

func (c *Client) updateMetrics(fn func(*Metrics)) {
	c.metricsMu.Lock()
	fn(&c.metrics)
	snapshot := c.metrics
	c.metricsMu.Unlock()
	c.sink.Update(snapshot)
}

// dropTransportLocked closes the current socket, if any, and invalidates its
// generation so its pending read-loop events are discarded. Caller holds mu.
func (c *Client) dropTransportLocked(reason string) {
	if c.cancelRead != nil {
		c.cancelRead()
		c.cancelRead = nil
	}
	if c.transport == nil {
		return
	}
	tr := c.transport
	c.transport = nil
	c.gen++
	go func() { _ = tr.Close(reason) }()
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// dynamicLogger defers logger resolution to call time so components built in
// NewClient observe a logger installed later via SetLogger.
type dynamicLogger struct{ c *Client }

func (d dynamicLogger) Debug(msg string, f map[string]any) { d.c.logger.Debug(msg, f) }
func (d dynamicLogger) Info(msg string, f map[string]any)  { d.c.logger.Info(msg, f) }
func (d dynamicLogger) Warn(msg string, f map[string]any)  { d.c.logger.Warn(msg, f) }
func (d dynamicLogger) Error(msg string, f map[string]any) { d.c.logger.Error(msg, f) }
