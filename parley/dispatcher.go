package parley

// Dispatcher routes inbound envelopes to registered callbacks. Control
// frames (ping, pong, server error) are intercepted and handled through the
// internal hooks; only application frames reach the user-facing callbacks.
type Dispatcher struct {
	onMessage    func(MessageEvent)
	onUserJoined func(UserEvent)
	onUserLeft   func(UserEvent)
	onHistory    func(HistoryEvent)
	onFrame      func(Envelope)
	onError      func(error)

	// set by the owning client, not exposed
	onPing func(Envelope)
	onPong func(Envelope)
}

func (d *Dispatcher) SetOnMessage(fn func(MessageEvent)) { d.onMessage = fn }
func (d *Dispatcher) SetOnUserJoined(fn func(UserEvent)) { d.onUserJoined = fn }
func (d *Dispatcher) SetOnUserLeft(fn func(UserEvent))   { d.onUserLeft = fn }
func (d *Dispatcher) SetOnHistory(fn func(HistoryEvent)) { d.onHistory = fn }
func (d *Dispatcher) SetOnFrame(fn func(Envelope))       { d.onFrame = fn }
func (d *Dispatcher) SetOnError(fn func(error))          { d.onError = fn }

// Dispatch routes one decoded envelope. It returns true for application
// frames and false for control frames, so the caller can keep accurate
// received-message accounting.
func (d *Dispatcher) Dispatch(env Envelope) bool {
	switch env.Type {
	case framePing:
		if d.onPing != nil {
			d.onPing(env)
		}
		return false
	case framePong:
		if d.onPong != nil {
			d.onPong(env)
		}
		return false
	case frameError:
		// A server error frame reports a problem but does not by itself
		// tear down the connection.
		if env.Error != nil && d.onError != nil {
			d.onError(FromProtocolError(env.Error))
		}
		return false
	}

	if d.onFrame != nil {
		d.onFrame(env)
	}

	switch env.Event {
	case eventMessage:
		if d.onMessage == nil {
			return true
		}
		var ev MessageEvent
		if err := UnmarshalData(env.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal message event", err))
			return true
		}
		d.onMessage(ev)
	case eventUserJoined:
		if d.onUserJoined == nil {
			return true
		}
		var ev UserEvent
		if err := UnmarshalData(env.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal user_joined event", err))
			return true
		}
		d.onUserJoined(ev)
	case eventUserLeft:
		if d.onUserLeft == nil {
			return true
		}
		var ev UserEvent
		if err := UnmarshalData(env.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal user_left event", err))
			return true
		}
		d.onUserLeft(ev)
	case eventHistory:
		if d.onHistory == nil {
			return true
		}
		var ev HistoryEvent
		if err := UnmarshalData(env.Data, &ev); err != nil {
			d.fireError(WrapError(ErrorSerialization, "failed to unmarshal history event", err))
			return true
		}
		d.onHistory(ev)
	}
	return true
}

func (d *Dispatcher) fireError(err error) {
	if d.onError != nil && err != nil {
		d.onError(err)
	}
}
