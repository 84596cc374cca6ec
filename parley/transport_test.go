package parley

import (
	"context"
	"errors"
	"sync"
)

// fakeTransport is an in-memory Transport for exercising the connection
// logic without a network socket.
type fakeTransport struct {
	mu      sync.Mutex
	dialErr error
	dialURL string
	dialed  bool
	closed  bool
	written [][]byte

	frames  chan []byte
	closeCh chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		frames:  make(chan []byte, 16),
		closeCh: make(chan struct{}),
	}
}

func (t *fakeTransport) Dial(_ context.Context, url string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dialErr != nil {
		return t.dialErr
	}
	t.dialed = true
	t.dialURL = url
	return nil
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case raw := <-t.frames:
		return raw, nil
	case <-t.closeCh:
		return nil, errors.New("socket closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(_ context.Context, p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("socket closed")
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	t.written = append(t.written, cp)
	return nil
}

func (t *fakeTransport) Close(string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.closeCh)
	}
	return nil
}

// fail simulates an unexpected transport loss.
func (t *fakeTransport) fail() { _ = t.Close("simulated failure") }

// push delivers a raw inbound frame.
func (t *fakeTransport) push(raw []byte) { t.frames <- raw }

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) writtenFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.written))
	copy(out, t.written)
	return out
}

func (t *fakeTransport) url() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dialURL
}

// fakeFactory hands out fake transports and remembers every one it created.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	dialErrs   []error // consumed front to back; nil entries dial fine
}

func (f *fakeFactory) factory(Config) Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := newFakeTransport()
	if len(f.dialErrs) > 0 {
		t.dialErr = f.dialErrs[0]
		f.dialErrs = f.dialErrs[1:]
	}
	f.transports = append(f.transports, t)
	return t
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) at(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[i]
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[len(f.transports)-1]
}
