package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/dashboard-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	messages chan []byte
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		messages: make(chan []byte, 8),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-c.messages:
		return msg, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeTransport struct {
	mu    sync.Mutex
	dials int
	// dialFn decides the outcome of dial attempt n (1-based).
	dialFn func(n int) (Conn, error)
}

func (t *fakeTransport) Dial(_ context.Context, _ string) (Conn, error) {
	t.mu.Lock()
	t.dials++
	n := t.dials
	fn := t.dialFn
	t.mu.Unlock()
	return fn(n)
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func testConfig() config.RefreshConfig {
	return config.RefreshConfig{
		WebSocketURL:         "ws://example.test/updates",
		ConnectTimeout:       time.Second,
		PollInterval:         5 * time.Millisecond,
		ReconnectBaseDelay:   time.Millisecond,
		ReconnectMaxDelay:    4 * time.Millisecond,
		ReconnectMaxAttempts: 3,
	}
}

func TestRefresher_PushMessagesTriggerUpdates(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{dialFn: func(int) (Conn, error) { return conn, nil }}

	var updates atomic.Int32
	r := NewRefresher(testConfig(), transport, func(context.Context) { updates.Add(1) }, zap.NewNop())

	r.Start()
	defer r.Stop()

	conn.messages <- []byte("refresh")
	conn.messages <- []byte("refresh")

	require.Eventually(t, func() bool { return updates.Load() == 2 }, 2*time.Second, time.Millisecond)
}

func TestRefresher_FallsBackToPollingAfterReconnectBudget(t *testing.T) {
	transport := &fakeTransport{dialFn: func(int) (Conn, error) {
		return nil, errors.New("dial failed")
	}}

	var updates atomic.Int32
	r := NewRefresher(testConfig(), transport, func(context.Context) { updates.Add(1) }, zap.NewNop())

	r.Start()
	defer r.Stop()

	// Dials stop at the attempt budget and the poller takes over.
	require.Eventually(t, func() bool { return updates.Load() >= 2 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 3, transport.dialCount())
}

func TestRefresher_ReconnectsAfterConnectionLoss(t *testing.T) {
	second := newFakeConn()
	transport := &fakeTransport{dialFn: func(n int) (Conn, error) {
		if n == 1 {
			first := newFakeConn()
			first.Close()
			return first, nil
		}
		return second, nil
	}}

	var updates atomic.Int32
	r := NewRefresher(testConfig(), transport, func(context.Context) { updates.Add(1) }, zap.NewNop())

	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool { return transport.dialCount() >= 2 }, 2*time.Second, time.Millisecond)

	second.messages <- []byte("refresh")
	require.Eventually(t, func() bool { return updates.Load() == 1 }, 2*time.Second, time.Millisecond)
}

func TestRefresher_StopDoesNotReconnect(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{dialFn: func(int) (Conn, error) { return conn, nil }}

	r := NewRefresher(testConfig(), transport, func(context.Context) {}, zap.NewNop())

	r.Start()
	require.Eventually(t, func() bool { return transport.dialCount() == 1 }, 2*time.Second, time.Millisecond)

	r.Stop()

	// Stop is a clean shutdown, not a connection loss.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, transport.dialCount())
}

func TestRefresher_NoSocketURLPollsFromTheStart(t *testing.T) {
	cfg := testConfig()
	cfg.WebSocketURL = ""

	transport := &fakeTransport{dialFn: func(int) (Conn, error) { return nil, errors.New("unexpected dial") }}

	var updates atomic.Int32
	r := NewRefresher(cfg, transport, func(context.Context) { updates.Add(1) }, zap.NewNop())

	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool { return updates.Load() >= 2 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 0, transport.dialCount())
}

func TestRefresher_StartTwiceIsNoop(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{dialFn: func(int) (Conn, error) { return conn, nil }}

	r := NewRefresher(testConfig(), transport, func(context.Context) {}, zap.NewNop())

	r.Start()
	r.Start()
	require.Eventually(t, func() bool { return transport.dialCount() == 1 }, 2*time.Second, time.Millisecond)

	r.Stop()
	assert.Equal(t, 1, transport.dialCount())
}
