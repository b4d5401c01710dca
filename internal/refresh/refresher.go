package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/futig/dashboard-backend/internal/config"
	"go.uber.org/zap"
)

// Conn is a single established push connection. ReadMessage blocks
// until an update notification arrives or the connection breaks.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Transport dials the push channel. The default implementation uses a
// WebSocket; tests substitute their own.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// UpdateFunc is invoked for every refresh trigger, whether pushed over
// the socket or fired by the polling fallback.
type UpdateFunc func(ctx context.Context)

// Refresher keeps dashboard data current. It prefers the push channel
// and reconnects with exponential backoff when it drops; once the
// attempt budget is spent it degrades permanently to interval polling.
// Without a configured socket URL it polls from the start.
type Refresher struct {
	cfg       config.RefreshConfig
	transport Transport
	onUpdate  UpdateFunc
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewRefresher(cfg config.RefreshConfig, transport Transport, onUpdate UpdateFunc, logger *zap.Logger) *Refresher {
	return &Refresher{
		cfg:       cfg,
		transport: transport,
		onUpdate:  onUpdate,
		logger:    logger,
	}
}

// Start launches the refresh loop in the background. Calling Start on
// a running refresher is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go r.run(ctx)
}

// Stop shuts the loop down and waits for it to exit. A stopped
// refresher never reconnects.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.started = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.done)

	if r.cfg.WebSocketURL == "" || r.transport == nil {
		r.logger.Info("no push channel configured, using interval polling")
		r.pollLoop(ctx)
		return
	}

	attempts := 0
	delay := r.cfg.ReconnectBaseDelay

	for {
		if ctx.Err() != nil {
			return
		}

		if err := r.listen(ctx); err == nil {
			// Clean shutdown.
			return
		}

		attempts++
		if attempts >= r.cfg.ReconnectMaxAttempts {
			r.logger.Warn("push channel reconnect budget exhausted, falling back to polling",
				zap.Int("attempts", attempts),
			)
			r.pollLoop(ctx)
			return
		}

		r.logger.Info("push channel lost, reconnecting",
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
		)

		if !sleep(ctx, delay) {
			return
		}

		delay *= 2
		if delay > r.cfg.ReconnectMaxDelay {
			delay = r.cfg.ReconnectMaxDelay
		}
	}
}

// listen holds one connection open and fires onUpdate per message.
// A nil return means the refresher was stopped; any error means the
// connection broke and a reconnect should follow.
func (r *Refresher) listen(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
	conn, err := r.transport.Dial(dialCtx, r.cfg.WebSocketURL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	// Unblock the pending ReadMessage when the refresher stops.
	readerDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readerDone:
		}
	}()
	defer close(readerDone)
	defer conn.Close()

	r.logger.Info("push channel connected")

	for {
		if _, err := conn.ReadMessage(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		r.onUpdate(ctx)
	}
}

func (r *Refresher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.onUpdate(ctx)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
