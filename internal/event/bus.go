package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Publisher is the producer-side view of the bus.
type Publisher interface {
	Publish(ctx context.Context, msg Message)
}

// Handler consumes a published message. Handlers run off the publisher's
// goroutine and must tolerate out-of-order delivery across event names.
type Handler func(ctx context.Context, msg Message)

const (
	defaultWorkers = 8

	// handlerTimeout bounds each handler invocation. Handlers run detached
	// from the publisher's context, so a caller cancelling after its query
	// completed cannot abort recording that is already under way.
	handlerTimeout = 5 * time.Second
)

// Bus dispatches messages to subscribed handlers on a bounded worker pool,
// so publishers never block on slow consumers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	pool   *ants.Pool
	logger *slog.Logger
	wg     sync.WaitGroup
}

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	workers int
	logger  *slog.Logger
}

// WithWorkers sets the dispatch pool size.
func WithWorkers(n int) BusOption {
	return func(c *busConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the logger used for dispatch failures.
func WithLogger(logger *slog.Logger) BusOption {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewBus creates a bus with its own worker pool.
func NewBus(opts ...BusOption) (*Bus, error) {
	cfg := busConfig{workers: defaultWorkers, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := ants.NewPool(cfg.workers, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}

	return &Bus{
		handlers: make(map[string][]Handler),
		pool:     pool,
		logger:   cfg.logger,
	}, nil
}

// Subscribe registers a handler for an event name. Subscriptions made after
// a Publish do not receive that message.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers msg to all handlers subscribed to its event name.
// Delivery is asynchronous; handler panics are recovered and logged. Each
// handler runs under a context that keeps the publisher's values but not its
// cancellation, bounded by its own timeout.
func (b *Bus) Publish(ctx context.Context, msg Message) {
	if msg == nil {
		return
	}

	b.mu.RLock()
	subs := b.handlers[msg.EventName()]
	b.mu.RUnlock()

	detached := context.WithoutCancel(ctx)

	for _, h := range subs {
		h := h
		b.wg.Add(1)
		task := func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("event handler panicked",
						slog.String("event", msg.EventName()),
						slog.Any("panic", r))
				}
			}()
			hctx, cancel := context.WithTimeout(detached, handlerTimeout)
			defer cancel()
			h(hctx, msg)
		}
		if err := b.pool.Submit(task); err != nil {
			// Pool is released or saturated, run inline rather than drop.
			task()
		}
	}
}

// Drain blocks until all dispatched handlers have finished.
func (b *Bus) Drain() {
	b.wg.Wait()
}

// Close drains in-flight handlers and releases the worker pool.
func (b *Bus) Close() {
	b.wg.Wait()
	b.pool.Release()
}
