// Package host drives a store from a periodic host cycle. The store is not
// safe for concurrent use, so the Driver owns it on a single goroutine:
// other goroutines submit closures that the driver runs on that goroutine
// right before each Tick.
//
//	d, err := host.Open(&cfg)
//	defer d.Close()
//	err = d.Serve(ctx, func(ctx context.Context) error {
//		res, err := d.Get(ctx, "greeting")
//		...
//	})
package host

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/tickstore/medium"
	"github.com/tailored-agentic-units/tickstore/observability"
	"github.com/tailored-agentic-units/tickstore/store"
)

// Hook runs on the cycle goroutine after every Tick.
type Hook func(ctx context.Context, report store.Report)

// Option configures a Driver after config-driven initialization.
type Option func(*Driver)

// WithHook appends h to the hooks run after each Tick.
func WithHook(h Hook) Option {
	return func(d *Driver) { d.hooks = append(d.hooks, h) }
}

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(d *Driver) { d.observer = o }
}

// WithInterval overrides the tick interval.
func WithInterval(interval time.Duration) Option {
	return func(d *Driver) { d.interval = interval }
}

// WithStoreOptions passes opts to store.New. Only Open creates a store, so
// these have no effect with New.
func WithStoreOptions(opts ...store.Option) Option {
	return func(d *Driver) { d.storeOpts = append(d.storeOpts, opts...) }
}

// Driver runs one store on one goroutine.
type Driver struct {
	store     *store.Store
	closer    io.Closer
	interval  time.Duration
	submits   chan func(*store.Store)
	hooks     []Hook
	observer  observability.Observer
	storeOpts []store.Option
	running   atomic.Bool
	done      chan struct{}
}

// New creates a Driver around an existing store.
func New(s *store.Store, opts ...Option) *Driver {
	d := newDriver(defaultTickInterval, defaultQueueSize, observability.NoOpObserver{})
	for _, opt := range opts {
		opt(d)
	}
	d.store = s
	return d
}

// Open builds the medium, the store and the driver described by cfg. Close
// releases the medium.
func Open(cfg *Config, opts ...Option) (*Driver, error) {
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, time.Duration(cfg.TickInterval))
	}

	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer (registered: %s): %w",
			strings.Join(observability.Names(), ", "), err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	d := newDriver(time.Duration(cfg.TickInterval), queueSize, observer)
	for _, opt := range opts {
		opt(d)
	}

	backend, err := medium.New(&cfg.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create medium: %w", err)
	}

	s, err := store.New(&cfg.Store, backend, d.storeOpts...)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	d.store = s
	d.closer = backend
	return d, nil
}

func newDriver(interval time.Duration, queueSize int, observer observability.Observer) *Driver {
	return &Driver{
		interval: interval,
		submits:  make(chan func(*store.Store), queueSize),
		observer: observer,
		done:     make(chan struct{}),
	}
}

// Close releases the medium opened by Open. It must not be called while
// Run is active.
func (d *Driver) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// Metrics returns the store's counters.
func (d *Driver) Metrics() store.MetricsSnapshot {
	return d.store.Metrics()
}

// Run ticks the store every interval until ctx is cancelled, then returns
// nil. A driver runs at most once.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		select {
		case <-d.done:
			return ErrStopped
		default:
			return ErrRunning
		}
	}
	defer close(d.done)

	d.emit(ctx, EventStart, observability.LevelInfo, map[string]any{
		"interval": d.interval.String(),
	})

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var cycles int
	for {
		select {
		case <-ctx.Done():
			d.emit(context.WithoutCancel(ctx), EventStop, observability.LevelInfo, map[string]any{
				"cycles":  cycles,
				"pending": d.store.Pending(),
			})
			return nil
		case <-ticker.C:
			d.Step(ctx)
			cycles++
		}
	}
}

// Step runs one cycle on the calling goroutine: queued submissions, then
// Tick, then hooks. Run calls it on every tick; tests and hosts with their
// own loop may call it directly, but never concurrently with Run.
func (d *Driver) Step(ctx context.Context) store.Report {
	d.drain(ctx)
	report := d.store.Tick(ctx)
	for _, h := range d.hooks {
		h(ctx, report)
	}
	return report
}

// Serve runs the driver for as long as the clients run, each on its own
// goroutine. The driver stops once every client has returned. The first
// client error cancels the others and is returned.
func (d *Driver) Serve(ctx context.Context, clients ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return d.Run(runCtx)
	})
	g.Go(func() error {
		defer stop()
		cg, cctx := errgroup.WithContext(gctx)
		for _, client := range clients {
			cg.Go(func() error { return client(cctx) })
		}
		return cg.Wait()
	})

	return g.Wait()
}

// Submit queues fn to run on the cycle goroutine before the next Tick. It
// blocks while the submission queue is full.
func (d *Driver) Submit(ctx context.Context, fn func(*store.Store)) error {
	select {
	case <-d.done:
		d.drop(ctx, ErrStopped)
		return ErrStopped
	default:
	}

	select {
	case d.submits <- fn:
		return nil
	case <-d.done:
		d.drop(ctx, ErrStopped)
		return ErrStopped
	case <-ctx.Done():
		d.drop(ctx, ctx.Err())
		return ctx.Err()
	}
}

// Do submits op and waits for the callback it is handed to be invoked.
func (d *Driver) Do(ctx context.Context, op func(*store.Store, store.Callback)) (store.Result, error) {
	type reply struct {
		res store.Result
		err error
	}
	replies := make(chan reply, 1)

	err := d.Submit(ctx, func(s *store.Store) {
		op(s, func(res store.Result, err error) {
			replies <- reply{res, err}
		})
	})
	if err != nil {
		return store.Result{}, err
	}

	select {
	case r := <-replies:
		return r.res, r.err
	case <-ctx.Done():
		return store.Result{}, ctx.Err()
	case <-d.done:
		select {
		case r := <-replies:
			return r.res, r.err
		default:
			return store.Result{}, ErrStopped
		}
	}
}

// Get reads key through the cycle goroutine and waits for the result.
func (d *Driver) Get(ctx context.Context, key string, opts ...store.OpOption) (store.Result, error) {
	return d.Do(ctx, func(s *store.Store, cb store.Callback) {
		s.Get(key, cb, opts...)
	})
}

// Set writes value under key through the cycle goroutine and waits for the
// result.
func (d *Driver) Set(ctx context.Context, key string, value any, opts ...store.OpOption) (store.Result, error) {
	return d.Do(ctx, func(s *store.Store, cb store.Callback) {
		s.Set(key, value, cb, opts...)
	})
}

func (d *Driver) drain(ctx context.Context) {
	for {
		select {
		case fn := <-d.submits:
			d.apply(ctx, fn)
		default:
			return
		}
	}
}

func (d *Driver) apply(ctx context.Context, fn func(*store.Store)) {
	defer func() {
		if r := recover(); r != nil {
			d.emit(ctx, EventSubmitPanic, observability.LevelError, map[string]any{
				"panic": fmt.Sprint(r),
			})
		}
	}()
	fn(d.store)
}

func (d *Driver) drop(ctx context.Context, err error) {
	d.emit(ctx, EventSubmitDrop, observability.LevelWarning, map[string]any{
		"error": err.Error(),
	})
}

func (d *Driver) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	d.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "host.Driver",
		Data:      data,
	})
}
