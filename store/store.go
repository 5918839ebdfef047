// Package store implements a key-value store on a budgeted, intermittently
// available medium. Get and Set enqueue operations; Tick, called once per
// host cycle, drains the queue within the cycle's medium-call budget.
//
//	s, err := store.New(&cfg, medium.NewMemoryMedium())
//	s.Set("greeting", "hello", func(r store.Result, err error) { ... })
//	report := s.Tick(ctx)
//
// A Store is not safe for concurrent use. Get, Set and Tick must all run on
// the goroutine that owns the store; see the host package for a driver that
// marshals calls from other goroutines.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/tickstore/address"
	"github.com/tailored-agentic-units/tickstore/medium"
	"github.com/tailored-agentic-units/tickstore/observability"
	"github.com/tailored-agentic-units/tickstore/queue"
)

// Option configures a Store after config-driven initialization.
type Option func(*Store)

// WithObserver overrides the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithAgents supplies the active-agent count, read at the start of every
// cycle. The budget of a cycle is agents × PerAgentLimit.
func WithAgents(agents func() int) Option {
	return func(s *Store) { s.agents = agents }
}

// WithClock overrides time.Now for event and enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the engine. It exclusively owns its pending queue.
type Store struct {
	medium   medium.Medium
	pending  *queue.Queue[*Operation]
	observer observability.Observer
	metrics  Metrics
	agents   func() int
	now      func() time.Time
	base     address.Position
	yLimit   int
	perAgent int
	cycle    uint64
	ticking  bool
}

// New creates a Store over m from cfg. Options applied after initialization
// override config-created defaults.
func New(cfg *Config, m medium.Medium, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: medium is nil", ErrInvalidConfig)
	}

	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	agents := cfg.Agents
	s := &Store{
		medium:   m,
		pending:  queue.New[*Operation](),
		observer: observer,
		agents:   func() int { return agents },
		now:      time.Now,
		base:     cfg.base(),
		yLimit:   cfg.YLimit,
		perAgent: cfg.PerAgentLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Get enqueues a read of key. An invalid slot is reported through cb before
// Get returns and nothing is enqueued.
func (s *Store) Get(key string, cb Callback, opts ...OpOption) {
	o := applyOpOptions(opts)
	if err := validateSlot(o.slot); err != nil {
		s.reject(key, o.slot, err, cb)
		return
	}
	s.enqueue(&Operation{Key: key, Slot: o.slot, Callback: cb})
}

// Set enqueues a write of value under key. value is stored in its fmt.Sprint
// form. Overlong values or keys and invalid slots are reported through cb
// before Set returns and nothing is enqueued.
func (s *Store) Set(key string, value any, cb Callback, opts ...OpOption) {
	o := applyOpOptions(opts)
	str := fmt.Sprint(value)

	if err := validateLength(str, ErrValueTooLong); err != nil {
		s.reject(key, o.slot, err, cb)
		return
	}
	if err := validateLength(key, ErrKeyTooLong); err != nil {
		s.reject(key, o.slot, err, cb)
		return
	}
	if err := validateSlot(o.slot); err != nil {
		s.reject(key, o.slot, err, cb)
		return
	}
	s.enqueue(&Operation{Key: key, Slot: o.slot, Value: &str, Callback: cb})
}

// Pending returns the number of queued operations.
func (s *Store) Pending() int {
	return s.pending.Len()
}

// Metrics returns a snapshot of the engine counters. Safe to call from any
// goroutine.
func (s *Store) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

func (s *Store) enqueue(op *Operation) {
	op.ID = uuid.Must(uuid.NewV7()).String()
	op.Enqueued = s.now()
	s.pending.PushBack(op)
	s.metrics.enqueued.Add(1)

	s.emit(context.Background(), EventOpEnqueue, observability.LevelVerbose, "store.enqueue", map[string]any{
		"id":      op.ID,
		"read":    op.IsRead(),
		"slot":    op.Slot,
		"pending": s.pending.Len(),
	})
}

func (s *Store) reject(key string, slot int, err error, cb Callback) {
	s.metrics.rejected.Add(1)
	s.emit(context.Background(), EventOpReject, observability.LevelWarning, "store.validate", map[string]any{
		"key_length": len(key),
		"slot":       slot,
		"error":      err.Error(),
	})
	s.call(context.Background(), "", cb, Result{}, err)
}

// call invokes cb, containing any panic so it cannot escape into the cycle.
func (s *Store) call(ctx context.Context, id string, cb Callback, res Result, err error) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.emit(ctx, EventCallbackPanic, observability.LevelError, "store.callback", map[string]any{
				"id":    id,
				"panic": fmt.Sprint(r),
			})
		}
	}()
	cb(res, err)
}

func (s *Store) emit(ctx context.Context, t observability.EventType, level observability.Level, source string, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: s.now(),
		Source:    source,
		Data:      data,
	})
}
