package medium

import (
	"context"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/tickstore/address"
)

type region struct {
	x, z int
}

// Stats counts the calls a MemoryMedium has served.
type Stats struct {
	Reads       int
	Activations int
	Creates     int
	Writes      int
}

// MemoryMedium is an in-memory Medium. With WithRegions it simulates a
// medium whose regions must be activated before their records can be read.
// All methods are safe for concurrent use.
type MemoryMedium struct {
	mu         sync.RWMutex
	records    map[address.Position]*Record
	loaded     map[region]bool
	regionSize int
	failures   map[address.Position]error
	stats      Stats
}

// MemoryOption configures a MemoryMedium.
type MemoryOption func(*MemoryMedium)

// WithRegions groups positions into size×size columns on the X/Z plane.
// Every region starts unavailable and becomes available on ActivateRegion.
func WithRegions(size int) MemoryOption {
	return func(m *MemoryMedium) { m.regionSize = size }
}

// NewMemoryMedium creates an empty in-memory medium.
func NewMemoryMedium(opts ...MemoryOption) *MemoryMedium {
	m := &MemoryMedium{
		records:  make(map[address.Position]*Record),
		loaded:   make(map[region]bool),
		failures: make(map[address.Position]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryMedium) ReadRecord(ctx context.Context, pos address.Position) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(pos); err != nil {
		return nil, err
	}
	m.stats.Reads++
	return m.records[pos].Clone(), nil
}

func (m *MemoryMedium) ActivateRegion(ctx context.Context, pos address.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Activations++
	if m.regionSize > 0 {
		m.loaded[m.regionOf(pos)] = true
	}
	return nil
}

func (m *MemoryMedium) CreateRecord(ctx context.Context, pos address.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(pos); err != nil {
		return err
	}
	m.stats.Creates++
	if _, exists := m.records[pos]; !exists {
		m.records[pos] = &Record{}
	}
	return nil
}

func (m *MemoryMedium) WriteSlot(ctx context.Context, pos address.Position, slot int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSlot(slot); err != nil {
		return fmt.Errorf("%w: %s slot %d: %v", ErrWriteFailed, pos, slot, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(pos); err != nil {
		return err
	}
	rec, exists := m.records[pos]
	if !exists {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, pos, ErrNoRecord)
	}
	m.stats.Writes++
	rec.set(slot, value)
	return nil
}

// Close is a no-op; it lets MemoryMedium serve as a Backend.
func (m *MemoryMedium) Close() error {
	return nil
}

// Record returns a copy of the record at pos without counting a read or
// consulting region state.
func (m *MemoryMedium) Record(pos address.Position) *Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[pos].Clone()
}

// Len returns the number of records held.
func (m *MemoryMedium) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Stats returns the call counters.
func (m *MemoryMedium) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// FailAt makes every call touching pos fail with err until ClearFailures.
func (m *MemoryMedium) FailAt(pos address.Position, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[pos] = err
}

// ClearFailures removes all injected failures.
func (m *MemoryMedium) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[address.Position]error)
}

// UnloadRegions marks every region unavailable again.
func (m *MemoryMedium) UnloadRegions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = make(map[region]bool)
}

// Seed writes records directly, bypassing regions, failures and counters.
func (m *MemoryMedium) Seed(entries []SeedEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		rec := &Record{}
		for slot, value := range e.Slots {
			if err := checkSlot(slot); err != nil {
				return fmt.Errorf("medium: seed %s slot %d: %w", e.Position, slot, err)
			}
			rec.set(slot, value)
		}
		m.records[e.Position] = rec
	}
	return nil
}

func (m *MemoryMedium) check(pos address.Position) error {
	if err, ok := m.failures[pos]; ok {
		return err
	}
	if m.regionSize > 0 && !m.loaded[m.regionOf(pos)] {
		return fmt.Errorf("%w: %s", ErrRegionUnavailable, pos)
	}
	return nil
}

func (m *MemoryMedium) regionOf(pos address.Position) region {
	return region{x: floorDiv(pos.X, m.regionSize), z: floorDiv(pos.Z, m.regionSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
