// Package medium defines the storage capability the engine runs on and the
// backends that provide it. A medium is a sparse 3D grid of fixed-capacity
// records; slot 0 of a record holds the key tag and the remaining slots hold
// values. Backends perform I/O on each call and never cache.
package medium

import (
	"context"
	"io"
	"maps"

	"github.com/tailored-agentic-units/tickstore/address"
)

// RecordCapacity is the number of slots in one record, the tag slot included.
const RecordCapacity = 36

// TagSlot is the slot reserved for the key tag.
const TagSlot = 0

// Medium is the capability the engine consumes.
type Medium interface {
	// ReadRecord returns the record at pos, or nil when none exists. It fails
	// with ErrRegionUnavailable when the region holding pos is not ready.
	ReadRecord(ctx context.Context, pos address.Position) (*Record, error)
	// ActivateRegion asks the medium to make the region holding pos ready.
	// Best-effort; callers rate-limit it.
	ActivateRegion(ctx context.Context, pos address.Position) error
	// CreateRecord marks pos as a record. Idempotent.
	CreateRecord(ctx context.Context, pos address.Position) error
	// WriteSlot stores value in one slot of the record at pos. Idempotent.
	WriteSlot(ctx context.Context, pos address.Position, slot int, value string) error
}

// Backend is a Medium that holds resources until closed.
type Backend interface {
	Medium
	io.Closer
}

// Record is the content of one location.
type Record struct {
	Slots map[int]string `json:"slots,omitempty"`
}

// Tag returns the key tag. A nil record has no tag.
func (r *Record) Tag() (string, bool) {
	return r.Slot(TagSlot)
}

// Slot returns the value stored in slot i.
func (r *Record) Slot(i int) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.Slots[i]
	return v, ok
}

// Empty reports whether the record logically does not exist, i.e. its tag
// slot is unset.
func (r *Record) Empty() bool {
	_, ok := r.Tag()
	return !ok
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{Slots: maps.Clone(r.Slots)}
}

func (r *Record) set(slot int, value string) {
	if r.Slots == nil {
		r.Slots = make(map[int]string)
	}
	r.Slots[slot] = value
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= RecordCapacity {
		return ErrSlotOutOfRange
	}
	return nil
}
