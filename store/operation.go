package store

import (
	"fmt"
	"time"
	"unicode/utf16"
)

// Result is the outcome of a successful operation. Found is false when a
// read hits an unset slot or an unknown key; that is a valid answer, not an
// error. A write reports the value it stored.
type Result struct {
	Value string
	Found bool
}

// Callback receives an operation's outcome exactly once. When err is nil the
// Result is meaningful; otherwise it is zero.
type Callback func(Result, error)

// Operation is one pending Get or Set. It is owned by its queue node until a
// cycle completes or fails it.
type Operation struct {
	ID       string
	Key      string
	Slot     int
	Value    *string // nil for reads.
	Callback Callback
	Enqueued time.Time
}

// IsRead reports whether op is a Get.
func (op *Operation) IsRead() bool {
	return op.Value == nil
}

// OpOption adjusts a single Get or Set.
type OpOption func(*opConfig)

type opConfig struct {
	slot int
}

// Slot targets value slot n, in [0, MaxSlotCount). The default is 0.
func Slot(n int) OpOption {
	return func(c *opConfig) { c.slot = n }
}

func applyOpOptions(opts []OpOption) opConfig {
	var c opConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func validateSlot(slot int) error {
	if slot < 0 || slot >= MaxSlotCount {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidSlot, slot, MaxSlotCount)
	}
	return nil
}

// validateLength measures s in UTF-16 code units, so a character outside
// the Basic Multilingual Plane counts twice.
func validateLength(s string, sentinel error) error {
	if n := utf16Len(s); n > MaxDescriptionLength {
		return fmt.Errorf("%w: %d units, limit %d", sentinel, n, MaxDescriptionLength)
	}
	return nil
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
