package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/tickstore/address"
	"github.com/tailored-agentic-units/tickstore/medium"
)

// Budget units charged per medium call.
const (
	costRead            = 1
	costWrite           = 1
	costCreate          = 3 // mark record, write tag, write value
	costActivate        = 1
	activationSurcharge = 1
)

type outcome int

const (
	// outcomeDone: the operation completed or failed terminally.
	outcomeDone outcome = iota
	// outcomeDeferred: stopped before a decision; the operation stays queued
	// and is probed again from y = 0 next cycle.
	outcomeDeferred
	// outcomeAborted: a region activation was requested; the cycle ends.
	outcomeAborted
)

type budget struct {
	limit int
	used  int
}

func (b *budget) exhausted() bool {
	return b.used >= b.limit
}

func (b *budget) spend(n int) {
	b.used += n
}

// probe walks the collision chain of op. Nothing is written until the first
// matching or empty record is found, so a deferred probe leaves the medium
// untouched and re-probing from scratch is always safe.
func (s *Store) probe(ctx context.Context, op *Operation, b *budget) (out outcome, res Result, err error) {
	var pos address.Position
	defer func() {
		if r := recover(); r != nil {
			out, res, err = outcomeDone, Result{}, &UnexpectedError{Position: pos, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	x, z := address.Map(address.Hash(op.Key))
	for y := 0; y < s.yLimit; y++ {
		if b.exhausted() || ctx.Err() != nil {
			return outcomeDeferred, Result{}, nil
		}

		pos = s.base.Add(address.Position{X: x, Y: y, Z: z})
		rec, err := s.medium.ReadRecord(ctx, pos)
		if err != nil {
			switch {
			case errors.Is(err, medium.ErrRegionUnavailable):
				s.activate(ctx, op, pos, b)
				return outcomeAborted, Result{}, nil
			case ctx.Err() != nil:
				return outcomeDeferred, Result{}, nil
			default:
				return outcomeDone, Result{}, &UnexpectedError{Position: pos, Cause: err}
			}
		}
		b.spend(costRead)

		if rec.Empty() {
			return s.claim(ctx, op, pos, b)
		}
		if tag, _ := rec.Tag(); tag == op.Key {
			return s.resolve(ctx, op, rec, pos, b)
		}
	}

	return outcomeDone, Result{}, ErrOutOfSpace
}

// resolve finishes op against the record tagged with its key.
func (s *Store) resolve(ctx context.Context, op *Operation, rec *medium.Record, pos address.Position, b *budget) (outcome, Result, error) {
	slot := op.Slot + 1
	if op.IsRead() {
		v, ok := rec.Slot(slot)
		return outcomeDone, Result{Value: v, Found: ok}, nil
	}

	err := s.medium.WriteSlot(ctx, pos, slot, *op.Value)
	b.spend(costWrite)
	if err != nil {
		return s.writeFailure(ctx, pos, err)
	}
	return outcomeDone, Result{Value: *op.Value, Found: true}, nil
}

// claim finishes op against the first empty record of its chain. A read of
// an empty record is a miss; a write takes the record over.
func (s *Store) claim(ctx context.Context, op *Operation, pos address.Position, b *budget) (outcome, Result, error) {
	if op.IsRead() {
		return outcomeDone, Result{}, nil
	}

	b.spend(costCreate)
	if err := s.medium.CreateRecord(ctx, pos); err != nil {
		return s.writeFailure(ctx, pos, err)
	}
	if err := s.medium.WriteSlot(ctx, pos, medium.TagSlot, op.Key); err != nil {
		return s.writeFailure(ctx, pos, err)
	}
	if err := s.medium.WriteSlot(ctx, pos, op.Slot+1, *op.Value); err != nil {
		return s.writeFailure(ctx, pos, err)
	}
	return outcomeDone, Result{Value: *op.Value, Found: true}, nil
}

// writeFailure classifies a failed write. Cancellation leaves the operation
// queued; the writes are idempotent, so repeating them next cycle is safe.
func (s *Store) writeFailure(ctx context.Context, pos address.Position, err error) (outcome, Result, error) {
	if ctx.Err() != nil {
		return outcomeDeferred, Result{}, nil
	}
	return outcomeDone, Result{}, &UnexpectedError{Position: pos, Cause: err}
}
