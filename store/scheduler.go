package store

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/tickstore/address"
	"github.com/tailored-agentic-units/tickstore/observability"
)

// Report summarizes one cycle.
type Report struct {
	Cycle       uint64
	Agents      int
	Budget      int
	Used        int
	Completed   int
	Failed      int
	Deferred    int
	Aborted     bool // A region activation ended the cycle early.
	Interrupted bool // The context was cancelled during the cycle.
	Pending     int
}

// Tick runs one cycle: it walks the queue from the oldest operation, probing
// each in turn, until the queue ends, the budget is spent, a region has to be
// activated, or ctx is cancelled. Operations that could not be decided stay
// queued in order for the next cycle.
//
// Tick must be called exactly once per host cycle and never from inside a
// callback.
func (s *Store) Tick(ctx context.Context) Report {
	if s.ticking {
		panic("store: Tick called re-entrantly")
	}
	s.ticking = true
	defer func() { s.ticking = false }()

	s.cycle++
	agents := max(s.agents(), 0)
	b := &budget{limit: agents * s.perAgent}
	report := Report{Cycle: s.cycle, Agents: agents, Budget: b.limit}

	s.emit(ctx, EventCycleStart, observability.LevelVerbose, "store.Tick", map[string]any{
		"cycle":   report.Cycle,
		"budget":  report.Budget,
		"pending": s.pending.Len(),
	})

	for h, ok := s.pending.Next(s.pending.Head()); ok; h, ok = s.pending.Next(h) {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		if b.exhausted() {
			break
		}

		op, _ := s.pending.Value(h)
		out, res, err := s.probe(ctx, op, b)

		switch out {
		case outcomeDeferred:
			report.Deferred++
			s.emit(ctx, EventOpDefer, observability.LevelVerbose, "store.Tick", map[string]any{
				"id":    op.ID,
				"cycle": report.Cycle,
				"age":   s.age(op),
			})
		case outcomeAborted:
			report.Aborted = true
		case outcomeDone:
			s.pending.Delete(h)
			if err != nil {
				report.Failed++
				s.emit(ctx, EventOpFail, observability.LevelWarning, "store.Tick", map[string]any{
					"id":    op.ID,
					"read":  op.IsRead(),
					"age":   s.age(op),
					"error": err.Error(),
				})
			} else {
				report.Completed++
				s.emit(ctx, EventOpComplete, observability.LevelVerbose, "store.Tick", map[string]any{
					"id":    op.ID,
					"read":  op.IsRead(),
					"found": res.Found,
					"age":   s.age(op),
				})
			}
			s.call(ctx, op.ID, op.Callback, res, err)
		}

		if report.Aborted {
			break
		}
	}
	if ctx.Err() != nil {
		report.Interrupted = true
	}

	s.pending.Compact()
	report.Used = b.used
	report.Pending = s.pending.Len()
	s.metrics.recordCycle(report)

	s.emit(ctx, EventCycleComplete, observability.LevelVerbose, "store.Tick", map[string]any{
		"cycle":     report.Cycle,
		"budget":    report.Budget,
		"used":      report.Used,
		"completed": report.Completed,
		"failed":    report.Failed,
		"aborted":   report.Aborted,
		"pending":   report.Pending,
	})

	return report
}

// age is how long op has been queued.
func (s *Store) age(op *Operation) time.Duration {
	return s.now().Sub(op.Enqueued)
}

// activate requests the region holding pos. At most one activation happens
// per cycle because the caller aborts the cycle right after.
func (s *Store) activate(ctx context.Context, op *Operation, pos address.Position, b *budget) {
	err := s.medium.ActivateRegion(ctx, pos)
	b.spend(costActivate + activationSurcharge)

	data := map[string]any{
		"id":       op.ID,
		"position": pos.String(),
	}
	level := observability.LevelInfo
	if err != nil {
		data["error"] = err.Error()
		level = observability.LevelWarning
	}
	s.emit(ctx, EventRegionActivate, level, "store.Tick", data)
}
