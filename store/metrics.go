package store

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Cycles     int64
	Aborts     int64
	Enqueued   int64
	Rejected   int64
	Completed  int64
	Failed     int64
	BudgetUsed int64
}

// Metrics counts engine activity. Counters are atomic so a host goroutine
// can snapshot them while the cycle goroutine runs.
type Metrics struct {
	cycles     atomic.Int64
	aborts     atomic.Int64
	enqueued   atomic.Int64
	rejected   atomic.Int64
	completed  atomic.Int64
	failed     atomic.Int64
	budgetUsed atomic.Int64
}

func (m *Metrics) recordCycle(r Report) {
	m.cycles.Add(1)
	m.budgetUsed.Add(int64(r.Used))
	m.completed.Add(int64(r.Completed))
	m.failed.Add(int64(r.Failed))
	if r.Aborted {
		m.aborts.Add(1)
	}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Cycles:     m.cycles.Load(),
		Aborts:     m.aborts.Load(),
		Enqueued:   m.enqueued.Load(),
		Rejected:   m.rejected.Load(),
		Completed:  m.completed.Load(),
		Failed:     m.failed.Load(),
		BudgetUsed: m.budgetUsed.Load(),
	}
}
