// Package queue provides a circular, sentinel-anchored doubly-linked queue
// that tolerates removal of any node during an in-progress traversal.
//
// Nodes live in an arena and are addressed by generational handles. Delete
// flags and unlinks a node but leaves its own links intact, so a traversal
// parked on it can still step forward or backward; traversals skip (and
// unlink again, if needed) every flagged node they meet. Arena slots of
// deleted nodes are reclaimed only by Compact, which the owner calls when no
// traversal is in progress.
package queue

// Handle addresses one node. The zero Handle is the sentinel of every queue.
type Handle struct {
	index uint32
	gen   uint32
}

const sentinel uint32 = 0

type node[T any] struct {
	val     T
	prev    uint32
	next    uint32
	gen     uint32
	deleted bool
}

// Queue is a deletion-safe linked queue of T. It is not safe for concurrent
// use; a single owner drives both insertion and traversal.
type Queue[T any] struct {
	nodes   []node[T]
	free    []uint32
	retired []uint32
	len     int
}

// New creates an empty queue holding only its sentinel.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		nodes: []node[T]{{prev: sentinel, next: sentinel}},
	}
}

// Head returns the sentinel handle. It anchors traversal and is never
// returned by Next or Prev.
func (q *Queue[T]) Head() Handle {
	return Handle{index: sentinel, gen: q.nodes[sentinel].gen}
}

// Len reports the number of live nodes.
func (q *Queue[T]) Len() int {
	return q.len
}

// PushBack appends v at the tail, the last position a forward traversal
// from Head reaches.
func (q *Queue[T]) PushBack(v T) Handle {
	return q.InsertBefore(q.Head(), v)
}

// InsertAfter links v directly after h. When h has been deleted, v is linked
// before the first live node following h.
func (q *Queue[T]) InsertAfter(h Handle, v T) Handle {
	at := q.resolve(h)
	if q.nodes[at].deleted {
		return q.InsertBefore(h, v)
	}
	return q.insertBetween(at, q.nodes[at].next, v)
}

// InsertBefore links v directly before h. When h has been deleted, v is
// linked before the first live node following h.
func (q *Queue[T]) InsertBefore(h Handle, v T) Handle {
	at := q.resolve(h)
	if q.nodes[at].deleted {
		at = q.liveAfter(at)
	}
	return q.insertBetween(q.nodes[at].prev, at, v)
}

// Next returns the first live node after h. It reports false at the end of
// the queue or when h is stale.
func (q *Queue[T]) Next(h Handle) (Handle, bool) {
	if !q.valid(h) {
		return Handle{}, false
	}
	idx := q.liveAfter(h.index)
	if idx == sentinel {
		return Handle{}, false
	}
	return Handle{index: idx, gen: q.nodes[idx].gen}, true
}

// Prev returns the first live node before h. It reports false at the front
// of the queue or when h is stale.
func (q *Queue[T]) Prev(h Handle) (Handle, bool) {
	if !q.valid(h) {
		return Handle{}, false
	}
	idx := q.liveBefore(h.index)
	if idx == sentinel {
		return Handle{}, false
	}
	return Handle{index: idx, gen: q.nodes[idx].gen}, true
}

// Value returns the payload of a live node.
func (q *Queue[T]) Value(h Handle) (T, bool) {
	var zero T
	if !q.valid(h) || h.index == sentinel || q.nodes[h.index].deleted {
		return zero, false
	}
	return q.nodes[h.index].val, true
}

// Delete flags h and unlinks it from its neighbours. It reports false for the
// sentinel, stale handles and nodes that were already deleted.
func (q *Queue[T]) Delete(h Handle) bool {
	if !q.valid(h) || h.index == sentinel || q.nodes[h.index].deleted {
		return false
	}
	n := &q.nodes[h.index]
	n.deleted = true
	var zero T
	n.val = zero
	q.unlink(h.index)
	q.retired = append(q.retired, h.index)
	q.len--
	return true
}

// Compact returns the slots of deleted nodes to the free list. Handles to
// those nodes become stale. Must not be called while a traversal still holds
// a handle it intends to step from.
func (q *Queue[T]) Compact() {
	for _, idx := range q.retired {
		n := &q.nodes[idx]
		n.gen++
		n.prev, n.next = sentinel, sentinel
		q.free = append(q.free, idx)
	}
	q.retired = q.retired[:0]
}

func (q *Queue[T]) insertBetween(prev, next uint32, v T) Handle {
	idx := q.alloc()
	n := &q.nodes[idx]
	n.val = v
	n.prev = prev
	n.next = next
	n.deleted = false
	q.nodes[prev].next = idx
	q.nodes[next].prev = idx
	q.len++
	return Handle{index: idx, gen: n.gen}
}

func (q *Queue[T]) alloc() uint32 {
	if k := len(q.free); k > 0 {
		idx := q.free[k-1]
		q.free = q.free[:k-1]
		return idx
	}
	q.nodes = append(q.nodes, node[T]{})
	return uint32(len(q.nodes) - 1)
}

// unlink splices idx out of the list if its neighbours still point at it.
// Repeating it on an already unlinked node is a no-op.
func (q *Queue[T]) unlink(idx uint32) {
	n := q.nodes[idx]
	if q.nodes[n.prev].next == idx {
		q.nodes[n.prev].next = n.next
	}
	if q.nodes[n.next].prev == idx {
		q.nodes[n.next].prev = n.prev
	}
}

func (q *Queue[T]) liveAfter(idx uint32) uint32 {
	next := q.nodes[idx].next
	for next != sentinel && q.nodes[next].deleted {
		q.unlink(next)
		next = q.nodes[next].next
	}
	return next
}

func (q *Queue[T]) liveBefore(idx uint32) uint32 {
	prev := q.nodes[idx].prev
	for prev != sentinel && q.nodes[prev].deleted {
		q.unlink(prev)
		prev = q.nodes[prev].prev
	}
	return prev
}

func (q *Queue[T]) valid(h Handle) bool {
	return int(h.index) < len(q.nodes) && q.nodes[h.index].gen == h.gen
}

func (q *Queue[T]) resolve(h Handle) uint32 {
	if !q.valid(h) {
		panic("queue: stale handle")
	}
	return h.index
}
