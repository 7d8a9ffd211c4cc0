package validate

import "permadb/internal/objid"

// Queue is the per-transaction set of objects awaiting validation,
// populated by field writes, explicit Revalidate calls, and schema
// migration under the automatic validation mode. It is a FIFO of
// distinct pending IDs: enqueuing an ID already pending is a
// no-op, and Drain lets its callback enqueue further IDs (e.g. a
// validator that touches a referenced object) without losing them —
// draining continues until the queue is empty, not just once over the
// initial contents.
type Queue struct {
	pending map[objid.ObjId]bool
	order   []objid.ObjId
}

// NewQueue returns an empty validation queue.
func NewQueue() *Queue {
	return &Queue{pending: make(map[objid.ObjId]bool)}
}

// Enqueue marks id for validation, if it isn't pending already.
func (q *Queue) Enqueue(id objid.ObjId) {
	if q.pending[id] {
		return
	}
	q.pending[id] = true
	q.order = append(q.order, id)
}

// Len reports how many distinct objects are currently pending.
func (q *Queue) Len() int {
	return len(q.order)
}

// Drain repeatedly pops the oldest pending object and runs fn on it,
// until the queue is empty — including objects fn itself enqueues
// during the drain. It stops at the first error, leaving any
// newly-enqueued-but-not-yet-validated objects still pending.
func (q *Queue) Drain(fn func(objid.ObjId) error) error {
	for len(q.order) > 0 {
		id := q.order[0]
		q.order = q.order[1:]
		delete(q.pending, id)
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}
