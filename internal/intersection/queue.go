package intersection

import "github.com/cxd309/signal-engine/internal/vehicle"

// Queue is an unbounded FIFO of waiting vehicle ids for one incoming street.
type Queue struct {
	items []vehicle.ID
	head  int
}

// Push appends id to the back of the queue.
func (q *Queue) Push(id vehicle.ID) {
	q.items = append(q.items, id)
}

// Pop removes and returns the front of the queue. ok is false when empty.
func (q *Queue) Pop() (id vehicle.ID, ok bool) {
	if q.head == len(q.items) {
		return 0, false
	}
	id = q.items[q.head]
	q.head++
	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	} else if q.head > 32 && q.head*2 >= len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return id, true
}

// Len returns the number of waiting vehicles.
func (q *Queue) Len() int { return len(q.items) - q.head }

// Snapshot returns the waiting vehicle ids, front first.
func (q *Queue) Snapshot() []vehicle.ID {
	out := make([]vehicle.ID, q.Len())
	copy(out, q.items[q.head:])
	return out
}
