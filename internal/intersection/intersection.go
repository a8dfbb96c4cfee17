// Package intersection implements a signalled intersection: one FIFO queue
// per incoming street and a cyclic schedule naming the single green street
// for every tick.
package intersection

import (
	"errors"
	"fmt"

	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/vehicle"
)

// ErrSealed is returned when the layout or schedule of an intersection is
// changed after the simulation has started.
var ErrSealed = errors.New("intersection sealed: simulation already started")

// Advancer moves a released vehicle onto the next street of its route.
type Advancer interface {
	AdvanceToNextRoad(t int, id vehicle.ID) error
}

// Intersection is a small state machine: {no green, green on street s},
// recomputed once per tick from the expanded schedule.
type Intersection struct {
	ID       graph.IntersectionID
	incoming []graph.StreetID
	queues   map[graph.StreetID]*Queue
	schedule []graph.StreetID
	green    graph.StreetID
	sealed   bool
}

// New returns an intersection with no incoming streets and an empty schedule.
func New(id graph.IntersectionID) *Intersection {
	return &Intersection{
		ID:     id,
		queues: make(map[graph.StreetID]*Queue),
		green:  graph.NoStreet,
	}
}

// AddIncomingStreet registers an empty queue for street.
func (x *Intersection) AddIncomingStreet(street graph.StreetID) error {
	if x.sealed {
		return fmt.Errorf("intersection %d: add street %d: %w", x.ID, street, ErrSealed)
	}
	if _, exists := x.queues[street]; exists {
		return fmt.Errorf("intersection %d: street %d already incoming", x.ID, street)
	}
	x.incoming = append(x.incoming, street)
	x.queues[street] = &Queue{}
	return nil
}

// SetSchedule installs the expanded green-street sequence. Every entry must be
// an incoming street. An empty sequence means no street is ever green.
func (x *Intersection) SetSchedule(schedule []graph.StreetID) error {
	if x.sealed {
		return fmt.Errorf("intersection %d: set schedule: %w", x.ID, ErrSealed)
	}
	for i, s := range schedule {
		if _, ok := x.queues[s]; !ok {
			return fmt.Errorf("intersection %d: schedule entry %d: street %d is not incoming", x.ID, i, s)
		}
	}
	x.schedule = append([]graph.StreetID(nil), schedule...)
	return nil
}

// Seal freezes the layout and schedule. The engine calls it when a run starts.
func (x *Intersection) Seal() { x.sealed = true }

// Enqueue appends id to the queue of street.
func (x *Intersection) Enqueue(street graph.StreetID, id vehicle.ID) error {
	q, ok := x.queues[street]
	if !ok {
		return fmt.Errorf("intersection %d: enqueue vehicle %d: street %d is not incoming", x.ID, id, street)
	}
	q.Push(id)
	return nil
}

// UpdateScheduleForTick recomputes the green street for tick t. It must run
// exactly once per tick, before DequeueGreen.
func (x *Intersection) UpdateScheduleForTick(t int) {
	if len(x.schedule) == 0 {
		x.green = graph.NoStreet
		return
	}
	x.green = x.schedule[t%len(x.schedule)]
}

// DequeueGreen releases at most one vehicle: the front of the green street's
// queue, which is handed to adv. It reports the released vehicle, if any.
func (x *Intersection) DequeueGreen(t int, adv Advancer) (vehicle.ID, bool, error) {
	if x.green == graph.NoStreet {
		return 0, false, nil
	}
	id, ok := x.queues[x.green].Pop()
	if !ok {
		return 0, false, nil
	}
	if err := adv.AdvanceToNextRoad(t, id); err != nil {
		return id, true, fmt.Errorf("intersection %d: %w", x.ID, err)
	}
	return id, true, nil
}

// Green returns the current green street, or false if none is green.
func (x *Intersection) Green() (graph.StreetID, bool) {
	return x.green, x.green != graph.NoStreet
}

// Incoming returns the registered incoming streets in registration order.
func (x *Intersection) Incoming() []graph.StreetID {
	return append([]graph.StreetID(nil), x.incoming...)
}

// Schedule returns a copy of the expanded schedule.
func (x *Intersection) Schedule() []graph.StreetID {
	return append([]graph.StreetID(nil), x.schedule...)
}

// QueueLen returns the number of vehicles waiting on street.
func (x *Intersection) QueueLen(street graph.StreetID) int {
	if q, ok := x.queues[street]; ok {
		return q.Len()
	}
	return 0
}

// Waiting returns the vehicles waiting on street, front first.
func (x *Intersection) Waiting(street graph.StreetID) []vehicle.ID {
	if q, ok := x.queues[street]; ok {
		return q.Snapshot()
	}
	return nil
}
