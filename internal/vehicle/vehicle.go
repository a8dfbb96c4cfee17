// Package vehicle defines the simulated vehicle: a fixed route of streets and
// the per-tick advancement state machine.
package vehicle

import (
	"fmt"

	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/simerr"
)

// ID is the dense numeric id of a vehicle, its index in the engine arena.
type ID = int

// State describes what a vehicle is doing during the current tick.
type State string

const (
	StateQueued  State = "queued"  // waiting in an intersection FIFO
	StateMoving  State = "moving"  // advancing along its current street
	StateReached State = "reached" // finished its route; terminal
)

// Enqueuer places a vehicle in the queue for street at intersection at.
type Enqueuer interface {
	Enqueue(at graph.IntersectionID, street graph.StreetID, id ID) error
}

// Vehicle is a route plus live travel state. It references streets by id
// only; the network it reads lengths and destinations from is immutable.
type Vehicle struct {
	ID           ID
	route        []graph.StreetID
	net          *graph.Network
	routeIndex   int
	position     int
	state        State
	reachingTime int
}

// New creates a vehicle waiting at the end of the first street of route. The
// first street's length is consumed immediately: the vehicle is enqueued at
// that street's destination intersection and starts in StateQueued.
func New(id ID, route []graph.StreetID, net *graph.Network, q Enqueuer) (*Vehicle, error) {
	if len(route) == 0 {
		return nil, simerr.Malformed("vehicle %d has an empty route", id)
	}
	first := net.Street(route[0])
	v := &Vehicle{
		ID:       id,
		route:    append([]graph.StreetID(nil), route...),
		net:      net,
		position: first.Length,
		state:    StateQueued,
	}
	if err := q.Enqueue(first.To, first.ID, id); err != nil {
		return nil, fmt.Errorf("vehicle %d: initial enqueue: %w", id, err)
	}
	return v, nil
}

// AdvanceOneTick moves the vehicle one unit along its current street during
// tick t. Reaching the end of the street either finishes the route or queues
// the vehicle at the street's destination intersection. Reached vehicles are
// left untouched, and a failed enqueue leaves the vehicle unchanged.
func (v *Vehicle) AdvanceOneTick(t int, q Enqueuer) error {
	if v.state == StateReached {
		return nil
	}
	street := v.net.Street(v.route[v.routeIndex])
	if v.position >= street.Length {
		if v.state != StateQueued {
			return v.violation(t, fmt.Sprintf("at end of street %q but neither queued nor reached", street.Name))
		}
		return nil
	}

	if v.position+1 < street.Length {
		v.position++
		return nil
	}
	// Arriving on the route's final street finishes the route, even when that
	// street also appears earlier in the route.
	if street.ID == v.route[len(v.route)-1] {
		v.position++
		v.state = StateReached
		v.reachingTime = t
		return nil
	}
	if err := q.Enqueue(street.To, street.ID, v.ID); err != nil {
		return fmt.Errorf("vehicle %d at t=%d: %w", v.ID, t, err)
	}
	v.position++
	v.state = StateQueued
	return nil
}

// AdvanceToNextRoad moves a released vehicle to the start of the next street
// of its route. Only an intersection releasing the vehicle calls it.
func (v *Vehicle) AdvanceToNextRoad(t int) error {
	if v.state != StateQueued {
		return v.violation(t, fmt.Sprintf("released while %s", v.state))
	}
	if v.routeIndex+1 >= len(v.route) {
		return v.violation(t, fmt.Sprintf("advanced past the end of its %d-street route", len(v.route)))
	}
	v.routeIndex++
	v.position = 0
	v.state = StateMoving
	return nil
}

func (v *Vehicle) violation(t int, reason string) error {
	return &simerr.InvariantViolation{VehicleID: v.ID, Tick: t, Reason: reason}
}

// State returns the current state.
func (v *Vehicle) State() State { return v.state }

// Reached reports whether the vehicle has finished its route, and when.
func (v *Vehicle) Reached() (tick int, ok bool) {
	return v.reachingTime, v.state == StateReached
}

// CurrentStreet returns the street the vehicle is on or queued at the end of.
func (v *Vehicle) CurrentStreet() graph.StreetID { return v.route[v.routeIndex] }

// Position returns the distance travelled along the current street.
func (v *Vehicle) Position() int { return v.position }

// Log is a point-in-time snapshot of a Vehicle's state.
type Log struct {
	VehicleID    ID     `json:"vehicle_id"`
	Street       string `json:"street"`
	RouteIndex   int    `json:"route_index"`
	Position     int    `json:"position"`
	State        State  `json:"state"`
	Reached      bool   `json:"reached"`
	ReachingTime *int   `json:"reaching_time,omitempty"`
}

// GetLog returns a point-in-time snapshot of the vehicle state.
func (v *Vehicle) GetLog() Log {
	l := Log{
		VehicleID:  v.ID,
		Street:     v.net.Street(v.CurrentStreet()).Name,
		RouteIndex: v.routeIndex,
		Position:   v.position,
		State:      v.state,
	}
	if tick, ok := v.Reached(); ok {
		l.Reached = true
		l.ReachingTime = &tick
	}
	return l
}
