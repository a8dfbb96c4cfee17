// Package engine implements the signal-schedule simulation loop.
//
// The simulation advances in integer ticks 0..Duration inclusive. Each tick
// has three passes, each over the whole arena in id order:
//
//  1. Schedule pass - every intersection derives its green street for the tick.
//
//  2. Motion pass - every vehicle that has not reached its destination moves
//     one unit along its street, queueing at the street's end intersection
//     when it gets there.
//
//  3. Release pass - every intersection lets at most one vehicle from the
//     green street's queue onto the next street of its route.
//
// A vehicle released in pass 3 starts its new street at position 0 and next
// moves in pass 2 of the following tick.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/intersection"
	"github.com/cxd309/signal-engine/internal/schedule"
	"github.com/cxd309/signal-engine/internal/simerr"
	"github.com/cxd309/signal-engine/internal/vehicle"
)

// ErrAlreadyRun is returned by Run on a TMS that has already been run.
var ErrAlreadyRun = errors.New("simulation already run")

// NewTMS constructs a TMS from a SimulationInput, building the network,
// installing the schedule and placing every vehicle at the end of its first
// street.
func NewTMS(input SimulationInput, opts ...Option) (*TMS, error) {
	net, routes, err := prepare(input)
	if err != nil {
		return nil, err
	}
	return build(input.Meta, net, routes, input.Schedule, opts...)
}

// prepare builds the immutable part of a run: the network and resolved routes.
func prepare(input SimulationInput) (*graph.Network, [][]graph.StreetID, error) {
	if input.Meta.Duration < 0 {
		return nil, nil, simerr.Malformed("negative duration %d", input.Meta.Duration)
	}
	if input.Meta.Bonus < 0 {
		return nil, nil, simerr.Malformed("negative bonus %d", input.Meta.Bonus)
	}
	net, err := graph.NewNetwork(input.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("building network: %w", err)
	}
	routes := make([][]graph.StreetID, len(input.Vehicles))
	for i, v := range input.Vehicles {
		route, err := net.ResolveRoute(v.Route)
		if err != nil {
			return nil, nil, fmt.Errorf("vehicle %d: %w", i, err)
		}
		routes[i] = route
	}
	return net, routes, nil
}

// build assembles the mutable arenas of a run over a prepared network.
func build(meta SimulationMeta, net *graph.Network, routes [][]graph.StreetID, plan schedule.Plan, opts ...Option) (*TMS, error) {
	if meta.SimulationID == "" {
		meta.SimulationID = uuid.NewString()
	}
	sequences, err := plan.Expand(net)
	if err != nil {
		return nil, fmt.Errorf("expanding schedule: %w", err)
	}

	xs := make(queues, net.Intersections())
	for id := range xs {
		x := intersection.New(id)
		for _, s := range net.Incoming(id) {
			if err := x.AddIncomingStreet(s); err != nil {
				return nil, err
			}
		}
		if err := x.SetSchedule(sequences[id]); err != nil {
			return nil, fmt.Errorf("installing schedule: %w", err)
		}
		xs[id] = x
	}

	vs := make(fleet, len(routes))
	for id, route := range routes {
		v, err := vehicle.New(id, route, net, xs)
		if err != nil {
			return nil, fmt.Errorf("creating vehicle %d: %w", id, err)
		}
		vs[id] = v
	}

	t := &TMS{
		meta:          meta,
		net:           net,
		intersections: xs,
		vehicles:      vs,
		curTime:       0,
		log:           slog.With("simulation_id", meta.SimulationID),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Meta returns the run parameters, including the assigned simulation id.
func (t *TMS) Meta() SimulationMeta { return t.meta }

// Run executes the full simulation and returns the result. A TMS can be run
// only once.
func (t *TMS) Run() (SimulationResult, error) {
	if t.ran {
		return SimulationResult{}, ErrAlreadyRun
	}
	t.ran = true
	for _, x := range t.intersections {
		x.Seal()
	}
	t.log.Debug("simulation started",
		"duration", t.meta.Duration,
		"intersections", len(t.intersections),
		"streets", t.net.Streets(),
		"vehicles", len(t.vehicles))

	result := SimulationResult{Meta: t.meta}
	for t.curTime <= t.meta.Duration {
		if err := t.step(); err != nil {
			return SimulationResult{}, fmt.Errorf("at t=%d: %w", t.curTime, err)
		}
		if t.meta.Trace {
			result.Trace = append(result.Trace, t.snapshot())
		}
		if t.progress != nil {
			t.progress(t.meta.SimulationID, t.curTime, t.meta.Duration)
		}
		t.curTime++
	}

	result.Score = t.Score()
	result.Reached = t.reachedCount()
	result.VehicleCount = len(t.vehicles)
	result.Vehicles = t.vehicleLogs()
	result.Intersections = t.intersectionLogs()
	t.log.Info("simulation finished",
		"score", result.Score,
		"reached", result.Reached,
		"vehicles", result.VehicleCount)
	return result, nil
}

// step advances the simulation by one tick.
func (t *TMS) step() error {
	tick := t.curTime

	// Pass 1: derive every intersection's green street for this tick.
	for _, x := range t.intersections {
		x.UpdateScheduleForTick(tick)
	}

	// Pass 2: move every vehicle still on its route.
	for _, v := range t.vehicles {
		if _, done := v.Reached(); done {
			continue
		}
		if err := v.AdvanceOneTick(tick, t.intersections); err != nil {
			return err
		}
	}

	// Pass 3: release at most one vehicle per intersection.
	for _, x := range t.intersections {
		if _, _, err := x.DequeueGreen(tick, t.vehicles); err != nil {
			return err
		}
	}
	return nil
}

// Score returns the sum, over every vehicle that has reached its destination,
// of the bonus plus the ticks remaining until the end of the run. Vehicles
// still travelling contribute nothing.
func (t *TMS) Score() int {
	return lo.SumBy(t.vehicles, func(v *vehicle.Vehicle) int {
		tick, ok := v.Reached()
		if !ok {
			return 0
		}
		return t.meta.Bonus + (t.meta.Duration - tick)
	})
}

func (t *TMS) reachedCount() int {
	return lo.CountBy(t.vehicles, func(v *vehicle.Vehicle) bool {
		_, ok := v.Reached()
		return ok
	})
}

// Vehicle returns a snapshot of vehicle id.
func (t *TMS) Vehicle(id vehicle.ID) (vehicle.Log, error) {
	if id < 0 || id >= len(t.vehicles) {
		return vehicle.Log{}, fmt.Errorf("vehicle %d not found", id)
	}
	return t.vehicles[id].GetLog(), nil
}

// Intersection returns a snapshot of intersection id.
func (t *TMS) Intersection(id graph.IntersectionID) (IntersectionLog, error) {
	if id < 0 || id >= len(t.intersections) {
		return IntersectionLog{}, fmt.Errorf("intersection %d not found", id)
	}
	return t.intersectionLog(t.intersections[id]), nil
}

func (t *TMS) vehicleLogs() []vehicle.Log {
	return lo.Map(t.vehicles, func(v *vehicle.Vehicle, _ int) vehicle.Log { return v.GetLog() })
}

func (t *TMS) intersectionLogs() []IntersectionLog {
	return lo.Map(t.intersections, func(x *intersection.Intersection, _ int) IntersectionLog {
		return t.intersectionLog(x)
	})
}

func (t *TMS) intersectionLog(x *intersection.Intersection) IntersectionLog {
	l := IntersectionLog{IntersectionID: x.ID}
	if green, ok := x.Green(); ok {
		name := t.net.Street(green).Name
		l.Green = &name
	}
	for _, s := range x.Incoming() {
		if n := x.QueueLen(s); n > 0 {
			if l.Queues == nil {
				l.Queues = make(map[string]int)
			}
			l.Queues[t.net.Street(s).Name] = n
		}
	}
	return l
}

func (t *TMS) snapshot() SimulationLogRow {
	return SimulationLogRow{
		Tick:          t.curTime,
		VehicleLogs:   t.vehicleLogs(),
		Intersections: t.intersectionLogs(),
	}
}

// RunJSON is the primary entry point for the CLI and WASM targets. It accepts
// a JSON-encoded SimulationInput, runs the simulation, and returns a
// JSON-encoded SimulationResult.
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	tms, err := NewTMS(input)
	if err != nil {
		return "", err
	}

	result, err := tms.Run()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
