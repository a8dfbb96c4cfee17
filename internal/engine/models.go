package engine

import (
	"log/slog"

	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/intersection"
	"github.com/cxd309/signal-engine/internal/schedule"
	"github.com/cxd309/signal-engine/internal/vehicle"
)

// SimulationMeta holds the identity and timing parameters for a simulation run.
type SimulationMeta struct {
	SimulationID string `json:"simulation_id"`
	Duration     int    `json:"duration"` // ticks; tick Duration itself is simulated
	Bonus        int    `json:"bonus"`    // points per vehicle that finishes its route
	Trace        bool   `json:"trace,omitempty"`
}

// VehicleData is the static definition of a vehicle: its route by street name.
type VehicleData struct {
	Route []string `json:"route"`
}

// SimulationInput is the JSON-serialisable input to the engine.
type SimulationInput struct {
	Meta     SimulationMeta    `json:"simulation_meta"`
	Network  graph.NetworkData `json:"network"`
	Vehicles []VehicleData     `json:"vehicles"`
	Schedule schedule.Plan     `json:"schedule"`
}

// IntersectionLog is a point-in-time snapshot of one intersection.
type IntersectionLog struct {
	IntersectionID graph.IntersectionID `json:"intersection_id"`
	Green          *string              `json:"green,omitempty"`  // nil when no street is green
	Queues         map[string]int       `json:"queues,omitempty"` // street name → waiting vehicles
}

// SimulationLogRow is the state of all vehicles and intersections at the end
// of a single tick.
type SimulationLogRow struct {
	Tick          int               `json:"tick"`
	VehicleLogs   []vehicle.Log     `json:"vehicle_logs"`
	Intersections []IntersectionLog `json:"intersections"`
}

// SimulationResult is the complete output of a simulation run.
type SimulationResult struct {
	Meta          SimulationMeta     `json:"simulation_meta"`
	Score         int                `json:"score"`
	Reached       int                `json:"reached"`
	VehicleCount  int                `json:"vehicle_count"`
	Vehicles      []vehicle.Log      `json:"vehicles"`
	Intersections []IntersectionLog  `json:"intersections"`
	Trace         []SimulationLogRow `json:"trace,omitempty"`
}

// ProgressFunc is called once at the end of every tick of a run.
// It may be called concurrently by runs of a batch.
type ProgressFunc func(simulationID string, tick, duration int)

// Option configures a TMS.
type Option func(*TMS)

// WithProgress registers fn to observe the progress of the run.
func WithProgress(fn ProgressFunc) Option {
	return func(t *TMS) { t.progress = fn }
}

// queues adapts the intersection arena to vehicle.Enqueuer.
type queues []*intersection.Intersection

func (q queues) Enqueue(at graph.IntersectionID, street graph.StreetID, id vehicle.ID) error {
	return q[at].Enqueue(street, id)
}

// fleet adapts the vehicle arena to intersection.Advancer.
type fleet []*vehicle.Vehicle

func (f fleet) AdvanceToNextRoad(t int, id vehicle.ID) error {
	return f[id].AdvanceToNextRoad(t)
}

// TMS (traffic-signal management simulation) engine state.
type TMS struct {
	meta          SimulationMeta
	net           *graph.Network
	intersections queues
	vehicles      fleet
	curTime       int
	ran           bool
	progress      ProgressFunc
	log           *slog.Logger
}
