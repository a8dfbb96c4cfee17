package main

import "log/slog"

// progressStep is the percentage between two progress log lines.
const progressStep = 10

// logProgress logs a line each time a run crosses a progressStep boundary.
// It keeps no state, so concurrent runs of a batch can share it.
func logProgress(simulationID string, tick, duration int) {
	ticks := duration + 1
	before := tick * 100 / ticks / progressStep
	after := (tick + 1) * 100 / ticks / progressStep
	if after == before {
		return
	}
	slog.Info("simulating", "simulation_id", simulationID, "tick", tick, "duration", duration, "percent", after*progressStep)
}
