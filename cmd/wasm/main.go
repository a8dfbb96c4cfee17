//go:build js && wasm

// Command wasm exposes the signal engine to the browser via WebAssembly.
// After loading, it registers global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//
// The input and output are JSON-encoded SimulationInput and SimulationResult
// respectively, matching the JSON mode of the CLI. A second function scores a
// schedule given in the text formats:
//
//	scoreSchedule(networkText, scheduleText) -> jsonString
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/cxd309/signal-engine/internal/engine"
	"github.com/cxd309/signal-engine/internal/loader"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("scoreSchedule", js.FuncOf(scoreSchedule))
	select {} // keep the WASM module alive until the page is closed
}

// runSimulation takes a SimulationInput JSON string.
func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return jsError("no input provided")
	}
	return jsResult(engine.RunJSON(args[0].String()))
}

// scoreSchedule takes the network and schedule text files' contents.
func scoreSchedule(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return jsError("want network and schedule text")
	}
	return jsResult(scoreText(args[0].String(), args[1].String()))
}

func scoreText(network, plan string) (string, error) {
	input, err := loader.ParseInput(strings.NewReader(network), strings.NewReader(plan))
	if err != nil {
		return "", err
	}
	tms, err := engine.NewTMS(input)
	if err != nil {
		return "", err
	}
	res, err := tms.Run()
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}

// jsResult converts a Go (json, error) pair into the value handed back to
// JavaScript: the JSON string, or an {error: message} object.
func jsResult(out string, err error) any {
	if err != nil {
		return jsError(err.Error())
	}
	return out
}

func jsError(msg string) map[string]any {
	return map[string]any{"error": msg}
}
