// Package loader parses the plain-text network and schedule descriptions.
//
// Network file:
//
//	D I S V F                  duration, intersections, streets, vehicles, bonus
//	B E name L                 S lines: street from B to E, L ticks long
//	P name1 ... nameP          V lines: a vehicle route of P streets
//
// Schedule file:
//
//	A                          number of scheduled intersections
//	i                          A blocks: intersection id,
//	E                          number of items,
//	name T                     E lines: street green for T ticks
//
// Blank lines are ignored. Every format error wraps simerr.ErrMalformedInput
// and names the offending line.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cxd309/signal-engine/internal/engine"
	"github.com/cxd309/signal-engine/internal/graph"
	"github.com/cxd309/signal-engine/internal/schedule"
	"github.com/cxd309/signal-engine/internal/simerr"
)

const maxLineBytes = 4 << 20

// lineReader yields the whitespace-separated fields of non-blank lines.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &lineReader{sc: sc}
}

// next returns the fields of the next non-blank line, or io.EOF.
func (lr *lineReader) next() ([]string, error) {
	for lr.sc.Scan() {
		lr.line++
		if fields := strings.Fields(lr.sc.Text()); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := lr.sc.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lr.line+1, err)
	}
	return nil, io.EOF
}

// record returns the next line, which must have exactly n fields (n < 0: any).
func (lr *lineReader) record(what string, n int) ([]string, error) {
	fields, err := lr.next()
	if err == io.EOF {
		return nil, fmt.Errorf("line %d: %w", lr.line+1, simerr.Malformed("unexpected end of input, want %s", what))
	}
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(fields) != n {
		return nil, lr.errorf("%s: got %d fields, want %d", what, len(fields), n)
	}
	return fields, nil
}

// ints parses every field as a non-negative integer.
func (lr *lineReader) ints(what string, fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, lr.errorf("%s: %q is not an integer", what, f)
		}
		if v < 0 {
			return nil, lr.errorf("%s: %d is negative", what, v)
		}
		out[i] = v
	}
	return out, nil
}

// expectEOF fails if any non-blank line remains.
func (lr *lineReader) expectEOF(what string) error {
	_, err := lr.next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return lr.errorf("unexpected record after %s", what)
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %w", lr.line, simerr.Malformed(format, args...))
}

// ParseNetwork reads a network file into a SimulationInput with an empty
// schedule.
func ParseNetwork(r io.Reader) (engine.SimulationInput, error) {
	lr := newLineReader(r)
	fields, err := lr.record("header", 5)
	if err != nil {
		return engine.SimulationInput{}, err
	}
	header, err := lr.ints("header", fields)
	if err != nil {
		return engine.SimulationInput{}, err
	}
	duration, intersections, streets, vehicles, bonus := header[0], header[1], header[2], header[3], header[4]

	input := engine.SimulationInput{
		Meta: engine.SimulationMeta{Duration: duration, Bonus: bonus},
		Network: graph.NetworkData{
			Intersections: intersections,
			Streets:       make([]graph.StreetData, 0, streets),
		},
		Vehicles: make([]engine.VehicleData, 0, vehicles),
	}

	for n := 0; n < streets; n++ {
		fields, err := lr.record("street", 4)
		if err != nil {
			return engine.SimulationInput{}, err
		}
		nums, err := lr.ints("street", []string{fields[0], fields[1], fields[3]})
		if err != nil {
			return engine.SimulationInput{}, err
		}
		input.Network.Streets = append(input.Network.Streets, graph.StreetData{
			Name:   fields[2],
			From:   nums[0],
			To:     nums[1],
			Length: nums[2],
		})
	}

	for n := 0; n < vehicles; n++ {
		fields, err := lr.record("vehicle", -1)
		if err != nil {
			return engine.SimulationInput{}, err
		}
		count, err := lr.ints("route length", fields[:1])
		if err != nil {
			return engine.SimulationInput{}, err
		}
		if len(fields) != count[0]+1 {
			return engine.SimulationInput{}, lr.errorf("route declares %d streets, lists %d", count[0], len(fields)-1)
		}
		// A single-street route would be released past its end.
		if count[0] < 2 {
			return engine.SimulationInput{}, lr.errorf("route of %d streets, want at least 2", count[0])
		}
		input.Vehicles = append(input.Vehicles, engine.VehicleData{Route: fields[1:]})
	}

	if err := lr.expectEOF("vehicles"); err != nil {
		return engine.SimulationInput{}, err
	}
	return input, nil
}

// ParseSchedule reads a schedule file into a Plan. Street names and
// intersection ranges are checked when the plan is expanded against a
// network.
func ParseSchedule(r io.Reader) (schedule.Plan, error) {
	lr := newLineReader(r)
	count, err := lr.single("intersection count")
	if err != nil {
		return schedule.Plan{}, err
	}

	plan := schedule.Plan{Entries: make([]schedule.Entry, 0, count)}
	for n := 0; n < count; n++ {
		id, err := lr.single("intersection id")
		if err != nil {
			return schedule.Plan{}, err
		}
		items, err := lr.single("item count")
		if err != nil {
			return schedule.Plan{}, err
		}
		entry := schedule.Entry{Intersection: id, Items: make([]schedule.Item, 0, items)}
		for m := 0; m < items; m++ {
			fields, err := lr.record("schedule item", 2)
			if err != nil {
				return schedule.Plan{}, err
			}
			d, err := lr.ints("duration", fields[1:])
			if err != nil {
				return schedule.Plan{}, err
			}
			entry.Items = append(entry.Items, schedule.Item{Street: fields[0], Duration: d[0]})
		}
		plan.Entries = append(plan.Entries, entry)
	}

	if err := lr.expectEOF("schedule"); err != nil {
		return schedule.Plan{}, err
	}
	return plan, nil
}

// ParseInput reads a network and a schedule into one SimulationInput.
func ParseInput(network, plan io.Reader) (engine.SimulationInput, error) {
	input, err := ParseNetwork(network)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("network: %w", err)
	}
	if input.Schedule, err = ParseSchedule(plan); err != nil {
		return engine.SimulationInput{}, fmt.Errorf("schedule: %w", err)
	}
	return input, nil
}

// single reads a line holding one non-negative integer.
func (lr *lineReader) single(what string) (int, error) {
	fields, err := lr.record(what, 1)
	if err != nil {
		return 0, err
	}
	v, err := lr.ints(what, fields)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// LoadNetworkFile opens and parses a network file.
func LoadNetworkFile(path string) (engine.SimulationInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return engine.SimulationInput{}, err
	}
	defer closeOrLog(f)

	input, err := ParseNetwork(f)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return input, nil
}

// LoadScheduleFile opens and parses a schedule file.
func LoadScheduleFile(path string) (schedule.Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return schedule.Plan{}, err
	}
	defer closeOrLog(f)

	plan, err := ParseSchedule(f)
	if err != nil {
		return schedule.Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

func closeOrLog(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Error("error closing file", "err", err, "path", f.Name())
	}
}
