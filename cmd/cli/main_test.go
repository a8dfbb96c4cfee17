package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/signal-engine/internal/config"
	"github.com/cxd309/signal-engine/internal/engine"
	"github.com/cxd309/signal-engine/internal/simerr"
)

const (
	exampleNetwork  = "../../internal/loader/testdata/example.in"
	exampleSchedule = "../../internal/loader/testdata/example.out"
)

func TestParseFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: a.in\nworkers: 2\nlog: {level: debug}\n"), 0o644))

	cfg, err := parseFlags([]string{"-config", path, "-workers", "5", "-log-format", "json", "x.out", "y.out"})
	require.NoError(t, err)
	assert.Equal(t, "a.in", cfg.Network)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, config.LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, []string{"x.out", "y.out"}, cfg.Schedules)

	_, err = parseFlags([]string{"plan.out"})
	assert.Error(t, err, "schedules without a network")
}

func TestRun_Schedules(t *testing.T) {
	cfg := config.Default()
	cfg.Network = exampleNetwork
	cfg.Schedules = []string{exampleSchedule, exampleSchedule}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, nil, &out))

	sc := bufio.NewScanner(&out)
	sc.Buffer(nil, 1<<20)
	var scores []int
	for sc.Scan() {
		var res engine.SimulationResult
		require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
		scores = append(scores, res.Score)
	}
	assert.Equal(t, []int{1002, 1002}, scores)
}

func TestRun_NoSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Network = exampleNetwork
	assert.Error(t, run(context.Background(), cfg, nil, &bytes.Buffer{}))
}

func TestRun_JSON(t *testing.T) {
	in := `{
		"simulation_meta": {"simulation_id": "cli", "duration": 3, "bonus": 10},
		"network": {"intersections": 2, "streets": [
			{"name": "A", "from": 1, "to": 0, "length": 1},
			{"name": "B", "from": 0, "to": 1, "length": 1}
		]},
		"vehicles": [{"route": ["A", "B"]}],
		"schedule": {"entries": [{"intersection": 0, "items": [{"street": "A", "duration": 1}]}]}
	}`
	cfg := config.Default()
	cfg.Trace = true

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(in), &out))

	var res engine.SimulationResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 12, res.Score)
	assert.Len(t, res.Trace, 4)

	err := run(context.Background(), cfg, strings.NewReader(`{"simulation_meta": {"bonus": -1}}`), &bytes.Buffer{})
	assert.ErrorIs(t, err, simerr.ErrMalformedInput)
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	for tick := 0; tick <= 99; tick++ {
		logProgress("p", tick, 99)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, lines[len(lines)-1], "percent=100")
}
