// Command signal-engine scores traffic-signal schedules.
//
// With a text network file it scores each schedule file given in the config
// or on the command line, printing one JSON SimulationResult per schedule:
//
//	signal-engine -network city.in plan-a.out plan-b.out
//
// Without a network file it reads a SimulationInput JSON from -input (or
// stdin), runs the simulation, and writes the SimulationResult JSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cxd309/signal-engine/internal/config"
	"github.com/cxd309/signal-engine/internal/engine"
	"github.com/cxd309/signal-engine/internal/loader"
	"github.com/cxd309/signal-engine/internal/schedule"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		slog.Error("simulation failed", "err", err)
		os.Exit(1)
	}
}

// parseFlags loads the optional -config file, then applies every flag that
// was set explicitly on top of it. Positional arguments are schedule files.
func parseFlags(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("signal-engine", flag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		network    = fs.String("network", "", "text network file")
		input      = fs.String("input", "", "JSON simulation input file (default stdin)")
		workers    = fs.Int("workers", 0, "schedules scored concurrently (0 = one per CPU)")
		trace      = fs.Bool("trace", false, "include per-tick snapshots in the output")
		progress   = fs.Bool("progress", false, "log progress while simulating")
		logLevel   = fs.String("log-level", "", "log level: debug, info, warn, error")
		logFormat  = fs.String("log-format", "", "log format: text or json")
	)
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return config.Config{}, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "network":
			cfg.Network = *network
		case "input":
			cfg.Input = *input
		case "workers":
			cfg.Workers = *workers
		case "trace":
			cfg.Trace = *trace
		case "progress":
			cfg.Progress = *progress
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	cfg.Schedules = append(cfg.Schedules, fs.Args()...)
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer) error {
	var opts []engine.Option
	if cfg.Progress {
		opts = append(opts, engine.WithProgress(logProgress))
	}
	if cfg.Network == "" {
		return runJSON(cfg, stdin, stdout, opts)
	}

	input, err := loader.LoadNetworkFile(cfg.Network)
	if err != nil {
		return err
	}
	input.Meta.Trace = cfg.Trace
	if len(cfg.Schedules) == 0 {
		return errors.New("no schedule files given")
	}
	plans := make([]schedule.Plan, len(cfg.Schedules))
	for i, path := range cfg.Schedules {
		if plans[i], err = loader.LoadScheduleFile(path); err != nil {
			return err
		}
	}

	results, err := engine.RunBatch(ctx, input, plans, cfg.Workers, opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	for i, res := range results {
		slog.Info("schedule scored", "schedule", cfg.Schedules[i], "score", res.Score, "reached", res.Reached)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
	}
	return nil
}

// runJSON is the JSON-in, JSON-out mode shared with the WASM build.
func runJSON(cfg config.Config, stdin io.Reader, stdout io.Writer, opts []engine.Option) error {
	var (
		data []byte
		err  error
	)
	if cfg.Input != "" && cfg.Input != "-" {
		data, err = os.ReadFile(cfg.Input)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var input engine.SimulationInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("invalid input JSON: %w", err)
	}
	input.Meta.Trace = input.Meta.Trace || cfg.Trace

	tms, err := engine.NewTMS(input, opts...)
	if err != nil {
		return err
	}
	res, err := tms.Run()
	if err != nil {
		return err
	}
	return json.NewEncoder(stdout).Encode(res)
}
