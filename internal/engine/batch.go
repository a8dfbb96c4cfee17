package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cxd309/signal-engine/internal/schedule"
)

// RunBatch scores every plan against the network, vehicles and meta of input,
// running up to workers simulations at once. input.Schedule is ignored. Each
// plan gets its own engine; the network is built once and shared read-only.
// Results are returned in plan order. The first failure cancels runs that
// have not started yet.
func RunBatch(ctx context.Context, input SimulationInput, plans []schedule.Plan, workers int, opts ...Option) ([]SimulationResult, error) {
	net, routes, err := prepare(input)
	if err != nil {
		return nil, err
	}
	base := input.Meta.SimulationID
	if base == "" {
		base = uuid.NewString()
	}

	results := make([]SimulationResult, len(plans))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, plan := range plans {
		i, plan := i, plan
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta := input.Meta
			meta.SimulationID = fmt.Sprintf("%s/%d", base, i)
			tms, err := build(meta, net, routes, plan, opts...)
			if err != nil {
				return fmt.Errorf("plan %d: %w", i, err)
			}
			res, err := tms.Run()
			if err != nil {
				return fmt.Errorf("plan %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slog.Debug("batch finished", "batch_id", base, "plans", len(plans))
	return results, nil
}
