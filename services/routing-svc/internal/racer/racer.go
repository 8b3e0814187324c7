// Package racer runs several CVRP strategy variants concurrently and
// picks the winner by real total distance, vehicle count, and
// unserved-customer count, in that order.
package racer

import (
	"context"
	"runtime"
	"sync"
	"time"

	"logistics/pkg/apperror"
	"logistics/pkg/metrics"
	"logistics/pkg/telemetry"
	"logistics/services/routing-svc/internal/cvrp"
	"logistics/services/routing-svc/internal/model"
)

// Catalog is the fixed set of (first-solution, local-search) strategy
// pair names raced against each other. cvrp.Solve dispatches on the
// name: the construction half picks among savings, cheapest-arc,
// cheapest-insertion, and nearest-neighbor first solutions, and the
// local-search half picks between strict-improvement 2-opt and a
// simulated-annealing variant that also accepts worse moves early on.
// CHRISTOFIDES approximates the matching step with a nearest-neighbor
// tour rather than implementing minimum-weight perfect matching.
var Catalog = []string{
	"GLOBAL_BEST_INSERTION+GUIDED_LOCAL_SEARCH",
	"SAVINGS+GUIDED_LOCAL_SEARCH",
	"GLOBAL_CHEAPEST_ARC+GUIDED_LOCAL_SEARCH",
	"PATH_CHEAPEST_ARC+GUIDED_LOCAL_SEARCH",
	"SAVINGS+SIMULATED_ANNEALING",
	"PARALLEL_CHEAPEST_INSERTION+GUIDED_LOCAL_SEARCH",
	"CHRISTOFIDES+GUIDED_LOCAL_SEARCH",
}

// Workers returns max(1, cores-1), the default worker count per §4.5,
// capped at the catalog size since there is no point racing more
// workers than named strategies.
func Workers() int {
	k := runtime.NumCPU() - 1
	if k < 1 {
		k = 1
	}
	if k > len(Catalog) {
		k = len(Catalog)
	}
	return k
}

// result pairs a worker's outcome with any error it produced.
type result struct {
	strategy string
	solution *model.Solution
	err      error
}

// Race launches up to Workers() goroutines, each solving the full
// params with a distinct catalog strategy name, and returns the
// winner. Every worker shares the same immutable params.Matrix.
// If every worker fails, the racer returns a NoSolution error; the
// individual worker errors are recorded on their spans only.
func Race(ctx context.Context, params cvrp.Params, m *metrics.Metrics) (*model.Solution, error) {
	raceStart := time.Now()
	k := Workers()
	strategies := Catalog[:k]

	results := make([]result, len(strategies))
	var wg sync.WaitGroup

	for i, strategy := range strategies {
		wg.Add(1)
		go func(i int, strategy string) {
			defer wg.Done()
			workerCtx, span := telemetry.StartSpan(ctx, "racer.worker")
			defer span.End()

			p := params
			p.Strategy = strategy

			start := time.Now()
			sol, err := cvrp.Solve(p)
			results[i] = result{strategy: strategy, solution: sol, err: err}

			success := err == nil
			if m != nil {
				m.RecordSolveOperation(strategy, success, time.Since(start), totalDistance(sol))
			}
			if success {
				telemetry.SetAttributes(workerCtx, telemetry.StrategyAttributes(strategy, 0, sol.TotalDistance, len(sol.Routes))...)
			} else {
				telemetry.SetError(workerCtx, err)
			}
		}(i, strategy)
	}

	wg.Wait()

	winner := selectWinner(results)
	if winner == nil {
		return nil, apperror.New(apperror.CodeNoSolution, "racer: all strategy workers failed to find a solution")
	}

	if m != nil {
		m.RecordSolveOperation("winner", true, time.Since(raceStart), winner.TotalDistance)
	}

	return winner, nil
}

func totalDistance(sol *model.Solution) float64 {
	if sol == nil {
		return 0
	}
	return sol.TotalDistance
}

// selectWinner picks the candidate with smallest total real distance,
// breaking ties by fewer vehicles used, then by fewer unserved
// customers, per §4.5.
func selectWinner(results []result) *model.Solution {
	var winner *model.Solution

	for _, r := range results {
		if r.err != nil || r.solution == nil {
			continue
		}
		if winner == nil || better(r.solution, winner) {
			winner = r.solution
		}
	}

	return winner
}

func better(a, b *model.Solution) bool {
	if a.TotalDistance != b.TotalDistance {
		return a.TotalDistance < b.TotalDistance
	}
	if a.VehiclesUsed != b.VehiclesUsed {
		return a.VehiclesUsed < b.VehiclesUsed
	}
	return len(a.Overflow) < len(b.Overflow)
}
