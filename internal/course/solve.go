package course

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cde-ev/cdecao/internal/bnb"
)

// Reason classifies why Solve returned, per spec.md §6/§7.
type Reason int

const (
	Optimal Reason = iota
	Infeasible
	Cancelled
	InternalError
)

func (r Reason) String() string {
	switch r {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Cancelled:
		return "cancelled"
	case InternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

// Options configures a Solve call, mirroring spec.md §6's
// solve(problem, options) contract.
type Options struct {
	// Workers is the bnb worker pool size; <= 0 defaults to GOMAXPROCS.
	Workers int

	// NodeLimit caps explored nodes; zero means unlimited. A run that hits
	// the cap returns Cancelled, carrying the best solution found so far.
	NodeLimit int64

	// Cancel, if non-nil, is polled by the engine to support external
	// cancellation/timeouts (spec.md §5).
	Cancel *atomic.Bool

	// ReportInfeasibleNodes logs (at debug level) the enforced sets of
	// every node the engine closes as infeasible, for diagnosing
	// unsolvable inputs (spec.md §7).
	ReportInfeasibleNodes bool

	// Logger receives structured records tagged with a per-run UUID.
	// Defaults to slog.Default() when nil.
	Logger *slog.Logger

	// TreeLog, if non-nil, records every bnb decision for later rendering
	// as a DOT tree via its ToDOT method (bnb.NewTreeLogger).
	TreeLog *bnb.TreeLogger
}

// Result is the outcome of a Solve call.
type Result struct {
	Solution      Solution
	Reason        Reason
	NodesExplored int64
	Wallclock     time.Duration
	Err           error // set when Reason == InternalError
	RunID         string
}

// Solve finds the proven-optimal course assignment for p, or reports why
// none was found. It never returns a (nil, nil) result: a non-nil error is
// reserved for options/problem misuse, distinct from the first-class
// Infeasible/Cancelled/InternalError results (spec.md §7).
func Solve(ctx context.Context, p *Problem, opts Options) (Result, error) {
	if p == nil {
		return Result{}, fmt.Errorf("course: Solve called with nil problem")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.New().String()
	logger = logger.With("run_id", runID)

	start := time.Now()

	var onDecision func(sub bnb.Subproblem, decision bnb.Decision, cost int64, nodeID, parentID int64)
	if opts.ReportInfeasibleNodes || opts.TreeLog != nil {
		onDecision = func(sub bnb.Subproblem, decision bnb.Decision, cost int64, nodeID, parentID int64) {
			if opts.TreeLog != nil {
				opts.TreeLog.Record(sub, decision, cost, nodeID, parentID)
			}
			if !opts.ReportInfeasibleNodes || decision != bnb.DecisionInfeasible {
				return
			}
			s := sub.(subproblem)
			logger.Debug("infeasible node",
				"node_id", nodeID,
				"parent_id", parentID,
				"depth", s.depth,
				"enforced_cancel", mapKeys(s.enforcedCancel),
				"enforced_run", mapKeys(s.enforcedRun),
			)
		}
	}

	best, found, stats := bnb.Run(ctx, rootSubproblem(), newSolveFunc(p), newBranchFunc(p), bnb.Options[candidate]{
		Workers:    opts.Workers,
		NodeLimit:  opts.NodeLimit,
		Cancel:     opts.Cancel,
		Logger:     logger,
		OnDecision: onDecision,
		TieBreak:   func(cand, current candidate) bool { return lexLess(cand.full, current.full) },
	})

	result := Result{
		NodesExplored: stats.NodesExplored,
		Wallclock:     time.Since(start),
		RunID:         runID,
	}

	switch stats.Reason {
	case bnb.InternalError:
		result.Reason = InternalError
		result.Err = stats.Err
		return result, nil
	case bnb.Cancelled, bnb.NodeLimitReached:
		result.Reason = Cancelled
		if found {
			result.Solution = solutionFromCandidate(best)
		}
		return result, nil
	}

	if !found {
		result.Reason = Infeasible
		return result, nil
	}

	result.Reason = Optimal
	result.Solution = solutionFromCandidate(best)
	return result, nil
}

func solutionFromCandidate(c candidate) Solution {
	return Solution{
		Assignment:     append([]int(nil), c.full...),
		RunningCourses: append([]int(nil), c.runningCourses...),
		Objective:      c.cost,
	}
}

func mapKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
