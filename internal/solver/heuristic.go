package solver

import (
	"context"
	"errors"
	"time"

	"offset-bench/internal/heuristics"
	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"
)

// optimizerHeuristic lets an optimizer sit in a list of heuristics. A
// missed deadline degrades to the zero vector rather than an error, the
// same way a solver without a feasible answer is scored.
type optimizerHeuristic struct {
	opt   Optimizer
	limit time.Duration
}

func AsHeuristic(opt Optimizer, limit time.Duration) heuristics.Heuristic {
	return &optimizerHeuristic{opt: opt, limit: limit}
}

func (h *optimizerHeuristic) Name() string {
	return h.opt.Name()
}

func (h *optimizerHeuristic) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	offsets, err := h.opt.Optimize(context.Background(), ts, h.limit)
	if errors.Is(err, taskset.ErrNoFeasibleResult) {
		logging.GetLogger().WithError(err).WithField("optimizer", h.opt.Name()).Warn("No feasible result, scoring the zero vector")
		return taskset.Zero(len(ts)), nil
	}
	return offsets, err
}
