// Package solver plugs exact or external optimizers into the same slot as
// the heuristics. Every optimizer honours a time limit and, when it runs
// out of time or fails, hands back the zero vector together with
// taskset.ErrNoFeasibleResult instead of failing the caller.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offset-bench/internal/logging"
	"offset-bench/internal/search"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
)

type Optimizer interface {
	Name() string
	Optimize(ctx context.Context, ts taskset.TaskSet, timeLimit time.Duration) (taskset.Offsets, error)
}

// ExhaustiveOptimizer runs the lattice search in process. With a time limit
// it returns the best candidate seen when the limit hits.
type ExhaustiveOptimizer struct {
	Options search.Options
}

func NewExhaustiveOptimizer(opts search.Options) *ExhaustiveOptimizer {
	return &ExhaustiveOptimizer{Options: opts}
}

func (o *ExhaustiveOptimizer) Name() string {
	return "exhaustive"
}

func (o *ExhaustiveOptimizer) Optimize(ctx context.Context, ts taskset.TaskSet, timeLimit time.Duration) (taskset.Offsets, error) {
	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}
	lattice, err := search.NewLattice(ts)
	if err != nil {
		if errors.Is(err, taskset.ErrInvalidInput) {
			return nil, err
		}
		return taskset.Zero(len(ts)), fmt.Errorf("%w: %w", taskset.ErrNoFeasibleResult, err)
	}
	res, err := search.FindBestAssignment(ctx, ts, lattice, o.Options)
	if errors.Is(err, taskset.ErrResourceLimit) {
		return taskset.Zero(len(ts)), fmt.Errorf("%w: %w", taskset.ErrNoFeasibleResult, err)
	}
	if err != nil {
		return res.Offsets, err
	}
	if !res.Complete {
		logging.GetLogger().WithFields(logrus.Fields{
			"optimizer": o.Name(),
			"evaluated": res.Evaluated,
			"total":     res.Total,
			"limit":     timeLimit,
		}).Warn("Time limit reached, using best candidate so far")
	}
	return res.Offsets, nil
}
