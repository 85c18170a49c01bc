// Package simulator replays non-preemptive FIFO dispatch of periodic tasks
// and reports the worst queuing delay each task observes.
//
// Arrivals are served in order of arrival time. Simultaneous arrivals are
// served lowest task index first, so results are fully deterministic.
package simulator

import (
	"fmt"
	"math"

	"offset-bench/internal/taskset"
)

// DefaultMaxHorizon bounds the simulated span. Period sets whose hyperperiod
// pushes the horizon past it are rejected with taskset.ErrResourceLimit
// instead of running for hours.
const DefaultMaxHorizon int64 = 1 << 40

type Simulator struct {
	MaxHorizon int64
}

func New() *Simulator {
	return &Simulator{MaxHorizon: DefaultMaxHorizon}
}

var defaultSimulator = New()

// Simulate runs the default simulator over 2*hyperperiod + max(offsets).
func Simulate(ts taskset.TaskSet, offsets taskset.Offsets) (taskset.Delays, error) {
	return defaultSimulator.Simulate(ts, offsets)
}

func SimulateWithHorizon(ts taskset.TaskSet, offsets taskset.Offsets, horizon int64) (taskset.Delays, error) {
	return defaultSimulator.SimulateWithHorizon(ts, offsets, horizon)
}

func EvaluateBounded(ts taskset.TaskSet, offsets taskset.Offsets, bound *float64) (float64, bool, error) {
	return defaultSimulator.EvaluateBounded(ts, offsets, bound)
}

func (s *Simulator) Simulate(ts taskset.TaskSet, offsets taskset.Offsets) (taskset.Delays, error) {
	horizon, err := s.horizon(ts, offsets)
	if err != nil {
		return nil, err
	}
	return s.SimulateWithHorizon(ts, offsets, horizon)
}

// SimulateWithHorizon is Simulate with an explicit end time.
func (s *Simulator) SimulateWithHorizon(ts taskset.TaskSet, offsets taskset.Offsets, horizon int64) (taskset.Delays, error) {
	if err := s.check(ts, offsets, horizon); err != nil {
		return nil, err
	}
	delays := make(taskset.Delays, len(ts))
	run(ts, offsets, horizon, func(i int, delay int64) bool {
		if delay > delays[i] {
			delays[i] = delay
		}
		return true
	})
	return delays, nil
}

// EvaluateBounded returns the largest normalized delay (delay / period) of
// any task. With a non-nil bound it stops as soon as one task's normalized
// delay exceeds *bound and reports ok == false: the assignment cannot beat
// the bound.
func (s *Simulator) EvaluateBounded(ts taskset.TaskSet, offsets taskset.Offsets, bound *float64) (float64, bool, error) {
	horizon, err := s.horizon(ts, offsets)
	if err != nil {
		return 0, false, err
	}
	if err := s.check(ts, offsets, horizon); err != nil {
		return 0, false, err
	}

	worst := 0.0
	ok := run(ts, offsets, horizon, func(i int, delay int64) bool {
		normalized := float64(delay) / float64(ts[i].Period)
		if bound != nil && normalized > *bound {
			return false
		}
		if normalized > worst {
			worst = normalized
		}
		return true
	})
	if !ok {
		return 0, false, nil
	}
	return worst, true, nil
}

func (s *Simulator) horizon(ts taskset.TaskSet, offsets taskset.Offsets) (int64, error) {
	if err := ts.Validate(); err != nil {
		return 0, err
	}
	if err := ts.ValidateOffsets(offsets); err != nil {
		return 0, err
	}
	horizon, err := ts.Horizon(offsets)
	if err != nil {
		return 0, err
	}
	if s.MaxHorizon > 0 && horizon > s.MaxHorizon {
		return 0, fmt.Errorf("%w: simulation horizon %d exceeds %d ticks", taskset.ErrResourceLimit, horizon, s.MaxHorizon)
	}
	return horizon, nil
}

func (s *Simulator) check(ts taskset.TaskSet, offsets taskset.Offsets, horizon int64) error {
	if err := ts.Validate(); err != nil {
		return err
	}
	if err := ts.ValidateOffsets(offsets); err != nil {
		return err
	}
	if horizon < 0 {
		return fmt.Errorf("%w: negative horizon %d", taskset.ErrInvalidInput, horizon)
	}
	// The clock may run one dispatch past the horizon and arrivals one
	// period past it; both must stay representable.
	var maxPeriod, maxExec int64
	for _, task := range ts {
		maxPeriod = max(maxPeriod, task.Period)
		maxExec = max(maxExec, task.ExecTime)
	}
	if horizon > math.MaxInt64-maxPeriod-maxExec-offsets.Max() {
		return fmt.Errorf("%w: horizon %d too close to int64 range", taskset.ErrResourceLimit, horizon)
	}
	return nil
}

// run is the dispatch loop. observe is called for every delayed dispatch; it
// returns false to abort, in which case run returns false.
func run(ts taskset.TaskSet, offsets taskset.Offsets, horizon int64, observe func(i int, delay int64) bool) bool {
	calls := make([]int64, len(offsets))
	copy(calls, offsets)

	t := calls[0]
	for _, c := range calls[1:] {
		t = min(t, c)
	}

	for t < horizon {
		i := 0
		for j := 1; j < len(calls); j++ {
			if calls[j] < calls[i] {
				i = j
			}
		}

		if calls[i] < t {
			if !observe(i, t-calls[i]) {
				return false
			}
		} else {
			t = calls[i]
		}

		t += ts[i].ExecTime
		calls[i] += ts[i].Period
	}
	return true
}
