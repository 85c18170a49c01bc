// Package taskset is the data model shared by every other package: an
// ordered, immutable set of periodic non-preemptive tasks plus the offset and
// delay vectors indexed like it.
package taskset

import (
	"fmt"

	"offset-bench/internal/numtheory"
)

// Task is a periodic message or job. Period and ExecTime are in ticks.
// ExecTime > Period is accepted: it is schedulable nonsense, not an error.
type Task struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Period   int64  `json:"period" yaml:"period"`
	ExecTime int64  `json:"exec_time" yaml:"exec_time"`
	// Phase is a declared phase in whole periods, used by the fixed-phase
	// heuristic. nil means no phase declared.
	Phase *int64 `json:"phase,omitempty" yaml:"phase,omitempty"`
}

// TaskSet order is task identity: index i of Offsets and Delays refers to
// task i.
type TaskSet []Task

// Offsets holds one release offset per task. Only offset mod period matters.
type Offsets []int64

// Delays holds the worst-case queuing delay per task, in ticks.
type Delays []int64

func (t Task) HasPhase() bool {
	return t.Phase != nil
}

func (t Task) Utilization() float64 {
	return float64(t.ExecTime) / float64(t.Period)
}

// Validate rejects structurally invalid sets. Every core entry point calls it
// before doing any work.
func (ts TaskSet) Validate() error {
	if len(ts) == 0 {
		return fmt.Errorf("%w: empty task set", ErrInvalidInput)
	}
	for i, task := range ts {
		if task.Period <= 0 {
			return fmt.Errorf("%w: task %d: period %d must be positive", ErrInvalidInput, i, task.Period)
		}
		if task.ExecTime <= 0 {
			return fmt.Errorf("%w: task %d: execution time %d must be positive", ErrInvalidInput, i, task.ExecTime)
		}
		if task.Phase != nil && *task.Phase < 0 {
			return fmt.Errorf("%w: task %d: phase %d must not be negative", ErrInvalidInput, i, *task.Phase)
		}
	}
	return nil
}

// ValidateOffsets checks offsets against the set: same length, no negative
// entries.
func (ts TaskSet) ValidateOffsets(offsets Offsets) error {
	if len(offsets) != len(ts) {
		return fmt.Errorf("%w: %d offsets for %d tasks", ErrInvalidInput, len(offsets), len(ts))
	}
	for i, o := range offsets {
		if o < 0 {
			return fmt.Errorf("%w: task %d: offset %d must not be negative", ErrInvalidInput, i, o)
		}
	}
	return nil
}

func (ts TaskSet) Periods() []int64 {
	periods := make([]int64, len(ts))
	for i, task := range ts {
		periods[i] = task.Period
	}
	return periods
}

func (ts TaskSet) ExecTimes() []int64 {
	execTimes := make([]int64, len(ts))
	for i, task := range ts {
		execTimes[i] = task.ExecTime
	}
	return execTimes
}

func (ts TaskSet) Utilization() float64 {
	var u float64
	for _, task := range ts {
		u += task.Utilization()
	}
	return u
}

func (ts TaskSet) MaxExecTime() int64 {
	var m int64
	for _, task := range ts {
		if task.ExecTime > m {
			m = task.ExecTime
		}
	}
	return m
}

// PeriodGCD is the gcd of all periods.
func (ts TaskSet) PeriodGCD() int64 {
	return numtheory.GCDOf(ts.Periods())
}

// Hyperperiod is the lcm of all periods.
func (ts TaskSet) Hyperperiod() (int64, error) {
	if err := ts.Validate(); err != nil {
		return 0, err
	}
	h, err := numtheory.LCMOf(ts.Periods())
	if err != nil {
		return 0, fmt.Errorf("hyperperiod: %w", err)
	}
	return h, nil
}

// Horizon is 2*hyperperiod + max(offsets): the simulated span after which
// any FIFO offset assignment has reached its steady state.
func (ts TaskSet) Horizon(offsets Offsets) (int64, error) {
	h, err := ts.Hyperperiod()
	if err != nil {
		return 0, err
	}
	twice, err := numtheory.MulChecked(2, h)
	if err != nil {
		return 0, fmt.Errorf("horizon: %w", err)
	}
	horizon, err := numtheory.AddChecked(twice, offsets.Max())
	if err != nil {
		return 0, fmt.Errorf("horizon: %w", err)
	}
	return horizon, nil
}

// Clone returns a deep copy, phases included.
func (ts TaskSet) Clone() TaskSet {
	out := make(TaskSet, len(ts))
	for i, task := range ts {
		out[i] = task
		if task.Phase != nil {
			p := *task.Phase
			out[i].Phase = &p
		}
	}
	return out
}

func (o Offsets) Max() int64 {
	var m int64
	for _, v := range o {
		if v > m {
			m = v
		}
	}
	return m
}

// Reduce returns each offset mod its task period.
func (o Offsets) Reduce(ts TaskSet) Offsets {
	out := make(Offsets, len(o))
	for i, v := range o {
		out[i] = Mod(v, ts[i].Period)
	}
	return out
}

func (d Delays) Max() int64 {
	var m int64
	for _, v := range d {
		if v > m {
			m = v
		}
	}
	return m
}

// Mod is the non-negative remainder of v mod m, m > 0.
func Mod(v, m int64) int64 {
	r := v % m
	if r < 0 {
		r += m
	}
	return r
}

// Zero is the sentinel returned when no assignment could be produced.
func Zero(n int) Offsets {
	return make(Offsets, n)
}
