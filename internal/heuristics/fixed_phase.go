package heuristics

import (
	"fmt"

	"offset-bench/internal/numtheory"
	"offset-bench/internal/taskset"
)

// FixedPhase honours declared phases and staggers everything else on
// tenths of its period. The stagger counter starts at the last task and
// walks backwards, so the last undeclared task gets offset 0.
type FixedPhase struct{}

func NewFixedPhase() *FixedPhase {
	return &FixedPhase{}
}

func (h *FixedPhase) Name() string {
	return FixedPhaseName
}

func (h *FixedPhase) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	offsets := make(taskset.Offsets, len(ts))
	k := int64(0)
	for i := len(ts) - 1; i >= 0; i-- {
		task := ts[i]
		if task.HasPhase() {
			o, err := numtheory.MulChecked(*task.Phase, task.Period)
			if err != nil {
				return nil, fmt.Errorf("task %d phase: %w", i, err)
			}
			offsets[i] = o
			continue
		}
		o, err := numtheory.MulChecked(k, task.Period)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		offsets[i] = o / 10
		k = (k + 1) % 10
	}
	return offsets, nil
}
