package taskset

import (
	"errors"

	"offset-bench/internal/numtheory"
)

var (
	// ErrInvalidInput: empty task set, non-positive period or execution time,
	// negative phase, offsets not matching the task set.
	ErrInvalidInput = numtheory.ErrInvalidInput
	// ErrResourceLimit: hyperperiod or candidate space beyond int64 or a
	// configured bound.
	ErrResourceLimit = numtheory.ErrResourceLimit
	// ErrNoFeasibleResult: a search or an external optimizer ended without
	// an assignment. The accompanying offsets are the zero vector.
	ErrNoFeasibleResult = errors.New("no feasible result")
)
