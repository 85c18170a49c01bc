// Package generate builds synthetic task sets for experiments: periods come
// from a factor matrix, utilizations from UUniFast (with discard) or from
// the incremental per-task draw.
package generate

import (
	"fmt"
	"math"

	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

const DefaultMaxAttempts = 10000

type Params struct {
	Tasks       int
	Utilization float64
	// UMin and UMax bound each task's utilization.
	UMin, UMax float64
	// Execution times are rounded to multiples of Granularity and must be at
	// least MinExecTime.
	Granularity int64
	MinExecTime int64
	// MaxAttempts bounds every rejection loop.
	MaxAttempts int
}

func DefaultParams() Params {
	return Params{
		Tasks:       16,
		Utilization: 0.98,
		UMin:        0,
		UMax:        1,
		Granularity: 1,
		MinExecTime: 1,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// MessageParams are Params for serial-link messages: times in bits, whole
// bytes of bitsPerByte bits and at least a header of headerBytes.
func MessageParams(tasks int, utilization float64, bitsPerByte, headerBytes int64) Params {
	p := DefaultParams()
	p.Tasks = tasks
	p.Utilization = utilization
	p.Granularity = bitsPerByte
	p.MinExecTime = headerBytes * bitsPerByte
	return p
}

func (p Params) Validate() error {
	switch {
	case p.Tasks <= 0:
		return fmt.Errorf("%w: task count %d must be positive", taskset.ErrInvalidInput, p.Tasks)
	case p.Utilization <= 0 || p.Utilization > 1:
		return fmt.Errorf("%w: utilization %g must be in (0, 1]", taskset.ErrInvalidInput, p.Utilization)
	case p.UMin < 0 || p.UMax > 1 || p.UMin > p.UMax:
		return fmt.Errorf("%w: task utilization bounds [%g, %g] are invalid", taskset.ErrInvalidInput, p.UMin, p.UMax)
	case float64(p.Tasks)*p.UMin > p.Utilization || float64(p.Tasks)*p.UMax < p.Utilization:
		return fmt.Errorf("%w: %d tasks within [%g, %g] cannot reach utilization %g",
			taskset.ErrInvalidInput, p.Tasks, p.UMin, p.UMax, p.Utilization)
	case p.Granularity <= 0:
		return fmt.Errorf("%w: granularity %d must be positive", taskset.ErrInvalidInput, p.Granularity)
	case p.MinExecTime <= 0:
		return fmt.Errorf("%w: minimum execution time %d must be positive", taskset.ErrInvalidInput, p.MinExecTime)
	}
	return nil
}

type Generator struct {
	matrix FactorMatrix
	params Params
	rng    *rand.Rand
}

func New(matrix FactorMatrix, params Params, seed int64) (*Generator, error) {
	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		matrix: matrix,
		params: params,
		rng:    rand.New(rand.NewSource(uint64(seed))),
	}, nil
}

// UUniFast splits total into n utilizations uniformly over the simplex.
func UUniFast(rng *rand.Rand, n int, total float64) []float64 {
	out := make([]float64, n)
	sum := total
	for i := 0; i < n-1; i++ {
		next := sum * math.Pow(rng.Float64(), 1/float64(n-i-1))
		out[i] = sum - next
		sum = next
	}
	out[n-1] = sum
	return out
}

// utilizations redraws UUniFast vectors until every share respects
// [UMin, UMax].
func (g *Generator) utilizations() ([]float64, error) {
	p := g.params
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		u := UUniFast(g.rng, p.Tasks, p.Utilization)
		ok := true
		for _, v := range u {
			if v < p.UMin || v > p.UMax {
				ok = false
				break
			}
		}
		if ok {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: no utilization vector within [%g, %g] after %d attempts",
		taskset.ErrResourceLimit, p.UMin, p.UMax, p.MaxAttempts)
}

// TaskSet draws exactly Params.Tasks tasks whose utilizations sum to
// Params.Utilization before rounding. A set where rounding pushes any
// execution time below the minimum is thrown away and redrawn.
func (g *Generator) TaskSet() (taskset.TaskSet, error) {
	p := g.params
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		u, err := g.utilizations()
		if err != nil {
			return nil, err
		}
		ts := make(taskset.TaskSet, p.Tasks)
		ok := true
		for i := range ts {
			period := g.matrix.Period(g.rng)
			exec := int64(math.Round(u[i]*float64(period)/float64(p.Granularity))) * p.Granularity
			if exec < p.MinExecTime {
				ok = false
				break
			}
			ts[i] = taskset.Task{Period: period, ExecTime: exec}
		}
		if ok {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("%w: every execution time stayed below %d after %d attempts",
		taskset.ErrResourceLimit, p.MinExecTime, p.MaxAttempts)
}

// Incremental adds tasks one at a time with utilization uniform in
// [max(u1, minExec/T), u2] until the set holds Params.Tasks draws or reaches
// Params.Utilization. A task that would push the load past 1 is dropped, so
// the set can be shorter than requested.
func (g *Generator) Incremental(u1, u2 float64) (taskset.TaskSet, error) {
	p := g.params
	if u2 <= 0 {
		u2 = p.Utilization / float64(p.Tasks)
	}
	var ts taskset.TaskSet
	load := 0.0
	for i := 0; load < p.Utilization && i < p.Tasks; i++ {
		var task taskset.Task
		found := false
		for attempt := 0; attempt < p.MaxAttempts; attempt++ {
			period := g.matrix.Period(g.rng)
			if period < p.MinExecTime {
				continue
			}
			umin := max(u1, float64(p.MinExecTime)/float64(period))
			if umin > u2 {
				continue
			}
			share := umin + (u2-umin)*g.rng.Float64()
			exec := int64(math.Round(share*float64(period))) / p.Granularity * p.Granularity
			if exec < p.MinExecTime {
				continue
			}
			task = taskset.Task{Period: period, ExecTime: exec}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: no period fits utilization [%g, %g] after %d attempts",
				taskset.ErrResourceLimit, u1, u2, p.MaxAttempts)
		}
		if load+task.Utilization() <= 1 {
			load += task.Utilization()
			ts = append(ts, task)
		}
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: no task fit under full load", taskset.ErrResourceLimit)
	}
	return ts, nil
}

// Spread reports whether every execution time is shorter than the gcd of
// the periods. Such sets leave room for the gcd-based heuristics.
func Spread(ts taskset.TaskSet) bool {
	return ts.MaxExecTime() < ts.PeriodGCD()
}

// Sets draws count task sets. With filter, sets failing Spread are redrawn.
func (g *Generator) Sets(count int, filter bool) ([]taskset.TaskSet, error) {
	log := logging.GetLogger()
	sets := make([]taskset.TaskSet, 0, count)
	rejected := 0
	for len(sets) < count {
		ts, err := g.TaskSet()
		if err != nil {
			return sets, err
		}
		if filter && !Spread(ts) {
			rejected++
			if rejected >= g.params.MaxAttempts*count {
				return sets, fmt.Errorf("%w: only %d of %d sets passed the gcd filter", taskset.ErrResourceLimit, len(sets), count)
			}
			continue
		}
		sets = append(sets, ts)
	}

	umin, umax := math.Inf(1), math.Inf(-1)
	for _, ts := range sets {
		u := ts.Utilization()
		umin, umax = math.Min(umin, u), math.Max(umax, u)
	}
	log.WithFields(logrus.Fields{
		"sets":     count,
		"tasks":    g.params.Tasks,
		"filtered": filter,
		"rejected": rejected,
		"u_min":    umin,
		"u_max":    umax,
	}).Info("Generated task sets")
	return sets, nil
}
