// Package search finds the offset assignment with the smallest worst
// normalized delay by simulating candidates from a generator, usually the
// full lattice of non-equivalent offsets. It is only practical for small
// task sets.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offset-bench/internal/logging"
	"offset-bench/internal/simulator"
	"offset-bench/internal/taskset"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
)

const DefaultReportEvery int64 = 100000

type Options struct {
	// ReportEvery logs progress after this many candidates. Zero disables
	// progress reports.
	ReportEvery int64
	// MaxCandidates refuses candidate spaces larger than this before any
	// simulation runs. Zero means no limit.
	MaxCandidates int64
	Simulator     *simulator.Simulator
}

func DefaultOptions() Options {
	return Options{ReportEvery: DefaultReportEvery}
}

type Result struct {
	Offsets            taskset.Offsets
	MaxNormalizedDelay float64
	Evaluated          int64
	Pruned             int64
	// Total is the size of the candidate space, 0 when unknown.
	Total int64
	// Optimal is set when a zero-delay assignment ended the search early.
	Optimal bool
	// Complete is false when the context stopped the search.
	Complete bool
	Elapsed  time.Duration
}

// FindBestAssignment simulates every candidate of gen and keeps the one
// with the smallest worst normalized delay. Candidates that exceed the
// current best partway through simulation are pruned. A zero-delay
// candidate ends the search at once.
func FindBestAssignment(ctx context.Context, ts taskset.TaskSet, gen Generator, opts Options) (Result, error) {
	zero := Result{Offsets: taskset.Zero(len(ts))}
	if err := ts.Validate(); err != nil {
		return zero, err
	}
	sim := opts.Simulator
	if sim == nil {
		sim = simulator.New()
	}

	total, err := candidateCount(ts, gen)
	if err != nil && !errors.Is(err, taskset.ErrResourceLimit) {
		return zero, err
	}
	if opts.MaxCandidates > 0 && (err != nil || total > opts.MaxCandidates) {
		return zero, fmt.Errorf("%w: candidate space of %d exceeds limit %d",
			taskset.ErrResourceLimit, total, opts.MaxCandidates)
	}
	zero.Total = total

	log := logging.GetSearchLogger()
	start := time.Now()

	first, ok := gen.Next()
	if !ok {
		return zero, fmt.Errorf("%w: no candidates to evaluate", taskset.ErrNoFeasibleResult)
	}
	best, _, err := sim.EvaluateBounded(ts, first, nil)
	if err != nil {
		return zero, err
	}
	result := Result{
		Offsets:            append(taskset.Offsets(nil), first...),
		MaxNormalizedDelay: best,
		Evaluated:          1,
		Total:              total,
		Complete:           true,
	}

	for result.MaxNormalizedDelay > 0 {
		if ctx.Err() != nil {
			result.Complete = false
			log.WithFields(logrus.Fields{
				"evaluated": result.Evaluated,
				"total":     total,
				"best":      result.MaxNormalizedDelay,
			}).WithError(ctx.Err()).Warn("Search stopped before exhausting candidates")
			break
		}
		candidate, ok := gen.Next()
		if !ok {
			break
		}
		bound := result.MaxNormalizedDelay
		score, ok, err := sim.EvaluateBounded(ts, candidate, &bound)
		if err != nil {
			return result, err
		}
		result.Evaluated++
		if !ok {
			result.Pruned++
		} else if score < result.MaxNormalizedDelay {
			result.Offsets = append(result.Offsets[:0], candidate...)
			result.MaxNormalizedDelay = score
		}
		if opts.ReportEvery > 0 && result.Evaluated%opts.ReportEvery == 0 {
			reportProgress(log, result, time.Since(start))
		}
	}
	result.Optimal = result.MaxNormalizedDelay == 0
	result.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"evaluated": result.Evaluated,
		"pruned":    result.Pruned,
		"total":     total,
		"best":      result.MaxNormalizedDelay,
		"optimal":   result.Optimal,
		"elapsed":   units.HumanDuration(result.Elapsed),
	}).Info("Search finished")
	return result, nil
}

// candidateCount prefers the generator's own size and falls back to the
// closed-form lattice size.
func candidateCount(ts taskset.TaskSet, gen Generator) (int64, error) {
	if sized, ok := gen.(Sized); ok {
		return sized.Size(), nil
	}
	lattice, err := NewLattice(ts)
	if err != nil {
		return 0, err
	}
	return lattice.Size(), nil
}

func reportProgress(log *logrus.Logger, result Result, elapsed time.Duration) {
	fields := logrus.Fields{
		"evaluated": result.Evaluated,
		"pruned":    result.Pruned,
		"best":      result.MaxNormalizedDelay,
	}
	if result.Total > 0 {
		remaining := result.Total - result.Evaluated
		eta := time.Duration(float64(elapsed) * float64(remaining) / float64(result.Evaluated))
		fields["total"] = result.Total
		fields["progress"] = fmt.Sprintf("%.1f%%", 100*float64(result.Evaluated)/float64(result.Total))
		fields["eta"] = units.HumanDuration(eta)
	}
	log.WithFields(fields).Info("Search progress")
}
