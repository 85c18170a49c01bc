package experiment

import (
	"fmt"
	"time"

	"offset-bench/internal/config"
	"offset-bench/internal/heuristics"
	"offset-bench/internal/search"
	"offset-bench/internal/solver"
	"offset-bench/internal/taskset"
)

// Entry is one column of the comparison. A coupled entry produces two
// result columns from a single timed call.
type Entry struct {
	Name    string
	Labels  []string
	assign  func(ts taskset.TaskSet) ([]taskset.Offsets, error)
	Coupled bool
}

var displayNames = map[string]string{
	heuristics.PrimePartitionName:      "Prime partition",
	heuristics.PairwiseGCDName:         "Pairwise GCD",
	heuristics.ModifiedPairwiseGCDName: "Modified pairwise GCD",
	heuristics.LargestGapName:          "Largest gap",
	heuristics.FixedPhaseName:          "Fixed phase",
}

func single(h heuristics.Heuristic, label string) Entry {
	return Entry{
		Name:   h.Name(),
		Labels: []string{label},
		assign: func(ts taskset.TaskSet) ([]taskset.Offsets, error) {
			offsets, err := h.Assign(ts)
			return []taskset.Offsets{offsets}, err
		},
	}
}

// HeuristicEntry wraps any heuristic, including optimizers adapted with
// solver.AsHeuristic.
func HeuristicEntry(h heuristics.Heuristic) Entry {
	label, ok := displayNames[h.Name()]
	if !ok {
		label = h.Name()
	}
	return single(h, label)
}

func coupledEntry(seed int64) Entry {
	h := heuristics.NewCoupledPairwiseGCD(heuristics.NewRand(seed))
	return Entry{
		Name:    h.Name(),
		Labels:  []string{"Pairwise GCD (C)", "Modified pairwise GCD (C)"},
		Coupled: true,
		assign: func(ts taskset.TaskSet) ([]taskset.Offsets, error) {
			plain, modified, err := h.AssignBoth(ts)
			return []taskset.Offsets{plain, modified}, err
		},
	}
}

// BuildEntries turns the configured heuristic and optimizer names into
// runnable entries, in configuration order with optimizers last.
func BuildEntries(cfg *config.ExperimentConfig) ([]Entry, error) {
	e := cfg.Experiment
	var entries []Entry
	for _, name := range e.Heuristics {
		canonical, err := heuristics.NormalizeName(name)
		if err != nil {
			return nil, err
		}
		if canonical == heuristics.CoupledPairwiseGCDName {
			entries = append(entries, coupledEntry(e.Seed))
			continue
		}
		h, err := heuristics.New(canonical, e.Seed)
		if err != nil {
			return nil, err
		}
		entries = append(entries, HeuristicEntry(h))
	}

	limit := cfg.GetTimeLimit()
	if e.Optimizer.Exhaustive {
		opts := search.DefaultOptions()
		opts.MaxCandidates = e.Optimizer.MaxCandidates
		opt := solver.NewExhaustiveOptimizer(opts)
		entries = append(entries, single(solver.AsHeuristic(opt, limit), optimizerLabel("Exhaustive search", limit)))
	}
	if e.Optimizer.Command != "" {
		opt := solver.NewCommandOptimizer(e.Optimizer.Command, e.Optimizer.Args...)
		entries = append(entries, single(solver.AsHeuristic(opt, limit), optimizerLabel("Optimizer "+e.Optimizer.Command, limit)))
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no heuristic or optimizer configured")
	}
	return entries, nil
}

func optimizerLabel(base string, limit time.Duration) string {
	if limit <= 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, limit)
}
