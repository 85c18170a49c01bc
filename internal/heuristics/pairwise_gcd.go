package heuristics

import (
	"sort"

	"offset-bench/internal/logging"
	"offset-bench/internal/numtheory"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// pair is an unordered task pair; row < col.
type pair struct {
	row, col int
	gcd      int64
}

// PairwiseGCD separates the most constrained pairs first: pairs with a large
// period gcd have few relative phases, so they are placed gcd/2 apart before
// anything else is decided.
type PairwiseGCD struct {
	rng      *rand.Rand
	modified bool
}

func NewPairwiseGCD(rng *rand.Rand) *PairwiseGCD {
	return &PairwiseGCD{rng: rng}
}

// NewModifiedPairwiseGCD also accounts for execution times: the separation
// becomes (gcd + c_row - c_col) / 2.
func NewModifiedPairwiseGCD(rng *rand.Rand) *PairwiseGCD {
	return &PairwiseGCD{rng: rng, modified: true}
}

func (h *PairwiseGCD) Name() string {
	if h.modified {
		return ModifiedPairwiseGCDName
	}
	return PairwiseGCDName
}

func (h *PairwiseGCD) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	order := sortedPairs(ts)
	draws := drawFirst(h.rng, ts, order)
	return assignPairs(ts, order, draws, h.modified), nil
}

// CoupledPairwiseGCD runs the plain and modified variants on one ordering
// and one set of random draws, so their outputs differ only by the
// execution time correction.
type CoupledPairwiseGCD struct {
	rng *rand.Rand
}

func NewCoupledPairwiseGCD(rng *rand.Rand) *CoupledPairwiseGCD {
	return &CoupledPairwiseGCD{rng: rng}
}

func (h *CoupledPairwiseGCD) Name() string {
	return CoupledPairwiseGCDName
}

func (h *CoupledPairwiseGCD) AssignBoth(ts taskset.TaskSet) (plain, modified taskset.Offsets, err error) {
	if err := ts.Validate(); err != nil {
		return nil, nil, err
	}
	order := sortedPairs(ts)
	draws := drawFirst(h.rng, ts, order)
	return assignPairs(ts, order, draws, false), assignPairs(ts, order, draws, true), nil
}

// sortedPairs lists all pairs by descending gcd. The sort is stable so that
// equal gcds keep row-major order.
func sortedPairs(ts taskset.TaskSet) []pair {
	pairs := make([]pair, 0, len(ts)*(len(ts)-1)/2)
	for i := 0; i < len(ts); i++ {
		for j := i + 1; j < len(ts); j++ {
			pairs = append(pairs, pair{row: i, col: j, gcd: numtheory.GCD(ts[i].Period, ts[j].Period)})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].gcd > pairs[b].gcd
	})
	return pairs
}

// drawFirst makes the only random decision of the algorithm: the offset of
// the row task of every pair that starts a new cluster. Drawing all of them
// up front lets the coupled variant replay the exact same choices.
func drawFirst(rng *rand.Rand, ts taskset.TaskSet, order []pair) map[int]int64 {
	draws := make(map[int]int64)
	assigned := make([]bool, len(ts))
	for _, p := range order {
		switch {
		case !assigned[p.row] && !assigned[p.col]:
			draws[p.row] = rng.Int63n(ts[p.row].Period)
			assigned[p.row], assigned[p.col] = true, true
		case !assigned[p.row] || !assigned[p.col]:
			assigned[p.row], assigned[p.col] = true, true
		}
	}
	return draws
}

func separation(ts taskset.TaskSet, p pair, from, to int, modified bool) int64 {
	if !modified {
		return p.gcd / 2
	}
	return (p.gcd + ts[from].ExecTime - ts[to].ExecTime) / 2
}

func assignPairs(ts taskset.TaskSet, order []pair, draws map[int]int64, modified bool) taskset.Offsets {
	offsets := make(taskset.Offsets, len(ts))
	assigned := make([]bool, len(ts))
	remaining := len(ts)
	if remaining == 1 {
		return offsets
	}
	for _, p := range order {
		if remaining == 0 {
			break
		}
		switch {
		case !assigned[p.row] && !assigned[p.col]:
			offsets[p.row] = draws[p.row]
			offsets[p.col] = offsets[p.row] + separation(ts, p, p.row, p.col, modified)
			assigned[p.row], assigned[p.col] = true, true
			remaining -= 2
		case assigned[p.row] && !assigned[p.col]:
			offsets[p.col] = offsets[p.row] + separation(ts, p, p.row, p.col, modified)
			assigned[p.col] = true
			remaining--
		case !assigned[p.row] && assigned[p.col]:
			offsets[p.row] = offsets[p.col] + separation(ts, p, p.col, p.row, modified)
			assigned[p.row] = true
			remaining--
		}
	}

	// The modified separation can go negative; shift everything so the
	// smallest offset is zero, then reduce.
	lowest := offsets[0]
	for _, o := range offsets[1:] {
		if o < lowest {
			lowest = o
		}
	}
	for i := range offsets {
		offsets[i] = taskset.Mod(offsets[i]-lowest, ts[i].Period)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"modified": modified,
		"tasks":    len(ts),
		"pairs":    len(order),
	}).Debug("Assigned pairwise-gcd offsets")
	return offsets
}
