package heuristics

import (
	"fmt"
	"sort"

	"offset-bench/internal/logging"
	"offset-bench/internal/numtheory"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
)

// PrimePartition factors the period gcd g out of every task. Each task's
// subperiod T/g is placed into a section keyed by one of its prime factors;
// sections are laid side by side inside [0, g), and within a section tasks
// are stacked on residues of the subperiod grid. The offset is
// Oh*g + Og + Oa: the grid residue, the section start, and the growth of
// the section caused by this task.
//
// Tasks are placed by ascending subperiod, then descending execution time,
// then index. A task joins the candidate section that grows least; equal
// growth goes to the smallest prime, equal busy time to the lowest residue.
type PrimePartition struct{}

func NewPrimePartition() *PrimePartition {
	return &PrimePartition{}
}

func (h *PrimePartition) Name() string {
	return PrimePartitionName
}

type section struct {
	prime int64
	size  int64
	tasks []int
}

type placement struct {
	subperiod int64
	primes    []int64
	section   int
	oh, oa    int64
}

func (h *PrimePartition) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	g := ts.PeriodGCD()

	placements := make([]placement, len(ts))
	seen := make(map[int64]bool)
	for i, task := range ts {
		sub := task.Period / g
		if sub > DefaultMaxSlots {
			return nil, fmt.Errorf("%w: task %d: subperiod %d exceeds %d residues",
				taskset.ErrResourceLimit, i, sub, DefaultMaxSlots)
		}
		primes, err := numtheory.PrimeFactors(sub)
		if err != nil {
			return nil, err
		}
		if sub == 1 {
			primes = []int64{1}
		}
		placements[i] = placement{subperiod: sub, primes: primes}
		for _, p := range primes {
			seen[p] = true
		}
	}

	// Sections run in ascending prime order. A subperiod of 1 has no prime
	// factor; it gets the key 1, which always sorts into section 0.
	keys := make([]int64, 0, len(seen))
	for p := range seen {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })
	index := make(map[int64]int, len(keys))
	var sections Buckets[section]
	sections.Grow(len(keys))
	for i, p := range keys {
		index[p] = i
		sections.At(i).prime = p
	}

	// Most constrained first: short subperiods, then long execution times.
	order := make([]int, len(ts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := placements[order[a]], placements[order[b]]
		if pa.subperiod != pb.subperiod {
			return pa.subperiod < pb.subperiod
		}
		return ts[order[a]].ExecTime > ts[order[b]].ExecTime
	})

	for _, i := range order {
		task := ts[i]
		pl := &placements[i]
		bestSection, bestDelta := -1, int64(0)
		var bestBusy, bestOh int64
		for _, p := range pl.primes {
			s := index[p]
			sec := sections.At(s)
			minBusy, oh := leastBusyResidue(ts, placements, sec, pl.subperiod)
			delta := max(sec.size, minBusy+task.ExecTime) - sec.size
			if bestSection < 0 || delta < bestDelta {
				bestSection, bestDelta, bestBusy, bestOh = s, delta, minBusy, oh
			}
		}
		sec := sections.At(bestSection)
		pl.section = bestSection
		pl.oh = bestOh
		pl.oa = bestBusy
		sec.size = max(sec.size, bestBusy+task.ExecTime)
		sec.tasks = append(sec.tasks, i)
	}

	starts := make([]int64, sections.Len())
	var cursor int64
	for s := 0; s < sections.Len(); s++ {
		starts[s] = cursor
		sum, err := numtheory.AddChecked(cursor, sections.At(s).size)
		if err != nil {
			return nil, err
		}
		cursor = sum
	}

	offsets := make(taskset.Offsets, len(ts))
	for i, pl := range placements {
		grid, err := numtheory.MulChecked(pl.oh, g)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		o, err := numtheory.AddChecked(grid, starts[pl.section])
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if o, err = numtheory.AddChecked(o, pl.oa); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		offsets[i] = o
	}

	log := logging.GetLogger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		for s := 0; s < sections.Len(); s++ {
			sec := sections.At(s)
			log.WithFields(logrus.Fields{
				"prime": sec.prime,
				"size":  sec.size,
				"start": starts[s],
				"tasks": sec.tasks,
			}).Debug("Prime partition section")
		}
		log.WithFields(logrus.Fields{
			"gcd":       g,
			"occupied":  cursor,
			"overflows": cursor > g,
		}).Debug("Prime partition laid out")
	}
	return offsets, nil
}

// leastBusyResidue scans the residues 0..sub-1 of a section for the one
// whose latest busy time is smallest. A task already in the section with
// subperiod s and residue r occupies every residue congruent to r modulo
// gcd(s, sub). Ties resolve to the lowest residue.
func leastBusyResidue(ts taskset.TaskSet, placements []placement, sec *section, sub int64) (int64, int64) {
	busy := make([]int64, sub)
	for _, j := range sec.tasks {
		other := placements[j]
		until := ts[j].ExecTime + other.oa
		step := numtheory.GCD(other.subperiod, sub)
		for r := other.oh % step; r < sub; r += step {
			if until > busy[r] {
				busy[r] = until
			}
		}
	}
	minBusy, residue := busy[0], int64(0)
	for r := int64(1); r < sub; r++ {
		if busy[r] < minBusy {
			minBusy, residue = busy[r], r
		}
	}
	return minBusy, residue
}
