package search

import (
	"offset-bench/internal/numtheory"
	"offset-bench/internal/taskset"
)

// Generator hands out candidate offset vectors one at a time. It is single
// pass: once Next reports false it stays exhausted.
type Generator interface {
	Next() (taskset.Offsets, bool)
}

// Sized is implemented by generators that know their length up front.
type Sized interface {
	Size() int64
}

// Lattice enumerates every non-equivalent offset vector of a task set as a
// mixed-radix counter. Digit i runs over [0, gcd(T_i, lcm(T_0..T_i-1))), the
// last digit turning fastest. Task 0 always sits at offset 0.
type Lattice struct {
	radix  []int64
	digits []int64
	size   int64
	done   bool
}

func NewLattice(ts taskset.TaskSet) (*Lattice, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	radix, err := numtheory.NonEquivalentOffsets(ts.Periods())
	if err != nil {
		return nil, err
	}
	size, err := numtheory.CountPossibilities(ts.Periods())
	if err != nil {
		return nil, err
	}
	return &Lattice{
		radix:  radix,
		digits: make([]int64, len(radix)),
		size:   size,
	}, nil
}

func (l *Lattice) Size() int64 {
	return l.size
}

func (l *Lattice) Next() (taskset.Offsets, bool) {
	if l.done {
		return nil, false
	}
	out := make(taskset.Offsets, len(l.digits))
	copy(out, l.digits)
	for i := len(l.digits) - 1; i >= 0; i-- {
		l.digits[i]++
		if l.digits[i] < l.radix[i] {
			return out, true
		}
		l.digits[i] = 0
	}
	l.done = true
	return out, true
}

// sliceGenerator replays a fixed list of candidates.
type sliceGenerator struct {
	candidates []taskset.Offsets
	next       int
}

// FromSlice wraps explicit candidates as a Generator.
func FromSlice(candidates []taskset.Offsets) Generator {
	return &sliceGenerator{candidates: candidates}
}

func (g *sliceGenerator) Size() int64 {
	return int64(len(g.candidates))
}

func (g *sliceGenerator) Next() (taskset.Offsets, bool) {
	if g.next >= len(g.candidates) {
		return nil, false
	}
	c := g.candidates[g.next]
	g.next++
	return c, true
}
