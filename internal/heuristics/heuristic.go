// Package heuristics computes release offsets for a task set. Every
// strategy returns a fresh offset vector indexed like the input and never
// modifies the task set. Offsets are only meaningful modulo their task's
// period; some strategies return values past the period.
package heuristics

import (
	"fmt"
	"sort"
	"strings"

	"offset-bench/internal/taskset"

	"golang.org/x/exp/rand"
)

type Heuristic interface {
	Name() string
	Assign(ts taskset.TaskSet) (taskset.Offsets, error)
}

const (
	PrimePartitionName      = "prime_partition"
	PairwiseGCDName         = "pairwise_gcd"
	ModifiedPairwiseGCDName = "modified_pairwise_gcd"
	CoupledPairwiseGCDName  = "coupled_pairwise_gcd"
	LargestGapName          = "largest_gap"
	FixedPhaseName          = "fixed_phase"
)

var aliases = map[string]string{
	"new":               PrimePartitionName,
	"ladeira":           PrimePartitionName,
	"goossens":          PairwiseGCDName,
	"goossens_modified": ModifiedPairwiseGCDName,
	"goossens_coupled":  CoupledPairwiseGCDName,
	"can":               LargestGapName,
	"paparazzi":         FixedPhaseName,
}

// NormalizeName maps user spellings ("largest-gap", "Largest_Gap", "can")
// to the canonical registry name.
func NormalizeName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	if canonical, ok := aliases[n]; ok {
		n = canonical
	}
	switch n {
	case PrimePartitionName, PairwiseGCDName, ModifiedPairwiseGCDName,
		CoupledPairwiseGCDName, LargestGapName, FixedPhaseName:
		return n, nil
	}
	return "", fmt.Errorf("unknown heuristic %q (known: %s)", name, strings.Join(Names(), ", "))
}

func Names() []string {
	names := []string{
		PrimePartitionName,
		PairwiseGCDName,
		ModifiedPairwiseGCDName,
		CoupledPairwiseGCDName,
		LargestGapName,
		FixedPhaseName,
	}
	sort.Strings(names)
	return names
}

// IsRandomized reports whether the named strategy draws from its random
// source.
func IsRandomized(name string) bool {
	n, err := NormalizeName(name)
	if err != nil {
		return false
	}
	return n == PairwiseGCDName || n == ModifiedPairwiseGCDName || n == CoupledPairwiseGCDName
}

// NewRand returns the seeded source randomized strategies expect.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(uint64(seed)))
}

// New builds a single-vector heuristic by name. The coupled pairwise-GCD
// strategy yields two vectors and is built with NewCoupledPairwiseGCD.
func New(name string, seed int64) (Heuristic, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	switch n {
	case PrimePartitionName:
		return NewPrimePartition(), nil
	case PairwiseGCDName:
		return NewPairwiseGCD(NewRand(seed)), nil
	case ModifiedPairwiseGCDName:
		return NewModifiedPairwiseGCD(NewRand(seed)), nil
	case LargestGapName:
		return NewLargestGap(), nil
	case FixedPhaseName:
		return NewFixedPhase(), nil
	}
	return nil, fmt.Errorf("heuristic %q yields two offset vectors, use NewCoupledPairwiseGCD", name)
}
