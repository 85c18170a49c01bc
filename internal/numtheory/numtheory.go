// Package numtheory holds the integer arithmetic shared by the simulator, the
// offset heuristics and the exhaustive search: gcd/lcm lattices, prime
// factorization and the size of the non-equivalent offset space.
package numtheory

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

var (
	// ErrInvalidInput marks arguments outside the domain of a function
	// (non-positive periods, empty lists, ...).
	ErrInvalidInput = errors.New("invalid input")
	// ErrResourceLimit marks results that do not fit the integer type or a
	// configured practical bound.
	ErrResourceLimit = errors.New("resource limit exceeded")
)

func abs[T constraints.Integer](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// GCD returns the greatest common divisor of a and b. GCD(0, 0) is 0.
func GCD[T constraints.Integer](a, b T) T {
	a, b = abs(a), abs(b)
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of a and b without overflow checks.
// Use LCMChecked when the operands are not known to be small.
func LCM[T constraints.Integer](a, b T) T {
	if a == 0 || b == 0 {
		return 0
	}
	return abs(a / GCD(a, b) * b)
}

// MulChecked multiplies two non-negative int64 values.
func MulChecked(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand in %d * %d", ErrInvalidInput, a, b)
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, fmt.Errorf("%w: %d * %d overflows int64", ErrResourceLimit, a, b)
	}
	return a * b, nil
}

// AddChecked adds two non-negative int64 values.
func AddChecked(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand in %d + %d", ErrInvalidInput, a, b)
	}
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("%w: %d + %d overflows int64", ErrResourceLimit, a, b)
	}
	return a + b, nil
}

func LCMChecked(a, b int64) (int64, error) {
	if a <= 0 || b <= 0 {
		return 0, fmt.Errorf("%w: lcm(%d, %d) needs positive operands", ErrInvalidInput, a, b)
	}
	return MulChecked(a/GCD(a, b), b)
}

// LCMOf folds LCMChecked over values from the left.
func LCMOf(values []int64) (int64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: lcm of an empty list", ErrInvalidInput)
	}
	result := int64(1)
	for _, v := range values {
		var err error
		result, err = LCMChecked(result, v)
		if err != nil {
			return 0, err
		}
	}
	return result, nil
}

func GCDOf(values []int64) int64 {
	var result int64
	for _, v := range values {
		result = GCD(result, v)
	}
	return result
}

// PrimeFactors returns the distinct primes dividing n in ascending order.
// PrimeFactors(1) is empty.
func PrimeFactors(n int64) ([]int64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: tried factoring %d but input must be positive", ErrInvalidInput, n)
	}
	var factors []int64
	if n%2 == 0 {
		factors = append(factors, 2)
		for n%2 == 0 {
			n /= 2
		}
	}
	for p := int64(3); p <= n/p; p += 2 {
		if n%p != 0 {
			continue
		}
		factors = append(factors, p)
		for n%p == 0 {
			n /= p
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors, nil
}

// NonEquivalentOffsets returns, per task, gcd(period[i], lcm(period[0..i-1])):
// the number of offset residues of task i that are not equivalent to another
// one once the offsets of the earlier tasks are fixed. The first entry is 1.
func NonEquivalentOffsets(periods []int64) ([]int64, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("%w: no periods", ErrInvalidInput)
	}
	counts := make([]int64, len(periods))
	current := int64(1)
	for i, p := range periods {
		if p <= 0 {
			return nil, fmt.Errorf("%w: period %d of task %d must be positive", ErrInvalidInput, p, i)
		}
		counts[i] = GCD(p, current)
		if i == len(periods)-1 {
			break
		}
		var err error
		current, err = LCMChecked(current, p)
		if err != nil {
			return nil, fmt.Errorf("lcm of the first %d periods: %w", i+1, err)
		}
	}
	return counts, nil
}

// CountPossibilities is the size of the non-equivalent offset space, the
// product of NonEquivalentOffsets.
func CountPossibilities(periods []int64) (int64, error) {
	counts, err := NonEquivalentOffsets(periods)
	if err != nil {
		return 0, err
	}
	total := int64(1)
	for _, c := range counts {
		total, err = MulChecked(total, c)
		if err != nil {
			return 0, fmt.Errorf("candidate space size: %w", err)
		}
	}
	return total, nil
}
