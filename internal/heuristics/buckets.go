package heuristics

import "fmt"

// Buckets is an index-addressed array that only grows when asked to. Reads
// and writes past Len are programming errors and panic with the index.
type Buckets[T any] struct {
	items []T
}

// Grow extends the array to at least n buckets; new buckets hold the zero
// value.
func (b *Buckets[T]) Grow(n int) {
	if n <= len(b.items) {
		return
	}
	grown := make([]T, n)
	copy(grown, b.items)
	b.items = grown
}

func (b *Buckets[T]) Len() int {
	return len(b.items)
}

func (b *Buckets[T]) At(i int) *T {
	if i < 0 || i >= len(b.items) {
		panic(fmt.Sprintf("bucket %d out of range [0, %d)", i, len(b.items)))
	}
	return &b.items[i]
}
