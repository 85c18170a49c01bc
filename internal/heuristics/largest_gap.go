package heuristics

import (
	"fmt"

	"offset-bench/internal/taskset"

	"golang.org/x/exp/slices"
)

// DefaultMaxSlots caps the arrival timeline. Every task contributes
// maxPeriod/period arrivals, so a set with a tiny period next to a huge one
// can otherwise allocate without bound.
const DefaultMaxSlots = 1 << 24

// LargestGap places tasks one by one, in input order, at the midpoint of the
// widest free stretch on a timeline of length maxPeriod. The timeline
// records every arrival of already placed tasks.
type LargestGap struct {
	MaxSlots int
}

func NewLargestGap() *LargestGap {
	return &LargestGap{MaxSlots: DefaultMaxSlots}
}

func (h *LargestGap) Name() string {
	return LargestGapName
}

func (h *LargestGap) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	var maxPeriod int64
	var slotCount int64
	for _, task := range ts {
		if task.Period > maxPeriod {
			maxPeriod = task.Period
		}
	}
	for _, task := range ts {
		slotCount += (maxPeriod + task.Period - 1) / task.Period
	}
	if h.MaxSlots > 0 && slotCount > int64(h.MaxSlots) {
		return nil, fmt.Errorf("%w: largest gap timeline needs %d slots, limit is %d",
			taskset.ErrResourceLimit, slotCount, h.MaxSlots)
	}

	offsets := make(taskset.Offsets, len(ts))
	var slots []int64
	for i, task := range ts {
		slots = reduceIfFull(slots, maxPeriod)
		offsets[i] = taskset.Mod(widestGapMidpoint(slots, maxPeriod), task.Period)
		slots = addArrivals(slots, offsets[i], task.Period, maxPeriod)
	}
	return offsets, nil
}

// reduceIfFull drops one occurrence of every value while the timeline has
// an arrival at each tick of [0, maxPeriod). A full timeline has no gap left,
// so only the excess layering is informative. slots must be sorted.
func reduceIfFull(slots []int64, maxPeriod int64) []int64 {
	for int64(len(slots)) >= maxPeriod {
		var distinct int64
		for i, s := range slots {
			if i == 0 || s != slots[i-1] {
				distinct++
			}
		}
		if distinct < maxPeriod {
			return slots
		}
		kept := slots[:0:0]
		for i, s := range slots {
			if i > 0 && s == slots[i-1] {
				kept = append(kept, s)
			}
		}
		slots = kept
	}
	return slots
}

// widestGapMidpoint returns the midpoint of the largest gap between
// consecutive distinct slots, including the gap that wraps from the last
// slot back to the first. The first widest gap in slot order wins.
func widestGapMidpoint(slots []int64, maxPeriod int64) int64 {
	if len(slots) == 0 {
		return (maxPeriod - 1) / 2
	}
	var (
		bestStart int64
		bestWidth int64 = -1
	)
	for i := 0; i < len(slots); i++ {
		start := slots[i]
		var end int64
		if i+1 < len(slots) {
			end = slots[i+1]
		} else {
			end = slots[0] + maxPeriod
		}
		if width := end - start; width > bestWidth {
			bestStart, bestWidth = start, width
		}
	}
	return taskset.Mod(bestStart+bestWidth/2, maxPeriod)
}

// addArrivals merges offset, offset+period, ... below maxPeriod into the
// sorted timeline.
func addArrivals(slots []int64, offset, period, maxPeriod int64) []int64 {
	for t := offset; t < maxPeriod; t += period {
		slots = append(slots, t)
	}
	slices.Sort(slots)
	return slots
}
