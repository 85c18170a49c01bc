package boxplot

import (
	"math"

	"golang.org/x/exp/slices"
)

// whiskerReach is the whisker length in interquartile ranges.
const whiskerReach = 1.5

type BoxStats struct {
	Count         int
	Mean          float64
	LowerWhisker  float64
	LowerQuartile float64
	Median        float64
	UpperQuartile float64
	UpperWhisker  float64
	Outliers      []float64
}

// ComputeBoxStats summarizes values the way matplotlib draws a boxplot:
// linearly interpolated quartiles, whiskers at the most extreme data within
// 1.5 IQR of the box and everything beyond as outliers. ok is false for an
// empty input.
func ComputeBoxStats(values []float64) (stats BoxStats, ok bool) {
	if len(values) == 0 {
		return BoxStats{}, false
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	stats = BoxStats{
		Count:         len(sorted),
		Mean:          sum / float64(len(sorted)),
		LowerQuartile: quantile(sorted, 0.25),
		Median:        quantile(sorted, 0.5),
		UpperQuartile: quantile(sorted, 0.75),
	}

	iqr := stats.UpperQuartile - stats.LowerQuartile
	lowFence := stats.LowerQuartile - whiskerReach*iqr
	highFence := stats.UpperQuartile + whiskerReach*iqr

	stats.LowerWhisker = math.Inf(1)
	stats.UpperWhisker = math.Inf(-1)
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			stats.Outliers = append(stats.Outliers, v)
			continue
		}
		stats.LowerWhisker = min(stats.LowerWhisker, v)
		stats.UpperWhisker = max(stats.UpperWhisker, v)
	}
	return stats, true
}

func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
