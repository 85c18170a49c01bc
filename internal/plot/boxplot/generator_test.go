package boxplot

import (
	"math"
	"strings"
	"testing"

	"offset-bench/internal/experiment"
	"offset-bench/internal/logging"
	"offset-bench/internal/plot/database"

	"github.com/stretchr/testify/require"
)

func TestComputeBoxStats(t *testing.T) {
	stats, ok := ComputeBoxStats([]float64{5, 1, 4, 2, 3})
	require.True(t, ok)
	require.Equal(t, 5, stats.Count)
	require.Equal(t, 3.0, stats.Mean)
	require.Equal(t, 2.0, stats.LowerQuartile)
	require.Equal(t, 3.0, stats.Median)
	require.Equal(t, 4.0, stats.UpperQuartile)
	require.Equal(t, 1.0, stats.LowerWhisker)
	require.Equal(t, 5.0, stats.UpperWhisker)
	require.Empty(t, stats.Outliers)
}

func TestComputeBoxStatsInterpolatesAndFindsOutliers(t *testing.T) {
	stats, ok := ComputeBoxStats([]float64{1, 2, 3, 4, 100})
	require.True(t, ok)
	require.Equal(t, 3.0, stats.Median)
	require.Equal(t, []float64{100}, stats.Outliers)
	require.Equal(t, 4.0, stats.UpperWhisker)

	stats, ok = ComputeBoxStats([]float64{1, 2, 3, 4})
	require.True(t, ok)
	require.InDelta(t, 1.75, stats.LowerQuartile, 1e-12)
	require.InDelta(t, 2.5, stats.Median, 1e-12)
	require.InDelta(t, 3.25, stats.UpperQuartile, 1e-12)
}

func TestComputeBoxStatsEdgeCases(t *testing.T) {
	_, ok := ComputeBoxStats(nil)
	require.False(t, ok)

	stats, ok := ComputeBoxStats([]float64{7})
	require.True(t, ok)
	require.Equal(t, 7.0, stats.LowerWhisker)
	require.Equal(t, 7.0, stats.UpperWhisker)

	input := []float64{3, 1, 2}
	_, _ = ComputeBoxStats(input)
	require.Equal(t, []float64{3, 1, 2}, input, "input must stay unsorted")
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{
		0:         "0",
		10:        "10",
		0.5:       "0.5",
		1.0 / 3.0: "0.3333",
		-2.25:     "-2.25",
		1e7:       "10000000",
		-0.00001:  "0",
		math.Pi:   "3.1416",
		123.45678: "123.4568",
	}
	for in, want := range cases {
		require.Equal(t, want, formatNumber(in), "formatNumber(%v)", in)
	}
}

func TestEscapeTeX(t *testing.T) {
	require.Equal(t, `largest\_gap`, EscapeTeX("largest_gap"))
	require.Equal(t, `50\% \& more`, EscapeTeX("50% & more"))
	require.Equal(t, "Pairwise GCD (C)", EscapeTeX("Pairwise GCD (C)"))
}

func sampleMetrics() *experiment.Metrics {
	return &experiment.Metrics{
		Labels:           []string{"Prime partition", "largest_gap"},
		MaxDelay:         [][]float64{{0, 1, 2, 3}, {1, 1, 1, 50}},
		PerPeriod:        [][]float64{{0, 0.1, 0.2, 0.3}, {0.1, 0.1, 0.1, 0.9}},
		PerOtherExecTime: [][]float64{{0, 1, 1, 2}, {1, 1, 1, 1}},
		ResponseOverExec: [][]float64{{1, 2, 3, 4}, {2, 2, 2, 2}},
	}
}

func TestGenerate(t *testing.T) {
	g := NewBoxplotGenerator(logging.GetLogger())
	meta := &database.MetaData{RunID: 4, Name: "unit", TotalSets: 2, Checksum: "abc123"}

	plot, wrapper, err := g.Generate(meta, sampleMetrics(), PlotOptions{ShowOutliers: true})
	require.NoError(t, err)

	require.Contains(t, plot, `% Run ID: 4`)
	require.Contains(t, plot, `% Checksum: abc123`)
	require.Equal(t, 4, strings.Count(plot, `\nextgroupplot`))
	require.Equal(t, 8, strings.Count(plot, `boxplot prepared=`))
	require.Contains(t, plot, `xticklabels={ {Prime partition},{largest\_gap} }`)
	require.Contains(t, plot, `title={ Maximum delays }`)
	require.Contains(t, plot, `ymin=1`)
	require.Contains(t, plot, "    50 \\\\\n")
	require.Contains(t, plot, `draw position=2`)

	require.Contains(t, wrapper, `\input{./run-4-boxplot-outliers.tikz }`)
	require.Contains(t, wrapper, `over 2 task sets`)
	require.Contains(t, wrapper, `\label{fig:run-4-delays}`)
}

func TestGenerateHidesOutliersAndSelectsPanels(t *testing.T) {
	g := NewBoxplotGenerator(logging.GetLogger())
	plot, wrapper, err := g.Generate(nil, sampleMetrics(), PlotOptions{Panels: []string{"max_delay"}})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(plot, `\nextgroupplot`))
	require.NotContains(t, plot, "    50 \\\\\n")
	require.Contains(t, plot, "outliers=1")
	require.Contains(t, wrapper, "outliers hidden")
	require.Contains(t, wrapper, "run-0-boxplot.tikz")
}

func TestGenerateErrors(t *testing.T) {
	g := NewBoxplotGenerator(logging.GetLogger())
	_, _, err := g.Generate(nil, &experiment.Metrics{}, PlotOptions{})
	require.Error(t, err)

	_, _, err = g.Generate(nil, sampleMetrics(), PlotOptions{Panels: []string{"nope"}})
	require.Error(t, err)
}
