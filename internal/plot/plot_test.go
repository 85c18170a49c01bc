package plot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	resultsdb "offset-bench/internal/database"
	"offset-bench/internal/experiment"
	"offset-bench/internal/plot/boxplot"
	"offset-bench/internal/taskset"

	"github.com/stretchr/testify/require"
)

func sampleResults() *experiment.Results {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ts := taskset.TaskSet{
		{Name: "a", Period: 4, ExecTime: 1},
		{Name: "b", Period: 4, ExecTime: 1},
	}
	return &experiment.Results{
		Name:     "unit",
		Checksum: "abc123",
		Started:  started,
		Finished: started.Add(time.Second),
		TaskSets: []taskset.TaskSet{ts},
		Heuristics: []experiment.HeuristicResult{{
			Label: "Largest gap",
			Sets: []experiment.SetResult{{
				Index:   0,
				Offsets: taskset.Offsets{1, 3},
				Delays:  taskset.Delays{0, 0},
			}},
		}},
	}
}

func TestMetaFromRun(t *testing.T) {
	res := sampleResults()
	meta := MetaFromRun(9, nil, res)
	require.Equal(t, 9, meta.RunID)
	require.Equal(t, int64(1), meta.TotalSets)
	require.Equal(t, int64(2), meta.TotalTasks)
	require.Equal(t, "2024-05-01T10:00:00Z", meta.Started)
	require.Empty(t, meta.Hostname)

	meta = MetaFromRun(9, &resultsdb.RunMetadata{Hostname: "bench", CPUThreads: 8}, res)
	require.Equal(t, "bench", meta.Hostname)
	require.Equal(t, int64(8), meta.CPUThreads)
}

func TestGenerateBoxplotFromSpool(t *testing.T) {
	dir := t.TempDir()
	res := sampleResults()
	path, err := resultsdb.WriteSpoolArtifact(dir, resultsdb.BuildSpoolArtifact(3, "", res, nil))
	require.NoError(t, err)

	pm := NewOfflinePlotManager()
	defer pm.Close()
	plotTikz, wrapperTex, runID, err := pm.GenerateBoxplotFromSpool(path, boxplot.PlotOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, runID)
	require.Contains(t, plotTikz, "% Run ID: 3")
	require.Contains(t, plotTikz, "{Largest gap}")
	require.Contains(t, wrapperTex, "run-3-boxplot.tikz")

	plotPath, wrapperPath, err := WritePlotFiles(filepath.Join(dir, "plots"), runID, false, plotTikz, wrapperTex)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(plotPath, "run-3-boxplot.tikz"))
	require.True(t, strings.HasSuffix(wrapperPath, "run-3-boxplot.tex"))
	data, err := os.ReadFile(plotPath)
	require.NoError(t, err)
	require.Equal(t, plotTikz, string(data))
}

func TestGenerateBoxplotNeedsDatabase(t *testing.T) {
	pm := NewOfflinePlotManager()
	_, _, err := pm.GenerateBoxplot(context.Background(), 1, boxplot.PlotOptions{})
	require.Error(t, err)
}
