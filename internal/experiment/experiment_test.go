package experiment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"offset-bench/internal/config"
	"offset-bench/internal/heuristics"
	"offset-bench/internal/taskset"
)

type failingHeuristic struct{}

func (failingHeuristic) Name() string { return "failing" }

func (failingHeuristic) Assign(ts taskset.TaskSet) (taskset.Offsets, error) {
	return nil, errors.New("boom")
}

func lightSet() taskset.TaskSet {
	return taskset.TaskSet{
		{Name: "a", Period: 4, ExecTime: 1},
		{Name: "b", Period: 4, ExecTime: 1},
		{Name: "c", Period: 6, ExecTime: 1},
	}
}

func TestRunScoresEveryEntry(t *testing.T) {
	cfg := &config.ExperimentConfig{Experiment: config.ExperimentInfo{
		Name:       "unit",
		Seed:       7,
		Heuristics: []string{"prime-partition", "goossens_coupled"},
	}}
	entries, err := BuildEntries(cfg)
	if err != nil {
		t.Fatalf("BuildEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Coupled || len(entries[1].Labels) != 2 {
		t.Fatalf("coupled entry should produce two columns: %+v", entries[1])
	}

	runner := NewRunner(entries, nil)
	res, err := runner.Run(context.Background(), []taskset.TaskSet{lightSet(), lightSet()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Heuristics) != 3 {
		t.Fatalf("expected 3 result columns, got %d", len(res.Heuristics))
	}
	wantLabels := []string{"Prime partition", "Pairwise GCD (C)", "Modified pairwise GCD (C)"}
	for i, h := range res.Heuristics {
		if h.Label != wantLabels[i] {
			t.Fatalf("column %d: expected label %q, got %q", i, wantLabels[i], h.Label)
		}
		if len(h.Sets) != 2 {
			t.Fatalf("%s: expected 2 set results, got %d", h.Label, len(h.Sets))
		}
	}

	prime := res.Heuristics[0]
	for _, set := range prime.Sets {
		if set.Delays.Max() != 0 {
			t.Fatalf("prime partition should be delay-free here, got %v", set.Delays)
		}
		if !set.Schedulable {
			t.Fatalf("expected schedulable set")
		}
	}
	if prime.NotSchedulable != 0 || prime.Failures != 0 {
		t.Fatalf("unexpected counts: %+v", prime)
	}
	if res.MinUtilization <= 0 || res.MinUtilization != res.MaxUtilization {
		t.Fatalf("unexpected utilization range %v..%v", res.MinUtilization, res.MaxUtilization)
	}
}

func TestRunScoresZeroVectorOnFailure(t *testing.T) {
	runner := NewRunner([]Entry{HeuristicEntry(failingHeuristic{})}, nil)
	res, err := runner.Run(context.Background(), []taskset.TaskSet{lightSet()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	h := res.Heuristics[0]
	if h.Label != "failing" {
		t.Fatalf("unknown heuristics keep their own name as label, got %q", h.Label)
	}
	if h.Failures != 1 {
		t.Fatalf("expected 1 failure, got %d", h.Failures)
	}
	set := h.Sets[0]
	if set.Error != "boom" {
		t.Fatalf("expected error to be recorded, got %q", set.Error)
	}
	want := taskset.Delays{0, 1, 2}
	for i := range want {
		if set.Offsets[i] != 0 || set.Delays[i] != want[i] {
			t.Fatalf("zero vector should give delays %v, got offsets %v delays %v", want, set.Offsets, set.Delays)
		}
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner([]Entry{HeuristicEntry(heuristics.NewLargestGap())}, nil)
	if _, err := runner.Run(ctx, []taskset.TaskSet{lightSet()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMetricsFlattenAllTasks(t *testing.T) {
	runner := NewRunner([]Entry{HeuristicEntry(failingHeuristic{})}, nil)
	res, err := runner.Run(context.Background(), []taskset.TaskSet{lightSet(), lightSet()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	m := res.Metrics()
	if len(m.Labels) != 1 {
		t.Fatalf("expected 1 label, got %d", len(m.Labels))
	}
	for _, panel := range m.Panels() {
		if len(panel.Values) != 1 || len(panel.Values[0]) != 6 {
			t.Fatalf("%s: expected 6 values, got %v", panel.Key, panel.Values)
		}
	}
	// Task c waits 2 behind a and b, period 6, largest other exec time 1.
	if m.MaxDelay[0][2] != 2 {
		t.Fatalf("expected max delay 2, got %v", m.MaxDelay[0][2])
	}
	if m.PerPeriod[0][2] != 2.0/6.0 {
		t.Fatalf("expected 1/3, got %v", m.PerPeriod[0][2])
	}
	if m.PerOtherExecTime[0][2] != 2 {
		t.Fatalf("expected 2, got %v", m.PerOtherExecTime[0][2])
	}
	if m.ResponseOverExec[0][2] != 3 {
		t.Fatalf("expected 3, got %v", m.ResponseOverExec[0][2])
	}
}

func TestBuildEntriesWithOptimizer(t *testing.T) {
	cfg := &config.ExperimentConfig{Experiment: config.ExperimentInfo{
		Name:      "unit",
		Optimizer: config.OptimizerConfig{Exhaustive: true, TimeLimitS: 2},
	}}
	entries, err := BuildEntries(cfg)
	if err != nil {
		t.Fatalf("BuildEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Labels[0] != "Exhaustive search (2s)" {
		t.Fatalf("unexpected label %q", entries[0].Labels[0])
	}

	if _, err := BuildEntries(&config.ExperimentConfig{}); err == nil {
		t.Fatalf("expected error without heuristics")
	}
	bad := &config.ExperimentConfig{Experiment: config.ExperimentInfo{Heuristics: []string{"nope"}}}
	if _, err := BuildEntries(bad); err == nil {
		t.Fatalf("expected error for unknown heuristic")
	}
}

func TestRunConfigGeneratesSets(t *testing.T) {
	cfg := &config.ExperimentConfig{
		Experiment: config.ExperimentInfo{
			Name:        "generated",
			Seed:        3,
			Sets:        3,
			Tasks:       4,
			Utilization: 0.5,
			Heuristics:  []string{"largest_gap", "paparazzi"},
		},
		TaskSets: map[string]config.TaskSetConfig{
			"inline": {KeyName: "inline", Index: 0, Tasks: lightSet()},
		},
	}
	res, err := RunConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}
	if len(res.TaskSets) != 4 {
		t.Fatalf("expected 1 inline + 3 generated sets, got %d", len(res.TaskSets))
	}
	if len(res.TaskSets[1]) != 4 {
		t.Fatalf("generated sets should have 4 tasks, got %d", len(res.TaskSets[1]))
	}
	if len(res.Checksum) != 6 {
		t.Fatalf("expected 6 character checksum, got %q", res.Checksum)
	}
	if res.TargetUtilization != 0.5 || res.Name != "generated" || res.Seed != 3 {
		t.Fatalf("run parameters not recorded: %+v", res)
	}
}

func TestWriteOutputs(t *testing.T) {
	runner := NewRunner([]Entry{HeuristicEntry(heuristics.NewPrimePartition())}, nil)
	res, err := runner.Run(context.Background(), []taskset.TaskSet{lightSet()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res.TargetUtilization = 0.67

	dir := filepath.Join(t.TempDir(), "out")
	if err := WriteOutputs(dir, res); err != nil {
		t.Fatalf("WriteOutputs: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, TaskSetsFile))
	if err != nil {
		t.Fatalf("open task sets: %v", err)
	}
	defer f.Close()
	sets, err := taskset.ReadSetsCSV(f)
	if err != nil {
		t.Fatalf("ReadSetsCSV: %v", err)
	}
	if len(sets) != 1 || len(sets[0]) != 3 {
		t.Fatalf("unexpected task sets read back: %v", sets)
	}

	logData, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	log := string(logData)
	if !strings.HasPrefix(log, "1 sets of 3 tasks. U = 0.67") {
		t.Fatalf("unexpected log header: %q", log)
	}
	if !strings.Contains(log, "Time spent in Prime partition:") || !strings.Contains(log, "-- Not schedulable: 0") {
		t.Fatalf("missing heuristic line: %q", log)
	}

	results, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if lines := strings.Count(string(results), "\n"); lines != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", lines)
	}
}

func TestWriteLogReportsFailures(t *testing.T) {
	res := &Results{
		TaskSets: []taskset.TaskSet{lightSet()},
		Heuristics: []HeuristicResult{
			{Label: "Optimizer", TotalWall: 1500 * time.Millisecond, NotSchedulable: 1, Failures: 2},
		},
	}
	var buf bytes.Buffer
	if err := WriteLog(&buf, res); err != nil {
		t.Fatalf("WriteLog: %v", err)
	}
	if !strings.Contains(buf.String(), "Time spent in Optimizer: 1.500e+00s -- Not schedulable: 1 -- Failures: 2") {
		t.Fatalf("unexpected log: %q", buf.String())
	}
}

func TestRunDirName(t *testing.T) {
	res := &Results{
		TaskSets:          []taskset.TaskSet{lightSet(), lightSet()},
		TargetUtilization: 0.98,
		Filtered:          true,
		Started:           time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if got := RunDirName("run", res); got != "run_f_2x3t_U98_2024-05-01_10-00-00" {
		t.Fatalf("unexpected dir name %q", got)
	}
}
