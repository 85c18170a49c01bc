package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"offset-bench/internal/experiment"
	"offset-bench/internal/perfcount"
	"offset-bench/internal/taskset"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func sampleResults() *experiment.Results {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &experiment.Results{
		Name:     "unit",
		Seed:     1,
		Checksum: "abc123",
		Started:  started,
		Finished: started.Add(2 * time.Second),
		TaskSets: []taskset.TaskSet{{
			{Name: "a", Period: 4, ExecTime: 1},
			{Name: "b", Period: 6, ExecTime: 2},
		}},
		Heuristics: []experiment.HeuristicResult{
			{
				Label: "Largest gap",
				Name:  "largest_gap",
				Sets: []experiment.SetResult{{
					Index:       0,
					Offsets:     taskset.Offsets{0, 1},
					Delays:      taskset.Delays{0, 3},
					Wall:        time.Millisecond,
					Schedulable: true,
				}},
			},
			{
				Label: "Fixed phase",
				Name:  "fixed_phase",
				Sets: []experiment.SetResult{{
					Index:   0,
					Offsets: taskset.Offsets{0, 0},
					Delays:  taskset.Delays{2, 1},
					Error:   "failed",
				}},
			},
		},
	}
}

func TestBuildResultPoints(t *testing.T) {
	points := BuildResultPoints(7, sampleResults())
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(points))
	}
	p := points[1]
	if p.Name() != ResultsMeasurement {
		t.Fatalf("unexpected measurement %q", p.Name())
	}
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["run_id"] != "7" || tags["heuristic"] != "Largest gap" || tags["set"] != "0" || tags["task"] != "1" {
		t.Fatalf("unexpected tags %v", tags)
	}
	fields := fieldMap(p)
	if fields["max_delay"] != int64(3) {
		t.Fatalf("expected max_delay 3, got %v", fields["max_delay"])
	}
	if fields["per_period"] != 0.5 {
		t.Fatalf("expected per_period 0.5, got %v", fields["per_period"])
	}
	if fields["response_over_exec"] != 2.5 {
		t.Fatalf("expected response_over_exec 2.5, got %v", fields["response_over_exec"])
	}
	if fields["heuristic_order"] != int64(0) {
		t.Fatalf("expected heuristic_order 0, got %v", fields["heuristic_order"])
	}
	if _, ok := fields["perf_cycles"]; ok {
		t.Fatalf("counter fields must be absent without counters")
	}

	failed := fieldMap(points[2])
	if failed["failed"] != true || failed["heuristic_order"] != int64(1) {
		t.Fatalf("unexpected fields for failed set: %v", failed)
	}
}

func TestBuildResultPointsWithCounters(t *testing.T) {
	res := sampleResults()
	cycles := uint64(1000)
	ipc := 1.5
	res.Heuristics[0].Sets[0].Counters = &perfcount.Counters{Cycles: &cycles, InstructionsPerCycle: &ipc}
	fields := fieldMap(BuildResultPoints(1, res)[0])
	if fields["perf_cycles"] != uint64(1000) {
		t.Fatalf("expected perf_cycles, got %v", fields["perf_cycles"])
	}
	if fields["perf_ipc"] != 1.5 {
		t.Fatalf("expected perf_ipc, got %v", fields["perf_ipc"])
	}
}

func fieldMap(p *write.Point) map[string]interface{} {
	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

func TestCollectRunMetadata(t *testing.T) {
	meta := CollectRunMetadata(3, nil, "experiment: {}", sampleResults(), "test")
	if meta.RunID != 3 || meta.TotalSets != 1 || meta.TotalTasks != 2 {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if meta.Heuristics != "Largest gap;Fixed phase" {
		t.Fatalf("unexpected heuristics %q", meta.Heuristics)
	}
	if meta.DurationSeconds != 2 {
		t.Fatalf("expected 2s, got %d", meta.DurationSeconds)
	}
	if meta.Hostname == "" || meta.CPUThreads <= 0 {
		t.Fatalf("system info missing: %+v", meta)
	}
}

func TestSpoolRoundTrip(t *testing.T) {
	dir := t.TempDir()
	res := sampleResults()
	artifact := BuildSpoolArtifact(5, "experiment: {}", res, CollectRunMetadata(5, nil, "", res, "test"))

	path, err := WriteSpoolArtifact(dir, artifact)
	if err != nil {
		t.Fatalf("WriteSpoolArtifact: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "run_5_") || !strings.HasSuffix(path, "_abc123.json.gz") {
		t.Fatalf("unexpected spool path %q", path)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files must not remain, found %d entries", len(entries))
	}

	got, err := ReadSpoolArtifact(path)
	if err != nil {
		t.Fatalf("ReadSpoolArtifact: %v", err)
	}
	if got.RunID != 5 || got.Checksum != "abc123" || got.ConfigContent != "experiment: {}" {
		t.Fatalf("unexpected artifact %+v", got)
	}
	if len(got.Results.Heuristics) != 2 || got.Results.Heuristics[0].Sets[0].Delays[1] != 3 {
		t.Fatalf("results not preserved: %+v", got.Results)
	}
	if got.Results.Heuristics[0].Sets[0].Wall != time.Millisecond {
		t.Fatalf("wall time not preserved: %v", got.Results.Heuristics[0].Sets[0].Wall)
	}
}

func TestReadSpoolArtifactRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json.gz")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadSpoolArtifact(path); err == nil {
		t.Fatalf("expected error for non-gzip file")
	}
}

func TestDefaultSpoolDir(t *testing.T) {
	t.Setenv("OFFSET_BENCH_SPOOL_DIR", "  /tmp/spool ")
	if got := DefaultSpoolDir(); got != "/tmp/spool" {
		t.Fatalf("expected env override, got %q", got)
	}
	t.Setenv("OFFSET_BENCH_SPOOL_DIR", "")
	if got := DefaultSpoolDir(); got != "spool" {
		t.Fatalf("expected default, got %q", got)
	}
}
