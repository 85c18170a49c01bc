package solver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"offset-bench/internal/search"
	"offset-bench/internal/taskset"

	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a test: it is the fake solver the command
// optimizer runs.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("OFFSET_BENCH_HELPER_SOLVER") != "1" {
		return
	}
	mode := os.Args[len(os.Args)-1]
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	switch mode {
	case "ok":
		offsets := make(taskset.Offsets, len(req.Tasks))
		for i, task := range req.Tasks {
			offsets[i] = int64(i) % task.Period
		}
		_ = json.NewEncoder(os.Stdout).Encode(Response{Offsets: offsets, Status: req.Objective})
	case "infeasible":
		feasible := false
		_ = json.NewEncoder(os.Stdout).Encode(Response{Feasible: &feasible, Status: "INFEASIBLE"})
	case "short":
		_ = json.NewEncoder(os.Stdout).Encode(Response{Offsets: taskset.Offsets{0}})
	case "garbage":
		fmt.Fprint(os.Stdout, "not json")
	case "sleep":
		time.Sleep(10 * time.Second)
	default:
		fmt.Fprintln(os.Stderr, "model error")
		os.Exit(3)
	}
	os.Exit(0)
}

func helper(t *testing.T, mode string) *CommandOptimizer {
	t.Setenv("OFFSET_BENCH_HELPER_SOLVER", "1")
	return NewCommandOptimizer(os.Args[0], "-test.run=TestHelperProcess", "--", mode)
}

func set(pairs ...[2]int64) taskset.TaskSet {
	ts := make(taskset.TaskSet, len(pairs))
	for i, p := range pairs {
		ts[i] = taskset.Task{Period: p[0], ExecTime: p[1]}
	}
	return ts
}

func TestCommandOptimizer_ReadsOffsets(t *testing.T) {
	offsets, err := helper(t, "ok").Optimize(context.Background(), set([2]int64{4, 1}, [2]int64{6, 1}), 30*time.Second)
	require.NoError(t, err)
	require.Equal(t, taskset.Offsets{0, 1}, offsets)
}

func TestCommandOptimizer_Failures(t *testing.T) {
	ts := set([2]int64{4, 1}, [2]int64{6, 1}, [2]int64{12, 1})
	for _, mode := range []string{"infeasible", "short", "garbage", "crash"} {
		t.Run(mode, func(t *testing.T) {
			offsets, err := helper(t, mode).Optimize(context.Background(), ts, 30*time.Second)
			require.True(t, errors.Is(err, taskset.ErrNoFeasibleResult), "got %v", err)
			require.Equal(t, taskset.Offsets{0, 0, 0}, offsets)
		})
	}
}

func TestCommandOptimizer_TimeLimit(t *testing.T) {
	start := time.Now()
	offsets, err := helper(t, "sleep").Optimize(context.Background(), set([2]int64{4, 1}), 200*time.Millisecond)
	require.True(t, errors.Is(err, taskset.ErrNoFeasibleResult))
	require.Equal(t, taskset.Offsets{0}, offsets)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandOptimizer_MissingExecutable(t *testing.T) {
	opt := NewCommandOptimizer("offset-bench-no-such-solver")
	offsets, err := opt.Optimize(context.Background(), set([2]int64{4, 1}), time.Second)
	require.True(t, errors.Is(err, taskset.ErrNoFeasibleResult))
	require.Equal(t, taskset.Offsets{0}, offsets)
}

func TestCommandOptimizer_InvalidInput(t *testing.T) {
	_, err := NewCommandOptimizer("true").Optimize(context.Background(), nil, time.Second)
	require.True(t, errors.Is(err, taskset.ErrInvalidInput))
}

func TestExhaustiveOptimizer(t *testing.T) {
	opt := NewExhaustiveOptimizer(search.Options{})
	offsets, err := opt.Optimize(context.Background(), set([2]int64{4, 1}, [2]int64{6, 1}), 0)
	require.NoError(t, err)
	require.Equal(t, taskset.Offsets{0, 1}, offsets)
}

func TestExhaustiveOptimizer_TooLarge(t *testing.T) {
	opt := NewExhaustiveOptimizer(search.Options{MaxCandidates: 1})
	offsets, err := opt.Optimize(context.Background(), set([2]int64{4, 1}, [2]int64{6, 1}), 0)
	require.True(t, errors.Is(err, taskset.ErrNoFeasibleResult))
	require.True(t, errors.Is(err, taskset.ErrResourceLimit))
	require.Equal(t, taskset.Offsets{0, 0}, offsets)
}

func TestAsHeuristic(t *testing.T) {
	h := AsHeuristic(NewExhaustiveOptimizer(search.Options{}), time.Second)
	require.Equal(t, "exhaustive", h.Name())
	offsets, err := h.Assign(set([2]int64{4, 1}, [2]int64{6, 1}))
	require.NoError(t, err)
	require.Equal(t, taskset.Offsets{0, 1}, offsets)

	h = AsHeuristic(NewCommandOptimizer("offset-bench-no-such-solver"), time.Second)
	offsets, err = h.Assign(set([2]int64{4, 1}, [2]int64{6, 1}))
	require.NoError(t, err)
	require.Equal(t, taskset.Offsets{0, 0}, offsets)
}
