package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
)

// Request is written to the solver's stdin.
type Request struct {
	Tasks      taskset.TaskSet `json:"tasks"`
	TimeLimitS float64         `json:"time_limit_s,omitempty"`
	// Objective is "max" (minimize the worst delay) unless the solver is
	// asked otherwise.
	Objective string `json:"objective"`
}

// Response is read from the solver's stdout. A solver that found nothing
// sets Feasible to false.
type Response struct {
	Offsets  taskset.Offsets `json:"offsets"`
	Feasible *bool           `json:"feasible,omitempty"`
	Status   string          `json:"status,omitempty"`
}

// CommandOptimizer drives an external solver executable (a MIP or CP
// model, typically) over a JSON stdin/stdout protocol.
type CommandOptimizer struct {
	Command   string
	Args      []string
	Objective string
}

func NewCommandOptimizer(command string, args ...string) *CommandOptimizer {
	return &CommandOptimizer{Command: command, Args: args, Objective: "max"}
}

func (o *CommandOptimizer) Name() string {
	return "command:" + o.Command
}

func (o *CommandOptimizer) Optimize(ctx context.Context, ts taskset.TaskSet, timeLimit time.Duration) (taskset.Offsets, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	zero := taskset.Zero(len(ts))
	if _, err := exec.LookPath(o.Command); err != nil {
		return zero, fmt.Errorf("%w: cannot find solver %q: %v", taskset.ErrNoFeasibleResult, o.Command, err)
	}

	payload, err := json.Marshal(Request{
		Tasks:      ts,
		TimeLimitS: timeLimit.Seconds(),
		Objective:  o.Objective,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode solver request: %w", err)
	}

	if timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeLimit)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, o.Command, o.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := logging.GetLogger().WithFields(logrus.Fields{
		"solver": o.Command,
		"tasks":  len(ts),
		"limit":  timeLimit,
	})
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)
	if ctx.Err() != nil {
		log.WithField("elapsed", elapsed).Warn("Solver hit the time limit")
		return zero, fmt.Errorf("%w: solver %q stopped after %s: %v",
			taskset.ErrNoFeasibleResult, o.Command, elapsed.Round(time.Millisecond), ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.WithField("stderr", strings.TrimSpace(stderr.String())).Warn("Solver exited with an error")
		}
		return zero, fmt.Errorf("%w: solver %q failed: %v", taskset.ErrNoFeasibleResult, o.Command, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return zero, fmt.Errorf("%w: solver %q wrote unreadable output: %v", taskset.ErrNoFeasibleResult, o.Command, err)
	}
	if resp.Feasible != nil && !*resp.Feasible {
		return zero, fmt.Errorf("%w: solver %q reported status %q", taskset.ErrNoFeasibleResult, o.Command, resp.Status)
	}
	if err := ts.ValidateOffsets(resp.Offsets); err != nil {
		return zero, fmt.Errorf("%w: solver %q: %v", taskset.ErrNoFeasibleResult, o.Command, err)
	}
	log.WithFields(logrus.Fields{
		"elapsed": elapsed,
		"status":  resp.Status,
	}).Debug("Solver finished")
	return resp.Offsets, nil
}
