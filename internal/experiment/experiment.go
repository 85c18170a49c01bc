// Package experiment runs every configured heuristic over a batch of task
// sets, simulates the resulting assignments and condenses the delays into
// the metrics the reports and plots use.
package experiment

import (
	"context"
	"fmt"
	"time"

	"offset-bench/internal/config"
	"offset-bench/internal/logging"
	"offset-bench/internal/perfcount"
	"offset-bench/internal/simulator"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
)

type SetResult struct {
	Index       int                 `json:"index"`
	Offsets     taskset.Offsets     `json:"offsets"`
	Delays      taskset.Delays      `json:"delays"`
	Wall        time.Duration       `json:"wall_ns"`
	Counters    *perfcount.Counters `json:"counters,omitempty"`
	Schedulable bool                `json:"schedulable"`
	Error       string              `json:"error,omitempty"`
}

type HeuristicResult struct {
	Label          string        `json:"label"`
	Name           string        `json:"name"`
	Sets           []SetResult   `json:"sets"`
	NotSchedulable int           `json:"not_schedulable"`
	Failures       int           `json:"failures"`
	TotalWall      time.Duration `json:"total_wall_ns"`
}

type Results struct {
	Name              string            `json:"name"`
	Seed              int64             `json:"seed"`
	Checksum          string            `json:"checksum"`
	Filtered          bool              `json:"filtered"`
	Started           time.Time         `json:"started"`
	Finished          time.Time         `json:"finished"`
	TargetUtilization float64           `json:"target_utilization"`
	MinUtilization    float64           `json:"min_utilization"`
	MaxUtilization    float64           `json:"max_utilization"`
	TaskSets          []taskset.TaskSet `json:"task_sets"`
	Heuristics        []HeuristicResult `json:"heuristics"`
}

type Runner struct {
	Entries   []Entry
	Meter     *perfcount.Meter
	Simulator *simulator.Simulator
}

func NewRunner(entries []Entry, meter *perfcount.Meter) *Runner {
	if meter == nil {
		meter = perfcount.NewMeter(false)
	}
	return &Runner{Entries: entries, Meter: meter, Simulator: simulator.New()}
}

// Run evaluates every entry on every set. A heuristic that fails on a set
// is scored on the zero vector and counted as a failure; only simulator
// errors and cancellation abort the run.
func (r *Runner) Run(ctx context.Context, sets []taskset.TaskSet) (*Results, error) {
	logger := logging.GetLogger()
	results := &Results{
		Started:  time.Now(),
		TaskSets: sets,
	}
	if len(sets) > 0 {
		results.MinUtilization, results.MaxUtilization = sets[0].Utilization(), sets[0].Utilization()
	}
	for _, ts := range sets {
		u := ts.Utilization()
		results.MinUtilization = min(results.MinUtilization, u)
		results.MaxUtilization = max(results.MaxUtilization, u)
	}

	for _, entry := range r.Entries {
		columns := make([]HeuristicResult, len(entry.Labels))
		for i, label := range entry.Labels {
			columns[i] = HeuristicResult{Label: label, Name: entry.Name, Sets: make([]SetResult, 0, len(sets))}
		}

		for i, ts := range sets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			var vectors []taskset.Offsets
			sample, err := r.Meter.Measure(func() error {
				var err error
				vectors, err = entry.assign(ts)
				return err
			})
			for c := range columns {
				set := SetResult{Index: i, Wall: sample.Wall, Counters: sample.Counters}
				offsets := taskset.Zero(len(ts))
				if err != nil {
					set.Error = err.Error()
					columns[c].Failures++
				} else {
					offsets = vectors[c]
				}
				delays, simErr := r.Simulator.Simulate(ts, offsets)
				if simErr != nil {
					return nil, fmt.Errorf("%s on set %d: %w", columns[c].Label, i, simErr)
				}
				set.Offsets = offsets
				set.Delays = delays
				set.Schedulable = simulator.Schedulable(ts, delays)
				if !set.Schedulable {
					columns[c].NotSchedulable++
				}
				columns[c].TotalWall += sample.Wall
				columns[c].Sets = append(columns[c].Sets, set)
			}
			if err != nil {
				logger.WithFields(logrus.Fields{
					"heuristic": entry.Name,
					"set":       i,
				}).WithError(err).Warn("Heuristic failed, scoring the zero vector")
			}
		}

		for _, column := range columns {
			logger.WithFields(logrus.Fields{
				"heuristic":       column.Label,
				"total_wall":      column.TotalWall,
				"not_schedulable": column.NotSchedulable,
				"failures":        column.Failures,
			}).Info("Heuristic evaluated")
		}
		results.Heuristics = append(results.Heuristics, columns...)
	}

	results.Finished = time.Now()
	return results, nil
}

// RunConfig loads the task sets of cfg and runs every configured entry on
// them. The returned results carry the batch checksum and generation
// parameters.
func RunConfig(ctx context.Context, cfg *config.ExperimentConfig) (*Results, error) {
	sets, err := LoadSets(cfg)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no task sets to evaluate")
	}
	entries, err := BuildEntries(cfg)
	if err != nil {
		return nil, err
	}
	checksum, err := config.TaskSetChecksum(sets)
	if err != nil {
		return nil, err
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"experiment": cfg.Experiment.Name,
		"sets":       len(sets),
		"entries":    len(entries),
		"checksum":   checksum,
	}).Info("Starting experiment")

	runner := NewRunner(entries, perfcount.NewMeter(cfg.Experiment.Output.Perf))
	results, err := runner.Run(ctx, sets)
	if err != nil {
		return nil, err
	}
	results.Name = cfg.Experiment.Name
	results.Seed = cfg.Experiment.Seed
	results.Checksum = checksum
	results.Filtered = cfg.Experiment.FilterSets
	results.TargetUtilization = cfg.GenerateParams().Utilization
	return results, nil
}
