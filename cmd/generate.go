package main

import (
	"fmt"
	"io"
	"os"

	"offset-bench/internal/generate"
	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"

	"github.com/spf13/cobra"
)

type generateOptions struct {
	params       generate.Params
	sets         int
	seed         int64
	filter       bool
	factorMatrix string
	incremental  bool
	u1, u2       float64
	bitsPerByte  int64
	headerBytes  int64
	out          string
}

func newGenerateCmd() *cobra.Command {
	opts := generateOptions{params: generate.DefaultParams()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic task sets",
		Long:  "Draw task sets whose periods are products of one factor per factor-matrix row and write them as one (T,c);(T,c) row per set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.out != "" && opts.out != "-" {
				f, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return runGenerate(out, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.sets, "sets", "n", 100, "Number of task sets")
	f.IntVar(&opts.params.Tasks, "tasks", opts.params.Tasks, "Tasks per set")
	f.Float64VarP(&opts.params.Utilization, "utilization", "u", opts.params.Utilization, "Total utilization per set")
	f.Float64Var(&opts.params.UMin, "u-min", opts.params.UMin, "Minimum utilization per task")
	f.Float64Var(&opts.params.UMax, "u-max", opts.params.UMax, "Maximum utilization per task")
	f.Int64Var(&opts.params.Granularity, "granularity", opts.params.Granularity, "Execution times are multiples of this")
	f.Int64Var(&opts.params.MinExecTime, "min-exec", opts.params.MinExecTime, "Minimum execution time")
	f.Int64Var(&opts.seed, "seed", 1, "Random seed")
	f.BoolVar(&opts.filter, "filter", false, "Keep only sets whose largest execution time is below the period gcd")
	f.StringVar(&opts.factorMatrix, "factor-matrix", "", "Factor matrix CSV (default built-in matrix)")
	f.BoolVar(&opts.incremental, "incremental", false, "Add tasks one by one with utilization in [u1, u2]")
	f.Float64Var(&opts.u1, "u1", 0, "Lower per-task utilization for --incremental")
	f.Float64Var(&opts.u2, "u2", 0, "Upper per-task utilization for --incremental (0 = utilization/tasks)")
	f.Int64Var(&opts.bitsPerByte, "bits-per-byte", 0, "Generate serial-link messages with this many bits per byte")
	f.Int64Var(&opts.headerBytes, "header-bytes", 1, "Minimum message length in bytes with --bits-per-byte")
	f.StringVarP(&opts.out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func runGenerate(out io.Writer, opts generateOptions) error {
	logger := logging.GetLogger()

	params := opts.params
	if opts.bitsPerByte > 0 {
		message := generate.MessageParams(params.Tasks, params.Utilization, opts.bitsPerByte, opts.headerBytes)
		message.UMin, message.UMax = params.UMin, params.UMax
		params = message
	}

	matrix := generate.DefaultFactorMatrix()
	if opts.factorMatrix != "" {
		m, err := generate.LoadFactorMatrix(opts.factorMatrix)
		if err != nil {
			return fmt.Errorf("factor matrix: %w", err)
		}
		matrix = m
	}

	gen, err := generate.New(matrix, params, opts.seed)
	if err != nil {
		return err
	}

	var sets []taskset.TaskSet
	if opts.incremental {
		rejected := 0
		for len(sets) < opts.sets {
			ts, err := gen.Incremental(opts.u1, opts.u2)
			if err != nil {
				return err
			}
			if opts.filter && !generate.Spread(ts) {
				rejected++
				if rejected >= generate.DefaultMaxAttempts*opts.sets {
					return fmt.Errorf("%w: only %d of %d sets passed the gcd filter", taskset.ErrResourceLimit, len(sets), opts.sets)
				}
				continue
			}
			sets = append(sets, ts)
		}
	} else {
		sets, err = gen.Sets(opts.sets, opts.filter)
		if err != nil {
			return err
		}
	}

	logger.WithField("sets", len(sets)).Debug("Writing generated task sets")
	return taskset.WriteSetsCSV(out, sets)
}
