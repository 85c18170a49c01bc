package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"offset-bench/internal/heuristics"
	"offset-bench/internal/logging"
	"offset-bench/internal/simulator"
	"offset-bench/internal/taskset"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newAssignCmd() *cobra.Command {
	var tasksFile, heuristic string
	var seed int64
	var reduce bool

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign offsets to a task set with one heuristic",
		Long:  "Assign offsets with the named heuristic and print them next to the simulated worst delays. Known heuristics: " + fmt.Sprint(heuristics.Names()),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := loadTaskSet(tasksFile)
			if err != nil {
				return err
			}
			return runAssign(cmd.OutOrStdout(), ts, heuristic, seed, reduce)
		},
	}

	cmd.Flags().StringVarP(&tasksFile, "tasks", "t", "", "Task set CSV (name,period,exec_time,phase)")
	cmd.Flags().StringVarP(&heuristic, "heuristic", "H", heuristics.PrimePartitionName, "Heuristic name")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for randomized heuristics")
	cmd.Flags().BoolVar(&reduce, "reduce", false, "Reduce offsets modulo their period")
	cmd.MarkFlagRequired("tasks")
	return cmd
}

func runAssign(out io.Writer, ts taskset.TaskSet, heuristic string, seed int64, reduce bool) error {
	logger := logging.GetLogger()

	name, err := heuristics.NormalizeName(heuristic)
	if err != nil {
		return err
	}

	var columns []string
	var vectors []taskset.Offsets
	if name == heuristics.CoupledPairwiseGCDName {
		plain, modified, err := heuristics.NewCoupledPairwiseGCD(heuristics.NewRand(seed)).AssignBoth(ts)
		if err != nil {
			return err
		}
		columns = []string{heuristics.PairwiseGCDName, heuristics.ModifiedPairwiseGCDName}
		vectors = []taskset.Offsets{plain, modified}
	} else {
		h, err := heuristics.New(name, seed)
		if err != nil {
			return err
		}
		offsets, err := h.Assign(ts)
		if err != nil {
			return err
		}
		columns = []string{name}
		vectors = []taskset.Offsets{offsets}
	}

	header := []string{"name", "period", "exec_time"}
	delays := make([]taskset.Delays, len(vectors))
	for i, offsets := range vectors {
		if reduce {
			vectors[i] = offsets.Reduce(ts)
		}
		d, err := simulator.Simulate(ts, vectors[i])
		if err != nil {
			return err
		}
		delays[i] = d
		logger.WithFields(logrus.Fields{
			"heuristic":            columns[i],
			"max_normalized_delay": simulator.MaxNormalized(ts, d),
			"schedulable":          simulator.Schedulable(ts, d),
		}).Info("Offsets assigned")

		suffix := ""
		if len(vectors) > 1 {
			suffix = "_" + columns[i]
		}
		header = append(header, "offset"+suffix, "max_delay"+suffix)
	}

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	for t, task := range ts {
		row := []string{task.Name, strconv.FormatInt(task.Period, 10), strconv.FormatInt(task.ExecTime, 10)}
		for i := range vectors {
			row = append(row, strconv.FormatInt(vectors[i][t], 10), strconv.FormatInt(delays[i][t], 10))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
