package experiment

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"
)

const (
	TaskSetsFile = "taskSets.csv"
	LogFile      = "log.txt"
	ResultsFile  = "results.csv"
)

// RunDirName names a run directory after its shape, e.g.
// "run_f_100x16t_U98_2024-05-01_10-00-00". The "_f" marks filtered sets.
func RunDirName(prefix string, r *Results) string {
	tasks := 0
	if len(r.TaskSets) > 0 {
		tasks = len(r.TaskSets[0])
	}
	filtered := ""
	if r.Filtered {
		filtered = "_f"
	}
	return fmt.Sprintf("%s%s_%dx%dt_U%d_%s", prefix, filtered, len(r.TaskSets), tasks,
		int(r.TargetUtilization*100+0.5), r.Started.Format("2006-01-02_15-04-05"))
}

// WriteOutputs writes the task sets, the timing log and the per-task result
// table into dir, creating it if needed.
func WriteOutputs(dir string, r *Results) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	writers := []struct {
		name  string
		write func(f *os.File) error
	}{
		{TaskSetsFile, func(f *os.File) error { return taskset.WriteSetsCSV(f, r.TaskSets) }},
		{LogFile, func(f *os.File) error { return WriteLog(f, r) }},
		{ResultsFile, func(f *os.File) error { return WriteResultsCSV(f, r) }},
	}
	for _, w := range writers {
		path := filepath.Join(dir, w.name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := w.write(f); err != nil {
			f.Close()
			return fmt.Errorf("%s: %w", w.name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	logging.GetLogger().WithField("dir", dir).Info("Wrote experiment outputs")
	return nil
}

// WriteLog writes the human readable summary: the shape of the batch, then
// one line per heuristic with its total time and unschedulable count.
func WriteLog(out io.Writer, r *Results) error {
	w := bufio.NewWriter(out)
	tasks := 0
	if len(r.TaskSets) > 0 {
		tasks = len(r.TaskSets[0])
	}
	fmt.Fprintf(w, "%d sets of %d tasks. U = %.2f (%.2f - %.2f).\n", len(r.TaskSets), tasks,
		r.TargetUtilization, r.MinUtilization, r.MaxUtilization)
	if r.Checksum != "" {
		fmt.Fprintf(w, "Checksum: %s\n", r.Checksum)
	}
	fmt.Fprintln(w)
	for _, h := range r.Heuristics {
		fmt.Fprintf(w, "Time spent in %s: %.3es -- Not schedulable: %d", h.Label, h.TotalWall.Seconds(), h.NotSchedulable)
		if h.Failures > 0 {
			fmt.Fprintf(w, " -- Failures: %d", h.Failures)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nTotal: %s\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	return w.Flush()
}

// WriteResultsCSV writes one row per heuristic, set and task.
func WriteResultsCSV(out io.Writer, r *Results) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"heuristic", "set", "task", "period", "exec_time", "offset", "max_delay", "wall_ns", "schedulable"}); err != nil {
		return err
	}
	for _, h := range r.Heuristics {
		for _, set := range h.Sets {
			ts := r.TaskSets[set.Index]
			for i, task := range ts {
				row := []string{
					h.Label,
					strconv.Itoa(set.Index),
					strconv.Itoa(i),
					strconv.FormatInt(task.Period, 10),
					strconv.FormatInt(task.ExecTime, 10),
					strconv.FormatInt(set.Offsets[i], 10),
					strconv.FormatInt(set.Delays[i], 10),
					strconv.FormatInt(set.Wall.Nanoseconds(), 10),
					strconv.FormatBool(set.Schedulable),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}
