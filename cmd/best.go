package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"offset-bench/internal/logging"
	"offset-bench/internal/search"
	"offset-bench/internal/taskset"

	"github.com/spf13/cobra"
)

func newBestCmd() *cobra.Command {
	var tasksFile, candidatesFile, searchLogLevel string
	var maxCandidates, reportEvery int64
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "best",
		Short: "Search for the offsets with the smallest worst normalized delay",
		Long:  "Evaluate every non-equivalent offset vector (or the vectors of --candidates) and print the best one. Interrupting the search prints the best vector found so far.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if searchLogLevel != "" {
				if err := logging.SetSearchLogLevel(searchLogLevel); err != nil {
					return fmt.Errorf("invalid search log level: %w", err)
				}
			}
			ts, err := loadTaskSet(tasksFile)
			if err != nil {
				return err
			}

			var gen search.Generator
			if candidatesFile != "" {
				candidates, err := loadCandidates(candidatesFile, len(ts))
				if err != nil {
					return err
				}
				gen = search.FromSlice(candidates)
			} else {
				lattice, err := search.NewLattice(ts)
				if err != nil {
					return err
				}
				gen = lattice
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			opts := search.DefaultOptions()
			opts.MaxCandidates = maxCandidates
			opts.ReportEvery = reportEvery
			result, err := search.FindBestAssignment(ctx, ts, gen, opts)
			if err != nil {
				return err
			}
			return printSearchResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&tasksFile, "tasks", "t", "", "Task set CSV (name,period,exec_time,phase)")
	cmd.Flags().StringVar(&candidatesFile, "candidates", "", "File with one comma-separated offset vector per line")
	cmd.Flags().Int64Var(&maxCandidates, "max-candidates", 0, "Refuse candidate spaces larger than this (0 = no limit)")
	cmd.Flags().Int64Var(&reportEvery, "report-every", search.DefaultReportEvery, "Log progress every N candidates (0 = off)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop the search after this long and keep the best so far")
	cmd.Flags().StringVar(&searchLogLevel, "search-log-level", "", "Log level of the progress logger")
	cmd.MarkFlagRequired("tasks")
	return cmd
}

func loadCandidates(path string, n int) ([]taskset.Offsets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sets, err := readCandidates(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, c := range sets {
		if len(c) != n {
			return nil, fmt.Errorf("%w: candidate %d has %d offsets, task set has %d tasks", taskset.ErrInvalidInput, i, len(c), n)
		}
	}
	if len(sets) == 0 {
		return nil, errors.New("no candidates in " + path)
	}
	return sets, nil
}

// readCandidates parses one offset vector per line. Blank lines and lines
// starting with # are skipped.
func readCandidates(r io.Reader) ([]taskset.Offsets, error) {
	var candidates []taskset.Offsets
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, ",")
		offsets := make(taskset.Offsets, len(fields))
		for i, field := range fields {
			v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", taskset.ErrInvalidInput, line, err)
			}
			offsets[i] = v
		}
		candidates = append(candidates, offsets)
	}
	return candidates, scanner.Err()
}

func printSearchResult(out io.Writer, r search.Result) error {
	fmt.Fprintf(out, "offsets: %s\n", formatOffsets(r.Offsets))
	fmt.Fprintf(out, "max normalized delay: %.6f\n", r.MaxNormalizedDelay)
	fmt.Fprintf(out, "evaluated: %d (pruned %d", r.Evaluated, r.Pruned)
	if r.Total > 0 {
		fmt.Fprintf(out, ", total %d", r.Total)
	}
	fmt.Fprintln(out, ")")
	fmt.Fprintf(out, "optimal: %t complete: %t elapsed: %s\n", r.Optimal, r.Complete, r.Elapsed.Round(time.Millisecond))
	return nil
}
