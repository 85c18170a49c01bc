package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"offset-bench/internal/logging"
	"offset-bench/internal/plot"
	"offset-bench/internal/plot/boxplot"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type plotOutputOptions struct {
	onlyPlot    bool
	onlyWrapper bool
	outDir      string
}

func newPlotCmd() *cobra.Command {
	var runID int
	var spoolFile string
	var panels []string
	var outliers bool
	var output plotOutputOptions

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "Generate plots from experiment results",
		Long:  "Generate LaTeX/TikZ plots from results stored in InfluxDB or in a spool artifact",
	}

	boxplotCmd := &cobra.Command{
		Use:   "boxplot",
		Short: "Generate the four-panel delay boxplot",
		Long:  "Generate a boxplot of maximum delays, delay per period, delay per largest other execution time and response per execution time for every heuristic of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := boxplot.PlotOptions{ShowOutliers: outliers, Panels: panels}
			if spoolFile != "" {
				return generateBoxplotFromSpool(cmd.OutOrStdout(), spoolFile, opts, output)
			}
			if !cmd.Flags().Changed("run-id") {
				return fmt.Errorf("either --run-id or --spool is required")
			}
			if err := validateEnvironment(); err != nil {
				return err
			}
			return generateBoxplot(cmd.OutOrStdout(), runID, opts, output)
		},
	}

	boxplotCmd.Flags().IntVar(&runID, "run-id", 0, "Run ID to plot from InfluxDB")
	boxplotCmd.Flags().StringVar(&spoolFile, "spool", "", "Spool artifact to plot instead of querying InfluxDB")
	boxplotCmd.Flags().StringSliceVar(&panels, "panels", nil, "Panels to draw (max_delay, per_period, per_other_exec_time, response_over_exec)")
	boxplotCmd.Flags().BoolVar(&outliers, "outliers", false, "Draw outliers beyond the whiskers")
	boxplotCmd.Flags().BoolVar(&output.onlyPlot, "plot", false, "Print only the plot file (TikZ)")
	boxplotCmd.Flags().BoolVar(&output.onlyWrapper, "wrapper", false, "Print only the wrapper file (LaTeX)")
	boxplotCmd.Flags().StringVar(&output.outDir, "out", "", "Write the files into this directory instead of printing them")

	plotCmd.AddCommand(boxplotCmd)
	return plotCmd
}

func generateBoxplot(out io.Writer, runID int, opts boxplot.PlotOptions, output plotOutputOptions) error {
	logger := logging.GetLogger()
	logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"outliers": opts.ShowOutliers,
	}).Debug("Generating boxplot")

	plotMgr, err := plot.NewPlotManager()
	if err != nil {
		logger.WithError(err).Error("Failed to create plot manager")
		return fmt.Errorf("failed to create plot manager: %w", err)
	}
	defer plotMgr.Close()

	plotTikz, wrapperTex, err := plotMgr.GenerateBoxplot(context.Background(), runID, opts)
	if err != nil {
		logger.WithError(err).Error("Failed to generate plot")
		return fmt.Errorf("failed to generate plot: %w", err)
	}
	return emitPlot(out, runID, opts.ShowOutliers, plotTikz, wrapperTex, output)
}

func generateBoxplotFromSpool(out io.Writer, path string, opts boxplot.PlotOptions, output plotOutputOptions) error {
	plotMgr := plot.NewOfflinePlotManager()
	defer plotMgr.Close()

	plotTikz, wrapperTex, runID, err := plotMgr.GenerateBoxplotFromSpool(path, opts)
	if err != nil {
		return fmt.Errorf("failed to generate plot: %w", err)
	}
	return emitPlot(out, runID, opts.ShowOutliers, plotTikz, wrapperTex, output)
}

func emitPlot(out io.Writer, runID int, outliers bool, plotTikz, wrapperTex string, output plotOutputOptions) error {
	if output.outDir != "" {
		plotPath, wrapperPath, err := plot.WritePlotFiles(output.outDir, runID, outliers, plotTikz, wrapperTex)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, plotPath)
		fmt.Fprintln(out, wrapperPath)
		return nil
	}

	showPlot := !output.onlyWrapper
	showWrapper := !output.onlyPlot
	name := boxplot.PlotFileName(runID, outliers)

	if showPlot {
		fmt.Fprintln(out, "="+strings.Repeat("=", 78)+"=")
		fmt.Fprintln(out, "PLOT FILE: "+name)
		fmt.Fprintln(out, "="+strings.Repeat("=", 78)+"=")
		fmt.Fprintln(out, plotTikz)
		if showWrapper {
			fmt.Fprintln(out)
		}
	}
	if showWrapper {
		fmt.Fprintln(out, "="+strings.Repeat("=", 78)+"=")
		fmt.Fprintln(out, "WRAPPER FILE: "+strings.TrimSuffix(name, ".tikz")+".tex")
		fmt.Fprintln(out, "="+strings.Repeat("=", 78)+"=")
		fmt.Fprintln(out, wrapperTex)
	}
	return nil
}
