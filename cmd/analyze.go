package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"offset-bench/internal/config"
	"offset-bench/internal/database"
	"offset-bench/internal/experiment"
	"offset-bench/internal/logging"
	"offset-bench/internal/plot"
	"offset-bench/internal/plot/boxplot"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultOutputDir = "results"

func newAnalyzeCmd() *cobra.Command {
	var configFile, outDir string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare heuristics over a batch of task sets",
		Long:  "Run every configured heuristic and optimizer over the configured task sets, then write the task sets, a timing log, per-task results, boxplots and optionally a spool artifact and InfluxDB points.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.OutOrStdout(), configFile, outDir)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to experiment configuration file")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output root directory (overrides output.dir)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runAnalyze(out io.Writer, configFile, outDir string) error {
	logger := logging.GetLogger()

	cfg, configContent, err := config.LoadConfigWithContent(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Failed to load configuration")
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Experiment.LogLevel != "" {
		if err := logging.SetLogLevel(cfg.Experiment.LogLevel); err != nil {
			logger.WithField("log_level", cfg.Experiment.LogLevel).WithError(err).Warn("Invalid log level in config, using INFO")
			logging.SetLogLevel("info")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := experiment.RunConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("experiment failed: %w", err)
	}

	if outDir == "" {
		outDir = cfg.Experiment.Output.Dir
	}
	if outDir == "" {
		outDir = defaultOutputDir
	}
	runDir := filepath.Join(outDir, experiment.RunDirName(cfg.Experiment.Name, results))
	if err := experiment.WriteOutputs(runDir, results); err != nil {
		return err
	}

	runID, metadata, influxErr := exportToInflux(ctx, cfg, configContent, results)
	if influxErr != nil {
		logger.WithError(influxErr).Error("Failed to export results to InfluxDB, writing spool artifact instead")
	}
	if metadata == nil {
		metadata = database.CollectRunMetadata(runID, cfg, configContent, results, Version)
	}

	if cfg.Experiment.Output.Spool || influxErr != nil {
		artifact := database.BuildSpoolArtifact(runID, configContent, results, metadata)
		if _, err := database.WriteSpoolArtifact(database.DefaultSpoolDir(), artifact); err != nil {
			return fmt.Errorf("failed to write spool artifact: %w", err)
		}
	}

	if err := writeBoxplots(runDir, runID, metadata, results, cfg.Experiment.Output.Outliers); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"dir":      runDir,
		"duration": results.Finished.Sub(results.Started),
	}).Info("Experiment completed")

	fmt.Fprintln(out, runDir)
	return experiment.WriteLog(out, results)
}

// exportToInflux writes results and metadata when InfluxDB is enabled and
// returns the run ID it assigned, 0 otherwise.
func exportToInflux(ctx context.Context, cfg *config.ExperimentConfig, configContent string, results *experiment.Results) (int, *database.RunMetadata, error) {
	influx := cfg.Experiment.Output.Influx
	if !influx.Enabled {
		return 0, nil, nil
	}

	dbClient, err := database.NewInfluxDBClient(influx)
	if err != nil {
		return 0, nil, err
	}
	defer dbClient.Close()

	lastID, err := dbClient.GetLastRunID(ctx)
	if err != nil {
		return 0, nil, err
	}
	runID := lastID + 1

	if err := dbClient.WriteResults(ctx, runID, results); err != nil {
		return runID, nil, err
	}
	metadata := database.CollectRunMetadata(runID, cfg, configContent, results, Version)
	if err := dbClient.WriteMetadata(ctx, metadata); err != nil {
		return runID, metadata, err
	}
	return runID, metadata, nil
}

func writeBoxplots(dir string, runID int, metadata *database.RunMetadata, results *experiment.Results, outliers bool) error {
	pm := plot.NewOfflinePlotManager()
	defer pm.Close()

	variants := []bool{false}
	if outliers {
		variants = append(variants, true)
	}
	for _, showOutliers := range variants {
		plotTikz, wrapperTex, err := pm.GenerateBoxplotFromResults(runID, metadata, results, boxplot.PlotOptions{ShowOutliers: showOutliers})
		if err != nil {
			return fmt.Errorf("failed to generate boxplot: %w", err)
		}
		if _, _, err := plot.WritePlotFiles(dir, runID, showOutliers, plotTikz, wrapperTex); err != nil {
			return fmt.Errorf("failed to write boxplot: %w", err)
		}
	}
	return nil
}
