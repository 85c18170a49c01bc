package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

func loadEnvironment() {
	logger := logging.GetLogger()

	envFile := ".env"
	if _, err := os.Stat(envFile); err != nil {
		execPath, err := os.Executable()
		if err != nil {
			return
		}
		envFile = filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(envFile); err != nil {
			return
		}
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		return
	}
	logger.WithField("file", envFile).Debug("Loaded environment variables")
}

// validateEnvironment checks the InfluxDB variables the plot reader needs.
func validateEnvironment() error {
	logger := logging.GetLogger()

	requiredVars := []string{
		"INFLUXDB_HOST",
		"INFLUXDB_TOKEN",
		"INFLUXDB_ORG",
		"INFLUXDB_BUCKET",
	}

	var missing []string
	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missing = append(missing, varName)
		}
	}

	if len(missing) > 0 {
		logger.WithField("missing_vars", missing).Error("Missing required environment variables")
		return fmt.Errorf("missing required environment variables: %v. Please ensure your .env file contains these variables", missing)
	}

	logger.Debug("All required environment variables are present")
	return nil
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "offset-bench",
		Short:         "Release offset assignment for periodic non-preemptive tasks",
		Long:          "Assign release offsets to periodic tasks sharing a FIFO resource, simulate their queuing delays and compare heuristics",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newBestCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newPlotCmd())
	rootCmd.AddCommand(newValidateCmd())
	return rootCmd
}

func main() {
	logger := logging.GetLogger()

	loadEnvironment()

	if err := newRootCmd().Execute(); err != nil {
		logger.WithError(err).Fatal("Command execution failed")
	}
}

func loadTaskSet(path string) (taskset.TaskSet, error) {
	ts, err := taskset.LoadCSVFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load task set: %w", err)
	}
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

func formatOffsets(offsets taskset.Offsets) string {
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.FormatInt(o, 10)
	}
	return strings.Join(parts, ",")
}
