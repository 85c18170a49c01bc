package main

import (
	"fmt"

	"offset-bench/internal/config"
	"offset-bench/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an experiment configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to experiment configuration file")
	cmd.MarkFlagRequired("config")
	return cmd
}

func validateConfig(configFile string) error {
	logger := logging.GetLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		logger.WithField("config_file", configFile).WithError(err).Error("Configuration validation failed")
		return err
	}

	fields := logrus.Fields{
		"config_file": configFile,
		"name":        cfg.Experiment.Name,
		"heuristics":  cfg.Experiment.Heuristics,
		"inline_sets": len(cfg.TaskSets),
		"generated":   cfg.Experiment.Sets,
	}
	if len(cfg.TaskSets) > 0 {
		sets := cfg.GetTaskSetsSorted()
		inline := make([][]int64, 0, len(sets))
		for _, s := range sets {
			inline = append(inline, s.Tasks.Periods())
		}
		fields["inline_periods"] = fmt.Sprint(inline)
	}
	logger.WithFields(fields).Info("Configuration is valid")
	return nil
}
