package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"offset-bench/internal/heuristics"
	"offset-bench/internal/logging"
	"offset-bench/internal/taskset"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func LoadConfig(path string) (*ExperimentConfig, error) {
	config, _, err := LoadConfigWithContent(path)
	return config, err
}

// LoadConfigWithContent also returns the file as written, before variable
// expansion, so it can be archived next to the results.
func LoadConfigWithContent(path string) (*ExperimentConfig, string, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("filepath", path).WithError(err).Error("Failed to read config file")
		return nil, "", err
	}

	originalContent := string(data)
	expanded := expandEnvVars(originalContent)

	var config ExperimentConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		logger.WithField("filepath", path).WithError(err).Error("Failed to parse config file")
		return nil, "", err
	}

	baseDir := filepath.Dir(path)
	for keyName, set := range config.TaskSets {
		set.KeyName = keyName
		if set.CSV != "" {
			csvPath := set.CSV
			if !filepath.IsAbs(csvPath) {
				csvPath = filepath.Join(baseDir, csvPath)
			}
			tasks, err := taskset.LoadCSVFile(csvPath)
			if err != nil {
				logger.WithField("task_set", keyName).WithField("csv", csvPath).WithError(err).Error("Failed to load task set")
				return nil, "", fmt.Errorf("task set %s: %w", keyName, err)
			}
			set.Tasks = tasks
		}
		config.TaskSets[keyName] = set
	}
	if fm := config.Experiment.FactorMatrix; fm != "" && !filepath.IsAbs(fm) {
		config.Experiment.FactorMatrix = filepath.Join(baseDir, fm)
	}

	if err := validateConfig(&config); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}

	return &config, originalContent, nil
}

// expandEnvVars replaces ${VAR} with the variable's value. Unset variables
// are left as written.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validateConfig(config *ExperimentConfig) error {
	e := config.Experiment
	if e.Name == "" {
		return fmt.Errorf("experiment name is required")
	}

	if e.Sets < 0 {
		return fmt.Errorf("sets must not be negative")
	}
	if e.Sets == 0 && len(config.TaskSets) == 0 {
		return fmt.Errorf("either sets > 0 or at least one task set must be defined")
	}
	if e.Sets > 0 {
		if err := config.GenerateParams().Validate(); err != nil {
			return fmt.Errorf("generation: %w", err)
		}
	}

	if len(e.Heuristics) == 0 && e.Optimizer.Command == "" && !e.Optimizer.Exhaustive {
		return fmt.Errorf("at least one heuristic or optimizer must be enabled")
	}
	seen := make(map[string]bool)
	for _, name := range e.Heuristics {
		canonical, err := heuristics.NormalizeName(name)
		if err != nil {
			return err
		}
		if seen[canonical] {
			return fmt.Errorf("heuristic %s is listed twice", canonical)
		}
		seen[canonical] = true
	}

	if e.Optimizer.TimeLimitS < 0 {
		return fmt.Errorf("optimizer time_limit_s must not be negative")
	}
	if e.Optimizer.MaxCandidates < 0 {
		return fmt.Errorf("optimizer max_candidates must not be negative")
	}

	influx := e.Output.Influx
	if influx.Enabled && (influx.Host == "" || influx.Token == "" || influx.Org == "" || influx.Bucket == "") {
		return fmt.Errorf("incomplete influx configuration")
	}

	indices := make(map[int]bool)
	for name, set := range config.TaskSets {
		if len(set.Tasks) == 0 {
			return fmt.Errorf("task set %s: tasks or csv is required", name)
		}
		if err := set.Tasks.Validate(); err != nil {
			return fmt.Errorf("task set %s: %w", name, err)
		}
		if indices[set.Index] {
			return fmt.Errorf("task set %s: index %d is already used", name, set.Index)
		}
		indices[set.Index] = true
	}

	return nil
}
