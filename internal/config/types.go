package config

import (
	"sort"
	"time"

	"offset-bench/internal/generate"
	"offset-bench/internal/taskset"
)

type ExperimentConfig struct {
	Experiment ExperimentInfo           `yaml:"experiment"`
	TaskSets   map[string]TaskSetConfig `yaml:"task_sets,omitempty"`
}

type ExperimentInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	LogLevel    string `yaml:"log_level"`
	Seed        int64  `yaml:"seed"`

	// Generation. Sets == 0 means only the task_sets given inline are used.
	Sets         int     `yaml:"sets"`
	Tasks        int     `yaml:"tasks"`
	Utilization  float64 `yaml:"utilization"`
	UMin         float64 `yaml:"u_min"`
	UMax         float64 `yaml:"u_max"`
	Granularity  int64   `yaml:"granularity"`
	MinExecTime  int64   `yaml:"min_exec_time"`
	FilterSets   bool    `yaml:"filter_sets"`
	FactorMatrix string  `yaml:"factor_matrix"`

	Heuristics []string        `yaml:"heuristics"`
	Optimizer  OptimizerConfig `yaml:"optimizer"`
	Output     OutputConfig    `yaml:"output"`
}

type OptimizerConfig struct {
	// Command is an external solver speaking JSON on stdin/stdout.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	// Exhaustive adds the in-process lattice search as an optimizer.
	Exhaustive    bool    `yaml:"exhaustive"`
	MaxCandidates int64   `yaml:"max_candidates"`
	TimeLimitS    float64 `yaml:"time_limit_s"`
}

type OutputConfig struct {
	Dir      string       `yaml:"dir"`
	Spool    bool         `yaml:"spool"`
	Perf     bool         `yaml:"perf"`
	Outliers bool         `yaml:"outliers"`
	Influx   InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// TaskSetConfig is a task set given in the experiment file, either inline
// or as a CSV path relative to the file.
type TaskSetConfig struct {
	KeyName string          `yaml:"-"`
	Index   int             `yaml:"index"`
	Tasks   taskset.TaskSet `yaml:"tasks,omitempty"`
	CSV     string          `yaml:"csv,omitempty"`
}

func (c *ExperimentConfig) GetTimeLimit() time.Duration {
	return time.Duration(c.Experiment.Optimizer.TimeLimitS * float64(time.Second))
}

func (c *ExperimentConfig) GetTaskSetsSorted() []TaskSetConfig {
	sets := make([]TaskSetConfig, 0, len(c.TaskSets))
	for _, ts := range c.TaskSets {
		sets = append(sets, ts)
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Index != sets[j].Index {
			return sets[i].Index < sets[j].Index
		}
		return sets[i].KeyName < sets[j].KeyName
	})
	return sets
}

// GenerateParams maps the generation fields onto generator parameters;
// zero fields keep the generator defaults.
func (c *ExperimentConfig) GenerateParams() generate.Params {
	p := generate.DefaultParams()
	e := c.Experiment
	if e.Tasks > 0 {
		p.Tasks = e.Tasks
	}
	if e.Utilization > 0 {
		p.Utilization = e.Utilization
	}
	if e.UMin > 0 {
		p.UMin = e.UMin
	}
	if e.UMax > 0 {
		p.UMax = e.UMax
	}
	if e.Granularity > 0 {
		p.Granularity = e.Granularity
	}
	if e.MinExecTime > 0 {
		p.MinExecTime = e.MinExecTime
	}
	return p
}
