package experiment

import (
	"fmt"

	"offset-bench/internal/config"
	"offset-bench/internal/generate"
	"offset-bench/internal/taskset"
)

// LoadSets returns the inline task sets of the configuration, ordered by
// index, followed by the generated ones.
func LoadSets(cfg *config.ExperimentConfig) ([]taskset.TaskSet, error) {
	var sets []taskset.TaskSet
	for _, set := range cfg.GetTaskSetsSorted() {
		sets = append(sets, set.Tasks)
	}

	e := cfg.Experiment
	if e.Sets == 0 {
		return sets, nil
	}

	matrix := generate.DefaultFactorMatrix()
	if e.FactorMatrix != "" {
		m, err := generate.LoadFactorMatrix(e.FactorMatrix)
		if err != nil {
			return nil, fmt.Errorf("factor matrix: %w", err)
		}
		matrix = m
	}
	gen, err := generate.New(matrix, cfg.GenerateParams(), e.Seed)
	if err != nil {
		return nil, err
	}
	generated, err := gen.Sets(e.Sets, e.FilterSets)
	if err != nil {
		return nil, err
	}
	return append(sets, generated...), nil
}
