package experiment

import (
	"offset-bench/internal/simulator"
)

// Metrics holds, per heuristic label, one value per task of every set for
// each of the four delay views.
type Metrics struct {
	Labels           []string    `json:"labels"`
	MaxDelay         [][]float64 `json:"max_delay"`
	PerPeriod        [][]float64 `json:"per_period"`
	PerOtherExecTime [][]float64 `json:"per_other_exec_time"`
	ResponseOverExec [][]float64 `json:"response_over_exec"`
}

func (r *Results) Metrics() *Metrics {
	m := &Metrics{}
	for _, h := range r.Heuristics {
		var maxDelay, perPeriod, perOther, response []float64
		for _, set := range h.Sets {
			ts := r.TaskSets[set.Index]
			for _, d := range set.Delays {
				maxDelay = append(maxDelay, float64(d))
			}
			perPeriod = append(perPeriod, simulator.PerPeriod(ts, set.Delays)...)
			perOther = append(perOther, simulator.PerOtherExecTime(ts, set.Delays)...)
			response = append(response, simulator.ResponseOverExec(ts, set.Delays)...)
		}
		m.Labels = append(m.Labels, h.Label)
		m.MaxDelay = append(m.MaxDelay, maxDelay)
		m.PerPeriod = append(m.PerPeriod, perPeriod)
		m.PerOtherExecTime = append(m.PerOtherExecTime, perOther)
		m.ResponseOverExec = append(m.ResponseOverExec, response)
	}
	return m
}

// Panels lists the four views in report order with their titles.
func (m *Metrics) Panels() []Panel {
	return []Panel{
		{Key: "max_delay", Title: "Maximum delays", Values: m.MaxDelay},
		{Key: "per_period", Title: "MaxDelay / Period", Values: m.PerPeriod},
		{Key: "per_other_exec_time", Title: "MaxDelay / max(ExecTimes)", Values: m.PerOtherExecTime},
		{Key: "response_over_exec", Title: "Max response / ExecTime", Values: m.ResponseOverExec},
	}
}

type Panel struct {
	Key    string
	Title  string
	Values [][]float64
}
