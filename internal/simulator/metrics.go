package simulator

import "offset-bench/internal/taskset"

// PerPeriod is delay / period per task.
func PerPeriod(ts taskset.TaskSet, delays taskset.Delays) []float64 {
	out := make([]float64, len(delays))
	for i, d := range delays {
		out[i] = float64(d) / float64(ts[i].Period)
	}
	return out
}

// PerOtherExecTime divides each delay by the largest execution time among
// the other tasks, the longest blocking a task can suffer from one
// dispatch. A task alone in its set gets 0.
func PerOtherExecTime(ts taskset.TaskSet, delays taskset.Delays) []float64 {
	out := make([]float64, len(delays))
	for i, d := range delays {
		var blocking int64
		for j, task := range ts {
			if j != i && task.ExecTime > blocking {
				blocking = task.ExecTime
			}
		}
		if blocking > 0 {
			out[i] = float64(d) / float64(blocking)
		}
	}
	return out
}

// ResponseOverExec is (delay + execTime) / execTime per task.
func ResponseOverExec(ts taskset.TaskSet, delays taskset.Delays) []float64 {
	out := make([]float64, len(delays))
	for i, d := range delays {
		out[i] = float64(d+ts[i].ExecTime) / float64(ts[i].ExecTime)
	}
	return out
}

// Schedulable reports whether every task completes within its period
// (implicit deadline) under the observed worst-case delay.
func Schedulable(ts taskset.TaskSet, delays taskset.Delays) bool {
	for i, d := range delays {
		if d+ts[i].ExecTime > ts[i].Period {
			return false
		}
	}
	return true
}

// MaxNormalized is the largest delay / period in the vector.
func MaxNormalized(ts taskset.TaskSet, delays taskset.Delays) float64 {
	worst := 0.0
	for _, v := range PerPeriod(ts, delays) {
		worst = max(worst, v)
	}
	return worst
}
