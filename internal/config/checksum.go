package config

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"offset-bench/internal/taskset"
)

type checksumTask struct {
	Period   int64  `json:"t"`
	ExecTime int64  `json:"c"`
	Phase    *int64 `json:"p,omitempty"`
}

// TaskSetChecksum identifies a list of task sets independently of task
// names. It is the first 6 hex characters of the MD5 of a canonical JSON
// encoding, the same as `md5sum | cut -c1-6`.
func TaskSetChecksum(sets []taskset.TaskSet) (string, error) {
	payload := make([][]checksumTask, len(sets))
	for i, ts := range sets {
		payload[i] = make([]checksumTask, len(ts))
		for j, task := range ts {
			payload[i][j] = checksumTask{Period: task.Period, ExecTime: task.ExecTime, Phase: task.Phase}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])[:6], nil
}
