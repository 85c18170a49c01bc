package database

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"offset-bench/internal/config"
	"offset-bench/internal/experiment"
	"offset-bench/internal/logging"
	"offset-bench/internal/simulator"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const (
	ResultsMeasurement  = "offset_results"
	MetadataMeasurement = "offset_meta"
)

// RunMetadata describes one experiment run and the host it ran on.
type RunMetadata struct {
	RunID           int    `json:"run_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Checksum        string `json:"checksum"`
	Seed            int64  `json:"seed"`
	DurationSeconds int64  `json:"duration_seconds"`
	Started         string `json:"started"`  // RFC3339
	Finished        string `json:"finished"` // RFC3339
	TotalSets       int    `json:"total_sets"`
	TotalTasks      int    `json:"total_tasks"`
	Heuristics      string `json:"heuristics"`
	DriverVersion   string `json:"driver_version"`
	Hostname        string `json:"hostname"`
	OSInfo          string `json:"os_info"`
	KernelVersion   string `json:"kernel_version"`
	CPUVendor       string `json:"cpu_vendor"`
	CPUModel        string `json:"cpu_model"`
	CPUThreads      int    `json:"cpu_threads"`
	ConfigFile      string `json:"config_file"`
}

type SystemInfo struct {
	Hostname      string
	OSInfo        string
	KernelVersion string
	CPUVendor     string
	CPUModel      string
	CPUThreads    int
}

func collectSystemInfo() *SystemInfo {
	info := &SystemInfo{
		Hostname:      "unknown",
		OSInfo:        runtime.GOOS + "/" + runtime.GOARCH,
		KernelVersion: "unknown",
		CPUVendor:     "unknown",
		CPUModel:      "unknown",
		CPUThreads:    runtime.NumCPU(),
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if data, err := os.ReadFile("/proc/version"); err == nil {
		if parts := strings.Fields(string(data)); len(parts) >= 3 {
			info.KernelVersion = parts[2]
		}
	}

	if data, err := os.ReadFile("/proc/cpuinfo"); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			switch strings.TrimSpace(key) {
			case "vendor_id":
				info.CPUVendor = strings.TrimSpace(value)
			case "model name":
				info.CPUModel = strings.TrimSpace(value)
			}
		}
	}
	return info
}

func CollectRunMetadata(runID int, cfg *config.ExperimentConfig, configContent string, results *experiment.Results, driverVersion string) *RunMetadata {
	sysInfo := collectSystemInfo()

	tasks := 0
	for _, ts := range results.TaskSets {
		tasks += len(ts)
	}
	labels := make([]string, 0, len(results.Heuristics))
	for _, h := range results.Heuristics {
		labels = append(labels, h.Label)
	}

	meta := &RunMetadata{
		RunID:           runID,
		Name:            results.Name,
		Checksum:        results.Checksum,
		Seed:            results.Seed,
		DurationSeconds: int64(results.Finished.Sub(results.Started).Seconds()),
		Started:         results.Started.Format(time.RFC3339),
		Finished:        results.Finished.Format(time.RFC3339),
		TotalSets:       len(results.TaskSets),
		TotalTasks:      tasks,
		Heuristics:      strings.Join(labels, ";"),
		DriverVersion:   driverVersion,
		Hostname:        sysInfo.Hostname,
		OSInfo:          sysInfo.OSInfo,
		KernelVersion:   sysInfo.KernelVersion,
		CPUVendor:       sysInfo.CPUVendor,
		CPUModel:        sysInfo.CPUModel,
		CPUThreads:      sysInfo.CPUThreads,
		ConfigFile:      configContent,
	}
	if cfg != nil {
		meta.Description = cfg.Experiment.Description
	}
	return meta
}

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

func NewInfluxDBClient(cfg config.InfluxConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		client.Close()
		return nil, err
	}
	if health.Status != "pass" {
		message := ""
		if health.Message != nil {
			message = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": message,
		}).Error("InfluxDB health check failed")
		client.Close()
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

func (idb *InfluxDBClient) GetLastRunID(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -90d)
		|> filter(fn: (r) => r._measurement == "%s")
		|> distinct(column: "run_id")
		|> map(fn: (r) => ({_value: int(v: r.run_id)}))
		|> max()
		|> yield(name: "max_run_id")
	`, idb.bucket, MetadataMeasurement)

	result, err := idb.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query last run ID: %w", err)
	}
	defer result.Close()

	maxID := 0
	for result.Next() {
		if id, ok := result.Record().Value().(int64); ok && int(id) > maxID {
			maxID = int(id)
		}
	}
	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query results: %w", result.Err())
	}
	return maxID, nil
}

func (idb *InfluxDBClient) WriteResults(ctx context.Context, runID int, results *experiment.Results) error {
	points := BuildResultPoints(runID, results)
	if len(points) == 0 {
		return nil
	}
	if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write result points: %w", err)
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"run_id": runID,
		"points": len(points),
	}).Info("Wrote results to InfluxDB")
	return nil
}

// BuildResultPoints turns results into one point per heuristic, set and
// task. All points share the finish timestamp and differ by tags.
func BuildResultPoints(runID int, results *experiment.Results) []*write.Point {
	var points []*write.Point
	for order, h := range results.Heuristics {
		for _, set := range h.Sets {
			ts := results.TaskSets[set.Index]
			perPeriod := simulator.PerPeriod(ts, set.Delays)
			perOther := simulator.PerOtherExecTime(ts, set.Delays)
			response := simulator.ResponseOverExec(ts, set.Delays)

			for i, task := range ts {
				fields := map[string]interface{}{
					"heuristic_order":     order,
					"period":              task.Period,
					"exec_time":           task.ExecTime,
					"offset":              set.Offsets[i],
					"max_delay":           set.Delays[i],
					"per_period":          perPeriod[i],
					"per_other_exec_time": perOther[i],
					"response_over_exec":  response[i],
					"wall_ns":             set.Wall.Nanoseconds(),
					"schedulable":         set.Schedulable,
					"failed":              set.Error != "",
				}
				addCounterFields(fields, set)

				points = append(points, influxdb2.NewPoint(ResultsMeasurement,
					map[string]string{
						"run_id":    strconv.Itoa(runID),
						"heuristic": h.Label,
						"set":       strconv.Itoa(set.Index),
						"task":      strconv.Itoa(i),
					},
					fields,
					results.Finished))
			}
		}
	}
	return points
}

func addCounterFields(fields map[string]interface{}, set experiment.SetResult) {
	c := set.Counters
	if c == nil {
		return
	}
	if c.Instructions != nil {
		fields["perf_instructions"] = *c.Instructions
	}
	if c.Cycles != nil {
		fields["perf_cycles"] = *c.Cycles
	}
	if c.CacheMisses != nil {
		fields["perf_cache_misses"] = *c.CacheMisses
	}
	if c.CacheReferences != nil {
		fields["perf_cache_references"] = *c.CacheReferences
	}
	if c.BranchInstructions != nil {
		fields["perf_branch_instructions"] = *c.BranchInstructions
	}
	if c.BranchMisses != nil {
		fields["perf_branch_misses"] = *c.BranchMisses
	}
	if c.InstructionsPerCycle != nil {
		fields["perf_ipc"] = *c.InstructionsPerCycle
	}
	if c.CacheMissRate != nil {
		fields["perf_cache_miss_rate"] = *c.CacheMissRate
	}
}

func (idb *InfluxDBClient) WriteMetadata(ctx context.Context, metadata *RunMetadata) error {
	point := influxdb2.NewPoint(MetadataMeasurement,
		map[string]string{
			"run_id": strconv.Itoa(metadata.RunID),
		},
		map[string]interface{}{
			"name":             metadata.Name,
			"description":      metadata.Description,
			"checksum":         metadata.Checksum,
			"seed":             metadata.Seed,
			"duration_seconds": metadata.DurationSeconds,
			"started":          metadata.Started,
			"finished":         metadata.Finished,
			"total_sets":       metadata.TotalSets,
			"total_tasks":      metadata.TotalTasks,
			"heuristics":       metadata.Heuristics,
			"driver_version":   metadata.DriverVersion,
			"hostname":         metadata.Hostname,
			"os_info":          metadata.OSInfo,
			"kernel_version":   metadata.KernelVersion,
			"cpu_vendor":       metadata.CPUVendor,
			"cpu_model":        metadata.CPUModel,
			"cpu_threads":      metadata.CPUThreads,
			"config_file":      metadata.ConfigFile,
		},
		time.Now())

	if err := idb.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (idb *InfluxDBClient) Close() {
	idb.client.Close()
}
