package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"offset-bench/internal/experiment"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
)

type PlotDBClient struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	bucket   string
	org      string
	logger   *logrus.Logger
}

// ResultRow is one task of one set as scored by one heuristic.
type ResultRow struct {
	Order            int
	Heuristic        string
	Set              int
	Task             int
	MaxDelay         float64
	PerPeriod        float64
	PerOtherExecTime float64
	ResponseOverExec float64
}

type MetaData struct {
	RunID           int
	Name            string
	Description     string
	Checksum        string
	Seed            int64
	Started         string
	Finished        string
	DurationSeconds int64
	TotalSets       int64
	TotalTasks      int64
	DriverVersion   string
	Hostname        string
	CPUVendor       string
	CPUModel        string
	CPUThreads      int64
	KernelVersion   string
	OSInfo          string
}

func NewPlotDBClient(logger *logrus.Logger) (*PlotDBClient, error) {
	host := os.Getenv("INFLUXDB_HOST")
	token := os.Getenv("INFLUXDB_TOKEN")
	org := os.Getenv("INFLUXDB_ORG")
	bucket := os.Getenv("INFLUXDB_BUCKET")

	if host == "" || token == "" || org == "" || bucket == "" {
		return nil, fmt.Errorf("missing required environment variables for InfluxDB connection")
	}

	client := influxdb2.NewClient(host, token)

	return &PlotDBClient{
		client:   client,
		queryAPI: client.QueryAPI(org),
		bucket:   bucket,
		org:      org,
		logger:   logger,
	}, nil
}

func (c *PlotDBClient) Close() {
	c.client.Close()
}

func (c *PlotDBClient) QueryResults(ctx context.Context, runID int) ([]ResultRow, error) {
	c.logger.WithField("run_id", runID).Debug("Querying run results")

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == "offset_results")
		|> filter(fn: (r) => r["run_id"] == "%d")
		|> filter(fn: (r) => r["_field"] == "heuristic_order" or r["_field"] == "max_delay" or r["_field"] == "per_period" or r["_field"] == "per_other_exec_time" or r["_field"] == "response_over_exec")
		|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, c.bucket, runID)

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var rows []ResultRow
	for result.Next() {
		record := result.Record()
		row := ResultRow{
			Order:            int(toFloat64(record.ValueByKey("heuristic_order"))),
			Set:              tagInt(record.ValueByKey("set")),
			Task:             tagInt(record.ValueByKey("task")),
			MaxDelay:         toFloat64(record.ValueByKey("max_delay")),
			PerPeriod:        toFloat64(record.ValueByKey("per_period")),
			PerOtherExecTime: toFloat64(record.ValueByKey("per_other_exec_time")),
			ResponseOverExec: toFloat64(record.ValueByKey("response_over_exec")),
		}
		if v, ok := record.ValueByKey("heuristic").(string); ok {
			row.Heuristic = v
		}
		rows = append(rows, row)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}

	c.logger.WithField("rows", len(rows)).Debug("Query completed")
	return rows, nil
}

// MetricsFromRows groups rows by heuristic in their original order and
// lists each heuristic's values by set, then task.
func MetricsFromRows(rows []ResultRow) *experiment.Metrics {
	sorted := make([]ResultRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Heuristic != b.Heuristic {
			return a.Heuristic < b.Heuristic
		}
		if a.Set != b.Set {
			return a.Set < b.Set
		}
		return a.Task < b.Task
	})

	m := &experiment.Metrics{}
	for i, row := range sorted {
		if i == 0 || row.Heuristic != sorted[i-1].Heuristic {
			m.Labels = append(m.Labels, row.Heuristic)
			m.MaxDelay = append(m.MaxDelay, nil)
			m.PerPeriod = append(m.PerPeriod, nil)
			m.PerOtherExecTime = append(m.PerOtherExecTime, nil)
			m.ResponseOverExec = append(m.ResponseOverExec, nil)
		}
		last := len(m.Labels) - 1
		m.MaxDelay[last] = append(m.MaxDelay[last], row.MaxDelay)
		m.PerPeriod[last] = append(m.PerPeriod[last], row.PerPeriod)
		m.PerOtherExecTime[last] = append(m.PerOtherExecTime[last], row.PerOtherExecTime)
		m.ResponseOverExec[last] = append(m.ResponseOverExec[last], row.ResponseOverExec)
	}
	return m
}

func (c *PlotDBClient) QueryMetaData(ctx context.Context, runID int) (*MetaData, error) {
	c.logger.WithField("run_id", runID).Debug("Querying run metadata")

	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: 0)
		|> filter(fn: (r) => r["_measurement"] == "offset_meta")
		|> filter(fn: (r) => r["run_id"] == "%d")
		|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
	`, c.bucket, runID)

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var meta *MetaData
	if result.Next() {
		record := result.Record()
		meta = &MetaData{RunID: runID}

		stringFields := map[string]*string{
			"name":           &meta.Name,
			"description":    &meta.Description,
			"checksum":       &meta.Checksum,
			"started":        &meta.Started,
			"finished":       &meta.Finished,
			"driver_version": &meta.DriverVersion,
			"hostname":       &meta.Hostname,
			"cpu_vendor":     &meta.CPUVendor,
			"cpu_model":      &meta.CPUModel,
			"kernel_version": &meta.KernelVersion,
			"os_info":        &meta.OSInfo,
		}
		for key, dst := range stringFields {
			if v, ok := record.ValueByKey(key).(string); ok {
				*dst = v
			}
		}
		intFields := map[string]*int64{
			"seed":             &meta.Seed,
			"duration_seconds": &meta.DurationSeconds,
			"total_sets":       &meta.TotalSets,
			"total_tasks":      &meta.TotalTasks,
			"cpu_threads":      &meta.CPUThreads,
		}
		for key, dst := range intFields {
			if v, ok := record.ValueByKey(key).(int64); ok {
				*dst = v
			}
		}
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query parsing failed: %w", result.Err())
	}
	if meta == nil {
		return nil, fmt.Errorf("no metadata found for run %d", runID)
	}
	return meta, nil
}

func tagInt(v interface{}) int {
	switch t := v.(type) {
	case string:
		n, _ := strconv.Atoi(t)
		return n
	case int64:
		return int(t)
	}
	return 0
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case int:
		return float64(t)
	}
	return 0
}
