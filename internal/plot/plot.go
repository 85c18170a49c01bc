package plot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	resultsdb "offset-bench/internal/database"
	"offset-bench/internal/experiment"
	"offset-bench/internal/logging"
	"offset-bench/internal/plot/boxplot"
	"offset-bench/internal/plot/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// PlotManager renders boxplots from InfluxDB, from a spool artifact or from
// results still in memory. The database client is only needed for the
// first.
type PlotManager struct {
	dbClient         *database.PlotDBClient
	boxplotGenerator *boxplot.BoxplotGenerator
	logger           *logrus.Logger
}

func NewPlotManager() (*PlotManager, error) {
	logger := logging.GetLogger()

	godotenv.Load(".env")

	dbClient, err := database.NewPlotDBClient(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}

	return &PlotManager{
		dbClient:         dbClient,
		boxplotGenerator: boxplot.NewBoxplotGenerator(logger),
		logger:           logger,
	}, nil
}

func NewOfflinePlotManager() *PlotManager {
	logger := logging.GetLogger()
	return &PlotManager{
		boxplotGenerator: boxplot.NewBoxplotGenerator(logger),
		logger:           logger,
	}
}

func (pm *PlotManager) Close() {
	if pm.dbClient != nil {
		pm.dbClient.Close()
	}
}

func (pm *PlotManager) GenerateBoxplot(ctx context.Context, runID int, opts boxplot.PlotOptions) (plotTikz, wrapperTex string, err error) {
	if pm.dbClient == nil {
		return "", "", fmt.Errorf("plot manager has no database connection")
	}

	meta, err := pm.dbClient.QueryMetaData(ctx, runID)
	if err != nil {
		pm.logger.WithError(err).Warn("Failed to query metadata, continuing without it")
		meta = &database.MetaData{RunID: runID}
	}

	rows, err := pm.dbClient.QueryResults(ctx, runID)
	if err != nil {
		return "", "", fmt.Errorf("failed to query results: %w", err)
	}
	if len(rows) == 0 {
		return "", "", fmt.Errorf("no results found for run %d", runID)
	}

	return pm.boxplotGenerator.Generate(meta, database.MetricsFromRows(rows), opts)
}

func (pm *PlotManager) GenerateBoxplotFromSpool(path string, opts boxplot.PlotOptions) (plotTikz, wrapperTex string, runID int, err error) {
	artifact, err := resultsdb.ReadSpoolArtifact(path)
	if err != nil {
		return "", "", 0, err
	}
	meta := MetaFromRun(artifact.RunID, artifact.Metadata, artifact.Results)
	plotTikz, wrapperTex, err = pm.boxplotGenerator.Generate(meta, artifact.Results.Metrics(), opts)
	return plotTikz, wrapperTex, artifact.RunID, err
}

func (pm *PlotManager) GenerateBoxplotFromResults(runID int, runMeta *resultsdb.RunMetadata, results *experiment.Results, opts boxplot.PlotOptions) (plotTikz, wrapperTex string, err error) {
	return pm.boxplotGenerator.Generate(MetaFromRun(runID, runMeta, results), results.Metrics(), opts)
}

// MetaFromRun fills the plot header from the metadata written at run time,
// falling back to what the results themselves carry.
func MetaFromRun(runID int, runMeta *resultsdb.RunMetadata, results *experiment.Results) *database.MetaData {
	meta := &database.MetaData{
		RunID:     runID,
		Name:      results.Name,
		Checksum:  results.Checksum,
		Seed:      results.Seed,
		TotalSets: int64(len(results.TaskSets)),
	}
	if !results.Started.IsZero() {
		meta.Started = results.Started.Format(time.RFC3339)
		meta.Finished = results.Finished.Format(time.RFC3339)
	}
	for _, ts := range results.TaskSets {
		meta.TotalTasks += int64(len(ts))
	}
	if runMeta != nil {
		meta.Description = runMeta.Description
		meta.DurationSeconds = runMeta.DurationSeconds
		meta.DriverVersion = runMeta.DriverVersion
		meta.Hostname = runMeta.Hostname
		meta.CPUVendor = runMeta.CPUVendor
		meta.CPUModel = runMeta.CPUModel
		meta.CPUThreads = int64(runMeta.CPUThreads)
		meta.KernelVersion = runMeta.KernelVersion
		meta.OSInfo = runMeta.OSInfo
	}
	return meta
}

// WritePlotFiles stores the plot under its canonical name and the wrapper
// next to it with a .tex extension. It returns both paths.
func WritePlotFiles(dir string, runID int, outliers bool, plotTikz, wrapperTex string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create plot directory: %w", err)
	}
	plotName := boxplot.PlotFileName(runID, outliers)
	plotPath := filepath.Join(dir, plotName)
	wrapperPath := filepath.Join(dir, strings.TrimSuffix(plotName, ".tikz")+".tex")

	if err := os.WriteFile(plotPath, []byte(plotTikz), 0o644); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(wrapperPath, []byte(wrapperTex), 0o644); err != nil {
		return "", "", err
	}
	return plotPath, wrapperPath, nil
}
