package database

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"offset-bench/internal/experiment"
	"offset-bench/internal/logging"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
)

const SpoolVersion = 1

// SpoolArtifact is everything needed to replay a run into InfluxDB or to
// plot it later without one.
type SpoolArtifact struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	RunID    int    `json:"run_id"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`

	ConfigContent string `json:"config_content"`

	Results  *experiment.Results `json:"results"`
	Metadata *RunMetadata        `json:"metadata"`
}

func DefaultSpoolDir() string {
	if v := strings.TrimSpace(os.Getenv("OFFSET_BENCH_SPOOL_DIR")); v != "" {
		return v
	}
	return "spool"
}

func BuildSpoolArtifact(runID int, configContent string, results *experiment.Results, metadata *RunMetadata) *SpoolArtifact {
	return &SpoolArtifact{
		Version:       SpoolVersion,
		CreatedAt:     time.Now(),
		RunID:         runID,
		Name:          results.Name,
		Checksum:      results.Checksum,
		ConfigContent: configContent,
		Results:       results,
		Metadata:      metadata,
	}
}

// WriteSpoolArtifact writes a gzip-compressed JSON artifact to disk atomically.
// It returns the final file path.
func WriteSpoolArtifact(dir string, artifact *SpoolArtifact) (string, error) {
	if artifact == nil {
		return "", fmt.Errorf("spool artifact is nil")
	}
	if dir == "" {
		dir = DefaultSpoolDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	checksum := artifact.Checksum
	if checksum == "" {
		checksum = "nocsum"
	}
	name := fmt.Sprintf(
		"run_%d_%s_%s.json.gz",
		artifact.RunID,
		artifact.CreatedAt.UTC().Format("20060102T150405Z"),
		checksum,
	)
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpPath)
		}
	}()

	gz := gzip.NewWriter(tmp)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(artifact); err != nil {
		_ = gz.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	ok = true

	fields := logrus.Fields{"path": finalPath, "run_id": artifact.RunID}
	if st, err := os.Stat(finalPath); err == nil {
		fields["size"] = units.BytesSize(float64(st.Size()))
	}
	logging.GetLogger().WithFields(fields).Info("Wrote spool artifact")
	return finalPath, nil
}

func ReadSpoolArtifact(path string) (*SpoolArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer gz.Close()

	var artifact SpoolArtifact
	if err := json.NewDecoder(gz).Decode(&artifact); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if artifact.Version != SpoolVersion {
		return nil, fmt.Errorf("%s: unsupported spool version %d", path, artifact.Version)
	}
	if artifact.Results == nil {
		return nil, fmt.Errorf("%s: spool artifact has no results", path)
	}
	return &artifact, nil
}
