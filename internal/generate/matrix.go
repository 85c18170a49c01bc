package generate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"offset-bench/internal/numtheory"
	"offset-bench/internal/taskset"

	"golang.org/x/exp/rand"
)

// FactorMatrix describes a period distribution. Each row lists candidate
// factors; a period is the product of one uniformly drawn factor per row.
// Repeating a factor in a row raises its weight.
type FactorMatrix [][]int64

// DefaultFactorMatrix yields periods built from 2, 3 and 5, the shape of
// typical avionics message rates.
func DefaultFactorMatrix() FactorMatrix {
	return FactorMatrix{
		{1, 2, 2, 4, 4, 8},
		{1, 1, 3, 3, 9},
		{1, 5, 5, 25},
		{10},
	}
}

func ReadFactorMatrix(r io.Reader) (FactorMatrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read factor matrix: %w", err)
	}
	var m FactorMatrix
	for line, record := range records {
		row := make([]int64, 0, len(record))
		for _, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: factor matrix row %d: %v", taskset.ErrInvalidInput, line+1, err)
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			m = append(m, row)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func LoadFactorMatrix(path string) (FactorMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open factor matrix %s: %w", path, err)
	}
	defer f.Close()
	return ReadFactorMatrix(f)
}

func WriteFactorMatrix(w io.Writer, m FactorMatrix) error {
	writer := csv.NewWriter(w)
	for _, row := range m {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatInt(v, 10)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Validate rejects empty matrices, empty rows, non-positive factors and
// matrices whose largest period overflows.
func (m FactorMatrix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("%w: empty factor matrix", taskset.ErrInvalidInput)
	}
	largest := int64(1)
	for i, row := range m {
		if len(row) == 0 {
			return fmt.Errorf("%w: factor matrix row %d is empty", taskset.ErrInvalidInput, i+1)
		}
		var rowMax int64
		for _, v := range row {
			if v <= 0 {
				return fmt.Errorf("%w: factor matrix row %d: factor %d must be positive", taskset.ErrInvalidInput, i+1, v)
			}
			rowMax = max(rowMax, v)
		}
		var err error
		if largest, err = numtheory.MulChecked(largest, rowMax); err != nil {
			return fmt.Errorf("factor matrix: %w", err)
		}
	}
	return nil
}

// Period draws one period. The matrix must be valid.
func (m FactorMatrix) Period(rng *rand.Rand) int64 {
	period := int64(1)
	for _, row := range m {
		period *= row[rng.Intn(len(row))]
	}
	return period
}
