package taskset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{"name", "period", "exec_time", "phase"}

// multiSetHeader is the first line of files holding one task set per row.
const multiSetHeader = "(T1,c1);(T2,c2);..."

// WriteCSV writes one task per row with a header.
func WriteCSV(w io.Writer, ts TaskSet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, task := range ts {
		phase := ""
		if task.Phase != nil {
			phase = strconv.FormatInt(*task.Phase, 10)
		}
		row := []string{
			task.Name,
			strconv.FormatInt(task.Period, 10),
			strconv.FormatInt(task.ExecTime, 10),
			phase,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses the format written by WriteCSV. The phase column may be
// omitted entirely.
func ReadCSV(r io.Reader) (TaskSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	periodCol, ok := columns["period"]
	if !ok {
		return nil, fmt.Errorf("%w: missing period column", ErrInvalidInput)
	}
	execCol, ok := columns["exec_time"]
	if !ok {
		return nil, fmt.Errorf("%w: missing exec_time column", ErrInvalidInput)
	}
	nameCol, hasName := columns["name"]
	phaseCol, hasPhase := columns["phase"]

	var ts TaskSet
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		field := func(col int) string {
			if col < len(record) {
				return strings.TrimSpace(record[col])
			}
			return ""
		}

		var task Task
		if hasName {
			task.Name = field(nameCol)
		}
		if task.Period, err = strconv.ParseInt(field(periodCol), 10, 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: period: %v", ErrInvalidInput, line, err)
		}
		if task.ExecTime, err = strconv.ParseInt(field(execCol), 10, 64); err != nil {
			return nil, fmt.Errorf("%w: line %d: exec_time: %v", ErrInvalidInput, line, err)
		}
		if hasPhase && field(phaseCol) != "" {
			phase, err := strconv.ParseInt(field(phaseCol), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: phase: %v", ErrInvalidInput, line, err)
			}
			task.Phase = &phase
		}
		ts = append(ts, task)
	}

	if err := ts.Validate(); err != nil {
		return nil, err
	}
	return ts, nil
}

func LoadCSVFile(path string) (TaskSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteSetsCSV writes one task set per row as ';'-separated "(T,c)" pairs.
func WriteSetsCSV(w io.Writer, sets []TaskSet) error {
	if _, err := io.WriteString(w, multiSetHeader+"\n"); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	for _, ts := range sets {
		row := make([]string, len(ts))
		for i, task := range ts {
			row[i] = fmt.Sprintf("(%d, %d)", task.Period, task.ExecTime)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSetsCSV parses the format written by WriteSetsCSV.
func ReadSetsCSV(r io.Reader) ([]TaskSet, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var sets []TaskSet
	row := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row++
		if row == 1 && len(record) > 0 && strings.HasPrefix(strings.TrimSpace(record[0]), "(T1") {
			continue
		}

		var ts TaskSet
		for col, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			var task Task
			if _, err := fmt.Sscanf(cell, "(%d, %d)", &task.Period, &task.ExecTime); err != nil {
				if _, err2 := fmt.Sscanf(cell, "(%d,%d)", &task.Period, &task.ExecTime); err2 != nil {
					return nil, fmt.Errorf("%w: row %d column %d: %q", ErrInvalidInput, row, col+1, cell)
				}
			}
			ts = append(ts, task)
		}
		if err := ts.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		sets = append(sets, ts)
	}
	return sets, nil
}
