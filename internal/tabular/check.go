package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxImportBytes is the largest file the backend accepts.
const MaxImportBytes = 1 << 20

var requiredColumns = []string{"yt_id", "Artist", "Title", "Album", "released", "discovered", "comment", "rank"}

// ErrTooLarge reports an import file above MaxImportBytes.
var ErrTooLarge = fmt.Errorf("import file exceeds %d bytes", MaxImportBytes)

// Summary describes an import file that passed preflight.
type Summary struct {
	Rows    int
	MaxRank int
}

// RowError reports a problem on a 1-based data row.
type RowError struct {
	Row    int
	Column string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Column, e.Reason)
}

// Check applies the backend's ingestion rules to an import file without
// uploading it. It stops at the first offending row.
func Check(r io.Reader) (Summary, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return Summary{}, fmt.Errorf("read import file: %w", err)
	}
	if len(data) > MaxImportBytes {
		return Summary{}, ErrTooLarge
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Summary{}, errors.New("file is empty")
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Summary{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	field := func(record []string, name string) string {
		if i := columns[name]; i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var summary Summary
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row := summary.Rows + 1
		if err != nil {
			return summary, fmt.Errorf("row %d: %w", row, err)
		}
		if len(record) != len(header) {
			return summary, &RowError{Row: row, Column: "record", Reason: fmt.Sprintf("has %d fields, header has %d", len(record), len(header))}
		}
		for _, name := range []string{"yt_id", "Title", "rank"} {
			if field(record, name) == "" {
				return summary, &RowError{Row: row, Column: name, Reason: "is required"}
			}
		}
		rank, err := strconv.Atoi(field(record, "rank"))
		if err != nil || rank < 1 {
			return summary, &RowError{Row: row, Column: "rank", Reason: "must be a positive integer"}
		}
		if released := field(record, "released"); released != "" {
			if _, err := strconv.Atoi(released); err != nil {
				return summary, &RowError{Row: row, Column: "released", Reason: "must be an integer"}
			}
		}
		summary.Rows = row
		summary.MaxRank = max(summary.MaxRank, rank)
	}
	return summary, nil
}
