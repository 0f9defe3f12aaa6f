// Package history reads the external completed-run record: a CSV artifact
// written at job completion time, keyed by the same fields as a run
// configuration. The engine only ever reads this artifact.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/macropower/sweep/pkg/sweep"
)

// Read reads the completed-run record at path. Each row becomes a
// [sweep.RunConfig] over the header's key space, with values type-inferred so
// they compare equal to document scalars. A missing file is a valid "no
// history" state and returns no rows and no error.
func Read(path string) ([]sweep.RunConfig, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open run record: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	rows, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse run record %q: %w", path, err)
	}

	return rows, nil
}

func parse(r io.Reader) ([]sweep.RunConfig, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil // Empty record.
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []sweep.RunConfig

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(sweep.RunConfig, len(header))
		for i, key := range header {
			if i < len(fields) {
				row[key] = inferValue(fields[i])
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// inferValue parses a CSV field into the narrowest scalar type: int, float,
// bool, then string.
func inferValue(field string) any {
	if i, err := strconv.ParseInt(field, 10, 64); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(field, 64); err == nil {
		return f
	}

	if b, err := strconv.ParseBool(field); err == nil {
		return b
	}

	return field
}
