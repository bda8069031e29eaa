package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV parses CSV input into a raw dataset. Every cell comes back as text
// (blank cells as missing); typing happens later during normalization. The
// dataset type is left unset for the caller to detect or assign.
func ReadCSV(r io.Reader, name string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	ds := New(name, "", columns)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(ds.Rows)+2, err)
		}

		row := make(Row, len(columns))
		for i := range row {
			if i < len(record) {
				cell := strings.TrimSpace(record[i])
				if cell != "" {
					row[i] = Text(cell)
					continue
				}
			}
			row[i] = Missing()
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// LoadCSV reads a dataset from a file on disk.
func LoadCSV(path, name string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(file, name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ds, nil
}
