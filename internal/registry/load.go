package registry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"painel/internal"
	"painel/internal/util"
)

const DefaultNameColumn = "nome"

// Load reads the registry CSV. Counters always start at zero: a run rebuilds
// them from the report instead of accumulating on top of a previous run.
func Load(path, nameColumn string) (*Registry, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	reg, err := Parse(blob, nameColumn)
	if err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return reg, nil
}

func Parse(blob []byte, nameColumn string) (*Registry, error) {
	if nameColumn == "" {
		nameColumn = DefaultNameColumn
	}

	reader := csv.NewReader(bytes.NewReader(blob))
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty registry file")
		}
		return nil, err
	}
	for i := range header {
		header[i] = util.CleanCell(header[i])
	}
	if !contains(header, nameColumn) {
		return nil, fmt.Errorf("registry has no %q column", nameColumn)
	}

	var records []*internal.InstitutionRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				fields[col] = row[i]
			} else {
				fields[col] = ""
			}
		}
		records = append(records, &internal.InstitutionRecord{
			Name:   fields[nameColumn],
			Fields: fields,
		})
	}

	return BuildIndex(header, nameColumn, records), nil
}
