package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"

	"painel/internal"
	"painel/internal/registry"
)

var (
	DemographicHeader = []string{"faixa_etaria", "ciptea", "cipf", "passe_livre"}
	PendencyHeader    = []string{"instituicao_original", "deficiencia_original", "idade", "motivo"}
)

type OutputPaths struct {
	Dados      string
	Demografia string
	Pendencias string
}

// Sheet is one output dataset as plain string cells.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (a *Aggregation) InstitutionSheet() Sheet {
	s := Sheet{Name: "instituicoes"}
	if a.Registry == nil {
		return s
	}
	s.Header = a.Registry.OutputHeader()
	counterCategory := map[string]internal.Category{}
	for cat, col := range registry.CounterColumns {
		counterCategory[col] = cat
	}
	for _, rec := range a.Registry.Records {
		row := make([]string, len(s.Header))
		for i, col := range s.Header {
			if cat, ok := counterCategory[col]; ok {
				row[i] = strconv.Itoa(rec.Counts.Get(cat))
				continue
			}
			row[i] = rec.Fields[col]
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func (a *Aggregation) DemographicSheet() Sheet {
	s := Sheet{Name: "demografia", Header: DemographicHeader}
	for i, bin := range internal.AgeBins {
		row := []string{bin.Label}
		for _, cat := range internal.Categories {
			row = append(row, strconv.Itoa(a.Demographics[i].Get(cat)))
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

func (a *Aggregation) PendencySheet() Sheet {
	s := Sheet{Name: "pendencias", Header: PendencyHeader}
	for _, p := range a.Pendencies {
		s.Rows = append(s.Rows, []string{p.Institution, p.Disability, p.Age, string(p.Reason)})
	}
	return s
}

type stagedFile struct {
	tmp    string
	target string
}

// WriteOutputs replaces the institution and demographic datasets and the
// pendency report. Every file is written to a temp sibling first; targets
// are only touched once all of them were written. Without pendencies the
// old pendency report is removed.
func WriteOutputs(agg *Aggregation, paths OutputPaths) error {
	sheets := []struct {
		path  string
		sheet Sheet
	}{
		{paths.Dados, agg.InstitutionSheet()},
		{paths.Demografia, agg.DemographicSheet()},
	}
	if len(agg.Pendencies) > 0 {
		sheets = append(sheets, struct {
			path  string
			sheet Sheet
		}{paths.Pendencias, agg.PendencySheet()})
	}

	staged := make([]stagedFile, 0, len(sheets))
	cleanup := func() {
		for _, s := range staged {
			_ = os.Remove(s.tmp)
		}
	}
	for _, s := range sheets {
		tmp, err := stageCSV(s.path, s.sheet)
		if err != nil {
			cleanup()
			return fmt.Errorf("write %s: %w", s.path, err)
		}
		staged = append(staged, stagedFile{tmp: tmp, target: s.path})
	}

	for i, s := range staged {
		if err := os.Rename(s.tmp, s.target); err != nil {
			for _, rest := range staged[i:] {
				_ = os.Remove(rest.tmp)
			}
			return fmt.Errorf("write %s: %w", s.target, err)
		}
	}

	if len(agg.Pendencies) == 0 && paths.Pendencias != "" {
		if err := os.Remove(paths.Pendencias); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", paths.Pendencias, err)
		}
	}
	return nil
}

func stageCSV(target string, sheet Sheet) (string, error) {
	if target == "" {
		return "", errors.New("empty output path")
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := writeCSV(f, sheet); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeCSV(w io.Writer, sheet Sheet) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(sheet.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(sheet.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExportWorkbookXLSX writes one worksheet per dataset.
func ExportWorkbookXLSX(sheets []Sheet, outputPath string) error {
	if len(sheets) == 0 {
		return errors.New("nothing to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return err
		}

		for col, h := range s.Header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			_ = f.SetCellValue(s.Name, cell, h)
		}
		for r, row := range s.Rows {
			for col, value := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				_ = f.SetCellValue(s.Name, cell, value)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// SheetsFromFiles reloads previously written datasets. A missing pendency
// report yields an empty pendency sheet.
func SheetsFromFiles(paths OutputPaths) ([]Sheet, error) {
	var out []Sheet
	for _, item := range []struct {
		name     string
		path     string
		optional bool
	}{
		{"instituicoes", paths.Dados, false},
		{"demografia", paths.Demografia, false},
		{"pendencias", paths.Pendencias, true},
	} {
		blob, err := os.ReadFile(item.path)
		if errors.Is(err, os.ErrNotExist) && item.optional {
			out = append(out, Sheet{Name: item.name, Header: PendencyHeader})
			continue
		}
		if err != nil {
			return nil, err
		}
		table, err := parseDelimited(blob, ',')
		if err != nil {
			return nil, fmt.Errorf("%s: %w", item.path, err)
		}
		s := Sheet{Name: item.name, Header: table.Header}
		for _, row := range table.Rows {
			s.Rows = append(s.Rows, row.Values)
		}
		out = append(out, s)
	}
	return out, nil
}
