package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"painel/internal"
	"painel/internal/util"
)

// ErrNoReport is returned for an email that carries no readable report.
var ErrNoReport = errors.New("no report found")

var reportExtensions = []string{".csv", ".tsv", ".txt", ".xlsx", ".html", ".htm"}

func ReadReport(path string) (*internal.Table, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	table, err := ReadReportBytes(filepath.Base(path), blob)
	if err != nil {
		return nil, fmt.Errorf("report %s: %w", path, err)
	}
	table.Source = path
	return table, nil
}

// ReadReportBytes picks a reader from the file name extension.
func ReadReportBytes(name string, blob []byte) (*internal.Table, error) {
	var (
		table *internal.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		table, err = parseXLSX(blob)
	case ".html", ".htm":
		table, err = parseHTMLTable(blob)
	case ".eml":
		table, err = parseEmail(blob)
	case ".tsv":
		table, err = parseDelimited(blob, '\t')
	default:
		table, err = parseDelimited(blob, 0)
	}
	if err != nil {
		return nil, err
	}
	if table.Source == "" {
		table.Source = name
	}
	return table, nil
}

func parseDelimited(blob []byte, delimiter rune) (*internal.Table, error) {
	blob = bytes.TrimPrefix(blob, []byte("\xef\xbb\xbf"))
	if delimiter == 0 {
		delimiter = DetectDelimiter(blob)
	}

	r := csv.NewReader(bytes.NewReader(blob))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty report: no header row")
	}
	if err != nil {
		return nil, err
	}
	header = cleanHeader(header)

	table := &internal.Table{Header: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := r.FieldPos(0)
		table.Rows = append(table.Rows, internal.RawRow{LineNo: line, Header: header, Values: record})
	}
	return table, nil
}

func parseXLSX(content []byte) (*internal.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	table := &internal.Table{}
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		if table.Header == nil {
			table.Header = cleanHeader(row)
			continue
		}
		values := make([]string, len(row))
		for j, c := range row {
			values[j] = strings.TrimSpace(c)
		}
		table.Rows = append(table.Rows, internal.RawRow{LineNo: i + 1, Header: table.Header, Values: values})
	}
	if table.Header == nil {
		return nil, errors.New("empty report: no header row")
	}
	return table, nil
}

func parseHTMLTable(content []byte) (*internal.Table, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var table *internal.Table
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		rows := t.Find("tr")
		if rows.Length() == 0 {
			return true
		}
		table = &internal.Table{}
		rows.Each(func(i int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if isEmptyRow(cells) {
				return
			}
			if table.Header == nil {
				table.Header = cleanHeader(cells)
				return
			}
			table.Rows = append(table.Rows, internal.RawRow{LineNo: i + 1, Header: table.Header, Values: cells})
		})
		return table.Header == nil
	})
	if table == nil || table.Header == nil {
		return nil, errors.New("no table found in html")
	}
	return table, nil
}

// parseEmail reads the first attachment with a known report extension,
// falling back to a table in the HTML body.
func parseEmail(raw []byte) (*internal.Table, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		if !hasReportExtension(name) {
			continue
		}
		table, err := ReadReportBytes(name, att.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", name, err)
		}
		table.Source = name
		return table, nil
	}

	if strings.Contains(strings.ToLower(env.HTML), "<table") {
		table, err := parseHTMLTable([]byte(env.HTML))
		if err == nil {
			table.Source = "email-body"
			return table, nil
		}
	}
	return nil, ErrNoReport
}

func hasReportExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range reportExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func cleanHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = util.CleanCell(c)
	}
	return out
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeSpaces(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
