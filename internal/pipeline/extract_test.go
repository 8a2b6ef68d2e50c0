package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestReadDelimited(t *testing.T) {
	blob := []byte("\xef\xbb\xbfInstituição;Idade;Deficiência\r\nAlfa;30 anos;TEA\r\n\r\nBeta;12\r\n")
	table, err := ReadReportBytes("relatorio.csv", blob)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Instituição", "Idade", "Deficiência"}, table.Header); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if table.Rows[0].LineNo != 2 || table.Rows[1].LineNo != 4 {
		t.Fatalf("line numbers %d %d", table.Rows[0].LineNo, table.Rows[1].LineNo)
	}
	if got := table.Rows[1].Get("Deficiência"); got != "" {
		t.Fatalf("short row value=%q", got)
	}
	if got := table.Rows[0].Get("Idade"); got != "30 anos" {
		t.Fatalf("idade=%q", got)
	}
}

func TestReadDelimitedEmpty(t *testing.T) {
	if _, err := ReadReportBytes("relatorio.csv", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestReadTSV(t *testing.T) {
	table, err := ReadReportBytes("relatorio.tsv", []byte("instituicao\tidade\tdeficiencia\nAlfa, Filial\t30\tTEA\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Rows[0].Get("instituicao"); got != "Alfa, Filial" {
		t.Fatalf("instituicao=%q", got)
	}
}

func TestReadXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"Instituição Credenciadora", "Idade", "Deficiência"},
		{"Alfa", 30, "TEA"},
		{},
		{"Beta", "8 anos", "Física"},
	})
	table, err := ReadReportBytes("relatorio.xlsx", blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows=%d", len(table.Rows))
	}
	if got := table.Rows[0].Get("Idade"); got != "30" {
		t.Fatalf("idade=%q", got)
	}
	if table.Rows[1].LineNo != 4 {
		t.Fatalf("lineNo=%d", table.Rows[1].LineNo)
	}
}

func TestReadHTMLTable(t *testing.T) {
	html := `<html><body><p>Relatório</p><table>
<tr><th>Instituição</th><th>Idade</th><th>Deficiência</th></tr>
<tr><td>Alfa</td><td> 30 </td><td>TEA</td></tr>
</table></body></html>`
	table, err := ReadReportBytes("relatorio.html", []byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Get("Idade") != "30" {
		t.Fatalf("unexpected table: %+v", table)
	}
}

func TestReadHTMLWithoutTable(t *testing.T) {
	if _, err := ReadReportBytes("relatorio.html", []byte("<p>nada</p>")); err == nil {
		t.Fatal("expected error")
	}
}

const emailWithCSV = "From: sistema@example.org\r\n" +
	"To: painel@example.org\r\n" +
	"Subject: Relatorio semanal\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Segue o relatorio.\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/csv; name=\"relatorio.csv\"\r\n" +
	"Content-Disposition: attachment; filename=\"relatorio.csv\"\r\n" +
	"\r\n" +
	"instituicao,idade,deficiencia\r\n" +
	"Alfa,30,TEA\r\n" +
	"--XYZ--\r\n"

const emailWithoutReport = "From: sistema@example.org\r\n" +
	"To: painel@example.org\r\n" +
	"Subject: Bom dia\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Sem anexos hoje.\r\n"

func TestReadEmailAttachment(t *testing.T) {
	table, err := ReadReportBytes("message.eml", []byte(emailWithCSV))
	if err != nil {
		t.Fatal(err)
	}
	if table.Source != "relatorio.csv" {
		t.Fatalf("source=%q", table.Source)
	}
	if len(table.Rows) != 1 || table.Rows[0].Get("deficiencia") != "TEA" {
		t.Fatalf("unexpected table: %+v", table)
	}
}

func TestReadEmailWithoutReport(t *testing.T) {
	_, err := ReadReportBytes("message.eml", []byte(emailWithoutReport))
	if !errors.Is(err, ErrNoReport) {
		t.Fatalf("expected ErrNoReport, got %v", err)
	}
}
