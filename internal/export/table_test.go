package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Name:    "collectors",
		Headers: []string{"Client", "Collector", "Health"},
		Rows: [][]string{
			{"Acme", "col-01", "HEALTHY"},
			{"Beta, Inc", "col-02", "CRITICAL"},
		},
	}
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		dataset string
		filter  string
		format  Format
		want    string
	}{
		{"clients", "", FormatCSV, "clients-all-2026-03-10.csv"},
		{"admin-panel", "OVERDUE", FormatXLSX, "admin-panel-overdue-2026-03-10.xlsx"},
		{"alternative-ips", "Acme Corp/EU", FormatCSV, "alternative-ips-acme-corp-eu-2026-03-10.csv"},
		{"tickets", "  ", "", "tickets-all-2026-03-10.csv"},
	}
	for _, tc := range cases {
		if got := FileName(tc.dataset, tc.filter, day, tc.format); got != tc.want {
			t.Fatalf("FileName(%q, %q) got %q want %q", tc.dataset, tc.filter, got, tc.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatCSV {
		t.Fatalf("blank format should default to csv, got %q %v", f, err)
	}
	if f, err := ParseFormat("XLSX"); err != nil || f != FormatXLSX {
		t.Fatalf("expected xlsx, got %q %v", f, err)
	}
	if _, err := ParseFormat("pdf"); err == nil {
		t.Fatalf("expected error for pdf")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, sampleTable())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Client,Collector,Health\nAcme,col-01,HEALTHY\n\"Beta, Inc\",col-02,CRITICAL\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
	if n != int64(len(want)) {
		t.Fatalf("expected %d bytes counted, got %d", len(want), n)
	}
}

func TestWriteCSVEscapesFormulas(t *testing.T) {
	table := Table{
		Name:    "records",
		Headers: []string{"Name", "Description"},
		Rows: [][]string{
			{"=HYPERLINK(\"http://evil.example\",\"x\")", "+1"},
			{"-2+3", "@SUM(A1)"},
			{"col-01", "a=b"},
		},
	}

	var buf bytes.Buffer
	if _, err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Name,Description\n" +
		"\"'=HYPERLINK(\"\"http://evil.example\"\",\"\"x\"\")\",'+1\n" +
		"'-2+3,'@SUM(A1)\n" +
		"col-01,a=b\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
	if table.Rows[0][0][0] != '=' {
		t.Fatalf("input rows should not be modified")
	}
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleTable()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "collectors" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	rows, err := f.GetRows("collectors")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], "|") != "Client|Collector|Health" || rows[2][0] != "Beta, Inc" {
		t.Fatalf("unexpected rows: %v", rows)
	}

	panes, err := f.GetPanes("collectors")
	if err != nil {
		t.Fatalf("read panes: %v", err)
	}
	if !panes.Freeze || panes.YSplit != 1 {
		t.Fatalf("expected frozen header row, got %+v", panes)
	}
}

func TestSheetName(t *testing.T) {
	if got := sheetName("a/b:c"); got != "a-bc" {
		t.Fatalf("unexpected sheet name %q", got)
	}
	if got := sheetName(strings.Repeat("x", 40)); len(got) != 31 {
		t.Fatalf("expected 31 characters, got %d", len(got))
	}
	if got := sheetName(""); got != "export" {
		t.Fatalf("unexpected default %q", got)
	}
}
