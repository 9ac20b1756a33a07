package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/xuri/excelize/v2"
)

// Format is the file format of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV when raw is blank.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Table is a rendered dataset: a header row and string cells.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

type countingWriter struct {
	writer *bufio.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}

// WriteCSV writes the header and rows and returns the number of bytes written.
func WriteCSV(w io.Writer, table Table) (int64, error) {
	buffered := bufio.NewWriter(w)
	counter := &countingWriter{writer: buffered}
	csvWriter := csv.NewWriter(counter)

	if err := csvWriter.Write(escapeFormulas(table.Headers)); err != nil {
		return counter.count, fmt.Errorf("write header: %w", err)
	}
	for i, row := range table.Rows {
		if err := csvWriter.Write(escapeFormulas(row)); err != nil {
			return counter.count, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return counter.count, fmt.Errorf("flush csv: %w", err)
	}
	if err := buffered.Flush(); err != nil {
		return counter.count, fmt.Errorf("flush buffered csv: %w", err)
	}
	return counter.count, nil
}

// escapeFormulas prefixes cells that a spreadsheet would evaluate as a
// formula with a single quote. The row is copied when any cell changes.
func escapeFormulas(row []string) []string {
	var escaped []string
	for i, cell := range row {
		if cell == "" || !strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
			continue
		}
		if escaped == nil {
			escaped = append([]string(nil), row...)
		}
		escaped[i] = "'" + cell
	}
	if escaped == nil {
		return row
	}
	return escaped
}

// WriteXLSX writes a single-sheet workbook with a bold, filtered and frozen header row.
func WriteXLSX(w io.Writer, table Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(table.Name)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeSheetRow(f, sheet, 1, table.Headers); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if len(table.Headers) > 0 {
		lastCol, err := excelize.ColumnNumberToName(len(table.Headers))
		if err != nil {
			return fmt.Errorf("resolve last column: %w", err)
		}
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
		filterRange := fmt.Sprintf("A1:%s%d", lastCol, len(table.Rows)+1)
		if err := f.AutoFilter(sheet, filterRange, nil); err != nil {
			return fmt.Errorf("set autofilter: %w", err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNumber int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return fmt.Errorf("resolve row %d: %w", rowNumber, err)
	}
	row := make([]any, len(values))
	for i, value := range values {
		row[i] = value
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", rowNumber, err)
	}
	return nil
}

// sheetName fits a table name into Excel's 31 character sheet name limit.
func sheetName(name string) string {
	name = strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "", "]", "", ":", "").Replace(strings.TrimSpace(name))
	if name == "" {
		name = "export"
	}
	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

// Render writes the table in the given format.
func Render(table Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		if err := WriteXLSX(&buf, table); err != nil {
			return nil, err
		}
	default:
		if _, err := WriteCSV(&buf, table); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// FileName builds <dataset>-<filter>-<YYYY-MM-DD>.<ext>.
func FileName(dataset, filter string, date time.Time, format Format) string {
	filterPart := sanitizeFileComponent(filter)
	if filterPart == "" {
		filterPart = "all"
	}
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("%s-%s-%s.%s", sanitizeFileComponent(dataset), filterPart, domain.FormatDate(date), format)
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
