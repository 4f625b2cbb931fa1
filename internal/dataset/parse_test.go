package dataset

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParse_CSV(t *testing.T) {
	raw := []byte("date,mean_temp_C,wind_speed,humidity\n" +
		"2024-01-01,25.5,10.2,65.0\n" +
		"2024-01-02,26.0,12.5,70.0\n")

	tbl, err := Parse(raw, "weather.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantCols := []string{"date", "mean_temp_C", "wind_speed", "humidity"}
	if len(tbl.Columns) != len(wantCols) {
		t.Fatalf("expected %d columns, got %d", len(wantCols), len(tbl.Columns))
	}
	for i, c := range wantCols {
		if tbl.Columns[i] != c {
			t.Errorf("column %d: expected %q, got %q", i, c, tbl.Columns[i])
		}
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][1] != "25.5" {
		t.Errorf("expected cell 25.5, got %q", tbl.Rows[0][1])
	}
}

func TestParse_CSVHeaderWhitespace(t *testing.T) {
	raw := []byte("date, mean_temp_C , wind_speed,humidity\n2024-01-01,25.5,10.2,65.0\n")

	tbl, err := Parse(raw, "weather.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.ColumnIndex("mean_temp_C") != 1 {
		t.Errorf("header cells should be trimmed, columns: %v", tbl.Columns)
	}
}

func TestParse_CSVRaggedRows(t *testing.T) {
	raw := []byte("date,mean_temp_C\n2024-01-01,25.5\n2024-01-02\n")

	tbl, err := Parse(raw, "weather.csv")
	if err != nil {
		t.Fatalf("ragged rows should parse, got error: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(tbl.Rows))
	}
}

func TestParse_EmptyCSV(t *testing.T) {
	_, err := Parse([]byte{}, "weather.csv")
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
}

func TestParse_UnknownExtensionFallsBackToCSV(t *testing.T) {
	raw := []byte("date,mean_temp_C\n2024-01-01,25.5\n")

	tbl, err := Parse(raw, "weather.dat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(tbl.Rows))
	}
}

func TestParse_XLSX(t *testing.T) {
	raw := buildXLSX(t, [][]any{
		{"date", "mean_temp_C", "wind_speed", "humidity"},
		{"2024-01-01", 25.5, 10.2, 65.0},
		{"2024-01-02", 26.0, 12.5, 70.0},
	})

	tbl, err := Parse(raw, "weather.xlsx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.ColumnIndex("humidity") != 3 {
		t.Fatalf("expected humidity at index 3, columns: %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[1][0] != "2024-01-02" {
		t.Errorf("expected date cell, got %q", tbl.Rows[1][0])
	}
}

func TestParse_XLSXGarbage(t *testing.T) {
	_, err := Parse([]byte("not a zip archive"), "weather.xlsx")
	if err == nil {
		t.Error("expected error for non-xlsx bytes")
	}
}

func TestAllowedExtension(t *testing.T) {
	cases := []struct {
		filename string
		want     bool
	}{
		{"weather.csv", true},
		{"weather.CSV", true},
		{"weather.xlsx", true},
		{"Weather Data.XLSX", true},
		{"weather.dat", false},
		{"weather.parquet", false},
		{"weather", false},
		// Legacy BIFF workbooks are refused at validation: the workbook
		// reader only handles OOXML, so accepting .xls would dispatch a
		// job that can never succeed.
		{"weather.xls", false},
	}
	for _, tc := range cases {
		if got := AllowedExtension(tc.filename); got != tc.want {
			t.Errorf("AllowedExtension(%q) = %v, want %v", tc.filename, got, tc.want)
		}
	}
}

func TestAllowedExtensions_AllParseable(t *testing.T) {
	// Every accepted extension must route to a parser that understands the
	// format, so no upload is admitted only to fail downstream.
	raw := []byte("date,mean_temp_C\n2024-01-01,25.5\n")
	xlsx := buildXLSX(t, [][]any{
		{"date", "mean_temp_C"},
		{"2024-01-01", 25.5},
	})

	for _, ext := range AllowedExtensions {
		content := raw
		if ext == ".xlsx" {
			content = xlsx
		}
		if _, err := Parse(content, "weather"+ext); err != nil {
			t.Errorf("accepted extension %s does not parse: %v", ext, err)
		}
	}
}

func TestMissingColumns(t *testing.T) {
	tbl := &Table{Columns: []string{"date", "mean_temp_C"}}

	missing := tbl.MissingColumns([]string{"date", "mean_temp_C", "wind_speed", "humidity"})
	if len(missing) != 2 {
		t.Fatalf("expected 2 missing columns, got %v", missing)
	}
	if missing[0] != "wind_speed" || missing[1] != "humidity" {
		t.Errorf("unexpected missing columns: %v", missing)
	}
}

// buildXLSX writes an in-memory workbook for parser fixtures.
func buildXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
