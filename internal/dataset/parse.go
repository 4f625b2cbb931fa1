package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is returned when a file parses but contains no header row.
var ErrNoHeader = errors.New("dataset: no header row")

// AllowedExtensions are the upload formats the service accepts. Legacy .xls
// (BIFF inside an OLE2 container) is rejected up front: the workbook reader
// only understands OOXML, and an accepted upload that can only ever finish
// as a failed job is worse than a synchronous validation error.
var AllowedExtensions = []string{".csv", ".xlsx"}

// AllowedExtension reports whether the filename carries an accepted extension.
func AllowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Parse turns raw upload bytes into a Table, dispatching on the filename
// extension. Unknown extensions fall back to CSV.
func Parse(raw []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return parseXLSX(raw)
	default:
		return parseCSV(raw)
	}
}

func parseCSV(raw []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1 // tolerate ragged rows; cleaning drops them later
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	t := &Table{Columns: trimAll(header)}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func parseXLSX(raw []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	// First sheet only; multi-sheet workbooks are not a supported layout.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	return &Table{Columns: trimAll(rows[0]), Rows: rows[1:]}, nil
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
