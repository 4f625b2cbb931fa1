package dataset

// Table is a parsed tabular dataset: a header of named columns and raw string
// rows. Type coercion is the analysis engine's concern, not the parser's.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column, or -1 if absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// MissingColumns returns, in the given order, the required column names that
// are not present in the table.
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, name := range required {
		if t.ColumnIndex(name) == -1 {
			missing = append(missing, name)
		}
	}
	return missing
}
