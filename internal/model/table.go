package model

import (
	"fmt"
	"time"
)

// Table is a named 2-D block of cells: an ordered list of column names plus
// rows of values. Cells may be string, float64, int64, bool, time.Time or
// nil (missing value).
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable builds a Table and checks its invariants: column names must be
// unique and every row must match the column count.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("duplicate column name: %s", c)
		}
		seen[c] = true
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
	}
	return &Table{Columns: columns, Rows: rows}, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col).
func (t *Table) Cell(row, col int) any { return t.Rows[row][col] }

// AppendRow adds a row, checking its width.
func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, want %d", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Equal reports whether two tables have the same columns and cell values.
// Timestamps compare with time.Time.Equal so differing locations of the
// same instant are still equal.
func (t *Table) Equal(o *Table) bool {
	if o == nil || len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		for j := range t.Rows[i] {
			if !cellEqual(t.Rows[i][j], o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cellEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	if aok != bok {
		return false
	}
	return a == b
}

// SingleRow builds a one-row table from a parameter map, keeping the given
// column order. Used to round-trip parameter sets through table form.
func SingleRow(columns []string, values map[string]any) (*Table, error) {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = values[c]
	}
	return NewTable(columns, [][]any{row})
}
