package sqlloader

import (
	"errors"

	"golang.org/x/xerrors"
)

var (
	// ErrDuplicateColumn is returned when two columns of a dataset share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrColumnLength is returned when columns of a dataset differ in row count.
	ErrColumnLength = errors.New("columns have different row counts")

	// ErrEmptyColumnName is returned for a column without a name.
	ErrEmptyColumnName = errors.New("empty column name")
)

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Dataset is an ordered set of equally sized columns.
type Dataset struct {
	columns []Column
	rows    int
}

// NewDataset builds a Dataset from columns.
// Column names must be unique and every column must have the same number of values.
func NewDataset(columns ...Column) (*Dataset, error) {
	seen := make(map[string]struct{}, len(columns))
	rows := 0

	for i, c := range columns {
		if c.Name == "" {
			return nil, xerrors.Errorf("column %d: %w", i, ErrEmptyColumnName)
		}
		if _, ok := seen[c.Name]; ok {
			return nil, xerrors.Errorf("column %q: %w", c.Name, ErrDuplicateColumn)
		}
		seen[c.Name] = struct{}{}

		if i == 0 {
			rows = len(c.Values)
		} else if len(c.Values) != rows {
			return nil, xerrors.Errorf("column %q has %d rows, want %d: %w", c.Name, len(c.Values), rows, ErrColumnLength)
		}
	}

	return &Dataset{columns: columns, rows: rows}, nil
}

// MustNewDataset is like NewDataset but panics on error.
func MustNewDataset(columns ...Column) *Dataset {
	ds, err := NewDataset(columns...)
	if err != nil {
		panic(err)
	}
	return ds
}

// DatasetFromRows builds a Dataset from row-oriented Go values.
// Each cell is classified with ValueOf.
func DatasetFromRows(names []string, rows [][]any) (*Dataset, error) {
	columns := make([]Column, len(names))
	for j, n := range names {
		columns[j] = Column{Name: n, Values: make([]Value, len(rows))}
	}

	for i, r := range rows {
		if len(r) != len(names) {
			return nil, xerrors.Errorf("row %d has %d cells, want %d: %w", i, len(r), len(names), ErrColumnLength)
		}
		for j, cell := range r {
			columns[j].Values[i] = ValueOf(cell)
		}
	}

	return NewDataset(columns...)
}

// Columns returns the columns of ds in order.
func (ds *Dataset) Columns() []Column { return ds.columns }

// ColumnNames returns the column names of ds in order.
func (ds *Dataset) ColumnNames() []string {
	names := make([]string, len(ds.columns))
	for i, c := range ds.columns {
		names[i] = c.Name
	}
	return names
}

// NumColumns returns the number of columns.
func (ds *Dataset) NumColumns() int { return len(ds.columns) }

// NumRows returns the number of rows.
func (ds *Dataset) NumRows() int { return ds.rows }

// Row returns the cells of row i in column order.
func (ds *Dataset) Row(i int) []Value {
	row := make([]Value, len(ds.columns))
	for j, c := range ds.columns {
		row[j] = c.Values[i]
	}
	return row
}

// DropEmptyRows returns a copy of ds without the rows whose cells are all null.
func (ds *Dataset) DropEmptyRows() *Dataset {
	keep := make([]int, 0, ds.rows)
	for i := 0; i < ds.rows; i++ {
		for _, c := range ds.columns {
			if !c.Values[i].IsNull() {
				keep = append(keep, i)
				break
			}
		}
	}

	columns := make([]Column, len(ds.columns))
	for j, c := range ds.columns {
		values := make([]Value, len(keep))
		for k, i := range keep {
			values[k] = c.Values[i]
		}
		columns[j] = Column{Name: c.Name, Values: values}
	}

	return &Dataset{columns: columns, rows: len(keep)}
}

// Append returns a new Dataset with the rows of other after the rows of ds.
// Both datasets must have the same column names in the same order.
func (ds *Dataset) Append(other *Dataset) (*Dataset, error) {
	if len(ds.columns) != len(other.columns) {
		return nil, xerrors.Errorf("cannot append %d columns to %d columns", len(other.columns), len(ds.columns))
	}

	columns := make([]Column, len(ds.columns))
	for j, c := range ds.columns {
		if other.columns[j].Name != c.Name {
			return nil, xerrors.Errorf("column %d is %q, want %q", j, other.columns[j].Name, c.Name)
		}
		values := make([]Value, 0, ds.rows+other.rows)
		values = append(values, c.Values...)
		values = append(values, other.columns[j].Values...)
		columns[j] = Column{Name: c.Name, Values: values}
	}

	return &Dataset{columns: columns, rows: ds.rows + other.rows}, nil
}
