package sqlloader

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewDataset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		want    error
	}{
		{
			name:    "duplicate",
			columns: []Column{{Name: "a"}, {Name: "a"}},
			want:    ErrDuplicateColumn,
		},
		{
			name:    "length",
			columns: []Column{{Name: "a", Values: []Value{Int(1)}}, {Name: "b"}},
			want:    ErrColumnLength,
		},
		{
			name:    "empty name",
			columns: []Column{{Name: ""}},
			want:    ErrEmptyColumnName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDataset(tt.columns...); !errors.Is(err, tt.want) {
				t.Errorf("error should be %v, but %v", tt.want, err)
			}
		})
	}
}

func TestDatasetFromRows(t *testing.T) {
	ds, err := DatasetFromRows([]string{"id", "name"}, [][]any{{1, "Ann"}, {nil, "Cy"}})
	if err != nil {
		t.Fatalf("DatasetFromRows should not return error, but %v", err)
	}

	if ds.NumRows() != 2 || ds.NumColumns() != 2 {
		t.Fatalf("size should be 2x2, but %dx%d", ds.NumRows(), ds.NumColumns())
	}
	if r := ds.Row(1); !r[0].IsNull() || r[1].AsString() != "Cy" {
		t.Errorf("Row(1) should be [NULL Cy], but %v", r)
	}

	if _, err := DatasetFromRows([]string{"id"}, [][]any{{1, 2}}); !errors.Is(err, ErrColumnLength) {
		t.Errorf("error should be ErrColumnLength, but %v", err)
	}
}

func TestDataset_DropEmptyRows(t *testing.T) {
	ds := MustNewDataset(
		Column{Name: "a", Values: []Value{Int(1), Null(), Null()}},
		Column{Name: "b", Values: []Value{Null(), Null(), String("x")}},
	)

	got := ds.DropEmptyRows()

	if got.NumRows() != 2 {
		t.Fatalf("NumRows should be 2, but %d", got.NumRows())
	}
	if ds.NumRows() != 3 {
		t.Errorf("source dataset should keep 3 rows, but %d", ds.NumRows())
	}
	if r := got.Row(1); !r[1].Equal(String("x")) {
		t.Errorf("Row(1) should end with x, but %v", r)
	}
}

func TestDataset_Append(t *testing.T) {
	a := MustNewDataset(Column{Name: "n", Values: []Value{Int(1)}})
	b := MustNewDataset(Column{Name: "n", Values: []Value{Int(2), Int(3)}})

	got, err := a.Append(b)
	if err != nil {
		t.Fatalf("Append should not return error, but %v", err)
	}

	var ns []int64
	for i := 0; i < got.NumRows(); i++ {
		ns = append(ns, got.Row(i)[0].AsInt())
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, ns); diff != "" {
		t.Errorf("rows should be as expected, but differ (-want +got):\n%s", diff)
	}

	c := MustNewDataset(Column{Name: "m", Values: []Value{Int(1)}})
	if _, err := a.Append(c); err == nil {
		t.Error("Append should return error for different columns, but nil")
	}
}
