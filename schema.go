package sqlloader

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// TypeKind is a SQL column type family.
type TypeKind int

// Column type families, from narrowest to widest.
const (
	TypeVarchar TypeKind = iota
	TypeBoolean
	TypeInteger
	TypeFloat
)

// DefaultVarcharLength is used when a column's type cannot be narrowed.
const DefaultVarcharLength = 255

// ColumnType is an inferred SQL column type.
type ColumnType struct {
	Kind TypeKind

	// Length is the VARCHAR length. It is zero for other kinds.
	Length int
}

// Column types.
var (
	Boolean = ColumnType{Kind: TypeBoolean}
	Integer = ColumnType{Kind: TypeInteger}
	Float64 = ColumnType{Kind: TypeFloat}
)

// Varchar returns VARCHAR(n).
func Varchar(n int) ColumnType { return ColumnType{Kind: TypeVarchar, Length: n} }

func (t ColumnType) String() string {
	switch t.Kind {
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	default:
		return "VARCHAR(" + strconv.Itoa(t.Length) + ")"
	}
}

// ColumnSchema is a column name with its inferred type.
type ColumnSchema struct {
	Name string
	Type ColumnType
}

// TableSchema is the ordered column definitions of a table.
type TableSchema []ColumnSchema

// Fallback explains why inference could not narrow a column.
type Fallback string

// Fallback reasons.
const (
	FallbackNone    Fallback = ""
	FallbackAllNull Fallback = "no non-null values"
	FallbackMixed   Fallback = "mixed value kinds"

	// FallbackText marks columns mixing strings with other kinds, stored as text.
	FallbackText Fallback = "mixed value kinds with text"
)

// InferType chooses the narrowest type consistent with the non-null values.
// A column holding any string is VARCHAR wide enough for the text of every value.
func InferType(values []Value) ColumnType {
	t, _ := inferType(values)
	return t
}

func inferType(values []Value) (ColumnType, Fallback) {
	var nonNull, bools, ints, numerics, strs int
	maxLen := 0

	for _, v := range values {
		switch v.Kind() {
		case KindNull:
			continue
		case KindBool:
			bools++
		case KindInt:
			ints++
			numerics++
		case KindFloat, KindDecimal:
			numerics++
		case KindString:
			strs++
		}
		if n := textLength(v.Text()); n > maxLen {
			maxLen = n
		}
		nonNull++
	}

	switch {
	case nonNull == 0:
		return Varchar(DefaultVarcharLength), FallbackAllNull
	case bools == nonNull:
		return Boolean, FallbackNone
	case ints == nonNull:
		return Integer, FallbackNone
	case numerics == nonNull:
		return Float64, FallbackNone
	case strs > 0:
		if maxLen < 1 {
			maxLen = 1
		}
		if strs < nonNull {
			return Varchar(maxLen), FallbackText
		}
		return Varchar(maxLen), FallbackNone
	default:
		return Varchar(DefaultVarcharLength), FallbackMixed
	}
}

// textLength is the number of characters s occupies inside a SQL string literal.
func textLength(s string) int {
	return utf8.RuneCountInString(s) + strings.Count(s, "'")
}

// InferSchema infers the type of every column of ds.
func InferSchema(ds *Dataset) TableSchema {
	schema, _ := inferSchema(ds)
	return schema
}

func inferSchema(ds *Dataset) (TableSchema, map[string]Fallback) {
	schema := make(TableSchema, 0, ds.NumColumns())
	fallbacks := map[string]Fallback{}

	for _, c := range ds.Columns() {
		t, fb := inferType(c.Values)
		if fb != FallbackNone {
			fallbacks[c.Name] = fb
		}
		schema = append(schema, ColumnSchema{Name: c.Name, Type: t})
	}

	return schema, fallbacks
}
