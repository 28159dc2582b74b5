package sqlloader

import (
	"strconv"
	"strings"
)

// BuildCreateTable renders CREATE TABLE for schema. No keys or constraints are emitted.
func BuildCreateTable(table string, schema TableSchema) string {
	var b strings.Builder

	b.WriteString("CREATE TABLE ")
	b.WriteString(table)
	b.WriteString(" (")
	for i, c := range schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(' ')
		b.WriteString(c.Type.String())
	}
	b.WriteString(");")

	return b.String()
}

// BuildDropTable renders DROP TABLE IF EXISTS.
func BuildDropTable(table string) string {
	return "DROP TABLE IF EXISTS " + table + ";"
}

// BuildBulkInsert renders a single INSERT embedding every row of ds as literals.
func BuildBulkInsert(table string, ds *Dataset) string {
	var b strings.Builder

	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(ds.ColumnNames(), ", "))
	b.WriteString(") VALUES ")

	columns := ds.Columns()
	for i := 0; i < ds.NumRows(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(FormatLiteral(c.Values[i]))
		}
		b.WriteByte(')')
	}
	b.WriteByte(';')

	return b.String()
}

// FormatLiteral renders v as a SQL literal.
// Strings are single-quoted with embedded quotes doubled.
func FormatLiteral(v Value) string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.AsBool() {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat, KindDecimal:
		s := formatFloat(v.AsFloat())
		if s == "Infinity" || s == "-Infinity" {
			return QuoteString(s)
		}
		return s
	default:
		return QuoteString(v.AsString())
	}
}

// QuoteString single-quotes s, doubling every embedded single quote.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
