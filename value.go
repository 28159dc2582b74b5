package sqlloader

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the type tag of a Value.
type Kind int

// Kinds of cell values.
const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single cell of a Dataset.
// The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	d    decimal.Decimal
	s    string
}

// Null returns a null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point value. NaN is treated as null.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// Decimal returns a fixed-point value.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }

// String returns a textual value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// ValueOf classifies a Go value into a Value.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case decimal.Decimal:
		return Decimal(x)
	case *decimal.Decimal:
		if x == nil {
			return Null()
		}
		return Decimal(*x)
	case string:
		return String(x)
	case []byte:
		if x == nil {
			return Null()
		}
		return String(string(x))
	case time.Time:
		return String(x.Format(time.RFC3339Nano))
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return String(fmt.Sprint(v))
		}
		if _, ok := dv.(driver.Valuer); ok {
			return String(fmt.Sprint(dv))
		}
		return ValueOf(dv)
	default:
		return String(fmt.Sprint(v))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Decimal(decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0))
	}
	return Int(int64(u))
}

// Kind returns the type tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the payload as a float64 for numeric kinds.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindDecimal:
		return v.d.InexactFloat64()
	default:
		return v.f
	}
}

// AsDecimal returns the decimal payload.
func (v Value) AsDecimal() decimal.Decimal { return v.d }

// AsString returns the string payload.
func (v Value) AsString() string { return v.s }

// Interface returns v as a plain Go value (nil, bool, int64, float64, decimal.Decimal or string).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Text returns the plain text of v as written to files and spreadsheets.
// Null is rendered as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindDecimal:
		return v.d.String()
	default:
		return v.s
	}
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDecimal:
		return v.d.Equal(o.d)
	default:
		return v.s == o.s
	}
}

func (v Value) String() string {
	if v.kind == KindNull {
		return "NULL"
	}
	return v.Text()
}

// formatFloat renders f as the shortest text that round-trips and always
// carries a decimal point or an exponent, e.g. 10.0, 0.25, 1e+16, 1.5e-05.
func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}
