package sqlloader

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		10:          "10.0",
		0:           "0.0",
		0.25:        "0.25",
		-3.5:        "-3.5",
		1e16:        "1e+16",
		1.5e-05:     "1.5e-05",
		0.0001:      "0.0001",
		123456789.5: "123456789.5",
		math.Inf(1): "Infinity",
	}

	for in, want := range tests {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) should be %q, but %q", in, want, got)
		}
	}
}

func TestValueOf(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int", 5, Int(5)},
		{"int32", int32(-5), Int(-5)},
		{"uint8", uint8(200), Int(200)},
		{"large uint64", uint64(math.MaxUint64), Decimal(decimal.RequireFromString("18446744073709551615"))},
		{"float", 1.5, Float(1.5)},
		{"NaN", math.NaN(), Null()},
		{"decimal", decimal.RequireFromString("1.10"), Decimal(decimal.RequireFromString("1.1"))},
		{"nil decimal pointer", (*decimal.Decimal)(nil), Null()},
		{"string", "x", String("x")},
		{"bytes", []byte("ab"), String("ab")},
		{"nil bytes", []byte(nil), Null()},
		{"time", ts, String("2024-03-01T12:00:00Z")},
		{"value", Int(3), Int(3)},
		{"other", struct{ A int }{1}, String("{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueOf(tt.in); !got.Equal(tt.want) {
				t.Errorf("ValueOf(%v) should be %v (%s), but %v (%s)", tt.in, tt.want, tt.want.Kind(), got, got.Kind())
			}
		})
	}
}

func TestValue_Text(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Bool(false), "false"},
		{Int(-12), "-12"},
		{Float(2), "2.0"},
		{Decimal(decimal.RequireFromString("3.14")), "3.14"},
		{String("O'Brien"), "O'Brien"},
	}

	for _, tt := range tests {
		if got := tt.v.Text(); got != tt.want {
			t.Errorf("Text of %s should be %q, but %q", tt.v.Kind(), tt.want, got)
		}
	}

	if got := Null().String(); got != "NULL" {
		t.Errorf(`Null().String() should be "NULL", but %q`, got)
	}
}

func TestValue_Equal(t *testing.T) {
	if Int(1).Equal(Float(1)) {
		t.Error("Int(1) should not equal Float(1)")
	}
	if !Null().Equal(Value{}) {
		t.Error("zero Value should be null")
	}
	if String("a").Equal(String("b")) {
		t.Error(`String("a") should not equal String("b")`)
	}
}
