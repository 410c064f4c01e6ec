package mop

import (
	"math/big"
	"testing"

	"github.com/cockroachdb/apd/v3"
)

func TestWiden(t *testing.T) {
	tests := []struct {
		from, to NumericKind
		dist     int
		ok       bool
	}{
		{KindInt, KindInt, 0, true},
		{KindInt, KindLong, 1, true},
		{KindInt, KindDouble, 4, true},
		{KindByte, KindInt, 2, true},
		{KindChar, KindInt, 1, true},
		{KindChar, KindShort, 0, false},
		{KindShort, KindChar, 0, false},
		{KindLong, KindInt, 0, false},
		{KindDouble, KindLong, 0, false},
		{KindLong, KindBigDecimal, 4, true},
		{NotNumeric, KindInt, 0, false},
	}
	for _, tt := range tests {
		dist, ok := Widen(tt.from, tt.to)
		if ok != tt.ok || (ok && dist != tt.dist) {
			t.Errorf("Widen(%d, %d): expected (%d, %v), got (%d, %v)", tt.from, tt.to, tt.dist, tt.ok, dist, ok)
		}
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b, expected NumericKind
	}{
		{KindInt, KindInt, KindInt},
		{KindShort, KindByte, KindInt},
		{KindInt, KindLong, KindLong},
		{KindLong, KindBigInteger, KindBigInteger},
		{KindBigInteger, KindBigDecimal, KindBigDecimal},
		{KindBigDecimal, KindDouble, KindDouble},
		{KindFloat, KindInt, KindDouble},
	}
	for _, tt := range tests {
		if got := Promote(tt.a, tt.b); got != tt.expected {
			t.Errorf("Promote(%d, %d): expected %d, got %d", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestArith(t *testing.T) {
	r, err := Arith(OpPlus, 1, 2)
	if err != nil || r != 3 {
		t.Errorf("Expected 3, got %v (%v)", r, err)
	}

	r, err = Arith(OpMultiply, 3, int64(4))
	if err != nil || r != int64(12) {
		t.Errorf("Expected Long 12, got %#v (%v)", r, err)
	}

	r, err = Arith(OpPlus, 1, 2.5)
	if err != nil || r != 3.5 {
		t.Errorf("Expected 3.5, got %v (%v)", r, err)
	}

	r, err = Arith(OpDiv, 1, 2)
	if err != nil {
		t.Fatalf("Arith div: %v", err)
	}
	d, ok := r.(*apd.Decimal)
	if !ok || d.String() != "0.5" {
		t.Errorf("Expected BigDecimal 0.5, got %#v", r)
	}

	r, err = Arith(OpPlus, big.NewInt(1), 1)
	if err != nil {
		t.Fatalf("Arith big: %v", err)
	}
	if b, ok := r.(*big.Int); !ok || b.Int64() != 2 {
		t.Errorf("Expected BigInteger 2, got %#v", r)
	}

	if _, err := Arith(OpPlus, 1, "x"); err == nil {
		t.Error("Expected error for non-numeric operand")
	}
}

func TestConvert(t *testing.T) {
	v, err := Convert(5, BigIntegerClass)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if b, ok := v.(*big.Int); !ok || b.Int64() != 5 {
		t.Errorf("Expected BigInteger 5, got %#v", v)
	}

	v, err = Convert(5, DoubleType)
	if err != nil || v != 5.0 {
		t.Errorf("Expected 5.0, got %#v (%v)", v, err)
	}

	dec, _, _ := apd.NewFromString("2.7")
	v, err = Convert(dec, IntType)
	if err != nil || v != 2 {
		t.Errorf("Expected truncation to 2, got %#v (%v)", v, err)
	}

	v, err = Convert(int8(3), LongClass)
	if err != nil || v != int64(3) {
		t.Errorf("Expected Long 3, got %#v (%v)", v, err)
	}

	if _, err := Convert("x", IntType); err == nil {
		t.Error("Expected error converting a String")
	}
	if _, err := Convert(1, StringClass); err == nil {
		t.Error("Expected error converting to a non-numeric class")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b     Value
		expected int
	}{
		{1, int64(1), 0},
		{1, 2.5, -1},
		{big.NewInt(10), 3, 1},
		{apd.New(15, -1), 1.5, 0},
	}
	for _, tt := range tests {
		got, err := Compare(tt.a, tt.b)
		if err != nil {
			t.Errorf("Compare(%v, %v): %v", tt.a, tt.b, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("Compare(%v, %v): expected %d, got %d", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(1, int64(1)) {
		t.Error("1 should equal 1L")
	}
	if !Equal("ab", GString{Strings: []string{"a", ""}, Values: []Value{"b"}}) {
		t.Error("String should equal GString with the same text")
	}
	if Equal(nil, 0) {
		t.Error("null should not equal 0")
	}
	if !Equal(nil, nil) {
		t.Error("null should equal null")
	}
}
