package mop

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// NumericKind identifies a numeric type within the promotion lattice.
type NumericKind uint8

const (
	NotNumeric NumericKind = iota
	KindByte
	KindShort
	KindChar
	KindInt
	KindLong
	KindBigInteger
	KindFloat
	KindDouble
	KindBigDecimal
)

// NumericCategory is a rung of the promotion lattice.
type NumericCategory uint8

const (
	CategoryNone NumericCategory = iota
	CategoryInt
	CategoryLong
	CategoryBigInt
	CategoryDecimal
)

// Category returns the lattice rung of k.
func (k NumericKind) Category() NumericCategory {
	switch k {
	case KindByte, KindShort, KindChar, KindInt:
		return CategoryInt
	case KindLong:
		return CategoryLong
	case KindBigInteger:
		return CategoryBigInt
	case KindFloat, KindDouble, KindBigDecimal:
		return CategoryDecimal
	}
	return CategoryNone
}

// rank orders kinds for widening distance; char sits beside short.
func (k NumericKind) rank() int {
	switch k {
	case KindByte:
		return 0
	case KindShort, KindChar:
		return 1
	case KindInt:
		return 2
	case KindLong:
		return 3
	case KindBigInteger:
		return 4
	case KindFloat:
		return 5
	case KindDouble:
		return 6
	case KindBigDecimal:
		return 7
	}
	return -1
}

// Widen reports whether a value of kind from may be widened to kind to, and
// the number of lattice steps it takes. Widening never moves toward a
// narrower category.
func Widen(from, to NumericKind) (int, bool) {
	if from == NotNumeric || to == NotNumeric {
		return 0, false
	}
	if from == to {
		return 0, true
	}
	// char and the narrow signed kinds do not convert into each other
	if from == KindChar && (to == KindByte || to == KindShort) {
		return 0, false
	}
	if to == KindChar {
		return 0, false
	}
	d := to.rank() - from.rank()
	if d < 0 {
		return 0, false
	}
	return d, true
}

// Promote returns the kind binary arithmetic on a and b is carried out in.
// Floating operands win, then BigDecimal, BigInteger, Long, and Integer.
func Promote(a, b NumericKind) NumericKind {
	switch {
	case a == KindFloat || a == KindDouble || b == KindFloat || b == KindDouble:
		return KindDouble
	case a == KindBigDecimal || b == KindBigDecimal:
		return KindBigDecimal
	case a == KindBigInteger || b == KindBigInteger:
		return KindBigInteger
	case a == KindLong || b == KindLong:
		return KindLong
	}
	return KindInt
}

// IsNumber reports whether v is a numeric value.
func IsNumber(v Value) bool {
	return ClassOf(v).Numeric() != NotNumeric && ClassOf(v) != CharacterClass
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

var decimalCtx = apd.BaseContext.WithPrecision(34)

// Convert coerces a numeric value to the representation of target. Widening
// conversions are exact; narrowing conversions truncate like the
// corresponding xValue accessor.
func Convert(v Value, target *Class) (Value, error) {
	kind := target.Numeric()
	if kind == NotNumeric {
		return nil, fmt.Errorf("cannot convert %s to non-numeric %s", ClassOf(v), target)
	}
	if ClassOf(v).Numeric() == NotNumeric {
		return nil, fmt.Errorf("cannot convert non-numeric %s to %s", ClassOf(v), target)
	}
	switch kind {
	case KindInt:
		i, err := toInt64(v)
		return int(int32(i)), err
	case KindLong:
		return toInt64(v)
	case KindShort:
		i, err := toInt64(v)
		return int16(i), err
	case KindByte:
		i, err := toInt64(v)
		return int8(i), err
	case KindChar:
		i, err := toInt64(v)
		return Char(uint16(i)), err
	case KindFloat:
		f, err := toFloat64(v)
		return float32(f), err
	case KindDouble:
		return toFloat64(v)
	case KindBigInteger:
		return toBigInt(v)
	case KindBigDecimal:
		return toDecimal(v)
	}
	return nil, fmt.Errorf("unsupported numeric target %s", target)
}

func toInt64(v Value) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case Char:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case *big.Int:
		return x.Int64(), nil
	case *apd.Decimal:
		b, err := toBigInt(x)
		if err != nil {
			return 0, err
		}
		return b.Int64(), nil
	}
	return 0, fmt.Errorf("not a number: %s", ClassOf(v))
}

func toFloat64(v Value) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case *apd.Decimal:
		return x.Float64()
	}
	i, err := toInt64(v)
	return float64(i), err
}

// toBigInt converts through the decimal text of v.
func toBigInt(v Value) (*big.Int, error) {
	var text string
	switch x := v.(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case float32, float64:
		f, _ := toFloat64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("cannot convert %v to BigInteger", f)
		}
		text = strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
	case *apd.Decimal:
		var integral apd.Decimal
		ctx := *decimalCtx
		ctx.Rounding = apd.RoundDown
		if _, err := ctx.RoundToIntegralValue(&integral, x); err != nil {
			return nil, err
		}
		text = integral.Text('f')
	default:
		i, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		text = strconv.FormatInt(i, 10)
	}
	b, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("cannot parse %q as BigInteger", text)
	}
	return b, nil
}

// toDecimal builds floating sources from their double value and integral
// sources exactly.
func toDecimal(v Value) (*apd.Decimal, error) {
	switch x := v.(type) {
	case *apd.Decimal:
		return new(apd.Decimal).Set(x), nil
	case float32, float64:
		f, _ := toFloat64(x)
		return new(apd.Decimal).SetFloat64(f)
	case *big.Int:
		d, _, err := apd.NewFromString(x.String())
		return d, err
	}
	i, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	return apd.New(i, 0), nil
}

// ---------------------------------------------------------------------------
// Arithmetic with promotion
// ---------------------------------------------------------------------------

// Op is a binary arithmetic operator.
type Op uint8

const (
	OpPlus Op = iota
	OpMinus
	OpMultiply
	OpDiv
)

// Arith applies op to two numbers in their promoted kind.
func Arith(op Op, a, b Value) (Value, error) {
	ka, kb := ClassOf(a).Numeric(), ClassOf(b).Numeric()
	if ka == NotNumeric || kb == NotNumeric {
		return nil, fmt.Errorf("arithmetic on non-numeric operands %s, %s", ClassOf(a), ClassOf(b))
	}
	kind := Promote(ka, kb)
	if op == OpDiv && kind.Category() != CategoryDecimal {
		kind = KindBigDecimal
	}
	switch kind {
	case KindInt, KindLong:
		x, _ := toInt64(a)
		y, _ := toInt64(b)
		var r int64
		switch op {
		case OpPlus:
			r = x + y
		case OpMinus:
			r = x - y
		case OpMultiply:
			r = x * y
		}
		if kind == KindInt {
			return int(int32(r)), nil
		}
		return r, nil
	case KindBigInteger:
		x, err := toBigInt(a)
		if err != nil {
			return nil, err
		}
		y, err := toBigInt(b)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpPlus:
			return x.Add(x, y), nil
		case OpMinus:
			return x.Sub(x, y), nil
		default:
			return x.Mul(x, y), nil
		}
	case KindDouble:
		x, _ := toFloat64(a)
		y, _ := toFloat64(b)
		switch op {
		case OpPlus:
			return x + y, nil
		case OpMinus:
			return x - y, nil
		case OpMultiply:
			return x * y, nil
		default:
			return x / y, nil
		}
	}

	x, err := toDecimal(a)
	if err != nil {
		return nil, err
	}
	y, err := toDecimal(b)
	if err != nil {
		return nil, err
	}
	r := new(apd.Decimal)
	switch op {
	case OpPlus:
		_, err = decimalCtx.Add(r, x, y)
	case OpMinus:
		_, err = decimalCtx.Sub(r, x, y)
	case OpMultiply:
		_, err = decimalCtx.Mul(r, x, y)
	default:
		_, err = decimalCtx.Quo(r, x, y)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Compare orders two numbers after promotion: -1, 0 or 1.
func Compare(a, b Value) (int, error) {
	ka, kb := ClassOf(a).Numeric(), ClassOf(b).Numeric()
	if ka == NotNumeric || kb == NotNumeric {
		return 0, fmt.Errorf("cannot compare %s with %s", ClassOf(a), ClassOf(b))
	}
	switch Promote(ka, kb) {
	case KindInt, KindLong:
		x, _ := toInt64(a)
		y, _ := toInt64(b)
		return cmpOrdered(x, y), nil
	case KindDouble:
		x, _ := toFloat64(a)
		y, _ := toFloat64(b)
		return cmpOrdered(x, y), nil
	case KindBigInteger:
		x, err := toBigInt(a)
		if err != nil {
			return 0, err
		}
		y, err := toBigInt(b)
		if err != nil {
			return 0, err
		}
		return x.Cmp(y), nil
	}
	x, err := toDecimal(a)
	if err != nil {
		return 0, err
	}
	y, err := toDecimal(b)
	if err != nil {
		return 0, err
	}
	return x.Cmp(y), nil
}

func cmpOrdered[T int64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
