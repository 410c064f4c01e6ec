package mop

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"
)

// InstallDefaults registers the built-in methods every runtime starts with:
// arithmetic and comparison on Number, identity and formatting on Object and
// the null receiver, and the basic String and Class operations.
func InstallDefaults(reg *Registry) {
	num := NumberClass
	arith := func(op Op) Func {
		return func(_ *Thread, receiver Value, args []Value) (Value, error) {
			return Arith(op, receiver, args[0])
		}
	}
	numeric := func(name string, impl Func, params ...*Class) *Method {
		m := NewMethod(num, name, impl, params...)
		m.Strategy = StrategyNativeHelper
		m.Return = num
		return m
	}

	reg.AddMethods(num,
		numeric("plus", arith(OpPlus), num),
		numeric("minus", arith(OpMinus), num),
		numeric("multiply", arith(OpMultiply), num),
		numeric("div", arith(OpDiv), num),
		numeric("compareTo", func(_ *Thread, receiver Value, args []Value) (Value, error) {
			return Compare(receiver, args[0])
		}, num),
		numeric("intValue", convertTo(IntType)),
		numeric("longValue", convertTo(LongType)),
		numeric("doubleValue", convertTo(DoubleType)),
	)

	reg.AddMethods(ObjectClass,
		helper(ObjectClass, "toString", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return Format(receiver), nil
		}),
		helper(ObjectClass, "equals", func(_ *Thread, receiver Value, args []Value) (Value, error) {
			return Equal(receiver, args[0]), nil
		}, ObjectClass),
		helper(ObjectClass, "hashCode", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return hashOf(receiver), nil
		}),
		helper(ObjectClass, "getClass", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return ClassOf(receiver), nil
		}),
	)

	reg.AddMethods(NullClass,
		helper(NullClass, "toString", func(*Thread, Value, []Value) (Value, error) {
			return "null", nil
		}),
		helper(NullClass, "equals", func(_ *Thread, _ Value, args []Value) (Value, error) {
			return args[0] == nil, nil
		}, ObjectClass),
	)

	reg.AddMethods(ClassClass,
		helper(ClassClass, "getName", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return receiver.(*Class).Name, nil
		}),
	)

	reg.AddMethods(StringClass,
		helper(StringClass, "length", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return len([]rune(receiver.(string))), nil
		}),
		helper(StringClass, "plus", func(_ *Thread, receiver Value, args []Value) (Value, error) {
			return receiver.(string) + Format(args[0]), nil
		}, ObjectClass),
		helper(StringClass, "toUpperCase", func(_ *Thread, receiver Value, _ []Value) (Value, error) {
			return strings.ToUpper(receiver.(string)), nil
		}),
		helper(StringClass, "contains", func(_ *Thread, receiver Value, args []Value) (Value, error) {
			return strings.Contains(receiver.(string), Format(args[0])), nil
		}, CharSequenceClass),
	)
}

func helper(declaring *Class, name string, impl Func, params ...*Class) *Method {
	m := NewMethod(declaring, name, impl, params...)
	m.Strategy = StrategyNativeHelper
	return m
}

func convertTo(target *Class) Func {
	return func(_ *Thread, receiver Value, _ []Value) (Value, error) {
		return Convert(receiver, target)
	}
}

// Equal implements value equality: numbers compare after promotion, text
// compares by content, everything else by identity or Go equality.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNumber(a) && IsNumber(b) {
		c, err := Compare(a, b)
		return err == nil && c == 0
	}
	if isText(a) && isText(b) {
		return Format(a) == Format(b)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func isText(v Value) bool {
	switch v.(type) {
	case string, GString:
		return true
	}
	return false
}

func hashOf(v Value) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%T:%s", v, Format(v))
	return int(int32(h.Sum32()))
}
