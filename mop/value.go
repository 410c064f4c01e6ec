package mop

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"
)

// Value is any value of the hosted language.
//
// Go representations:
//
//	nil                 null
//	bool                Boolean
//	int                 Integer
//	int64               Long
//	int16               Short
//	int8                Byte
//	Char                Character
//	float32             Float
//	float64             Double
//	*big.Int            BigInteger
//	*apd.Decimal        BigDecimal
//	string              String
//	GString             GString
//	*Array              T[]
//	*Object             instance of a user class
//	*Class              a class reference (static receiver)
//	Closure             Closure
//	[]Value             List
//	map[string]Value    Map
type Value = any

// Char is a Character value.
type Char rune

// GString is an interpolated string: literal parts interleaved with values.
// len(Strings) == len(Values)+1.
type GString struct {
	Strings []string
	Values  []Value
}

func (g GString) String() string {
	var sb strings.Builder
	for i, s := range g.Strings {
		sb.WriteString(s)
		if i < len(g.Values) {
			sb.WriteString(Format(g.Values[i]))
		}
	}
	return sb.String()
}

// Closure is a callable block of code.
type Closure func(th *Thread, args []Value) (Value, error)

// Array is a typed array value.
type Array struct {
	Class *Class // array class, see ArrayOf
	Items []Value
}

// NewArray creates an array of the given component class.
func NewArray(component *Class, items ...Value) *Array {
	return &Array{Class: ArrayOf(component), Items: items}
}

// Object is an instance of a user-defined class.
type Object struct {
	class  *Class
	mu     sync.RWMutex
	fields map[string]Value
}

// NewObject creates an instance of class with all fields set to null.
func NewObject(class *Class) *Object {
	return &Object{class: class, fields: make(map[string]Value)}
}

// Class returns the runtime class of the object.
func (o *Object) Class() *Class { return o.class }

// Get returns the value of a field.
func (o *Object) Get(name string) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fields[name]
}

// Set stores a field value.
func (o *Object) Set(name string, v Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fields[name] = v
}

// Argument is a call argument with an optional forced static type. A non-nil
// Static makes method selection treat the argument as that type regardless of
// its runtime class; the raw value is what the selected method receives.
type Argument struct {
	Value  Value
	Static *Class
}

// As forces v to be selected as static type c.
func As(v Value, c *Class) Argument {
	return Argument{Value: v, Static: c}
}

// SelectionClass returns the class used for overload selection: the forced
// static type if any, otherwise the runtime class (nil for a null value).
func (a Argument) SelectionClass() *Class {
	if a.Static != nil {
		return a.Static
	}
	if a.Value == nil {
		return nil
	}
	return ClassOf(a.Value)
}

// ClassOf returns the runtime class of a value.
func ClassOf(v Value) *Class {
	switch x := v.(type) {
	case nil:
		return NullClass
	case bool:
		return BooleanClass
	case int:
		return IntegerClass
	case int64:
		return LongClass
	case int16:
		return ShortClass
	case int8:
		return ByteClass
	case Char:
		return CharacterClass
	case float32:
		return FloatClass
	case float64:
		return DoubleClass
	case *big.Int:
		return BigIntegerClass
	case *apd.Decimal:
		return BigDecimalClass
	case string:
		return StringClass
	case GString:
		return GStringClass
	case *Array:
		return x.Class
	case *Object:
		return x.class
	case *Class:
		return ClassClass
	case Closure:
		return ClosureClass
	case []Value:
		return ListClass
	case map[string]Value:
		return MapClass
	default:
		return ObjectClass
	}
}

// Format renders a value the way the language's toString does.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case GString:
		return x.String()
	case Char:
		return string(rune(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case *apd.Decimal:
		return x.String()
	case *Class:
		return "class " + x.Name
	case *Object:
		return fmt.Sprintf("%s@%p", x.class.Name, x)
	case *Array:
		parts := make([]string, len(x.Items))
		for i, it := range x.Items {
			parts[i] = Format(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []Value:
		parts := make([]string, len(x))
		for i, it := range x {
			parts[i] = Format(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
