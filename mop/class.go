package mop

import "sync"

// ---------------------------------------------------------------------------
// Class: runtime type identity
// ---------------------------------------------------------------------------

// Modifiers describes declaration flags shared by classes, methods and fields.
type Modifiers uint16

const (
	ModStatic Modifiers = 1 << iota
	ModFinal
	ModAbstract
	ModPrivate
	ModProtected
	ModInterface
	ModSynthetic
)

// Has reports whether all bits in flag are set.
func (m Modifiers) Has(flag Modifiers) bool { return m&flag == flag }

// Field is a declared instance field of a class.
type Field struct {
	Name      string
	Type      *Class
	Modifiers Modifiers
}

// Class represents a runtime class of the hosted language.
//
// Classes are identities: two *Class values describe the same type only if
// they are the same pointer. Behavior (methods, properties) is not stored on
// the class; it lives in the MetaClass the Registry holds for it.
type Class struct {
	Name       string
	Superclass *Class   // nil for Object, interfaces and primitives
	Interfaces []*Class // directly implemented interfaces
	Modifiers  Modifiers
	Fields     []Field
	Component  *Class // element class for array classes

	primitive bool
	boxed     *Class // primitive -> wrapper
	unboxed   *Class // wrapper -> primitive
	numeric   NumericKind
	depth     int
}

// NewClass creates a class extending super. A nil super means Object.
func NewClass(name string, super *Class, ifaces ...*Class) *Class {
	if super == nil {
		super = ObjectClass
	}
	return &Class{
		Name:       name,
		Superclass: super,
		Interfaces: ifaces,
		depth:      super.depth + 1,
	}
}

// NewInterface creates an interface class extending the given interfaces.
func NewInterface(name string, ifaces ...*Class) *Class {
	return &Class{
		Name:       name,
		Interfaces: ifaces,
		Modifiers:  ModInterface | ModAbstract,
		depth:      1,
	}
}

func newPrimitive(name string, kind NumericKind) *Class {
	return &Class{Name: name, Modifiers: ModFinal, primitive: true, numeric: kind}
}

func newWrapper(name string, super *Class, kind NumericKind, ifaces ...*Class) *Class {
	c := NewClass(name, super, ifaces...)
	c.Modifiers = ModFinal
	c.numeric = kind
	return c
}

// IsPrimitive reports whether c is a primitive (unboxed) type.
func (c *Class) IsPrimitive() bool { return c.primitive }

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() bool { return c.Modifiers.Has(ModInterface) }

// IsFinal reports whether c cannot be subclassed.
func (c *Class) IsFinal() bool { return c.Modifiers.Has(ModFinal) }

// IsAbstract reports whether c cannot be instantiated.
func (c *Class) IsAbstract() bool { return c.Modifiers.Has(ModAbstract) }

// IsArray reports whether c is an array class.
func (c *Class) IsArray() bool { return c.Component != nil }

// Wrapper returns the wrapper class of a primitive, or c itself.
func (c *Class) Wrapper() *Class {
	if c.boxed != nil {
		return c.boxed
	}
	return c
}

// Unboxed returns the primitive of a wrapper class, or nil.
func (c *Class) Unboxed() *Class { return c.unboxed }

// Numeric returns the numeric kind of c (NotNumeric for non-numbers).
func (c *Class) Numeric() NumericKind { return c.numeric }

// Depth returns the number of superclass hops from Object.
func (c *Class) Depth() int { return c.depth }

func (c *Class) String() string {
	if c == nil {
		return "null"
	}
	return c.Name
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// IsAssignableFrom reports whether a value of class from can be stored in a
// slot of type c without conversion.
func (c *Class) IsAssignableFrom(from *Class) bool {
	return c.Distance(from) >= 0
}

// Distance returns the number of supertype hops from `from` to c, or -1 if
// from is not assignable to c. Primitives are only assignable to themselves.
func (c *Class) Distance(from *Class) int {
	if c == nil || from == nil {
		return -1
	}
	if c == from {
		return 0
	}
	if c.primitive || from.primitive {
		return -1
	}
	if c == ObjectClass {
		return from.depth
	}
	if c.IsArray() {
		if !from.IsArray() || c.Component.primitive || from.Component.primitive {
			return -1
		}
		return c.Component.Distance(from.Component)
	}

	type hop struct {
		class *Class
		dist  int
	}
	queue := []hop{{from, 0}}
	seen := map[*Class]bool{from: true}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h.class == c {
			return h.dist
		}
		next := h.class.Interfaces
		if h.class.Superclass != nil {
			next = append([]*Class{h.class.Superclass}, next...)
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, hop{n, h.dist + 1})
			}
		}
	}
	return -1
}

// Field returns the named field declared by c or a superclass.
func (c *Class) Field(name string) *Field {
	for current := c; current != nil; current = current.Superclass {
		for i := range current.Fields {
			if current.Fields[i].Name == name {
				return &current.Fields[i]
			}
		}
	}
	return nil
}

// Implements reports whether c implements iface directly or through a supertype.
func (c *Class) Implements(iface *Class) bool {
	return iface.IsInterface() && iface.Distance(c) >= 0
}

// ---------------------------------------------------------------------------
// Array classes
// ---------------------------------------------------------------------------

var arrayClasses sync.Map // *Class -> *Class

// ArrayOf returns the interned array class with the given component class.
func ArrayOf(component *Class) *Class {
	if c, ok := arrayClasses.Load(component); ok {
		return c.(*Class)
	}
	c := &Class{
		Name:       component.Name + "[]",
		Superclass: ObjectClass,
		Modifiers:  ModFinal,
		Component:  component,
		depth:      1,
	}
	actual, _ := arrayClasses.LoadOrStore(component, c)
	return actual.(*Class)
}

// ---------------------------------------------------------------------------
// Built-in classes
// ---------------------------------------------------------------------------

var (
	ObjectClass = &Class{Name: "Object"}

	ComparableClass    = NewInterface("Comparable")
	CharSequenceClass  = NewInterface("CharSequence")
	InterceptableClass = NewInterface("Interceptable")

	NumberClass = &Class{
		Name:       "Number",
		Superclass: ObjectClass,
		Interfaces: []*Class{ComparableClass},
		Modifiers:  ModAbstract,
		depth:      1,
	}

	IntegerClass   = newWrapper("Integer", NumberClass, KindInt)
	LongClass      = newWrapper("Long", NumberClass, KindLong)
	ShortClass     = newWrapper("Short", NumberClass, KindShort)
	ByteClass      = newWrapper("Byte", NumberClass, KindByte)
	FloatClass     = newWrapper("Float", NumberClass, KindFloat)
	DoubleClass    = newWrapper("Double", NumberClass, KindDouble)
	CharacterClass = newWrapper("Character", ObjectClass, KindChar, ComparableClass)
	BooleanClass   = newWrapper("Boolean", ObjectClass, NotNumeric, ComparableClass)

	BigIntegerClass = &Class{Name: "BigInteger", Superclass: NumberClass, numeric: KindBigInteger, depth: 2}
	BigDecimalClass = &Class{Name: "BigDecimal", Superclass: NumberClass, numeric: KindBigDecimal, depth: 2}

	StringClass  = newWrapper("String", ObjectClass, NotNumeric, CharSequenceClass, ComparableClass)
	GStringClass = &Class{
		Name:       "GString",
		Superclass: ObjectClass,
		Interfaces: []*Class{CharSequenceClass, ComparableClass},
		depth:      1,
	}

	ClassClass   = NewClass("Class", nil)
	ClosureClass = NewClass("Closure", nil)
	ListClass    = NewClass("List", nil)
	MapClass     = NewClass("Map", nil)

	// NullClass is the runtime class of the null value.
	NullClass = &Class{Name: "NullObject", Superclass: ObjectClass, Modifiers: ModFinal, depth: 1}

	IntType     = newPrimitive("int", KindInt)
	LongType    = newPrimitive("long", KindLong)
	ShortType   = newPrimitive("short", KindShort)
	ByteType    = newPrimitive("byte", KindByte)
	CharType    = newPrimitive("char", KindChar)
	FloatType   = newPrimitive("float", KindFloat)
	DoubleType  = newPrimitive("double", KindDouble)
	BooleanType = newPrimitive("boolean", NotNumeric)
)

func init() {
	pairs := [][2]*Class{
		{IntType, IntegerClass},
		{LongType, LongClass},
		{ShortType, ShortClass},
		{ByteType, ByteClass},
		{CharType, CharacterClass},
		{FloatType, FloatClass},
		{DoubleType, DoubleClass},
		{BooleanType, BooleanClass},
	}
	for _, p := range pairs {
		p[0].boxed = p[1]
		p[1].unboxed = p[0]
	}
	// String is final but not a wrapper; newWrapper only set the flags.
	StringClass.numeric = NotNumeric
}

// BuiltinClasses returns the classes the runtime defines at startup.
func BuiltinClasses() []*Class {
	return []*Class{
		ObjectClass, ComparableClass, CharSequenceClass, InterceptableClass,
		NumberClass, IntegerClass, LongClass, ShortClass, ByteClass,
		FloatClass, DoubleClass, CharacterClass, BooleanClass,
		BigIntegerClass, BigDecimalClass, StringClass, GStringClass,
		ClassClass, ClosureClass, ListClass, MapClass, NullClass,
	}
}
