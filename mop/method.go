package mop

import (
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
)

// Func is the implementation of a method. For instance methods receiver is
// the target object; for static methods and constructors it is the *Class.
type Func func(th *Thread, receiver Value, args []Value) (Value, error)

// Strategy tags how a method body is invoked.
type Strategy uint8

const (
	// StrategyReflective methods report failures wrapped in InvocationError.
	StrategyReflective Strategy = iota
	// StrategyNativeHelper methods return their errors directly.
	StrategyNativeHelper
	// StrategyConstructor methods create instances; failures are wrapped.
	StrategyConstructor
)

func (s Strategy) String() string {
	switch s {
	case StrategyReflective:
		return "reflective"
	case StrategyNativeHelper:
		return "native-helper"
	case StrategyConstructor:
		return "constructor"
	}
	return "unknown"
}

// ConstructorName is the method name constructors are registered under.
const ConstructorName = "<init>"

// Param is one declared method parameter.
type Param struct {
	Name       string
	Type       *Class
	Default    Value
	HasDefault bool
}

// Method describes one callable unit. A Method is immutable once it has been
// handed to the Registry or a Category.
type Method struct {
	Name      string
	Declaring *Class
	Params    []Param
	Vararg    bool // last parameter is an array collecting trailing arguments
	Return    *Class
	Modifiers Modifiers
	Strategy  Strategy
	Impl      Func

	order    uint64
	category *Category
	selfType *Class
}

var methodOrder atomic.Uint64

// stamp assigns the registration order once.
func (m *Method) stamp() {
	if m.order == 0 {
		m.order = methodOrder.Add(1)
	}
}

// NewMethod creates a reflective instance method taking the given parameter types.
func NewMethod(declaring *Class, name string, impl Func, params ...*Class) *Method {
	m := &Method{
		Name:      name,
		Declaring: declaring,
		Return:    ObjectClass,
		Strategy:  StrategyReflective,
		Impl:      impl,
	}
	for i, p := range params {
		m.Params = append(m.Params, Param{Name: paramName(i), Type: p})
	}
	return m
}

// NewStaticMethod creates a static native-helper method.
func NewStaticMethod(declaring *Class, name string, impl Func, params ...*Class) *Method {
	m := NewMethod(declaring, name, impl, params...)
	m.Modifiers |= ModStatic
	m.Strategy = StrategyNativeHelper
	return m
}

// NewConstructor creates a constructor for declaring.
func NewConstructor(declaring *Class, impl Func, params ...*Class) *Method {
	m := NewMethod(declaring, ConstructorName, impl, params...)
	m.Modifiers |= ModStatic
	m.Strategy = StrategyConstructor
	m.Return = declaring
	return m
}

func paramName(i int) string {
	return "arg" + strconv.Itoa(i)
}

// Arity returns the number of declared parameters.
func (m *Method) Arity() int { return len(m.Params) }

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool { return m.Modifiers.Has(ModStatic) }

// IsPrivate reports whether the method is private.
func (m *Method) IsPrivate() bool { return m.Modifiers.Has(ModPrivate) }

// IsAbstract reports whether the method has no body.
func (m *Method) IsAbstract() bool { return m.Modifiers.Has(ModAbstract) || m.Impl == nil }

// Category returns the category that injected the method, or nil.
func (m *Method) Category() *Category { return m.category }

// Order returns the registration order, 0 if never registered.
func (m *Method) Order() uint64 { return m.order }

// MayWrapErrors reports whether failures arrive wrapped in InvocationError.
func (m *Method) MayWrapErrors() bool { return m.Strategy != StrategyNativeHelper }

// Signature returns the erased signature used for override and conflict checks.
func (m *Method) Signature() string {
	var sb strings.Builder
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Type.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

func (m *Method) String() string {
	if m.Declaring == nil {
		return m.Signature()
	}
	return m.Declaring.Name + "." + m.Signature()
}

// Invoke runs the method body according to its strategy.
func (m *Method) Invoke(th *Thread, receiver Value, args []Value) (Value, error) {
	if m.Impl == nil {
		return nil, &InternalBindingError{Op: "invoke " + m.String(), Err: errors.New("method has no body")}
	}
	result, err := m.Impl(th, receiver, args)
	if err != nil && m.MayWrapErrors() {
		var wrapped *InvocationError
		if !errors.As(err, &wrapped) {
			err = &InvocationError{Err: err}
		}
	}
	return result, err
}
