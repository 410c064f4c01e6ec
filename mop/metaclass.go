package mop

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MetaKind distinguishes the Dispatchable variants.
type MetaKind uint8

const (
	KindReflective   MetaKind = iota // ordinary class: declared and inherited methods
	KindHelper                       // synthetic trait helper: static native helpers
	KindIntercepting                 // every call routes through invokeMethod
	KindNull                         // the null receiver
)

func (k MetaKind) String() string {
	switch k {
	case KindReflective:
		return "reflective"
	case KindHelper:
		return "helper"
	case KindIntercepting:
		return "intercepting"
	case KindNull:
		return "null"
	}
	return "unknown"
}

// InvokeMethodName is the entry point intercepting classes declare.
const InvokeMethodName = "invokeMethod"

// MethodMissingName is consulted by the generic invocation path.
const MethodMissingName = "methodMissing"

// Dispatchable is the capability the method selector and the call-site binder
// work against. It never exposes host reflection.
type Dispatchable interface {
	Class() *Class
	Kind() MetaKind
	// Methods returns declared and inherited methods named name, subclass
	// declarations first, with overridden signatures removed.
	Methods(name string) []*Method
	// MethodNames lists every invocable method name, sorted.
	MethodNames() []string
	// Property resolves the accessors and field backing a property, or nil.
	Property(name string) *Property
}

// Property describes how a named property is read and written.
type Property struct {
	Name   string
	Getter *Method
	Setter *Method
	Field  *Field
}

// ReadOnly reports whether the property can be read but not written.
func (p *Property) ReadOnly() bool {
	if p.Setter != nil {
		return false
	}
	if p.Field != nil {
		return p.Field.Modifiers.Has(ModFinal)
	}
	return p.Getter != nil
}

// MetaClass is the registry's per-class meta-object. Instances are immutable;
// redefinition publishes a new MetaClass.
type MetaClass struct {
	class   *Class
	kind    MetaKind
	methods map[string][]*Method // declared on class only
	reg     *Registry
}

func newMetaClass(reg *Registry, class *Class, methods []*Method) *MetaClass {
	m := &MetaClass{
		class:   class,
		kind:    kindFor(class),
		methods: make(map[string][]*Method),
		reg:     reg,
	}
	for _, meth := range methods {
		meth.stamp()
		m.methods[meth.Name] = append(m.methods[meth.Name], meth)
	}
	return m
}

func kindFor(c *Class) MetaKind {
	switch {
	case c == NullClass:
		return KindNull
	case c.Modifiers.Has(ModSynthetic):
		return KindHelper
	case c.Implements(InterceptableClass):
		return KindIntercepting
	}
	return KindReflective
}

// Class returns the class this meta-object describes.
func (m *MetaClass) Class() *Class { return m.class }

// Kind returns the dispatch variant.
func (m *MetaClass) Kind() MetaKind { return m.kind }

// Declared returns the methods declared directly on the class.
func (m *MetaClass) Declared() []*Method {
	var out []*Method
	for _, ms := range m.methods {
		out = append(out, ms...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// Methods returns declared and inherited methods named name.
func (m *MetaClass) Methods(name string) []*Method {
	var out []*Method
	seen := make(map[string]bool)
	for meta := m; meta != nil; meta = meta.parent() {
		for _, meth := range meta.methods[name] {
			// Constructors are not inherited.
			if name == ConstructorName && meta != m {
				continue
			}
			sig := meth.Signature()
			if seen[sig] {
				continue
			}
			seen[sig] = true
			out = append(out, meth)
		}
	}
	return out
}

// MethodNames lists every method name reachable through the class chain.
func (m *MetaClass) MethodNames() []string {
	set := make(map[string]bool)
	for meta := m; meta != nil; meta = meta.parent() {
		for name := range meta.methods {
			if name == ConstructorName && meta != m {
				continue
			}
			set[name] = true
		}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// parent returns the superclass meta-object from the current registry snapshot.
func (m *MetaClass) parent() *MetaClass {
	if m.class.Superclass == nil || m.reg == nil {
		return nil
	}
	return m.reg.MetaFor(m.class.Superclass)
}

// Property resolves getter (getX, then isX), setter (setX) and field for name.
func (m *MetaClass) Property(name string) *Property {
	if name == "" {
		return nil
	}
	p := &Property{Name: name}
	suffix := capitalize(name)
	for _, g := range m.Methods("get" + suffix) {
		if g.Arity() == 0 && !g.IsStatic() {
			p.Getter = g
			break
		}
	}
	if p.Getter == nil {
		for _, g := range m.Methods("is" + suffix) {
			if g.Arity() == 0 && !g.IsStatic() && g.Return.Wrapper() == BooleanClass {
				p.Getter = g
				break
			}
		}
	}
	for _, s := range m.Methods("set" + suffix) {
		if s.Arity() == 1 && !s.IsStatic() {
			p.Setter = s
			break
		}
	}
	p.Field = m.class.Field(name)
	if p.Getter == nil && p.Setter == nil && p.Field == nil {
		return nil
	}
	return p
}

// AccessorName returns the accessor method name for property, e.g.
// AccessorName("get", "name") is "getName".
func AccessorName(prefix, property string) string {
	return prefix + capitalize(property)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// withMethods returns a copy of m with extra methods declared, replacing any
// existing declaration with the same signature.
func (m *MetaClass) withMethods(extra []*Method) *MetaClass {
	replaced := make(map[string]bool, len(extra))
	for _, meth := range extra {
		replaced[meth.Signature()] = true
	}
	var all []*Method
	for _, ms := range m.methods {
		for _, meth := range ms {
			if !replaced[meth.Signature()] {
				all = append(all, meth)
			}
		}
	}
	all = append(all, extra...)
	sort.SliceStable(all, func(i, j int) bool {
		// unstamped methods sort after stamped ones, in given order
		oi, oj := all[i].order, all[j].order
		if oi == 0 || oj == 0 {
			return oi != 0 && oj == 0
		}
		return oi < oj
	})
	return newMetaClass(m.reg, m.class, all)
}

// describe renders a short summary used in logs.
func (m *MetaClass) describe() string {
	var sb strings.Builder
	sb.WriteString(m.class.Name)
	sb.WriteString(" (")
	sb.WriteString(m.kind.String())
	sb.WriteString(")")
	return sb.String()
}
