package mop

// ---------------------------------------------------------------------------
// Method selection
// ---------------------------------------------------------------------------

// Tier ranks how an argument list reaches a method. Lower is better.
type Tier uint8

const (
	TierExact      Tier = iota // every argument matches its parameter type exactly
	TierAssignable             // assignable without conversion
	TierWidening               // numeric widening or array reshaping needed
	TierVararg                 // trailing arguments collapsed into the vararg array
	TierDefault                // missing trailing parameters filled
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierAssignable:
		return "assignable"
	case TierWidening:
		return "widening"
	case TierVararg:
		return "vararg"
	case TierDefault:
		return "default"
	}
	return "unknown"
}

// Coercion is the conversion an argument needs before invocation.
type Coercion uint8

const (
	CoerceNone     Coercion = iota
	CoerceToString          // text-like value to String
	CoerceNumber            // numeric widening, see Convert
	CoerceArray             // List or array reshaped to the parameter's array type
)

// ParamMatch records how one call argument matched its target parameter.
type ParamMatch struct {
	Target   *Class // parameter type, or the component type for vararg elements
	Tier     Tier
	Distance int
	Coerce   Coercion
	// Final is set when the argument's class is final and identical to the
	// parameter type; its runtime class cannot change without failing the
	// parameter check, so no class guard is needed.
	Final bool
}

// Selection is the outcome of choosing a method for a call shape.
type Selection struct {
	Method    *Method
	Tier      Tier
	Distance  int
	Args      []ParamMatch // one per call argument
	Intercept bool         // Method is the receiver's invokeMethod entry point

	// VarargFrom is the index of the first argument collapsed into the
	// vararg array, or -1.
	VarargFrom int
	// Fill holds values appended for missing trailing parameters.
	Fill []Value
}

// Coerced reports whether any argument needs conversion.
func (s *Selection) Coerced() bool {
	for _, a := range s.Args {
		if a.Coerce != CoerceNone {
			return true
		}
	}
	return false
}

// Selector picks the single best method for a call shape.
type Selector interface {
	Select(th *Thread, meta Dispatchable, shape *CallShape) (*Selection, error)
}

// DefaultSelector implements the tiered overload resolution:
// exact < assignable < widening < vararg collapse < default filling, with
// ties broken by fewer filled parameters, category methods, the most
// specific declaring class, and registration order.
type DefaultSelector struct{}

var _ Selector = DefaultSelector{}

// Select returns the best candidate or ErrNoMatch.
func (DefaultSelector) Select(th *Thread, meta Dispatchable, shape *CallShape) (*Selection, error) {
	if meta.Kind() == KindIntercepting && shape.Name != InvokeMethodName && !shape.Static {
		if m := Interceptor(meta); m != nil {
			return &Selection{Method: m, Intercept: true, VarargFrom: -1}, nil
		}
	}

	var best *Selection
	for _, m := range Candidates(th, meta, shape) {
		sel, ok := evaluate(m, shape)
		if !ok {
			continue
		}
		if best == nil || better(sel, best) {
			best = sel
		}
	}
	if best == nil {
		return nil, ErrNoMatch
	}
	return best, nil
}

// Interceptor returns the invokeMethod(String, Object) entry point of meta.
func Interceptor(meta Dispatchable) *Method {
	for _, m := range meta.Methods(InvokeMethodName) {
		if m.Arity() == 2 && !m.IsStatic() && !m.IsAbstract() {
			return m
		}
	}
	return nil
}

// Candidates lists the methods named shape.Name that are callable for the
// receiver: active category methods first, then declared and inherited ones.
func Candidates(th *Thread, meta Dispatchable, shape *CallShape) []*Method {
	var all []*Method
	if th != nil && !shape.Static {
		all = append(all, th.CategoryMethods(shape.ReceiverClass, shape.Name)...)
	}
	all = append(all, meta.Methods(shape.Name)...)

	out := all[:0]
	for _, m := range all {
		if compatible(m, shape) {
			out = append(out, m)
		}
	}
	return out
}

func compatible(m *Method, shape *CallShape) bool {
	if m.IsAbstract() {
		return false
	}
	if shape.Static && !m.IsStatic() {
		return false
	}
	if m.IsPrivate() && !(shape.Flags.Has(FlagThisCall) && shape.Sender == m.Declaring) {
		return false
	}
	return true
}

// evaluate scores m against shape; ok is false when m cannot accept it.
func evaluate(m *Method, shape *CallShape) (*Selection, bool) {
	n, p := len(shape.Args), len(m.Params)
	if m.Vararg && p > 0 {
		if n == p {
			if sel, ok := evaluateFixed(m, shape); ok {
				return sel, true
			}
		}
		if n >= p-1 {
			return evaluateVararg(m, shape)
		}
		return nil, false
	}
	switch {
	case n == p:
		return evaluateFixed(m, shape)
	case n < p:
		return evaluateDefaults(m, shape)
	}
	return nil, false
}

func newSelection(m *Method, n int) *Selection {
	return &Selection{Method: m, Args: make([]ParamMatch, n), VarargFrom: -1}
}

func (s *Selection) add(i int, pm ParamMatch) {
	s.Args[i] = pm
	s.Distance += pm.Distance
	if pm.Tier > s.Tier {
		s.Tier = pm.Tier
	}
}

func evaluateFixed(m *Method, shape *CallShape) (*Selection, bool) {
	sel := newSelection(m, len(shape.Args))
	for i, a := range shape.Args {
		pm, ok := matchArg(m.Params[i].Type, a)
		if !ok {
			return nil, false
		}
		sel.add(i, pm)
	}
	return sel, true
}

func evaluateVararg(m *Method, shape *CallShape) (*Selection, bool) {
	p := len(m.Params)
	sel := newSelection(m, len(shape.Args))
	for i := 0; i < p-1; i++ {
		pm, ok := matchArg(m.Params[i].Type, shape.Args[i])
		if !ok {
			return nil, false
		}
		sel.add(i, pm)
	}
	component := m.Params[p-1].Type.Component
	if component == nil {
		return nil, false
	}
	for i := p - 1; i < len(shape.Args); i++ {
		pm, ok := matchArg(component, shape.Args[i])
		if !ok {
			return nil, false
		}
		pm.Final = false
		sel.add(i, pm)
	}
	sel.VarargFrom = p - 1
	if sel.Tier < TierVararg {
		sel.Tier = TierVararg
	}
	return sel, true
}

func evaluateDefaults(m *Method, shape *CallShape) (*Selection, bool) {
	n, p := len(shape.Args), len(m.Params)
	sel := newSelection(m, n)
	for i, a := range shape.Args {
		pm, ok := matchArg(m.Params[i].Type, a)
		if !ok {
			return nil, false
		}
		sel.add(i, pm)
	}
	// A lone reference parameter tolerates a missing argument as null.
	if p == 1 && n == 0 && !m.Params[0].HasDefault {
		if m.Params[0].Type.IsPrimitive() {
			return nil, false
		}
		sel.Fill = []Value{nil}
		sel.Tier = TierDefault
		return sel, true
	}
	for i := n; i < p; i++ {
		if !m.Params[i].HasDefault {
			return nil, false
		}
		sel.Fill = append(sel.Fill, m.Params[i].Default)
	}
	sel.Tier = TierDefault
	return sel, true
}

// matchArg checks one argument against a parameter type.
func matchArg(param *Class, arg Argument) (ParamMatch, bool) {
	pm := ParamMatch{Target: param}
	c := arg.SelectionClass()
	if c == nil {
		if param.IsPrimitive() {
			return pm, false
		}
		pm.Tier = TierAssignable
		if param == ObjectClass {
			pm.Distance = 1
		}
		return pm, true
	}

	if c == param || (param.IsPrimitive() && param.Wrapper() == c) || (c.IsPrimitive() && c.Wrapper() == param) {
		pm.Tier = TierExact
		pm.Final = arg.Static == nil && c.IsFinal()
		return pm, true
	}
	if c.IsPrimitive() {
		c = c.Wrapper()
	}

	if param == StringClass && c.Implements(CharSequenceClass) {
		pm.Tier = TierAssignable
		pm.Coerce = CoerceToString
		return pm, true
	}

	if pk := param.Numeric(); pk != NotNumeric && c.Numeric() != NotNumeric {
		if d, ok := Widen(c.Numeric(), pk); ok {
			pm.Tier = TierWidening
			pm.Distance = d
			pm.Coerce = CoerceNumber
			return pm, true
		}
		return pm, false
	}

	if d := param.Distance(c); d >= 0 {
		pm.Tier = TierAssignable
		pm.Distance = d
		return pm, true
	}

	if param.IsArray() && reshapeable(param.Component, arg.Value) {
		pm.Tier = TierWidening
		pm.Distance = 1
		pm.Coerce = CoerceArray
		return pm, true
	}
	return pm, false
}

func reshapeable(component *Class, v Value) bool {
	var items []Value
	switch x := v.(type) {
	case []Value:
		items = x
	case *Array:
		items = x.Items
	default:
		return false
	}
	for _, it := range items {
		pm, ok := matchArg(component, Argument{Value: it})
		if !ok || pm.Coerce == CoerceArray {
			return false
		}
	}
	return true
}

// better reports whether a should be chosen over b.
func better(a, b *Selection) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if len(a.Fill) != len(b.Fill) {
		return len(a.Fill) < len(b.Fill)
	}
	ac, bc := a.Method.category != nil, b.Method.category != nil
	if ac != bc {
		return ac
	}
	ad, bd := declaringDepth(a.Method), declaringDepth(b.Method)
	if ad != bd {
		return ad > bd
	}
	return a.Method.order < b.Method.order
}

func declaringDepth(m *Method) int {
	if m.Declaring == nil {
		return 0
	}
	return m.Declaring.Depth()
}
