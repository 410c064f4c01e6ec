package indy

import (
	"errors"
	"fmt"

	"github.com/chazu/dynlink/mop"
)

// errStaleBinding is returned by an invoke chain whose deferred argument
// check failed; the site discards the binding and rebinds.
var errStaleBinding = errors.New("stale binding")

// argPlan turns the raw call arguments into the argument list the selected
// method receives: Argument unwrap, coercion, then arity correction.
type argPlan struct {
	matches    []mop.ParamMatch
	final      []*mop.Class // class checked in the chain instead of a guard; such slots were bound without a static type
	varargFrom int
	component  *mop.Class
	fill       []mop.Value
}

func newArgPlan(sel *mop.Selection, shape *mop.CallShape) *argPlan {
	p := &argPlan{
		matches:    sel.Args,
		final:      make([]*mop.Class, len(shape.Args)),
		varargFrom: sel.VarargFrom,
		fill:       sel.Fill,
	}
	for i, pm := range sel.Args {
		if pm.Final {
			p.final[i] = shape.ArgClasses[i]
		}
	}
	if p.varargFrom >= 0 {
		params := sel.Method.Params
		p.component = params[len(params)-1].Type.Component
	}
	return p
}

// identity reports whether the plan passes arguments through untouched.
func (p *argPlan) identity() bool {
	if p.varargFrom >= 0 || len(p.fill) > 0 {
		return false
	}
	for i, pm := range p.matches {
		if pm.Coerce != mop.CoerceNone || p.final[i] != nil {
			return false
		}
	}
	return true
}

func (p *argPlan) apply(shape *mop.CallShape) ([]mop.Value, error) {
	out := make([]mop.Value, 0, len(shape.Args)+len(p.fill))
	for i, a := range shape.Args {
		v := a.Value
		if c := p.final[i]; c != nil && (a.Static != nil || mop.ClassOf(v) != c) {
			return nil, errStaleBinding
		}
		v, err := coerce(p.matches[i], v)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if p.varargFrom >= 0 {
		items := make([]mop.Value, len(out)-p.varargFrom)
		copy(items, out[p.varargFrom:])
		out = append(out[:p.varargFrom], mop.NewArray(p.component, items...))
	}
	return append(out, p.fill...), nil
}

// coerce converts one argument according to its match.
func coerce(pm mop.ParamMatch, v mop.Value) (mop.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch pm.Coerce {
	case mop.CoerceToString:
		return mop.Format(v), nil
	case mop.CoerceNumber:
		return mop.Convert(v, pm.Target)
	case mop.CoerceArray:
		return reshape(pm.Target, v)
	}
	return v, nil
}

// reshape copies a List or array into a new array of class arrayClass,
// converting numeric and text elements to the component type.
func reshape(arrayClass *mop.Class, v mop.Value) (*mop.Array, error) {
	var items []mop.Value
	switch x := v.(type) {
	case []mop.Value:
		items = x
	case *mop.Array:
		items = x.Items
	default:
		return nil, fmt.Errorf("cannot reshape %s to %s", mop.ClassOf(v), arrayClass)
	}
	component := arrayClass.Component
	out := make([]mop.Value, len(items))
	for i, it := range items {
		converted, err := convertTo(component, it)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return &mop.Array{Class: arrayClass, Items: out}, nil
}

// convertTo adapts v to a slot of class target where a conversion exists:
// numbers are widened or narrowed and text becomes String. Other values pass
// through unchanged.
func convertTo(target *mop.Class, v mop.Value) (mop.Value, error) {
	if v == nil {
		return nil, nil
	}
	c := mop.ClassOf(v)
	switch {
	case target.Numeric() != mop.NotNumeric && c.Numeric() != mop.NotNumeric && c != target.Wrapper():
		return mop.Convert(v, target)
	case target == mop.StringClass && c != mop.StringClass && c.Implements(mop.CharSequenceClass):
		return mop.Format(v), nil
	}
	return v, nil
}

// unwrapInvocation strips the uniform wrapper reflective bodies report
// failures through.
func unwrapInvocation(err error) error {
	if ie, ok := err.(*mop.InvocationError); ok {
		return ie.Err
	}
	return err
}
