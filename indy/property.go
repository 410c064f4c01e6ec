package indy

import (
	"errors"

	"github.com/chazu/dynlink/mop"
)

// lengthProperty is the read-only size property of arrays.
const lengthProperty = "length"

// selectAccessor selects prefix+Name (getX, isX, setX) through the method
// selector so overloads and category accessors apply.
func (b *Binder) selectAccessor(th *mop.Thread, meta mop.Dispatchable, shape *mop.CallShape, prefix string) (*mop.Selection, *mop.CallShape, error) {
	acc := *shape
	acc.Name = mop.AccessorName(prefix, shape.Name)
	acc.Static = false
	sel, err := b.Selector.Select(th, meta, &acc)
	if err != nil {
		return nil, &acc, err
	}
	if sel.Intercept || sel.Method.IsStatic() {
		return nil, &acc, mop.ErrNoMatch
	}
	return sel, &acc, nil
}

// ---------------------------------------------------------------------------
// Property reads: getter, field, Map key, array length
// ---------------------------------------------------------------------------

func (b *Binder) bindGetProperty(th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	class := shape.ReceiverClass
	point := b.Registry.SwitchPoint(class)
	meta := b.Registry.MetaFor(class)
	name := shape.Name

	if sel, _, err := b.selectAccessor(th, meta, shape, "get"); err == nil {
		return b.methodBinding(th, shape, class, meta, point, sel), nil
	}
	if sel, _, err := b.selectAccessor(th, meta, shape, "is"); err == nil && sel.Method.Return.Wrapper() == mop.BooleanClass {
		return b.methodBinding(th, shape, class, meta, point, sel), nil
	}

	bd := b.newBinding(th, shape, class, meta, point, nil)
	p := meta.Property(name)
	switch shape.Receiver.(type) {
	case *mop.Object:
		if p != nil && p.Field != nil {
			bd.target = "field " + class.Name + "." + name
			bd.invoke = func(_ *mop.Thread, s *mop.CallShape) (mop.Value, error) {
				return s.Receiver.(*mop.Object).Get(name), nil
			}
			return bd, nil
		}
	case map[string]mop.Value:
		bd.target = "map key " + name
		bd.invoke = func(_ *mop.Thread, s *mop.CallShape) (mop.Value, error) {
			return s.Receiver.(map[string]mop.Value)[name], nil
		}
		return bd, nil
	case *mop.Array:
		if name == lengthProperty {
			bd.target = "array length"
			bd.invoke = func(_ *mop.Thread, s *mop.CallShape) (mop.Value, error) {
				return len(s.Receiver.(*mop.Array).Items), nil
			}
			return bd, nil
		}
	}
	return nil, &mop.MissingPropertyError{Name: name, Type: class}
}

// readProperty reads a property without binding, for the Closure-valued
// property fallback. found is false when no route exists.
func readProperty(th *mop.Thread, recv mop.Value, meta mop.Dispatchable, name string) (mop.Value, bool, error) {
	p := meta.Property(name)
	if p != nil && p.Getter != nil {
		v, err := p.Getter.Invoke(th, recv, nil)
		return v, true, unwrapInvocation(err)
	}
	switch x := recv.(type) {
	case *mop.Object:
		if p != nil && p.Field != nil {
			return x.Get(name), true, nil
		}
	case map[string]mop.Value:
		v, ok := x[name]
		return v, ok, nil
	}
	return nil, false, nil
}

// ---------------------------------------------------------------------------
// Property writes: setter, field, Map key
// ---------------------------------------------------------------------------

func (b *Binder) bindSetProperty(th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	if len(shape.Args) != 1 {
		return nil, &mop.InternalBindingError{Op: "set " + shape.Name, Err: errors.New("property write needs exactly one value")}
	}
	class := shape.ReceiverClass
	point := b.Registry.SwitchPoint(class)
	meta := b.Registry.MetaFor(class)
	name := shape.Name
	p := meta.Property(name)

	sel, acc, err := b.selectAccessor(th, meta, shape, "set")
	if err == nil {
		bd := b.methodBinding(th, shape, class, meta, point, sel)
		setter := bd.invoke
		bd.invoke = func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
			if _, err := setter(th, s); err != nil {
				return nil, err
			}
			return s.Args[0].Value, nil
		}
		return bd, nil
	}
	if p != nil && p.Setter != nil {
		// A setter exists but does not accept the value.
		return nil, mop.NewMissingMethod(meta, acc)
	}

	switch shape.Receiver.(type) {
	case *mop.Object:
		if p != nil && p.Field != nil {
			if p.Field.Modifiers.Has(mop.ModFinal) {
				return nil, &mop.ReadOnlyPropertyError{Name: name, Type: class}
			}
			field := p.Field
			bd := b.newBinding(th, shape, class, meta, point, argGuards(shape, nil))
			bd.target = "field " + class.Name + "." + name
			bd.invoke = func(_ *mop.Thread, s *mop.CallShape) (mop.Value, error) {
				v, err := convertTo(field.Type, s.Args[0].Value)
				if err != nil {
					return nil, err
				}
				s.Receiver.(*mop.Object).Set(name, v)
				return v, nil
			}
			return bd, nil
		}
	case map[string]mop.Value:
		bd := b.newBinding(th, shape, class, meta, point, nil)
		bd.target = "map key " + name
		bd.invoke = func(_ *mop.Thread, s *mop.CallShape) (mop.Value, error) {
			v := s.Args[0].Value
			s.Receiver.(map[string]mop.Value)[name] = v
			return v, nil
		}
		return bd, nil
	case *mop.Array:
		if name == lengthProperty {
			return nil, &mop.ReadOnlyPropertyError{Name: name, Type: class}
		}
	}

	if p != nil && p.Getter != nil {
		return nil, &mop.ReadOnlyPropertyError{Name: name, Type: class}
	}
	return nil, &mop.MissingPropertyError{Name: name, Type: class}
}
