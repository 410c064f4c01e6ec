package indy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/dynlink/mop"
)

// Binder resolves call shapes into Bindings. It is stateless apart from its
// collaborators and safe for concurrent use.
type Binder struct {
	Registry *mop.Registry
	Selector mop.Selector

	log commonlog.Logger
}

// NewBinder creates a binder over reg. A nil selector means
// mop.DefaultSelector.
func NewBinder(reg *mop.Registry, sel mop.Selector) *Binder {
	if sel == nil {
		sel = mop.DefaultSelector{}
	}
	return &Binder{Registry: reg, Selector: sel, log: commonlog.GetLogger("dynlink.indy")}
}

// Bind resolves shape for site on th.
func (b *Binder) Bind(site *CallSite, th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	bd, err := b.bind(site.Kind, th, shape)
	if err != nil {
		return nil, err
	}
	b.log.Debugf("site %d %s %s bound to %s", site.ID, site.Kind, shape.Name, bd.target)
	return bd, nil
}

func (b *Binder) bind(kind SiteKind, th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	if b.Registry == nil {
		return nil, &mop.InternalBindingError{Op: "bind " + shape.Name, Err: errors.New("no meta-object registry")}
	}
	if shape.Flags.Has(mop.FlagSafe) && shape.Receiver == nil {
		return constantNull(shape), nil
	}
	if shape.ReceiverClass == nil {
		return nil, &mop.InternalBindingError{Op: "bind " + shape.Name, Err: errors.New("receiver has no class")}
	}

	switch kind {
	case KindMethod:
		return b.bindMethod(th, shape)
	case KindInit:
		return b.bindInit(th, shape)
	case KindGetProperty:
		return b.bindGetProperty(th, shape)
	case KindSetProperty:
		return b.bindSetProperty(th, shape)
	}
	return nil, &mop.InternalBindingError{Op: "bind " + shape.Name, Err: fmt.Errorf("unknown site kind %d", kind)}
}

// constantNull serves receiver?.name(...) on a null receiver.
func constantNull(shape *mop.CallShape) *Binding {
	return &Binding{
		target: "constant null",
		guards: []guard{nameGuard(shape.Name), nullReceiverGuard()},
		invoke: func(*mop.Thread, *mop.CallShape) (mop.Value, error) { return nil, nil },
	}
}

// newBinding assembles the guards every meta-object based binding carries.
// metaClass is the class meta was obtained for; point guards shape's target.
func (b *Binder) newBinding(th *mop.Thread, shape *mop.CallShape, metaClass *mop.Class, meta mop.Dispatchable, point *mop.SwitchPoint, args []guard) *Binding {
	frame := th.CategoryState()
	guards := make([]guard, 0, 6+len(args))
	guards = append(guards, nameGuard(shape.Name), argCountGuard(len(shape.Args)), receiverGuard(shape))
	guards = append(guards, args...)
	guards = append(guards, metaGuard(b.Registry, metaClass, meta), switchPointGuard(point), frameGuard(frame))
	return &Binding{meta: meta, point: point, frame: frame, guards: guards}
}

// ---------------------------------------------------------------------------
// Method calls
// ---------------------------------------------------------------------------

func (b *Binder) bindMethod(th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	target := shape.TargetClass()
	point := b.Registry.SwitchPoint(target)
	meta := b.Registry.MetaFor(target)

	sel, err := b.Selector.Select(th, meta, shape)
	if err == nil {
		return b.methodBinding(th, shape, target, meta, point, sel), nil
	}
	if !errors.Is(err, mop.ErrNoMatch) {
		return nil, err
	}

	if shape.Static {
		// A class reference also answers the instance methods of Class.
		classMeta := b.Registry.MetaFor(mop.ClassClass)
		inst := *shape
		inst.Static = false
		if sel, err := b.Selector.Select(th, classMeta, &inst); err == nil {
			return b.methodBinding(th, shape, mop.ClassClass, classMeta, point, sel), nil
		}
	}
	return b.fallback(th, shape, target, meta, point)
}

// methodBinding composes the invoke chain for a selection: Argument unwrap,
// coercion, arity correction, invocation and InvocationError unwrap.
func (b *Binder) methodBinding(th *mop.Thread, shape *mop.CallShape, metaClass *mop.Class, meta mop.Dispatchable, point *mop.SwitchPoint, sel *mop.Selection) *Binding {
	m := sel.Method

	if sel.Intercept {
		bd := b.newBinding(th, shape, metaClass, meta, point, nil)
		bd.method = m
		bd.target = "intercept " + m.String()
		bd.invoke = interceptInvoker(m, shape.Name)
		return bd
	}

	plan := newArgPlan(sel, shape)
	bd := b.newBinding(th, shape, metaClass, meta, point, argGuards(shape, plan.final))
	bd.method = m
	bd.target = m.String()

	unwrap := m.MayWrapErrors()
	if plan.identity() {
		bd.invoke = func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
			v, err := m.Invoke(th, s.Receiver, s.Values())
			if err != nil && unwrap {
				err = unwrapInvocation(err)
			}
			return v, err
		}
		return bd
	}
	bd.invoke = func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
		args, err := plan.apply(s)
		if err != nil {
			return nil, err
		}
		v, err := m.Invoke(th, s.Receiver, args)
		if err != nil && unwrap {
			err = unwrapInvocation(err)
		}
		return v, err
	}
	return bd
}

// interceptInvoker routes a call through invokeMethod(name, args) or
// methodMissing(name, args).
func interceptInvoker(m *mop.Method, name string) invoker {
	return func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
		v, err := m.Invoke(th, s.Receiver, []mop.Value{name, s.Values()})
		return v, unwrapInvocation(err)
	}
}

// fallback is the generic invocation path taken when selection finds
// nothing: methodMissing, then a Closure-valued property, then
// MissingMethodError.
func (b *Binder) fallback(th *mop.Thread, shape *mop.CallShape, target *mop.Class, meta mop.Dispatchable, point *mop.SwitchPoint) (*Binding, error) {
	if !shape.Static {
		if mm := methodMissing(meta); mm != nil {
			bd := b.newBinding(th, shape, target, meta, point, argGuards(shape, nil))
			bd.method = mm
			bd.target = "missing " + mm.String()
			bd.invoke = interceptInvoker(mm, shape.Name)
			return bd, nil
		}

		v, found, err := readProperty(th, shape.Receiver, meta, shape.Name)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(mop.Closure); found && ok {
			name := shape.Name
			bd := b.newBinding(th, shape, target, meta, point, argGuards(shape, nil))
			bd.target = "closure property " + name
			bd.invoke = func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
				v, _, err := readProperty(th, s.Receiver, meta, name)
				if err != nil {
					return nil, err
				}
				c, ok := v.(mop.Closure)
				if !ok {
					return nil, mop.NewMissingMethod(meta, s)
				}
				return c(th, s.Values())
			}
			return bd, nil
		}
	}

	err := mop.NewMissingMethod(meta, shape)
	b.log.Debugf("%s", err)
	return nil, err
}

func methodMissing(meta mop.Dispatchable) *mop.Method {
	for _, m := range meta.Methods(mop.MethodMissingName) {
		if m.Arity() == 2 && !m.IsStatic() && !m.IsAbstract() {
			return m
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Constructor calls
// ---------------------------------------------------------------------------

func (b *Binder) bindInit(th *mop.Thread, shape *mop.CallShape) (*Binding, error) {
	c, ok := shape.Receiver.(*mop.Class)
	if !ok {
		return nil, &mop.InternalBindingError{
			Op:  "init",
			Err: fmt.Errorf("constructor receiver is a %s, not a class", shape.ReceiverClass),
		}
	}
	if c.IsAbstract() || c.IsPrimitive() {
		return nil, fmt.Errorf("%w: %s", mop.ErrNotInstantiable, c)
	}

	point := b.Registry.SwitchPoint(c)
	meta := b.Registry.MetaFor(c)
	_, isNamed := namedArgs(shape)

	if len(meta.Methods(mop.ConstructorName)) == 0 {
		// Implicit no-argument constructor.
		switch {
		case len(shape.Args) == 0:
			bd := b.newBinding(th, shape, c, meta, point, nil)
			bd.target = "new " + c.Name
			bd.invoke = func(*mop.Thread, *mop.CallShape) (mop.Value, error) {
				return mop.NewObject(c), nil
			}
			return bd, nil
		case isNamed:
			bd := b.newBinding(th, shape, c, meta, point, argGuards(shape, nil))
			bd.target = "new " + c.Name + " with named arguments"
			bd.invoke = b.namedInvoker(shape.Sender, func(*mop.Thread) (mop.Value, error) {
				return mop.NewObject(c), nil
			})
			return bd, nil
		}
		return nil, mop.NewMissingMethod(meta, shape)
	}

	sel, err := b.Selector.Select(th, meta, shape)
	if err == nil {
		return b.methodBinding(th, shape, c, meta, point, sel), nil
	}
	if !errors.Is(err, mop.ErrNoMatch) {
		return nil, err
	}

	if isNamed {
		noArgs := *shape
		noArgs.Args, noArgs.ArgClasses = nil, nil
		if sel, err := b.Selector.Select(th, meta, &noArgs); err == nil {
			ctor := sel.Method
			bd := b.newBinding(th, shape, c, meta, point, argGuards(shape, nil))
			bd.method = ctor
			bd.target = ctor.String() + " with named arguments"
			bd.invoke = b.namedInvoker(shape.Sender, func(th *mop.Thread) (mop.Value, error) {
				v, err := ctor.Invoke(th, c, nil)
				return v, unwrapInvocation(err)
			})
			return bd, nil
		}
	}
	return nil, mop.NewMissingMethod(meta, shape)
}

func namedArgs(shape *mop.CallShape) (map[string]mop.Value, bool) {
	if len(shape.Args) != 1 {
		return nil, false
	}
	m, ok := shape.Args[0].Value.(map[string]mop.Value)
	return m, ok
}

// namedInvoker constructs through create and then sets every map entry as a
// property, in key order.
func (b *Binder) namedInvoker(sender *mop.Class, create func(*mop.Thread) (mop.Value, error)) invoker {
	return func(th *mop.Thread, s *mop.CallShape) (mop.Value, error) {
		obj, err := create(th)
		if err != nil {
			return nil, err
		}
		named, _ := namedArgs(s)
		keys := make([]string, 0, len(named))
		for k := range named {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			set := mop.NewCallShape(sender, k, obj, []mop.Value{named[k]}, 0)
			bd, err := b.bind(KindSetProperty, th, set)
			if err != nil {
				return nil, err
			}
			if _, err := bd.Invoke(th, set); err != nil {
				return nil, err
			}
		}
		return obj, nil
	}
}
