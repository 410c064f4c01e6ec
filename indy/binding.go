package indy

import (
	"github.com/chazu/dynlink/mop"
)

// guard is a cheap predicate checked before a cached Binding is reused.
type guard func(th *mop.Thread, shape *mop.CallShape) bool

// invoker runs the bound target for one call.
type invoker func(th *mop.Thread, shape *mop.CallShape) (mop.Value, error)

// Binding is the resolved target of a call site together with the guards
// under which it stays valid. A Binding is never modified after it has been
// built; sites replace it wholesale.
type Binding struct {
	method     *mop.Method
	meta       mop.Dispatchable
	point      *mop.SwitchPoint
	frame      *mop.CategoryFrame
	generation uint64
	target     string // human-readable description of what the binding does

	guards []guard
	invoke invoker
}

// Method returns the selected method, or nil for constant, field and
// fallback bindings.
func (b *Binding) Method() *mop.Method { return b.method }

// Meta returns the meta-object the binding was resolved against.
func (b *Binding) Meta() mop.Dispatchable { return b.meta }

// SwitchPoint returns the invalidation token the binding depends on.
func (b *Binding) SwitchPoint() *mop.SwitchPoint { return b.point }

// Generation returns the site generation the binding was published under.
func (b *Binding) Generation() uint64 { return b.generation }

// Target describes the bound target.
func (b *Binding) Target() string { return b.target }

// GuardCount returns the number of guards checked per call.
func (b *Binding) GuardCount() int { return len(b.guards) }

// Guard reports whether the binding may serve shape on th.
func (b *Binding) Guard(th *mop.Thread, shape *mop.CallShape) bool {
	for _, g := range b.guards {
		if !g(th, shape) {
			return false
		}
	}
	return true
}

// Invoke runs the bound target. Callers must have checked Guard.
func (b *Binding) Invoke(th *mop.Thread, shape *mop.CallShape) (mop.Value, error) {
	return b.invoke(th, shape)
}

// withGeneration returns a copy published under gen.
func (b *Binding) withGeneration(gen uint64) *Binding {
	c := *b
	c.generation = gen
	return &c
}

// ---------------------------------------------------------------------------
// Guard construction
// ---------------------------------------------------------------------------

func nameGuard(name string) guard {
	return func(_ *mop.Thread, s *mop.CallShape) bool { return s.Name == name }
}

func nullReceiverGuard() guard {
	return func(_ *mop.Thread, s *mop.CallShape) bool { return s.Receiver == nil }
}

// receiverGuard checks the receiver's runtime class, or its identity when the
// receiver is a class reference.
func receiverGuard(shape *mop.CallShape) guard {
	if c, ok := shape.Receiver.(*mop.Class); ok {
		return func(_ *mop.Thread, s *mop.CallShape) bool {
			rc, ok := s.Receiver.(*mop.Class)
			return ok && rc == c
		}
	}
	class := shape.ReceiverClass
	return func(_ *mop.Thread, s *mop.CallShape) bool { return s.ReceiverClass == class }
}

func metaGuard(reg *mop.Registry, class *mop.Class, meta mop.Dispatchable) guard {
	return func(*mop.Thread, *mop.CallShape) bool {
		return reg.MetaFor(class) == meta
	}
}

func switchPointGuard(sp *mop.SwitchPoint) guard {
	return func(*mop.Thread, *mop.CallShape) bool { return sp.Valid() }
}

func frameGuard(frame *mop.CategoryFrame) guard {
	return func(th *mop.Thread, _ *mop.CallShape) bool { return th.CategoryState() == frame }
}

func argCountGuard(n int) guard {
	return func(_ *mop.Thread, s *mop.CallShape) bool { return len(s.Args) == n }
}

// argGuards builds one class guard per argument. Arguments listed in skip are
// left out; their class is checked inside the invoke chain instead.
func argGuards(shape *mop.CallShape, skip []*mop.Class) []guard {
	var gs []guard
	for i, a := range shape.Args {
		if skip != nil && skip[i] != nil {
			continue
		}
		i, class, static := i, shape.ArgClasses[i], a.Static
		gs = append(gs, func(_ *mop.Thread, s *mop.CallShape) bool {
			return s.ArgClasses[i] == class && s.Args[i].Static == static
		})
	}
	return gs
}
