package mop

// CallFlags are the per-site flags the emitter encodes into a call site.
type CallFlags uint8

const (
	FlagSafe     CallFlags = 1 << iota // receiver?.name(...)
	FlagSpread                         // trailing argument is spread into the argument list
	FlagThisCall                       // receiver is the sender's own this
)

// Has reports whether all bits in flag are set.
func (f CallFlags) Has(flag CallFlags) bool { return f&flag == flag }

// CallShape is the runtime-observed signature of one invocation. It is the
// lookup key for method selection and the basis of binding guards.
type CallShape struct {
	Name          string
	Sender        *Class
	Receiver      Value
	ReceiverClass *Class
	Static        bool // receiver is a *Class and the call targets its static side
	Args          []Argument
	ArgClasses    []*Class // runtime class per argument, nil for null
	Flags         CallFlags
}

// NewCallShape captures the shape of a call. Arguments may be plain values or
// Argument values carrying a forced static type. With FlagSpread a trailing
// List or array argument is expanded in place.
func NewCallShape(sender *Class, name string, receiver Value, args []Value, flags CallFlags) *CallShape {
	if flags.Has(FlagSpread) && len(args) > 0 {
		args = spread(args)
	}
	s := &CallShape{
		Name:          name,
		Sender:        sender,
		Receiver:      receiver,
		ReceiverClass: ClassOf(receiver),
		Args:          make([]Argument, len(args)),
		ArgClasses:    make([]*Class, len(args)),
		Flags:         flags,
	}
	if _, ok := receiver.(*Class); ok && name != ConstructorName {
		s.Static = true
	}
	for i, a := range args {
		arg, ok := a.(Argument)
		if !ok {
			arg = Argument{Value: a}
		}
		s.Args[i] = arg
		if arg.Value != nil {
			s.ArgClasses[i] = ClassOf(arg.Value)
		}
	}
	return s
}

func spread(args []Value) []Value {
	last := args[len(args)-1]
	var items []Value
	switch x := last.(type) {
	case []Value:
		items = x
	case *Array:
		items = x.Items
	default:
		return args
	}
	out := make([]Value, 0, len(args)-1+len(items))
	out = append(out, args[:len(args)-1]...)
	return append(out, items...)
}

// Values returns the raw argument values with forced static types stripped.
func (s *CallShape) Values() []Value {
	out := make([]Value, len(s.Args))
	for i, a := range s.Args {
		out[i] = a.Value
	}
	return out
}

// TargetClass is the class whose meta-object serves the call: the referenced
// class for static receivers, the runtime class otherwise.
func (s *CallShape) TargetClass() *Class {
	if c, ok := s.Receiver.(*Class); ok {
		return c
	}
	return s.ReceiverClass
}
