package traits

import "github.com/chazu/dynlink/compiler"

// receiverRewriter turns the implicit receiver of a trait method body into
// the explicit $self parameter. Field access goes through the FieldHelper:
// reads become ((T$Trait$FieldHelper) $self).f$get() and writes f$set(v).
type receiverRewriter struct {
	collector   *compiler.Collector
	trait       string
	fieldHelper string
	fields      map[string]bool
	locals      map[string]bool

	reads map[compiler.Expr]string // generated getter calls -> field
	err   error
}

func newReceiverRewriter(c *compiler.Collector, trait, fieldHelper string, fields map[string]bool) *receiverRewriter {
	return &receiverRewriter{
		collector:   c,
		trait:       trait,
		fieldHelper: fieldHelper,
		fields:      fields,
		reads:       make(map[compiler.Expr]string),
	}
}

// rewriteMethod rewrites m's body in place, treating locals as shadowing
// fields of the same name.
func (r *receiverRewriter) rewriteMethod(m *compiler.MethodNode) error {
	r.locals = compiler.LocalNames(m)
	compiler.TransformStmt(m.Body, r.rewrite)
	return r.err
}

// rewriteExpr rewrites a standalone expression such as a field initializer.
func (r *receiverRewriter) rewriteExpr(e compiler.Expr) (compiler.Expr, error) {
	r.locals = map[string]bool{SelfParam: true}
	out := compiler.Transform(e, r.rewrite)
	return out, r.err
}

func (r *receiverRewriter) self(span compiler.Span) compiler.Expr {
	return &compiler.VariableExpr{SpanVal: span, Name: SelfParam}
}

func isSelf(e compiler.Expr) bool {
	v, ok := e.(*compiler.VariableExpr)
	return ok && v.Name == SelfParam
}

func (r *receiverRewriter) read(field string, span compiler.Span) compiler.Expr {
	call := &compiler.MethodCallExpr{
		SpanVal:  span,
		Receiver: &compiler.CastExpr{SpanVal: span, Type: r.fieldHelper, Expr: r.self(span)},
		Name:     FieldGetter(field),
	}
	r.reads[call] = field
	return call
}

func (r *receiverRewriter) write(field string, value compiler.Expr, span compiler.Span) compiler.Expr {
	return &compiler.MethodCallExpr{
		SpanVal:  span,
		Receiver: &compiler.CastExpr{SpanVal: span, Type: r.fieldHelper, Expr: r.self(span)},
		Name:     FieldSetter(field),
		Args:     []compiler.Expr{value},
	}
}

// rewrite is the bottom-up Transformer: children are already rewritten, so
// 'this' has become $self by the time its parent is visited.
func (r *receiverRewriter) rewrite(e compiler.Expr) compiler.Expr {
	switch x := e.(type) {
	case *compiler.ThisExpr:
		return r.self(x.SpanVal)

	case *compiler.VariableExpr:
		if r.fields[x.Name] && !r.locals[x.Name] {
			return r.read(x.Name, x.SpanVal)
		}

	case *compiler.PropertyExpr:
		if x.ImplicitThis || x.Object == nil {
			x.Object, x.ImplicitThis = r.self(x.SpanVal), false
		}
		if isSelf(x.Object) && r.fields[x.Property] {
			return r.read(x.Property, x.SpanVal)
		}

	case *compiler.FieldExpr:
		if isSelf(x.Object) && r.fields[x.Field] {
			return r.read(x.Field, x.SpanVal)
		}

	case *compiler.MethodCallExpr:
		if x.ImplicitThis || x.Receiver == nil {
			x.Receiver, x.ImplicitThis = r.self(x.SpanVal), false
		}

	case *compiler.BinaryExpr:
		field, ok := r.reads[x.Left]
		if !ok || !x.IsAssignment() {
			break
		}
		delete(r.reads, x.Left)
		value := x.Right
		if op := compiler.CompoundOperator(x.Op); op != "" {
			value = &compiler.BinaryExpr{SpanVal: x.SpanVal, Left: r.read(field, x.SpanVal), Op: op, Right: x.Right}
		}
		return r.write(field, value, x.SpanVal)

	case *compiler.PrefixExpr:
		r.checkIncrement(x, x.Operand, x.Op)
	case *compiler.PostfixExpr:
		r.checkIncrement(x, x.Operand, x.Op)
	}
	return e
}

func (r *receiverRewriter) checkIncrement(node compiler.Node, operand compiler.Expr, op string) {
	field, ok := r.reads[operand]
	if !ok || (op != "++" && op != "--") {
		return
	}
	err := r.collector.Error(node,
		"%s on trait field '%s' of %s is not supported; use an explicit assignment such as %s = %s %c 1",
		op, field, r.trait, field, field, op[0])
	if err != nil && r.err == nil {
		r.err = err
	}
}
