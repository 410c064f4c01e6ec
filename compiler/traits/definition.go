package traits

import (
	"github.com/chazu/dynlink/compiler"
	"github.com/chazu/dynlink/mop"
)

// ---------------------------------------------------------------------------
// Pass 1: trait definition
// ---------------------------------------------------------------------------

// checkSuperclass rejects a non-trait class extending a trait.
func (c *Composer) checkSuperclass(u *compiler.Unit, class *compiler.ClassNode) error {
	if class.IsTrait() || class.Superclass == "" || !c.isTrait(u, class.Superclass) {
		return nil
	}
	return u.Collector.Error(class, "class %s cannot extend trait %s; implement it instead", class.Name, class.Superclass)
}

// validateTrait reports every definition error of trait. ok is false when the
// trait must not be generated.
func (c *Composer) validateTrait(u *compiler.Unit, trait *compiler.ClassNode) (ok bool, err error) {
	col := u.Collector
	before := col.ErrorCount()

	if len(trait.Constructors) > 0 {
		return false, col.Fatal(trait.Constructors[0], "trait %s must not declare a constructor", trait.Name)
	}
	for _, f := range trait.Fields {
		if f.Modifiers.Has(mop.ModStatic) {
			if err := col.Error(f, "static field '%s' is not supported in trait %s", f.Name, trait.Name); err != nil {
				return false, err
			}
		}
	}
	for _, m := range trait.Methods {
		switch {
		case m.Modifiers.Has(mop.ModPrivate):
			err = col.Error(m, "private method %s is not allowed in trait %s", m.Name, trait.Name)
		case m.Modifiers.Has(mop.ModProtected):
			err = col.Error(m, "protected method %s is not allowed in trait %s", m.Name, trait.Name)
		case m.IsStatic():
			err = col.Error(m, "static method %s is not supported in trait %s", m.Name, trait.Name)
		}
		if err != nil {
			return false, err
		}
		if m.Body == nil {
			continue
		}
		compiler.Walk(m.Body, func(n compiler.Node) bool {
			if err != nil {
				return false
			}
			if s, isSuper := n.(*compiler.SuperExpr); isSuper {
				err = col.Error(s, "'super' cannot be used in trait %s (method %s)", trait.Name, m.Name)
			}
			return true
		})
		if err != nil {
			return false, err
		}
	}
	return col.ErrorCount() == before, nil
}

// expandProperties turns trait properties into fields plus accessor methods
// the trait does not already declare.
func expandProperties(trait *compiler.ClassNode) {
	for _, p := range trait.Properties {
		span := p.SpanVal
		trait.Fields = append(trait.Fields, &compiler.FieldNode{
			SpanVal:   span,
			Name:      p.Name,
			Type:      p.Type,
			Modifiers: mop.ModPrivate,
			Init:      p.Init,
		})
		getter := &compiler.MethodNode{
			SpanVal:    span,
			Name:       p.GetterName(),
			ReturnType: p.Type,
			Generated:  true,
			Body: &compiler.BlockStmt{Stmts: []compiler.Stmt{
				&compiler.ReturnStmt{SpanVal: span, Value: &compiler.FieldExpr{SpanVal: span, Object: &compiler.ThisExpr{SpanVal: span}, Field: p.Name}},
			}},
		}
		if trait.Method(getter.Signature()) == nil {
			trait.Methods = append(trait.Methods, getter)
		}
		if p.Modifiers.Has(mop.ModFinal) {
			continue
		}
		setter := &compiler.MethodNode{
			SpanVal:    span,
			Name:       p.SetterName(),
			Params:     []*compiler.Parameter{{SpanVal: span, Name: "value", Type: p.Type}},
			ReturnType: "void",
			Generated:  true,
			Body: &compiler.BlockStmt{Stmts: []compiler.Stmt{
				&compiler.ExprStmt{SpanVal: span, Expr: &compiler.BinaryExpr{
					SpanVal: span,
					Left:    &compiler.FieldExpr{SpanVal: span, Object: &compiler.ThisExpr{SpanVal: span}, Field: p.Name},
					Op:      "=",
					Right:   &compiler.VariableExpr{SpanVal: span, Name: "value"},
				}},
			}},
		}
		if trait.Method(setter.Signature()) == nil {
			trait.Methods = append(trait.Methods, setter)
		}
	}
	trait.Properties = nil
}

// defineTrait runs pass 1 on one trait: it generates the Helper class and,
// when the trait has fields, the FieldHelper interface, rewrites method
// bodies onto $self and reduces the trait to an interface.
func (c *Composer) defineTrait(u *compiler.Unit, trait *compiler.ClassNode) error {
	ok, err := c.validateTrait(u, trait)
	if err != nil || !ok {
		return err
	}
	expandProperties(trait)

	node := &TraitNode{Name: trait.Name, Helper: HelperName(trait.Name)}
	for _, iface := range trait.Interfaces {
		if c.isTrait(u, iface) {
			node.SuperTraits = append(node.SuperTraits, iface)
		}
	}

	fields := make(map[string]bool)
	for _, f := range trait.Fields {
		fields[f.Name] = true
		node.Fields = append(node.Fields, FieldInfo{Name: f.Name, Type: compiler.ErasedType(f.Type), HasInit: f.Init != nil})
	}
	if len(fields) > 0 {
		node.FieldHelper = FieldHelperName(trait.Name)
	}

	helper := &compiler.ClassNode{
		SpanVal:   trait.SpanVal,
		Name:      node.Helper,
		Modifiers: mop.ModAbstract | mop.ModSynthetic,
		Generated: true,
	}
	rw := newReceiverRewriter(u.Collector, trait.Name, node.FieldHelper, fields)

	reduced := make([]*compiler.MethodNode, 0, len(trait.Methods))
	for _, m := range trait.Methods {
		node.Methods = append(node.Methods, methodInfo(m))
		reduced = append(reduced, &compiler.MethodNode{
			SpanVal:     m.SpanVal,
			Name:        m.Name,
			Params:      m.Params,
			ReturnType:  m.ReturnType,
			Modifiers:   mop.ModAbstract,
			Annotations: m.Annotations,
		})
		if m.IsAbstract() {
			continue
		}
		if err := rw.rewriteMethod(m); err != nil {
			return err
		}
		helper.Methods = append(helper.Methods, helperMethod(trait.Name, m))
	}

	if init, err := c.initMethod(trait, rw); err != nil {
		return err
	} else if init != nil {
		helper.Methods = append(helper.Methods, init)
		node.Init = true
	}

	if node.FieldHelper != "" {
		u.Module.AddClass(fieldHelper(node))
	}
	u.Module.AddClass(helper)

	trait.Modifiers |= mop.ModInterface | mop.ModAbstract
	trait.Methods = reduced
	trait.Fields = nil
	trait.ObjectInitializers = nil

	if old := c.Table.Register(node); old != nil {
		c.log.Debugf("trait %s redefined", trait.Name)
	}
	c.log.Debugf("defined trait %s: %d methods, %d fields", trait.Name, len(node.Methods), len(node.Fields))
	return nil
}

// helperMethod moves m's rewritten body into a static method taking the
// trait instance as its leading parameter.
func helperMethod(trait string, m *compiler.MethodNode) *compiler.MethodNode {
	params := make([]*compiler.Parameter, 0, len(m.Params)+1)
	params = append(params, &compiler.Parameter{SpanVal: m.SpanVal, Name: SelfParam, Type: trait})
	params = append(params, m.Params...)
	return &compiler.MethodNode{
		SpanVal:    m.SpanVal,
		Name:       m.Name,
		Params:     params,
		ReturnType: m.ReturnType,
		Modifiers:  mop.ModStatic,
		Body:       m.Body,
		Generated:  true,
	}
}

// initMethod builds $init$($self) from field initializers and object
// initializer blocks, or returns nil when there is nothing to run.
func (c *Composer) initMethod(trait *compiler.ClassNode, rw *receiverRewriter) (*compiler.MethodNode, error) {
	if len(trait.Fields) == 0 && len(trait.ObjectInitializers) == 0 {
		return nil, nil
	}
	body := &compiler.BlockStmt{SpanVal: trait.SpanVal}
	for _, f := range trait.Fields {
		if f.Init == nil {
			continue
		}
		value, err := rw.rewriteExpr(f.Init)
		if err != nil {
			return nil, err
		}
		body.Stmts = append(body.Stmts, &compiler.ExprStmt{SpanVal: f.SpanVal, Expr: rw.write(f.Name, value, f.SpanVal)})
	}

	init := &compiler.MethodNode{
		SpanVal:    trait.SpanVal,
		Name:       InitMethod,
		Params:     []*compiler.Parameter{{SpanVal: trait.SpanVal, Name: SelfParam, Type: trait.Name}},
		ReturnType: "void",
		Modifiers:  mop.ModStatic,
		Body:       body,
		Generated:  true,
	}
	for _, block := range trait.ObjectInitializers {
		if err := rw.rewriteMethod(&compiler.MethodNode{Params: init.Params, Body: block}); err != nil {
			return nil, err
		}
		body.Stmts = append(body.Stmts, block)
	}
	if len(body.Stmts) == 0 {
		return nil, nil
	}
	return init, nil
}

// fieldHelper builds the T$Trait$FieldHelper interface with one f$get/f$set
// pair per field.
func fieldHelper(t *TraitNode) *compiler.ClassNode {
	iface := &compiler.ClassNode{
		Name:      t.FieldHelper,
		Modifiers: mop.ModInterface | mop.ModAbstract | mop.ModSynthetic,
		Generated: true,
	}
	for _, f := range t.Fields {
		iface.Methods = append(iface.Methods,
			&compiler.MethodNode{Name: FieldGetter(f.Name), ReturnType: f.Type, Modifiers: mop.ModAbstract, Generated: true},
			&compiler.MethodNode{
				Name:       FieldSetter(f.Name),
				Params:     []*compiler.Parameter{{Name: "val", Type: f.Type}},
				ReturnType: "void",
				Modifiers:  mop.ModAbstract,
				Generated:  true,
			},
		)
	}
	return iface
}
