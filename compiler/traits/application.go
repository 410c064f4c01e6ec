package traits

import (
	"github.com/chazu/dynlink/compiler"
	"github.com/chazu/dynlink/mop"
)

// ---------------------------------------------------------------------------
// Pass 2: trait application
// ---------------------------------------------------------------------------

// collectTraits returns the traits class implements, super-traits before the
// traits extending them, in declaration order without duplicates.
func (c *Composer) collectTraits(class *compiler.ClassNode) []*TraitNode {
	var out []*TraitNode
	seen := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		t := c.Table.Lookup(name)
		if t == nil || seen[name] {
			return
		}
		seen[name] = true
		for _, super := range t.SuperTraits {
			visit(super)
		}
		out = append(out, t)
	}
	for _, iface := range class.Interfaces {
		visit(iface)
	}
	return out
}

// provided is a trait method chosen to back a forwarder.
type provided struct {
	trait  *TraitNode
	method MethodInfo
}

// applyTraits runs pass 2 on one concrete class.
func (c *Composer) applyTraits(u *compiler.Unit, class *compiler.ClassNode) error {
	traits := c.collectTraits(class)
	if len(traits) == 0 {
		return nil
	}
	col := u.Collector

	explicit := make(map[string]bool)
	for _, m := range class.Methods {
		explicit[m.Signature()] = true
	}
	accessors := make(map[string]int) // property accessor name -> arity
	for _, p := range class.Properties {
		accessors[p.GetterName()] = 0
		if !p.Modifiers.Has(mop.ModFinal) {
			accessors[p.SetterName()] = 1
		}
	}

	// Force-override methods first, then the rest; within each group the
	// most recently declared trait wins.
	chosen := make(map[string]provided)
	var order []string
	for _, force := range []bool{true, false} {
		for i := len(traits) - 1; i >= 0; i-- {
			t := traits[i]
			for _, m := range t.Methods {
				if m.Abstract || m.ForceOverride != force {
					continue
				}
				sig := m.Signature()
				if explicit[sig] {
					c.log.Debugf("%s: explicit %s wins over trait %s", class.Name, sig, t.Name)
					continue
				}
				if arity, ok := accessors[m.Name]; ok && arity == len(m.Params) {
					c.log.Debugf("%s: property accessor %s wins over trait %s", class.Name, sig, t.Name)
					continue
				}
				if prev, ok := chosen[sig]; ok {
					if force && prev.method.ForceOverride {
						if err := col.Error(class, "conflicting trait method %s in %s: both %s and %s force an override",
							sig, class.Name, prev.trait.Name, t.Name); err != nil {
							return err
						}
						continue
					}
					col.Warning(compiler.WarnPossibleErrors, class, "%s: method %s from trait %s is hidden by trait %s",
						class.Name, sig, t.Name, prev.trait.Name)
					continue
				}
				chosen[sig] = provided{trait: t, method: m}
				order = append(order, sig)
			}
		}
	}

	for _, sig := range order {
		p := chosen[sig]
		class.Methods = append(class.Methods, forwarder(class, p))
		c.log.Debugf("%s: %s forwards to %s", class.Name, sig, p.trait.Helper)
	}

	if err := c.requireAbstract(u, class, traits, chosen); err != nil {
		return err
	}
	if err := c.implementFieldHelpers(u, class, traits); err != nil {
		return err
	}
	injectInit(class, traits)
	return nil
}

// forwarder synthesizes an instance method delegating to the trait helper
// with this as the leading argument.
func forwarder(class *compiler.ClassNode, p provided) *compiler.MethodNode {
	span := class.SpanVal
	m := &compiler.MethodNode{
		SpanVal:     span,
		Name:        p.method.Name,
		ReturnType:  p.method.Return,
		Annotations: []string{compiler.AnnTraitBridge},
		Generated:   true,
	}
	args := []compiler.Expr{&compiler.ThisExpr{SpanVal: span}}
	for i, typ := range p.method.Params {
		name := p.method.ParamNames[i]
		m.Params = append(m.Params, &compiler.Parameter{SpanVal: span, Name: name, Type: typ})
		args = append(args, &compiler.VariableExpr{SpanVal: span, Name: name})
	}
	call := &compiler.StaticMethodCallExpr{SpanVal: span, Owner: p.trait.Helper, Name: p.method.Name, Args: args}
	var stmt compiler.Stmt = &compiler.ReturnStmt{SpanVal: span, Value: call}
	if m.IsVoid() {
		stmt = &compiler.ExprStmt{SpanVal: span, Expr: call}
	}
	m.Body = &compiler.BlockStmt{SpanVal: span, Stmts: []compiler.Stmt{stmt}}
	return m
}

// requireAbstract reports abstract trait methods a concrete class leaves
// unimplemented. Classes whose superclass lives outside the unit are not
// checked.
func (c *Composer) requireAbstract(u *compiler.Unit, class *compiler.ClassNode, traits []*TraitNode, chosen map[string]provided) error {
	if class.Modifiers.Has(mop.ModAbstract) {
		return nil
	}
	inherited := make(map[string]bool)
	for cur := class; cur != nil; {
		for _, m := range cur.Methods {
			if !m.IsAbstract() {
				inherited[m.Signature()] = true
			}
		}
		if cur.Superclass == "" {
			break
		}
		next := u.Module.Class(cur.Superclass)
		if next == nil {
			return nil
		}
		cur = next
	}
	for _, p := range class.Properties {
		inherited[p.GetterName()+"()"] = true
	}
	for _, t := range traits {
		for _, m := range t.Methods {
			sig := m.Signature()
			if !m.Abstract || inherited[sig] {
				continue
			}
			if _, ok := chosen[sig]; ok {
				continue
			}
			if err := u.Collector.Error(class, "class %s does not provide required method %s for trait %s", class.Name, sig, t.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// implementFieldHelpers makes class implement each trait's FieldHelper with
// a private backing field and trivial accessors per trait field.
func (c *Composer) implementFieldHelpers(u *compiler.Unit, class *compiler.ClassNode, traits []*TraitNode) error {
	owner := make(map[string]string) // accessor name -> trait
	for _, t := range traits {
		if !t.HasFields() {
			continue
		}
		class.AddInterface(t.FieldHelper)
		for _, f := range t.Fields {
			getter := FieldGetter(f.Name)
			if prev, ok := owner[getter]; ok {
				if err := u.Collector.Error(class, "field '%s' of trait %s collides with the same field of trait %s in %s",
					f.Name, t.Name, prev, class.Name); err != nil {
					return err
				}
				continue
			}
			owner[getter] = t.Name
			addFieldAccessors(class, t, f)
		}
	}
	return nil
}

func addFieldAccessors(class *compiler.ClassNode, t *TraitNode, f FieldInfo) {
	span := class.SpanVal
	backing := BackingField(t.Name, f.Name)
	if class.Field(backing) == nil {
		class.Fields = append(class.Fields, &compiler.FieldNode{
			SpanVal:   span,
			Name:      backing,
			Type:      f.Type,
			Modifiers: mop.ModPrivate,
		})
	}
	field := func() compiler.Expr {
		return &compiler.FieldExpr{SpanVal: span, Object: &compiler.ThisExpr{SpanVal: span}, Field: backing}
	}
	class.Methods = append(class.Methods,
		&compiler.MethodNode{
			SpanVal:    span,
			Name:       FieldGetter(f.Name),
			ReturnType: f.Type,
			Generated:  true,
			Body: &compiler.BlockStmt{Stmts: []compiler.Stmt{
				&compiler.ReturnStmt{SpanVal: span, Value: field()},
			}},
		},
		&compiler.MethodNode{
			SpanVal:    span,
			Name:       FieldSetter(f.Name),
			Params:     []*compiler.Parameter{{SpanVal: span, Name: "val", Type: f.Type}},
			ReturnType: "void",
			Generated:  true,
			Body: &compiler.BlockStmt{Stmts: []compiler.Stmt{
				&compiler.ExprStmt{SpanVal: span, Expr: &compiler.BinaryExpr{
					SpanVal: span,
					Left:    field(),
					Op:      "=",
					Right:   &compiler.VariableExpr{SpanVal: span, Name: "val"},
				}},
			}},
		},
	)
}

// injectInit prepends T$Trait$Helper.$init$(this) for every trait with
// initialization, in declaration order, to the class's object initializers.
func injectInit(class *compiler.ClassNode, traits []*TraitNode) {
	span := class.SpanVal
	block := &compiler.BlockStmt{SpanVal: span}
	for _, t := range traits {
		if !t.Init {
			continue
		}
		block.Stmts = append(block.Stmts, &compiler.ExprStmt{SpanVal: span, Expr: &compiler.StaticMethodCallExpr{
			SpanVal: span,
			Owner:   t.Helper,
			Name:    InitMethod,
			Args:    []compiler.Expr{&compiler.ThisExpr{SpanVal: span}},
		}})
	}
	if len(block.Stmts) == 0 {
		return
	}
	class.ObjectInitializers = append([]*compiler.BlockStmt{block}, class.ObjectInitializers...)
}
