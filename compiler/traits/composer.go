// Package traits composes traits into classes during semantic analysis.
//
// A trait is reduced to an interface plus a static helper class: pass 1
// rewrites each trait's method bodies onto an explicit $self receiver and
// moves them into T$Trait$Helper; pass 2 gives every class implementing the
// trait forwarding methods, backing storage for trait fields, and a call to
// the trait initializer. No runtime trait concept remains afterwards.
package traits

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/dynlink/compiler"
)

// Composer runs both passes. Its Table carries trait metadata across units.
type Composer struct {
	Table *Table

	log commonlog.Logger
}

// NewComposer creates a composer over table. A nil table starts empty.
func NewComposer(table *Table) *Composer {
	if table == nil {
		table = NewTable()
	}
	return &Composer{Table: table, log: commonlog.GetLogger("dynlink.traits")}
}

// Transform composes the traits of a unit with a fresh table. It is an
// Operation for compiler.PhaseSemanticAnalysis.
func Transform(u *compiler.Unit) error {
	return NewComposer(nil).Transform(u)
}

// Transform runs pass 1 over every trait of u, then pass 2 over every
// concrete class.
func (c *Composer) Transform(u *compiler.Unit) error {
	classes := make([]*compiler.ClassNode, len(u.Module.Classes))
	copy(classes, u.Module.Classes)

	for _, class := range classes {
		if err := c.checkSuperclass(u, class); err != nil {
			return err
		}
		if !class.IsTrait() {
			continue
		}
		if err := c.defineTrait(u, class); err != nil {
			return err
		}
	}

	for _, class := range classes {
		if class.IsTrait() || class.IsInterface() || class.Generated {
			continue
		}
		if err := c.applyTraits(u, class); err != nil {
			return err
		}
	}
	return nil
}

// isTrait reports whether name is a trait of this unit or a known trait.
func (c *Composer) isTrait(u *compiler.Unit, name string) bool {
	if cls := u.Module.Class(name); cls != nil {
		return cls.IsTrait()
	}
	return c.Table.Lookup(name) != nil
}
