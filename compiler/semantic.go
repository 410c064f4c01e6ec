package compiler

// ---------------------------------------------------------------------------
// Semantic Analyzer: declaration and body checks before trait composition
// ---------------------------------------------------------------------------

// SemanticAnalyzer checks class declarations for duplicate signatures,
// invalid assignment targets, unreachable code and unresolved names.
type SemanticAnalyzer struct {
	collector *Collector
	module    *ModuleNode

	// Scope tracking
	locals   map[string]bool // parameters and locals of the current method
	members  map[string]bool // fields and properties of the current class chain
	inStatic bool
}

// NewSemanticAnalyzer creates an analyzer reporting to c.
func NewSemanticAnalyzer(module *ModuleNode, c *Collector) *SemanticAnalyzer {
	return &SemanticAnalyzer{collector: c, module: module}
}

// Analyze is the semantic-analysis Operation over every class of the unit.
func Analyze(u *Unit) error {
	s := NewSemanticAnalyzer(u.Module, u.Collector)
	for _, c := range u.Module.Classes {
		if err := s.AnalyzeClass(c); err != nil {
			return err
		}
	}
	return nil
}

// AnalyzeClass checks one class. The returned error is non-nil only when the
// collector aborts.
func (s *SemanticAnalyzer) AnalyzeClass(c *ClassNode) error {
	s.members = s.memberNames(c)

	seen := make(map[string]bool)
	for _, m := range c.Methods {
		sig := m.Signature()
		if seen[sig] {
			if err := s.collector.Error(m, "duplicate method %s in %s", sig, c.Name); err != nil {
				return err
			}
		}
		seen[sig] = true
	}

	for _, m := range c.Constructors {
		if err := s.AnalyzeMethod(m); err != nil {
			return err
		}
	}
	for _, m := range c.Methods {
		if err := s.AnalyzeMethod(m); err != nil {
			return err
		}
	}
	return nil
}

// memberNames collects field and property names along the superclass chain
// declared in the module.
func (s *SemanticAnalyzer) memberNames(c *ClassNode) map[string]bool {
	names := make(map[string]bool)
	for cur, depth := c, 0; cur != nil && depth < 64; depth++ {
		for _, f := range cur.Fields {
			names[f.Name] = true
		}
		for _, p := range cur.Properties {
			names[p.Name] = true
		}
		if cur.Superclass == "" || s.module == nil {
			break
		}
		cur = s.module.Class(cur.Superclass)
	}
	return names
}

// AnalyzeMethod checks one method body.
func (s *SemanticAnalyzer) AnalyzeMethod(m *MethodNode) error {
	if m.Body == nil {
		return nil
	}
	s.locals = LocalNames(m)
	s.inStatic = m.IsStatic()

	var err error
	Walk(m.Body, func(n Node) bool {
		if err != nil {
			return false
		}
		switch x := n.(type) {
		case *BlockStmt:
			s.checkUnreachableCode(x.Stmts)
		case *BinaryExpr:
			if x.IsAssignment() {
				err = s.checkAssignmentTarget(x)
			}
		case *ThisExpr:
			if s.inStatic {
				err = s.collector.Error(x, "'this' cannot be used in static method %s", m.Name)
			}
		case *VariableExpr:
			s.checkVariableDefined(x)
		}
		return true
	})
	return err
}

// checkVariableDefined warns about names that resolve to nothing declared.
func (s *SemanticAnalyzer) checkVariableDefined(v *VariableExpr) {
	if s.locals[v.Name] || s.members[v.Name] {
		return
	}
	if s.module != nil && s.module.Class(v.Name) != nil {
		return
	}
	// Dynamic properties may still resolve at runtime.
	s.collector.Warning(WarnPossibleErrors, v, "variable '%s' may be undefined (assuming dynamic property)", v.Name)
}

// checkAssignmentTarget rejects assignments to this, super, constants and calls.
func (s *SemanticAnalyzer) checkAssignmentTarget(a *BinaryExpr) error {
	switch a.Left.(type) {
	case *VariableExpr, *PropertyExpr, *FieldExpr:
		return nil
	case *ThisExpr:
		return s.collector.Error(a, "cannot assign to 'this'")
	case *SuperExpr:
		return s.collector.Error(a, "cannot assign to 'super'")
	}
	return s.collector.Error(a, "invalid assignment target")
}

// checkUnreachableCode checks for code after a return statement.
func (s *SemanticAnalyzer) checkUnreachableCode(stmts []Stmt) {
	for i, stmt := range stmts {
		if _, isReturn := stmt.(*ReturnStmt); isReturn && i < len(stmts)-1 {
			s.collector.Warning(WarnLikelyErrors, stmts[i+1], "unreachable code after return")
			return // Only warn once
		}
	}
}
