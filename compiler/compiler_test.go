package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/dynlink/mop"
)

func at(line int) Span {
	return Span{Start: Position{Line: line, Column: 1}, End: Position{Line: line, Column: 2}}
}

func TestCollectorTolerance(t *testing.T) {
	c := NewCollector(CollectorOptions{Tolerance: 2, WarningLevel: WarnLikelyErrors})
	node := &VariableExpr{SpanVal: at(3), Name: "x"}

	if err := c.Error(node, "first"); err != nil {
		t.Fatalf("Expected no abort after 1 error, got %v", err)
	}
	if err := c.Error(node, "second"); err != nil {
		t.Fatalf("Expected no abort after 2 errors, got %v", err)
	}
	err := c.Error(node, "third")
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("Expected AbortError once tolerance is exceeded, got %v", err)
	}
	if len(abort.Diagnostics) != 3 {
		t.Errorf("Expected 3 diagnostics, got %d", len(abort.Diagnostics))
	}
	if !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if got := c.Errors()[0]; got != "line 3, column 1: first" {
		t.Errorf("Unexpected rendering %q", got)
	}
}

func TestCollectorFatalAbortsImmediately(t *testing.T) {
	c := NewCollector(DefaultCollectorOptions())
	err := c.Fatal(nil, "boom")
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("Expected AbortError, got %v", err)
	}
	if !c.HasErrors() || c.ErrorCount() != 1 {
		t.Errorf("Expected one error, got %d", c.ErrorCount())
	}
}

func TestCollectorWarningLevel(t *testing.T) {
	c := NewCollector(CollectorOptions{Tolerance: 10, WarningLevel: WarnLikelyErrors})
	c.Warning(WarnLikelyErrors, nil, "kept")
	c.Warning(WarnPossibleErrors, nil, "filtered")
	c.Warning(WarnParanoia, nil, "filtered")

	if w := c.Warnings(); len(w) != 1 || !strings.Contains(w[0], "kept") {
		t.Errorf("Expected only the likely-error warning, got %v", w)
	}
	if c.HasErrors() {
		t.Error("Warnings must not count as errors")
	}

	none := NewCollector(CollectorOptions{WarningLevel: WarnNone})
	none.Warning(WarnLikelyErrors, nil, "dropped")
	if len(none.Diagnostics()) != 0 {
		t.Errorf("Expected no warnings at level none, got %v", none.Diagnostics())
	}
}

func TestParseWarningLevel(t *testing.T) {
	for _, lvl := range []WarningLevel{WarnNone, WarnLikelyErrors, WarnPossibleErrors, WarnParanoia} {
		got, err := ParseWarningLevel(lvl.String())
		if err != nil || got != lvl {
			t.Errorf("ParseWarningLevel(%q) = %v, %v", lvl.String(), got, err)
		}
	}
	if _, err := ParseWarningLevel("loud"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestUnitRunPhases(t *testing.T) {
	u := NewUnit("Script", &ModuleNode{}, nil)
	var ran []string
	op := func(name string) Operation {
		return func(*Unit) error {
			ran = append(ran, name)
			return nil
		}
	}

	if err := u.Run(PhaseSemanticAnalysis, op("a"), op("b")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(ran, ",") != "a,b" {
		t.Errorf("Expected both operations, got %v", ran)
	}
	if err := u.Run(PhaseConversion, op("late")); err == nil {
		t.Error("Expected an error when running an earlier phase")
	}

	failing := func(u *Unit) error { return u.Collector.Fatal(nil, "stop") }
	err := u.Run(PhaseCanonicalization, failing, op("never"))
	var abort *AbortError
	if !errors.As(err, &abort) {
		t.Fatalf("Expected AbortError, got %v", err)
	}
	for _, name := range ran {
		if name == "never" {
			t.Error("Expected the phase to stop at the fatal error")
		}
	}
}

func TestUnitRunFailsWithCollectedErrors(t *testing.T) {
	u := NewUnit("Script", &ModuleNode{}, nil)
	err := u.Run(PhaseSemanticAnalysis, func(u *Unit) error {
		return u.Collector.Error(nil, "recoverable")
	})
	if err == nil {
		t.Fatal("Expected the phase to fail")
	}
	if !strings.Contains(err.Error(), "recoverable") {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestTransformReplacesExpressions(t *testing.T) {
	body := &BlockStmt{Stmts: []Stmt{
		&ReturnStmt{Value: &BinaryExpr{
			Left:  &VariableExpr{Name: "x"},
			Op:    "+",
			Right: &MethodCallExpr{Receiver: &ThisExpr{}, Name: "size"},
		}},
	}}

	TransformStmt(body, func(e Expr) Expr {
		if _, ok := e.(*ThisExpr); ok {
			return &VariableExpr{Name: "self"}
		}
		return e
	})

	var names []string
	Walk(body, func(n Node) bool {
		if v, ok := n.(*VariableExpr); ok {
			names = append(names, v.Name)
		}
		if _, ok := n.(*ThisExpr); ok {
			t.Error("Expected every 'this' to be replaced")
		}
		return true
	})
	if strings.Join(names, ",") != "x,self" {
		t.Errorf("Expected x,self, got %v", names)
	}
}

func TestSemanticAnalyzer(t *testing.T) {
	class := &ClassNode{
		Name:   "Person",
		Fields: []*FieldNode{{Name: "name", Type: "String"}},
		Methods: []*MethodNode{
			{
				Name: "greet",
				Body: &BlockStmt{Stmts: []Stmt{
					&ReturnStmt{Value: &VariableExpr{Name: "name"}},
					&ExprStmt{SpanVal: at(7), Expr: &VariableExpr{Name: "name"}},
				}},
			},
			{Name: "greet", Body: &BlockStmt{}},
			{
				Name: "reset",
				Body: &BlockStmt{Stmts: []Stmt{
					&ExprStmt{Expr: &BinaryExpr{Left: &ThisExpr{}, Op: "=", Right: &ConstantExpr{}}},
				}},
			},
			{
				Name:      "make",
				Modifiers: mop.ModStatic,
				Body: &BlockStmt{Stmts: []Stmt{
					&ReturnStmt{Value: &ThisExpr{}},
				}},
			},
		},
	}
	u := NewUnit("Person", &ModuleNode{Classes: []*ClassNode{class}}, nil)
	err := u.Run(PhaseSemanticAnalysis, Analyze)
	if err == nil {
		t.Fatal("Expected semantic errors")
	}

	errs := strings.Join(u.Collector.Errors(), "\n")
	for _, want := range []string{"duplicate method greet()", "cannot assign to 'this'", "static method make"} {
		if !strings.Contains(errs, want) {
			t.Errorf("Expected error %q in:\n%s", want, errs)
		}
	}
	warns := u.Collector.Warnings()
	if len(warns) != 1 || !strings.Contains(warns[0], "line 7") || !strings.Contains(warns[0], "unreachable") {
		t.Errorf("Expected one unreachable-code warning, got %v", warns)
	}
}

func TestSignatureErasure(t *testing.T) {
	m := &MethodNode{Name: "put", Params: []*Parameter{{Name: "k", Type: "List<String>"}, {Name: "v"}}}
	if got := m.Signature(); got != "put(List,Object)" {
		t.Errorf("Expected put(List,Object), got %s", got)
	}
	p := &PropertyNode{Name: "active", Type: "boolean"}
	if p.GetterName() != "isActive" || p.SetterName() != "setActive" {
		t.Errorf("Unexpected accessors %s/%s", p.GetterName(), p.SetterName())
	}
}
