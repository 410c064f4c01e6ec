package compiler

import "github.com/chazu/dynlink/mop"

// ---------------------------------------------------------------------------
// AST: typed class and expression tree handed over by the parser
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Well-known annotation names.
const (
	AnnTrait         = "Trait"
	AnnForceOverride = "ForceOverride"
	AnnTraitBridge   = "TraitBridge"
)

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// ConstantExpr is a literal value: number, string, boolean or null.
type ConstantExpr struct {
	SpanVal Span
	Value   mop.Value
}

func (n *ConstantExpr) Span() Span { return n.SpanVal }
func (n *ConstantExpr) node()      {}
func (n *ConstantExpr) expr()      {}

// VariableExpr references a local variable, a parameter, or a field named
// without a receiver.
type VariableExpr struct {
	SpanVal Span
	Name    string
}

func (n *VariableExpr) Span() Span { return n.SpanVal }
func (n *VariableExpr) node()      {}
func (n *VariableExpr) expr()      {}

// ThisExpr is the 'this' pseudo-variable.
type ThisExpr struct {
	SpanVal Span
}

func (n *ThisExpr) Span() Span { return n.SpanVal }
func (n *ThisExpr) node()      {}
func (n *ThisExpr) expr()      {}

// SuperExpr is the 'super' pseudo-variable.
type SuperExpr struct {
	SpanVal Span
}

func (n *SuperExpr) Span() Span { return n.SpanVal }
func (n *SuperExpr) node()      {}
func (n *SuperExpr) expr()      {}

// PropertyExpr is a property access (obj.name). ImplicitThis marks a bare
// name the parser resolved to a property of this.
type PropertyExpr struct {
	SpanVal      Span
	Object       Expr
	Property     string
	Safe         bool
	ImplicitThis bool
}

func (n *PropertyExpr) Span() Span { return n.SpanVal }
func (n *PropertyExpr) node()      {}
func (n *PropertyExpr) expr()      {}

// FieldExpr is a direct field access (obj.@name).
type FieldExpr struct {
	SpanVal Span
	Object  Expr
	Field   string
}

func (n *FieldExpr) Span() Span { return n.SpanVal }
func (n *FieldExpr) node()      {}
func (n *FieldExpr) expr()      {}

// MethodCallExpr is a dynamically dispatched call. ImplicitThis marks a call
// written without a receiver.
type MethodCallExpr struct {
	SpanVal      Span
	Receiver     Expr
	Name         string
	Args         []Expr
	ImplicitThis bool
	Safe         bool
	Spread       bool
}

func (n *MethodCallExpr) Span() Span { return n.SpanVal }
func (n *MethodCallExpr) node()      {}
func (n *MethodCallExpr) expr()      {}

// StaticMethodCallExpr calls a static method of a named class.
type StaticMethodCallExpr struct {
	SpanVal Span
	Owner   string
	Name    string
	Args    []Expr
}

func (n *StaticMethodCallExpr) Span() Span { return n.SpanVal }
func (n *StaticMethodCallExpr) node()      {}
func (n *StaticMethodCallExpr) expr()      {}

// BinaryExpr is a binary operation. Op "=" and the compound forms ("+=",
// "-=", ...) are assignments to Left.
type BinaryExpr struct {
	SpanVal Span
	Left    Expr
	Op      string
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// IsAssignment reports whether the expression assigns to Left.
func (n *BinaryExpr) IsAssignment() bool {
	return n.Op == "=" || CompoundOperator(n.Op) != ""
}

// CompoundOperator returns the arithmetic operator of a compound assignment
// ("+" for "+="), or "" when op is not one.
func CompoundOperator(op string) string {
	switch op {
	case "+=", "-=", "*=", "/=", "%=", "**=", "<<=", ">>=", "&=", "|=", "^=":
		return op[:len(op)-1]
	}
	return ""
}

// PrefixExpr is a prefix operator such as ++x or -x.
type PrefixExpr struct {
	SpanVal Span
	Op      string
	Operand Expr
}

func (n *PrefixExpr) Span() Span { return n.SpanVal }
func (n *PrefixExpr) node()      {}
func (n *PrefixExpr) expr()      {}

// PostfixExpr is x++ or x--.
type PostfixExpr struct {
	SpanVal Span
	Operand Expr
	Op      string
}

func (n *PostfixExpr) Span() Span { return n.SpanVal }
func (n *PostfixExpr) node()      {}
func (n *PostfixExpr) expr()      {}

// CastExpr is (Type) expr.
type CastExpr struct {
	SpanVal Span
	Type    string
	Expr    Expr
}

func (n *CastExpr) Span() Span { return n.SpanVal }
func (n *CastExpr) node()      {}
func (n *CastExpr) expr()      {}

// ClassExpr is a class reference used as a value.
type ClassExpr struct {
	SpanVal Span
	Type    string
}

func (n *ClassExpr) Span() Span { return n.SpanVal }
func (n *ClassExpr) node()      {}
func (n *ClassExpr) expr()      {}

// ClosureExpr is a closure literal { a, b -> ... }.
type ClosureExpr struct {
	SpanVal Span
	Params  []*Parameter
	Body    *BlockStmt
}

func (n *ClosureExpr) Span() Span { return n.SpanVal }
func (n *ClosureExpr) node()      {}
func (n *ClosureExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// BlockStmt is a sequence of statements.
type BlockStmt struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// ReturnStmt returns Value, or nothing when Value is nil.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// IfStmt is if (Cond) Then else Else. Else may be nil.
type IfStmt struct {
	SpanVal Span
	Cond    Expr
	Then    Stmt
	Else    Stmt
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// DeclStmt declares a local variable.
type DeclStmt struct {
	SpanVal Span
	Name    string
	Type    string
	Init    Expr
}

func (n *DeclStmt) Span() Span { return n.SpanVal }
func (n *DeclStmt) node()      {}
func (n *DeclStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Declaration nodes
// ---------------------------------------------------------------------------

// Parameter is a method, constructor or closure parameter.
type Parameter struct {
	SpanVal Span
	Name    string
	Type    string
	Default Expr
}

func (n *Parameter) Span() Span { return n.SpanVal }
func (n *Parameter) node()      {}

// FieldNode is a declared field.
type FieldNode struct {
	SpanVal     Span
	Name        string
	Type        string
	Modifiers   mop.Modifiers
	Init        Expr
	Annotations []string
}

func (n *FieldNode) Span() Span { return n.SpanVal }
func (n *FieldNode) node()      {}

// PropertyNode is a property: a private field plus public accessors.
type PropertyNode struct {
	SpanVal   Span
	Name      string
	Type      string
	Modifiers mop.Modifiers
	Init      Expr
}

func (n *PropertyNode) Span() Span { return n.SpanVal }
func (n *PropertyNode) node()      {}

// GetterName returns the accessor reading the property.
func (n *PropertyNode) GetterName() string {
	if n.Type == "boolean" {
		return mop.AccessorName("is", n.Name)
	}
	return mop.AccessorName("get", n.Name)
}

// SetterName returns the accessor writing the property.
func (n *PropertyNode) SetterName() string { return mop.AccessorName("set", n.Name) }

// MethodNode is a method or constructor. A nil Body marks an abstract method.
type MethodNode struct {
	SpanVal     Span
	Name        string
	Params      []*Parameter
	ReturnType  string // "void" for no result
	Modifiers   mop.Modifiers
	Body        *BlockStmt
	Annotations []string
	Generated   bool
}

func (n *MethodNode) Span() Span { return n.SpanVal }
func (n *MethodNode) node()      {}

// IsAbstract reports whether the method has no body.
func (n *MethodNode) IsAbstract() bool { return n.Body == nil || n.Modifiers.Has(mop.ModAbstract) }

// IsStatic reports whether the method is static.
func (n *MethodNode) IsStatic() bool { return n.Modifiers.Has(mop.ModStatic) }

// IsVoid reports whether the method returns nothing.
func (n *MethodNode) IsVoid() bool { return n.ReturnType == "" || n.ReturnType == "void" }

// HasAnnotation reports whether the method carries annotation name.
func (n *MethodNode) HasAnnotation(name string) bool { return hasAnnotation(n.Annotations, name) }

// Signature returns name plus erased parameter types, e.g. "greet(String,int)".
func (n *MethodNode) Signature() string {
	sig := n.Name + "("
	for i, p := range n.Params {
		if i > 0 {
			sig += ","
		}
		sig += ErasedType(p.Type)
	}
	return sig + ")"
}

// ErasedType strips generic arguments and defaults an empty type to Object.
func ErasedType(t string) string {
	for i := 0; i < len(t); i++ {
		if t[i] == '<' {
			t = t[:i]
			break
		}
	}
	if t == "" || t == "def" {
		return "Object"
	}
	return t
}

// ClassNode is a class, interface or trait declaration.
type ClassNode struct {
	SpanVal            Span
	Name               string
	Superclass         string
	Interfaces         []string
	Modifiers          mop.Modifiers
	Annotations        []string
	Fields             []*FieldNode
	Properties         []*PropertyNode
	Methods            []*MethodNode
	Constructors       []*MethodNode
	ObjectInitializers []*BlockStmt
	StaticInitializers []*BlockStmt
	Generated          bool
}

func (n *ClassNode) Span() Span { return n.SpanVal }
func (n *ClassNode) node()      {}

// IsTrait reports whether the class is annotated as a trait.
func (n *ClassNode) IsTrait() bool { return hasAnnotation(n.Annotations, AnnTrait) }

// IsInterface reports whether the declaration is an interface.
func (n *ClassNode) IsInterface() bool { return n.Modifiers.Has(mop.ModInterface) }

// Field returns the declared field named name, or nil.
func (n *ClassNode) Field(name string) *FieldNode {
	for _, f := range n.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Property returns the declared property named name, or nil.
func (n *ClassNode) Property(name string) *PropertyNode {
	for _, p := range n.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Method returns the declared method with the given signature, or nil.
func (n *ClassNode) Method(signature string) *MethodNode {
	for _, m := range n.Methods {
		if m.Signature() == signature {
			return m
		}
	}
	return nil
}

// AddInterface adds iface unless the class already implements it.
func (n *ClassNode) AddInterface(iface string) {
	for _, i := range n.Interfaces {
		if i == iface {
			return
		}
	}
	n.Interfaces = append(n.Interfaces, iface)
}

func hasAnnotation(anns []string, name string) bool {
	for _, a := range anns {
		if a == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// ModuleNode is one compilation unit's class declarations.
type ModuleNode struct {
	SpanVal Span
	Classes []*ClassNode
}

func (n *ModuleNode) Span() Span { return n.SpanVal }
func (n *ModuleNode) node()      {}

// Class returns the class declared as name, or nil.
func (n *ModuleNode) Class(name string) *ClassNode {
	for _, c := range n.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddClass appends a generated class.
func (n *ModuleNode) AddClass(c *ClassNode) {
	n.Classes = append(n.Classes, c)
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}

// ZeroSpan returns an empty span.
func ZeroSpan() Span {
	return Span{}
}
