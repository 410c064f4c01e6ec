package compiler

// ---------------------------------------------------------------------------
// Tree traversal
// ---------------------------------------------------------------------------

// Walk visits n and its descendants in depth-first pre-order. Returning false
// from fn skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch x := n.(type) {
	case *ModuleNode:
		for _, c := range x.Classes {
			Walk(c, fn)
		}
	case *ClassNode:
		for _, f := range x.Fields {
			Walk(f, fn)
		}
		for _, p := range x.Properties {
			Walk(p, fn)
		}
		for _, m := range x.Constructors {
			Walk(m, fn)
		}
		for _, m := range x.Methods {
			Walk(m, fn)
		}
		for _, b := range x.ObjectInitializers {
			Walk(b, fn)
		}
		for _, b := range x.StaticInitializers {
			Walk(b, fn)
		}
	case *FieldNode:
		walkExpr(x.Init, fn)
	case *PropertyNode:
		walkExpr(x.Init, fn)
	case *MethodNode:
		for _, p := range x.Params {
			Walk(p, fn)
		}
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	case *Parameter:
		walkExpr(x.Default, fn)

	case *BlockStmt:
		for _, s := range x.Stmts {
			Walk(s, fn)
		}
	case *ExprStmt:
		walkExpr(x.Expr, fn)
	case *ReturnStmt:
		walkExpr(x.Value, fn)
	case *IfStmt:
		walkExpr(x.Cond, fn)
		if x.Then != nil {
			Walk(x.Then, fn)
		}
		if x.Else != nil {
			Walk(x.Else, fn)
		}
	case *DeclStmt:
		walkExpr(x.Init, fn)

	case *PropertyExpr:
		walkExpr(x.Object, fn)
	case *FieldExpr:
		walkExpr(x.Object, fn)
	case *MethodCallExpr:
		walkExpr(x.Receiver, fn)
		for _, a := range x.Args {
			walkExpr(a, fn)
		}
	case *StaticMethodCallExpr:
		for _, a := range x.Args {
			walkExpr(a, fn)
		}
	case *BinaryExpr:
		walkExpr(x.Left, fn)
		walkExpr(x.Right, fn)
	case *PrefixExpr:
		walkExpr(x.Operand, fn)
	case *PostfixExpr:
		walkExpr(x.Operand, fn)
	case *CastExpr:
		walkExpr(x.Expr, fn)
	case *ClosureExpr:
		for _, p := range x.Params {
			Walk(p, fn)
		}
		if x.Body != nil {
			Walk(x.Body, fn)
		}
	}
}

// walkExpr guards against typed nil expressions in optional slots.
func walkExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Walk(e, fn)
	}
}

// Transformer replaces an expression. It is called after the expression's
// children have been transformed and returns the expression to keep.
type Transformer func(Expr) Expr

// Transform rewrites e bottom-up with fn.
func Transform(e Expr, fn Transformer) Expr {
	if e == nil {
		return nil
	}
	switch x := e.(type) {
	case *PropertyExpr:
		x.Object = Transform(x.Object, fn)
	case *FieldExpr:
		x.Object = Transform(x.Object, fn)
	case *MethodCallExpr:
		x.Receiver = Transform(x.Receiver, fn)
		transformAll(x.Args, fn)
	case *StaticMethodCallExpr:
		transformAll(x.Args, fn)
	case *BinaryExpr:
		x.Left = Transform(x.Left, fn)
		x.Right = Transform(x.Right, fn)
	case *PrefixExpr:
		x.Operand = Transform(x.Operand, fn)
	case *PostfixExpr:
		x.Operand = Transform(x.Operand, fn)
	case *CastExpr:
		x.Expr = Transform(x.Expr, fn)
	case *ClosureExpr:
		for _, p := range x.Params {
			p.Default = Transform(p.Default, fn)
		}
		TransformStmt(x.Body, fn)
	}
	return fn(e)
}

func transformAll(es []Expr, fn Transformer) {
	for i, a := range es {
		es[i] = Transform(a, fn)
	}
}

// TransformStmt rewrites every expression under s in place.
func TransformStmt(s Stmt, fn Transformer) {
	switch x := s.(type) {
	case *BlockStmt:
		if x == nil {
			return
		}
		for _, st := range x.Stmts {
			TransformStmt(st, fn)
		}
	case *ExprStmt:
		x.Expr = Transform(x.Expr, fn)
	case *ReturnStmt:
		x.Value = Transform(x.Value, fn)
	case *IfStmt:
		x.Cond = Transform(x.Cond, fn)
		TransformStmt(x.Then, fn)
		TransformStmt(x.Else, fn)
	case *DeclStmt:
		x.Init = Transform(x.Init, fn)
	}
}

// LocalNames returns the parameter and local variable names visible anywhere
// in m, closure parameters included.
func LocalNames(m *MethodNode) map[string]bool {
	names := make(map[string]bool)
	for _, p := range m.Params {
		names[p.Name] = true
	}
	if m.Body == nil {
		return names
	}
	Walk(m.Body, func(n Node) bool {
		switch x := n.(type) {
		case *DeclStmt:
			names[x.Name] = true
		case *ClosureExpr:
			for _, p := range x.Params {
				names[p.Name] = true
			}
		}
		return true
	})
	return names
}
