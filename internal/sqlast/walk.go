package sqlast

// WalkExpr calls visit on e and then recursively on every child expression,
// stopping early if visit returns false. It mirrors the vendored parser's
// own Walk (internal/sqlparse adapts sqlparser.Walk the same way), but
// operates on the canonical sqlast tree instead of the parser's types.
func WalkExpr(e Expr, visit func(Expr) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	switch n := e.(type) {
	case *BinaryExpr:
		WalkExpr(n.Left, visit)
		WalkExpr(n.Right, visit)
	case *UnaryExpr:
		WalkExpr(n.Operand, visit)
	case *FuncCall:
		for _, a := range n.Args {
			WalkExpr(a, visit)
		}
	case *ParenExpr:
		WalkExpr(n.Inner, visit)
	case *ListExpr:
		for _, item := range n.Items {
			WalkExpr(item, visit)
		}
	case *Subquery:
		// Column references inside a subquery belong to the subquery's own
		// scope; callers that need to recurse into it do so explicitly via
		// n.Query, not through WalkExpr, to keep scope boundaries visible.
	}
}

// ColumnRefs returns every ColumnRef reachable from e without crossing into
// a nested Subquery.
func ColumnRefs(e Expr) []*ColumnRef {
	var out []*ColumnRef
	WalkExpr(e, func(n Expr) bool {
		if ref, ok := n.(*ColumnRef); ok {
			out = append(out, ref)
		}
		return true
	})
	return out
}

// FuncCalls returns every FuncCall reachable from e without crossing into
// a nested Subquery.
func FuncCalls(e Expr) []*FuncCall {
	var out []*FuncCall
	WalkExpr(e, func(n Expr) bool {
		if fc, ok := n.(*FuncCall); ok {
			out = append(out, fc)
		}
		return true
	})
	return out
}

// Subqueries returns every immediate Subquery node reachable from e
// (without descending into those subqueries' own bodies).
func Subqueries(e Expr) []*Subquery {
	var out []*Subquery
	WalkExpr(e, func(n Expr) bool {
		if sq, ok := n.(*Subquery); ok {
			out = append(out, sq)
			return false
		}
		return true
	})
	return out
}

// WalkTableExpr calls visit on every TableRef and DerivedTable reachable
// from te, recursing through JoinExpr nodes.
func WalkTableExpr(te TableExpr, visit func(TableExpr)) {
	if te == nil {
		return
	}
	switch t := te.(type) {
	case *JoinExpr:
		WalkTableExpr(t.Left, visit)
		WalkTableExpr(t.Right, visit)
	default:
		visit(te)
	}
}

// Joins returns every JoinExpr in the FROM tree rooted at te, in
// left-to-right, depth-first order.
func Joins(te TableExpr) []*JoinExpr {
	var out []*JoinExpr
	var walk func(TableExpr)
	walk = func(t TableExpr) {
		if j, ok := t.(*JoinExpr); ok {
			walk(j.Left)
			out = append(out, j)
			walk(j.Right)
		}
	}
	walk(te)
	return out
}
