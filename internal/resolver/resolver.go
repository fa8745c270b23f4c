// Package resolver implements spec §4.3: it walks a parsed statement's
// FROM/JOIN tree to build per-scope alias bindings, then resolves every
// column reference to the base table that owns it. Resolution results are
// attached by node ID, in side tables keyed off internal/sqlast's integer
// IDs, rather than by mutating the AST — the resolver never owns the tree
// it walks.
package resolver

import (
	"fmt"

	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/internal/sqlast"
	"github.com/askdba/langsec/schema"
)

// Binding is what an alias (or a bare table name used without an alias)
// resolves to within a scope: either a base table or a derived-table scope.
type Binding struct {
	BaseTable string // "" if this binding is a derived scope
	Derived   *Scope // non-nil if this binding is a derived scope
}

// Scope is the resolver's per-SELECT bookkeeping (spec §4.3 "Scopes"): the
// alias bindings introduced by this SELECT's FROM/JOIN list, and a pointer
// to the enclosing scope for names this SELECT doesn't itself bind.
type Scope struct {
	Select   *sqlast.Select
	Bindings map[string]Binding
	Parent   *Scope
}

// Resolution is the outcome of resolving one ColumnRef: either a concrete
// (table, column) pair, or a marker explaining why none exists.
type Resolution struct {
	Table    string
	Column   string
	Role     sqlast.Role
	Computed bool // true if the reference traces back to a derived-scope expression rather than a real column
}

// Result is everything the validators need out of resolution: every
// column reference's resolution (or the diagnostic explaining why it
// couldn't be resolved), keyed by the ColumnRef's ID, plus the synthetic
// resolutions produced by expanding a bare "*" or "t.*" projection item,
// which have no ColumnRef of their own to key off of.
type Result struct {
	Columns    map[int]Resolution
	Expanded   []Resolution
	Diagnostic *diagnostic.Diagnostic // first unresolved reference encountered, if any

	schema *schema.SecuritySchema
}

// Resolve builds scopes for stmt and every nested subquery/derived table,
// and resolves every ColumnRef reachable from it, expanding any "*" or
// "t.*" projection item against s along the way (§4.3 step 4). It stops at
// the first unresolvable reference: an ambiguous or unknown
// qualifier/column makes every later rule moot (§4.3 steps 2-3), so there
// is nothing productive a collect-all caller could do with resolution past
// that point either.
func Resolve(stmt sqlast.Statement, s *schema.SecuritySchema) *Result {
	res := &Result{Columns: map[int]Resolution{}, schema: s}
	resolveStatement(stmt, nil, res)
	return res
}

func resolveStatement(stmt sqlast.Statement, parent *Scope, res *Result) {
	if res.Diagnostic != nil {
		return
	}
	switch s := stmt.(type) {
	case *sqlast.Select:
		resolveSelect(s, parent, res)
	case *sqlast.Union:
		resolveStatement(s.Left, parent, res)
		resolveStatement(s.Right, parent, res)
	case *sqlast.Insert:
		for _, col := range s.Columns {
			res.Columns[col.ID] = Resolution{Table: s.Table, Column: col.Name, Role: col.Role}
		}
		if s.Select != nil {
			resolveSelect(s.Select, parent, res)
		}
	case *sqlast.Update:
		scope := newScope(nil, parent)
		registerTableExpr(scope, s.Table, res)
		for _, a := range s.Assignments {
			resolveColumnRef(a.Target, scope, res)
			resolveExpr(a.Value, scope, res)
		}
		resolveExpr(s.Where, scope, res)
	case *sqlast.Delete:
		scope := newScope(nil, parent)
		registerTableExpr(scope, s.From, res)
		resolveExpr(s.Where, scope, res)
	}
}

func newScope(sel *sqlast.Select, parent *Scope) *Scope {
	return &Scope{Select: sel, Bindings: map[string]Binding{}, Parent: parent}
}

// resolveSelect builds sel's own scope, resolves every reference inside it,
// and returns that scope so a caller registering sel as a derived table can
// expose its real bindings upward (resolveThroughDerived needs them to
// follow a passed-through column the rest of the way to its base table).
func resolveSelect(sel *sqlast.Select, parent *Scope, res *Result) *Scope {
	scope := newScope(sel, parent)

	for _, te := range sel.From {
		registerTableExpr(scope, te, res)
		if res.Diagnostic != nil {
			return scope
		}
	}

	for i := range sel.Projection {
		item := &sel.Projection[i]
		if item.Star {
			expandStar(scope, item.StarQualifier, res)
			continue
		}
		resolveExpr(item.Expr, scope, res)
	}
	resolveExpr(sel.Where, scope, res)
	for _, e := range sel.GroupBy {
		resolveExpr(e, scope, res)
	}
	resolveExpr(sel.Having, scope, res)
	for _, o := range sel.OrderBy {
		resolveExpr(o.Expr, scope, res)
	}
	return scope
}

// registerTableExpr walks one FROM/JOIN entry, binding every alias it
// introduces into scope (§4.3 step 1) and recursing into derived tables
// and joins so their own bindings (and, for derived tables, their own
// nested scope) are built too.
func registerTableExpr(scope *Scope, te sqlast.TableExpr, res *Result) {
	if res.Diagnostic != nil {
		return
	}
	switch t := te.(type) {
	case *sqlast.TableRef:
		scope.Bindings[t.EffectiveAlias()] = Binding{BaseTable: t.Table}
	case *sqlast.DerivedTable:
		var inner *Scope
		if sel, ok := t.Query.(*sqlast.Select); ok {
			// Reuse the inner SELECT's own scope: it already carries the
			// real base-table bindings resolveThroughDerived needs to
			// follow a passed-through column past this derived table.
			inner = resolveSelect(sel, scope.Parent, res)
		} else {
			resolveStatement(t.Query, scope.Parent, res)
			inner = newScope(nil, scope.Parent)
		}
		if res.Diagnostic != nil {
			return
		}
		scope.Bindings[t.Alias] = Binding{Derived: inner}
	case *sqlast.JoinExpr:
		registerTableExpr(scope, t.Left, res)
		if res.Diagnostic != nil {
			return
		}
		registerTableExpr(scope, t.Right, res)
		if res.Diagnostic != nil {
			return
		}
		resolveExpr(t.On, scope, res)
	}
}

func resolveExpr(e sqlast.Expr, scope *Scope, res *Result) {
	if e == nil || res.Diagnostic != nil {
		return
	}
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		resolveColumnRef(n, scope, res)
	case *sqlast.BinaryExpr:
		resolveExpr(n.Left, scope, res)
		resolveExpr(n.Right, scope, res)
	case *sqlast.UnaryExpr:
		resolveExpr(n.Operand, scope, res)
	case *sqlast.FuncCall:
		for _, a := range n.Args {
			resolveExpr(a, scope, res)
		}
	case *sqlast.ParenExpr:
		resolveExpr(n.Inner, scope, res)
	case *sqlast.ListExpr:
		for _, item := range n.Items {
			resolveExpr(item, scope, res)
		}
	case *sqlast.Subquery:
		resolveStatement(n.Query, scope, res)
	}
}

func resolveColumnRef(ref *sqlast.ColumnRef, scope *Scope, res *Result) {
	if ref.Qualifier != "" {
		binding, owner := lookupBinding(scope, ref.Qualifier)
		if owner == nil {
			fail(res, fmt.Sprintf("unresolved qualifier %q", ref.Qualifier))
			return
		}
		resolveAgainstBinding(ref, binding, res)
		return
	}

	table, derived, found, ambiguous := lookupUnqualified(scope, ref.Name)
	if ambiguous {
		fail(res, fmt.Sprintf("ambiguous column %q", ref.Name))
		return
	}
	if !found {
		fail(res, fmt.Sprintf("unresolved column %q", ref.Name))
		return
	}
	if derived != nil {
		resolveThroughDerived(ref, derived, res)
		return
	}
	res.Columns[ref.ID] = Resolution{Table: table, Column: ref.Name, Role: ref.Role}
}

// lookupBinding walks the scope chain looking for alias, returning the
// binding and the scope that owns it (nil if no scope in the chain binds
// it).
func lookupBinding(scope *Scope, alias string) (Binding, *Scope) {
	for s := scope; s != nil; s = s.Parent {
		if b, ok := s.Bindings[alias]; ok {
			return b, s
		}
	}
	return Binding{}, nil
}

func resolveAgainstBinding(ref *sqlast.ColumnRef, b Binding, res *Result) {
	if b.Derived != nil {
		resolveThroughDerived(ref, b.Derived, res)
		return
	}
	res.Columns[ref.ID] = Resolution{Table: b.BaseTable, Column: ref.Name, Role: ref.Role}
}

// lookupUnqualified finds the unique binding in the scope chain that
// exposes a column named name, searching the nearest scope outward (§4.3
// step 2: "find the unique scope-chain binding that exposes a column").
// Zero matches -> found=false; more than one -> ambiguous=true and no
// guess is made.
func lookupUnqualified(scope *Scope, name string) (table string, derived *Scope, found bool, ambiguous bool) {
	for s := scope; s != nil; s = s.Parent {
		var matchTable string
		var matchDerived *Scope
		count := 0
		for _, b := range s.Bindings {
			if b.Derived != nil {
				if _, ok := exportedColumn(b.Derived, name); ok {
					count++
					matchDerived = b.Derived
				}
				continue
			}
			// A bare base-table binding always "could" expose any column
			// name — base-table column membership is validated later, by
			// ColumnAccess against the schema, not here. The resolver's
			// ambiguity check only applies among bindings actually present
			// at this scope, so a base table counts as one candidate
			// whenever a qualifier isn't given and exactly one base table
			// is in scope.
			count++
			matchTable = b.BaseTable
		}
		if count == 1 {
			return matchTable, matchDerived, true, false
		}
		if count > 1 {
			return "", nil, false, true
		}
	}
	return "", nil, false, false
}

// exportedColumn returns the projection expression a derived scope exposes
// under name, per SelectItem.OutputName.
func exportedColumn(scope *Scope, name string) (sqlast.Expr, bool) {
	if scope.Select == nil {
		return nil, false
	}
	for _, item := range scope.Select.Projection {
		if item.OutputName() == name {
			return item.Expr, true
		}
	}
	return nil, false
}

// resolveThroughDerived follows a reference into a derived scope's
// projection (§4.3 step 3): if the exported expression is itself a plain
// column reference, keep following it toward a base table; otherwise the
// reference is a computed expression and is policy-exempt at this level,
// because its underlying columns were already checked inside the
// subquery's own validation pass.
func resolveThroughDerived(ref *sqlast.ColumnRef, scope *Scope, res *Result) {
	expr, ok := exportedColumn(scope, ref.Name)
	if !ok {
		fail(res, fmt.Sprintf("unresolved column %q in derived table", ref.Name))
		return
	}
	inner, ok := expr.(*sqlast.ColumnRef)
	if !ok {
		res.Columns[ref.ID] = Resolution{Computed: true, Role: ref.Role}
		return
	}
	resolveColumnRef(&sqlast.ColumnRef{ID: ref.ID, Qualifier: inner.Qualifier, Name: inner.Name, Role: ref.Role}, scope, res)
}

func fail(res *Result, message string) {
	if res.Diagnostic == nil {
		res.Diagnostic = diagnostic.New(diagnostic.KindColumnAccess, message)
	}
}
