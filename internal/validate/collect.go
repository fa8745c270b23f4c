package validate

import (
	"strings"

	"github.com/askdba/langsec/internal/sqlast"
	"github.com/askdba/langsec/schema"
)

// ColumnOccurrence is one ColumnRef encountered during the scope walk, with
// the write-operation context it needs if its Role is RoleAssignTarget
// (spec §9(d): WRITE is meaningful only for UPDATE/INSERT).
type ColumnOccurrence struct {
	Ref *sqlast.ColumnRef
	Op  schema.Operation
}

// ScopeInfo is everything a validator needs about one SELECT (or the
// pseudo-scope of a single-table UPDATE/DELETE/INSERT), without crossing
// into a nested scope's own contents — those get their own ScopeInfo.
type ScopeInfo struct {
	Select       *sqlast.Select
	Top          bool // true only for the outermost statement passed to Collect
	Where        sqlast.Expr
	DirectTables []*sqlast.TableRef
	Joins        []*sqlast.JoinExpr
	ColumnRefs   []ColumnOccurrence
	Aggregates   []*sqlast.FuncCall
}

// Collected is the result of walking a statement once, organized by scope,
// in source order throughout — every slice this package later iterates
// for diagnostics is built in a deterministic, visitation order so
// fail-fast's "first in source order" tie-break (spec §4.4) is meaningful.
type Collected struct {
	Scopes          []*ScopeInfo
	HasNestedSelect bool
}

// Collect walks stmt and every scope nested inside it (derived tables,
// scalar/EXISTS/IN subqueries, union arms, an INSERT...SELECT source) and
// returns one ScopeInfo per scope.
func Collect(stmt sqlast.Statement) *Collected {
	c := &Collected{}
	collectStmt(stmt, true, c)
	return c
}

func collectStmt(stmt sqlast.Statement, top bool, c *Collected) {
	switch s := stmt.(type) {
	case *sqlast.Select:
		info := &ScopeInfo{Select: s, Top: top, Where: s.Where}
		for _, te := range s.From {
			collectFromTree(te, info, c)
		}
		for _, item := range s.Projection {
			if !item.Star {
				collectExprInScope(item.Expr, info, c)
			}
		}
		collectExprInScope(s.Where, info, c)
		for _, e := range s.GroupBy {
			collectExprInScope(e, info, c)
		}
		collectExprInScope(s.Having, info, c)
		for _, o := range s.OrderBy {
			collectExprInScope(o.Expr, info, c)
		}
		c.Scopes = append(c.Scopes, info)

	case *sqlast.Union:
		collectStmt(s.Left, top, c)
		collectStmt(s.Right, top, c)

	case *sqlast.Insert:
		info := &ScopeInfo{Top: top, DirectTables: []*sqlast.TableRef{{Table: s.Table}}}
		for _, col := range s.Columns {
			info.ColumnRefs = append(info.ColumnRefs, ColumnOccurrence{Ref: col, Op: schema.OpInsert})
		}
		c.Scopes = append(c.Scopes, info)
		if s.Select != nil {
			// An INSERT ... SELECT source is a nested query from the
			// policy's point of view: it is subject to allow_subqueries
			// the same way a derived table or scalar subquery is.
			c.HasNestedSelect = true
			collectStmt(s.Select, false, c)
		}

	case *sqlast.Update:
		info := &ScopeInfo{Top: top, Where: s.Where}
		collectFromTree(s.Table, info, c)
		for _, a := range s.Assignments {
			info.ColumnRefs = append(info.ColumnRefs, ColumnOccurrence{Ref: a.Target, Op: schema.OpUpdate})
			collectExprInScope(a.Value, info, c)
		}
		collectExprInScope(s.Where, info, c)
		c.Scopes = append(c.Scopes, info)

	case *sqlast.Delete:
		info := &ScopeInfo{Top: top, Where: s.Where}
		collectFromTree(s.From, info, c)
		collectExprInScope(s.Where, info, c)
		c.Scopes = append(c.Scopes, info)
	}
}

// collectFromTree walks one FROM/JOIN entry belonging to info's scope,
// recording its direct base tables and joins, and registering a nested
// scope for every derived table it finds along the way.
func collectFromTree(te sqlast.TableExpr, info *ScopeInfo, c *Collected) {
	switch t := te.(type) {
	case *sqlast.TableRef:
		info.DirectTables = append(info.DirectTables, t)
	case *sqlast.DerivedTable:
		c.HasNestedSelect = true
		collectStmt(t.Query, false, c)
	case *sqlast.JoinExpr:
		collectFromTree(t.Left, info, c)
		info.Joins = append(info.Joins, t)
		collectFromTree(t.Right, info, c)
		collectExprInScope(t.On, info, c)
	}
}

func collectExprInScope(e sqlast.Expr, info *ScopeInfo, c *Collected) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		info.ColumnRefs = append(info.ColumnRefs, ColumnOccurrence{Ref: n})
	case *sqlast.BinaryExpr:
		collectExprInScope(n.Left, info, c)
		collectExprInScope(n.Right, info, c)
	case *sqlast.UnaryExpr:
		collectExprInScope(n.Operand, info, c)
	case *sqlast.FuncCall:
		if isAggregateName(n.Name) {
			info.Aggregates = append(info.Aggregates, n)
		}
		for _, a := range n.Args {
			collectExprInScope(a, info, c)
		}
	case *sqlast.ParenExpr:
		collectExprInScope(n.Inner, info, c)
	case *sqlast.ListExpr:
		for _, item := range n.Items {
			collectExprInScope(item, info, c)
		}
	case *sqlast.Subquery:
		c.HasNestedSelect = true
		collectStmt(n.Query, false, c)
	}
}

func isAggregateName(name string) bool {
	switch strings.ToUpper(name) {
	case string(schema.AggSum), string(schema.AggAvg), string(schema.AggCount), string(schema.AggMin), string(schema.AggMax):
		return true
	default:
		return false
	}
}

// isTrivialConstant reports whether e is a predicate that can never
// meaningfully restrict a result set — the WhereRequired validator (spec
// §4.4 rule 7) treats such a WHERE the same as having none.
func isTrivialConstant(e sqlast.Expr) bool {
	switch n := e.(type) {
	case nil:
		return true
	case *sqlast.Literal:
		return true
	case *sqlast.ParenExpr:
		return isTrivialConstant(n.Inner)
	case *sqlast.BinaryExpr:
		if strings.EqualFold(n.Op, "AND") || strings.EqualFold(n.Op, "OR") {
			return isTrivialConstant(n.Left) && isTrivialConstant(n.Right)
		}
		left, leftOK := n.Left.(*sqlast.Literal)
		right, rightOK := n.Right.(*sqlast.Literal)
		return leftOK && rightOK && left.Text == right.Text
	default:
		return false
	}
}
