// Package sqlparse wraps the vendored MySQL-flavored SQL parser and
// converts its tree into the canonical internal/sqlast shape (spec §4.2,
// "Parser adapter"). Nothing outside this package imports the underlying
// parser library directly; resolver and validate work only against sqlast.
package sqlparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/internal/sqlast"
	"github.com/xwb1989/sqlparser"
)

// syntaxErrorPositionPattern matches the position the underlying parser's
// tokenizer reports in its own error text ("syntax error at position 12
// near 'x'"), so Parse can cite it on the Diagnostic (spec §4.2, §6).
var syntaxErrorPositionPattern = regexp.MustCompile(`at position (\d+)`)

func syntaxErrorPosition(msg string) (int, bool) {
	m := syntaxErrorPositionPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// idGen assigns stable, increasing IDs to the AST nodes the resolver needs
// to key its annotation maps by (ColumnRef, FuncCall, Select, JoinExpr),
// instead of mutating the node itself.
type idGen struct{ next int }

func (g *idGen) id() int {
	g.next++
	return g.next
}

// Parse parses a single SQL statement and converts it to a sqlast.Statement.
// A parse failure — including a string the underlying parser rejects
// because it holds more than one statement — yields a QuerySyntaxError
// diagnostic rather than an error return: a query the engine cannot parse
// is a query it cannot judge, and is rejected the same way a rule failure
// is (spec §4.2, §7).
func Parse(raw string) (sqlast.Statement, *diagnostic.Diagnostic) {
	stmt, err := sqlparser.Parse(raw)
	if err != nil {
		d := diagnostic.New(diagnostic.KindQuerySyntax, fmt.Sprintf("failed to parse query: %v", err))
		if pos, ok := syntaxErrorPosition(err.Error()); ok {
			d = d.WithLocation(pos, pos+1)
		}
		return nil, d
	}

	g := &idGen{}
	out, convErr := convertStatement(stmt, g)
	if convErr != nil {
		return nil, diagnostic.New(diagnostic.KindQuerySyntax, convErr.Error())
	}
	return out, nil
}

func convertStatement(stmt sqlparser.Statement, g *idGen) (sqlast.Statement, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return convertSelect(s, g)
	case *sqlparser.Union:
		return convertUnion(s, g)
	case *sqlparser.ParenSelect:
		return convertSelectStatement(s.Select, g)
	case *sqlparser.Insert:
		return convertInsert(s, g)
	case *sqlparser.Update:
		return convertUpdate(s, g)
	case *sqlparser.Delete:
		return convertDelete(s, g)
	default:
		return nil, fmt.Errorf("unsupported statement type %T", stmt)
	}
}

// convertSelectStatement handles the SelectStatement interface (the shape a
// subquery or a union arm is expressed in), which a bare *sqlparser.Select
// also satisfies.
func convertSelectStatement(stmt sqlparser.SelectStatement, g *idGen) (sqlast.Statement, error) {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		return convertSelect(s, g)
	case *sqlparser.Union:
		return convertUnion(s, g)
	case *sqlparser.ParenSelect:
		return convertSelectStatement(s.Select, g)
	default:
		return nil, fmt.Errorf("unsupported nested select type %T", stmt)
	}
}

func convertUnion(u *sqlparser.Union, g *idGen) (*sqlast.Union, error) {
	left, err := convertSelectStatement(u.Left, g)
	if err != nil {
		return nil, err
	}
	right, err := convertSelectStatement(u.Right, g)
	if err != nil {
		return nil, err
	}
	return &sqlast.Union{
		Left:  left,
		Right: right,
		All:   strings.Contains(strings.ToLower(u.Type), "all"),
	}, nil
}

func convertSelect(sel *sqlparser.Select, g *idGen) (*sqlast.Select, error) {
	out := &sqlast.Select{
		ID:       g.id(),
		Distinct: sel.Distinct != "",
	}

	for _, se := range sel.SelectExprs {
		item, err := convertSelectItem(se, g)
		if err != nil {
			return nil, err
		}
		out.Projection = append(out.Projection, item)
	}

	from, err := convertTableExprs(sel.From, g)
	if err != nil {
		return nil, err
	}
	out.From = from

	if sel.Where != nil {
		out.Where = convertExpr(sel.Where.Expr, sqlast.RolePredicate, g)
	}
	for _, e := range sel.GroupBy {
		out.GroupBy = append(out.GroupBy, convertExpr(e, sqlast.RoleGroupBy, g))
	}
	if sel.Having != nil {
		out.Having = convertExpr(sel.Having.Expr, sqlast.RolePredicate, g)
	}
	for _, o := range sel.OrderBy {
		out.OrderBy = append(out.OrderBy, sqlast.OrderItem{
			Expr: convertExpr(o.Expr, sqlast.RoleOrderBy, g),
			Desc: strings.EqualFold(strings.TrimSpace(o.Direction), "desc"),
		})
	}
	if sel.Limit != nil {
		if n, ok := intLiteral(sel.Limit.Rowcount); ok {
			out.Limit = &n
		}
		if n, ok := intLiteral(sel.Limit.Offset); ok {
			out.Offset = &n
		}
	}

	return out, nil
}

func convertSelectItem(se sqlparser.SelectExpr, g *idGen) (sqlast.SelectItem, error) {
	switch e := se.(type) {
	case *sqlparser.StarExpr:
		return sqlast.SelectItem{Star: true, StarQualifier: e.TableName.Name.String()}, nil
	case *sqlparser.AliasedExpr:
		return sqlast.SelectItem{
			Expr:  convertExpr(e.Expr, sqlast.RoleProjection, g),
			Alias: e.As.String(),
		}, nil
	default:
		return sqlast.SelectItem{}, fmt.Errorf("unsupported select expression %T", se)
	}
}

func convertTableExprs(tes sqlparser.TableExprs, g *idGen) ([]sqlast.TableExpr, error) {
	out := make([]sqlast.TableExpr, 0, len(tes))
	for _, te := range tes {
		conv, err := convertTableExpr(te, g)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

func convertTableExpr(te sqlparser.TableExpr, g *idGen) (sqlast.TableExpr, error) {
	switch t := te.(type) {
	case *sqlparser.AliasedTableExpr:
		switch inner := t.Expr.(type) {
		case sqlparser.TableName:
			return &sqlast.TableRef{Table: inner.Name.String(), Alias: t.As.String()}, nil
		case *sqlparser.Subquery:
			query, err := convertSelectStatement(inner.Select, g)
			if err != nil {
				return nil, err
			}
			return &sqlast.DerivedTable{Query: query, Alias: t.As.String()}, nil
		default:
			return nil, fmt.Errorf("unsupported table source %T", inner)
		}
	case *sqlparser.JoinTableExpr:
		left, err := convertTableExpr(t.LeftExpr, g)
		if err != nil {
			return nil, err
		}
		right, err := convertTableExpr(t.RightExpr, g)
		if err != nil {
			return nil, err
		}
		join := &sqlast.JoinExpr{
			ID:    g.id(),
			Left:  left,
			Right: right,
			Kind:  joinKind(t.Join),
		}
		if t.Condition.On != nil {
			join.On = convertExpr(t.Condition.On, sqlast.RolePredicate, g)
		}
		for _, c := range t.Condition.Using {
			join.Using = append(join.Using, c.String())
		}
		return join, nil
	case *sqlparser.ParenTableExpr:
		if len(t.Exprs) == 0 {
			return nil, fmt.Errorf("empty parenthesized table expression")
		}
		result, err := convertTableExpr(t.Exprs[0], g)
		if err != nil {
			return nil, err
		}
		for _, rest := range t.Exprs[1:] {
			right, err := convertTableExpr(rest, g)
			if err != nil {
				return nil, err
			}
			result = &sqlast.JoinExpr{ID: g.id(), Left: result, Right: right, Kind: sqlast.JoinCross}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported table expression type %T", te)
	}
}

// joinKind maps the parser's join-keyword string onto sqlast.JoinType. The
// underlying grammar has no FULL JOIN production (a MySQL-dialect
// limitation inherited along with the library, not a gap in our model —
// schema policy can still name JoinFull for dialects that do emit it).
func joinKind(raw string) sqlast.JoinType {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "left"):
		return sqlast.JoinLeft
	case strings.Contains(s, "right"):
		return sqlast.JoinRight
	case strings.Contains(s, "cross"):
		return sqlast.JoinCross
	default:
		return sqlast.JoinInner
	}
}

func intLiteral(e sqlparser.Expr) (int, bool) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, false
	}
	n, err := strconv.Atoi(string(v.Val))
	return n, err == nil
}

// isAggregateName reports whether a function name is one of the
// aggregations schema.AggregationType recognizes; arguments to these calls
// carry RoleAggArg instead of their enclosing role (spec §4.4 rule 5,
// "Aggregation").
func isAggregateName(name string) bool {
	switch strings.ToUpper(name) {
	case "SUM", "AVG", "COUNT", "MIN", "MAX":
		return true
	default:
		return false
	}
}

func convertExpr(e sqlparser.Expr, role sqlast.Role, g *idGen) sqlast.Expr {
	switch v := e.(type) {
	case *sqlparser.ColName:
		return &sqlast.ColumnRef{
			ID:        g.id(),
			Qualifier: v.Qualifier.Name.String(),
			Name:      v.Name.String(),
			Role:      role,
		}
	case *sqlparser.SQLVal:
		return &sqlast.Literal{Text: string(v.Val)}
	case *sqlparser.NullVal:
		return &sqlast.Literal{IsNull: true}
	case *sqlparser.BoolVal:
		return &sqlast.Literal{Text: fmt.Sprintf("%v", bool(*v))}
	case sqlparser.BoolVal:
		return &sqlast.Literal{Text: fmt.Sprintf("%v", bool(v))}
	case *sqlparser.AndExpr:
		return &sqlast.BinaryExpr{Op: "AND", Left: convertExpr(v.Left, role, g), Right: convertExpr(v.Right, role, g)}
	case *sqlparser.OrExpr:
		return &sqlast.BinaryExpr{Op: "OR", Left: convertExpr(v.Left, role, g), Right: convertExpr(v.Right, role, g)}
	case *sqlparser.NotExpr:
		return &sqlast.UnaryExpr{Op: "NOT", Operand: convertExpr(v.Expr, role, g)}
	case *sqlparser.ParenExpr:
		return &sqlast.ParenExpr{Inner: convertExpr(v.Expr, role, g)}
	case *sqlparser.ComparisonExpr:
		return &sqlast.BinaryExpr{Op: v.Operator, Left: convertExpr(v.Left, role, g), Right: convertExpr(v.Right, role, g)}
	case *sqlparser.RangeCond:
		return &sqlast.BinaryExpr{
			Op:   strings.ToUpper(v.Operator),
			Left: convertExpr(v.Left, role, g),
			Right: &sqlast.BinaryExpr{
				Op:    "AND",
				Left:  convertExpr(v.From, role, g),
				Right: convertExpr(v.To, role, g),
			},
		}
	case *sqlparser.IsExpr:
		return &sqlast.UnaryExpr{Op: strings.ToUpper(v.Operator), Operand: convertExpr(v.Expr, role, g)}
	case *sqlparser.ExistsExpr:
		query, err := convertSelectStatement(v.Subquery.Select, g)
		if err != nil {
			return &sqlast.Literal{Text: ""}
		}
		return &sqlast.UnaryExpr{Op: "EXISTS", Operand: &sqlast.Subquery{Query: query}}
	case *sqlparser.Subquery:
		query, err := convertSelectStatement(v.Select, g)
		if err != nil {
			return &sqlast.Literal{Text: ""}
		}
		return &sqlast.Subquery{Query: query}
	case sqlparser.ValTuple:
		items := make([]sqlast.Expr, 0, len(v))
		for _, it := range v {
			items = append(items, convertExpr(it, role, g))
		}
		return &sqlast.ListExpr{Items: items}
	case *sqlparser.FuncExpr:
		name := strings.ToUpper(v.Name.String())
		argRole := role
		if isAggregateName(name) {
			argRole = sqlast.RoleAggArg
		}
		fc := &sqlast.FuncCall{ID: g.id(), Name: name, Distinct: v.Distinct}
		for _, arg := range v.Exprs {
			switch a := arg.(type) {
			case *sqlparser.StarExpr:
				fc.Star = true
			case *sqlparser.AliasedExpr:
				fc.Args = append(fc.Args, convertExpr(a.Expr, argRole, g))
			}
		}
		return fc
	case *sqlparser.BinaryExpr:
		return &sqlast.BinaryExpr{Op: v.Operator, Left: convertExpr(v.Left, role, g), Right: convertExpr(v.Right, role, g)}
	case *sqlparser.UnaryExpr:
		return &sqlast.UnaryExpr{Op: v.Operator, Operand: convertExpr(v.Expr, role, g)}
	default:
		return opaqueFallback(e, role, g)
	}
}

// opaqueFallback handles expression shapes this adapter doesn't model
// structurally (CASE, INTERVAL, CONVERT, COLLATE, and similar). Rather
// than silently dropping any column reference buried inside, it walks the
// underlying parser's own tree for ColName nodes so the resolver and
// validators still see them — an unmodeled expression shape must never be
// a way to smuggle a denied column past the rule engine.
func opaqueFallback(e sqlparser.Expr, role sqlast.Role, g *idGen) sqlast.Expr {
	var refs []sqlast.Expr
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		if cn, ok := node.(*sqlparser.ColName); ok {
			refs = append(refs, &sqlast.ColumnRef{
				ID:        g.id(),
				Qualifier: cn.Qualifier.Name.String(),
				Name:      cn.Name.String(),
				Role:      role,
			})
		}
		return true, nil
	}, e)

	switch len(refs) {
	case 0:
		return &sqlast.Literal{Text: ""}
	case 1:
		return refs[0]
	default:
		return &sqlast.FuncCall{ID: g.id(), Name: "__OPAQUE__", Args: refs}
	}
}

func convertInsert(ins *sqlparser.Insert, g *idGen) (*sqlast.Insert, error) {
	out := &sqlast.Insert{Table: ins.Table.Name.String()}
	for _, c := range ins.Columns {
		out.Columns = append(out.Columns, &sqlast.ColumnRef{
			ID:   g.id(),
			Name: c.String(),
			Role: sqlast.RoleAssignTarget,
		})
	}
	switch rows := ins.Rows.(type) {
	case *sqlparser.Select:
		sel, err := convertSelect(rows, g)
		if err != nil {
			return nil, err
		}
		out.Select = sel
	case *sqlparser.Union, *sqlparser.ParenSelect:
		// A UNION or parenthesized source has no single Select scope to
		// attach to Insert, so the statement is rejected rather than
		// accepted with its source unchecked.
		return nil, fmt.Errorf("unsupported INSERT source %T", rows)
	}
	return out, nil
}

func convertUpdate(upd *sqlparser.Update, g *idGen) (*sqlast.Update, error) {
	if len(upd.TableExprs) != 1 {
		return nil, fmt.Errorf("multi-table UPDATE is not supported")
	}
	table, err := convertTableExpr(upd.TableExprs[0], g)
	if err != nil {
		return nil, err
	}
	out := &sqlast.Update{Table: table}
	for _, e := range upd.Exprs {
		out.Assignments = append(out.Assignments, sqlast.Assignment{
			Target: &sqlast.ColumnRef{
				ID:        g.id(),
				Qualifier: e.Name.Qualifier.Name.String(),
				Name:      e.Name.Name.String(),
				Role:      sqlast.RoleAssignTarget,
			},
			Value: convertExpr(e.Expr, sqlast.RolePredicate, g),
		})
	}
	if upd.Where != nil {
		out.Where = convertExpr(upd.Where.Expr, sqlast.RolePredicate, g)
	}
	return out, nil
}

func convertDelete(del *sqlparser.Delete, g *idGen) (*sqlast.Delete, error) {
	if len(del.TableExprs) != 1 {
		return nil, fmt.Errorf("multi-table DELETE is not supported")
	}
	from, err := convertTableExpr(del.TableExprs[0], g)
	if err != nil {
		return nil, err
	}
	out := &sqlast.Delete{From: from}
	if del.Where != nil {
		out.Where = convertExpr(del.Where.Expr, sqlast.RolePredicate, g)
	}
	return out, nil
}
