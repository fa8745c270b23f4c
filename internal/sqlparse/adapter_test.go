package sqlparse

import (
	"testing"

	"github.com/askdba/langsec/internal/sqlast"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, diag := Parse("SELECT id, username FROM users WHERE id = 1")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v, want none", diag)
	}
	sel, ok := stmt.(*sqlast.Select)
	if !ok {
		t.Fatalf("Parse() returned %T, want *sqlast.Select", stmt)
	}
	if len(sel.Projection) != 2 {
		t.Fatalf("Projection has %d items, want 2", len(sel.Projection))
	}
	if sel.Projection[0].OutputName() != "id" {
		t.Errorf("Projection[0].OutputName() = %q, want %q", sel.Projection[0].OutputName(), "id")
	}
	ref, ok := sel.From[0].(*sqlast.TableRef)
	if !ok || ref.Table != "users" {
		t.Fatalf("From[0] = %+v, want TableRef{Table: users}", sel.From[0])
	}
	if sel.Where == nil {
		t.Error("expected a Where expression")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, diag := Parse("this is not sql at all (((")
	if diag == nil {
		t.Fatal("expected a diagnostic for unparsable input")
	}
	if diag.Kind != "QuerySyntaxError" {
		t.Errorf("diag.Kind = %v, want QuerySyntaxError", diag.Kind)
	}
}

func TestSyntaxErrorPositionExtractsPosition(t *testing.T) {
	pos, ok := syntaxErrorPosition("syntax error at position 12 near 'FROM'")
	if !ok || pos != 12 {
		t.Fatalf("syntaxErrorPosition() = (%d, %v), want (12, true)", pos, ok)
	}
	if _, ok := syntaxErrorPosition("some unrelated parser error"); ok {
		t.Error("syntaxErrorPosition() = ok, want false for a message with no position")
	}
}

func TestParseRejectsGarbageAttachesLocationWhenParserReportsOne(t *testing.T) {
	_, diag := Parse("this is not sql at all (((")
	if diag == nil {
		t.Fatal("expected a diagnostic for unparsable input")
	}
	if pos, ok := syntaxErrorPosition(diag.Message); ok {
		if diag.Location == nil || diag.Location.Start != pos {
			t.Errorf("Location = %+v, want Start = %d (parsed from the underlying error)", diag.Location, pos)
		}
	}
}

func TestParseJoinProducesJoinExpr(t *testing.T) {
	stmt, diag := Parse("SELECT u.id FROM users u INNER JOIN orders o ON u.id = o.user_id")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	sel := stmt.(*sqlast.Select)
	join, ok := sel.From[0].(*sqlast.JoinExpr)
	if !ok {
		t.Fatalf("From[0] = %T, want *sqlast.JoinExpr", sel.From[0])
	}
	if join.Kind != sqlast.JoinInner {
		t.Errorf("join.Kind = %v, want INNER", join.Kind)
	}
	left := join.Left.(*sqlast.TableRef)
	right := join.Right.(*sqlast.TableRef)
	if left.Table != "users" || left.Alias != "u" {
		t.Errorf("join.Left = %+v, want users/u", left)
	}
	if right.Table != "orders" || right.Alias != "o" {
		t.Errorf("join.Right = %+v, want orders/o", right)
	}
	if join.On == nil {
		t.Error("expected an ON predicate")
	}
	if got := sqlast.CountJoins(sel.From[0]); got != 1 {
		t.Errorf("CountJoins() = %d, want 1", got)
	}
}

func TestParseLeftJoin(t *testing.T) {
	stmt, diag := Parse("SELECT 1 FROM a LEFT JOIN b ON a.id = b.a_id")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	sel := stmt.(*sqlast.Select)
	join := sel.From[0].(*sqlast.JoinExpr)
	if join.Kind != sqlast.JoinLeft {
		t.Errorf("join.Kind = %v, want LEFT", join.Kind)
	}
}

func TestParseDerivedTable(t *testing.T) {
	stmt, diag := Parse("SELECT t.id FROM (SELECT id FROM users) AS t")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	sel := stmt.(*sqlast.Select)
	derived, ok := sel.From[0].(*sqlast.DerivedTable)
	if !ok {
		t.Fatalf("From[0] = %T, want *sqlast.DerivedTable", sel.From[0])
	}
	if derived.Alias != "t" {
		t.Errorf("derived.Alias = %q, want %q", derived.Alias, "t")
	}
	if _, ok := derived.Query.(*sqlast.Select); !ok {
		t.Errorf("derived.Query = %T, want *sqlast.Select", derived.Query)
	}
}

func TestParseAggregateArgumentRole(t *testing.T) {
	stmt, diag := Parse("SELECT SUM(amount) FROM orders")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	sel := stmt.(*sqlast.Select)
	fc, ok := sel.Projection[0].Expr.(*sqlast.FuncCall)
	if !ok {
		t.Fatalf("Projection[0].Expr = %T, want *sqlast.FuncCall", sel.Projection[0].Expr)
	}
	if fc.Name != "SUM" {
		t.Errorf("fc.Name = %q, want SUM", fc.Name)
	}
	col, ok := fc.Args[0].(*sqlast.ColumnRef)
	if !ok {
		t.Fatalf("fc.Args[0] = %T, want *sqlast.ColumnRef", fc.Args[0])
	}
	if col.Role != sqlast.RoleAggArg {
		t.Errorf("col.Role = %v, want RoleAggArg", col.Role)
	}
}

func TestParseSubqueryInWhere(t *testing.T) {
	stmt, diag := Parse("SELECT id FROM orders WHERE user_id IN (SELECT id FROM users)")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	sel := stmt.(*sqlast.Select)
	cmp, ok := sel.Where.(*sqlast.BinaryExpr)
	if !ok {
		t.Fatalf("Where = %T, want *sqlast.BinaryExpr", sel.Where)
	}
	if _, ok := cmp.Right.(*sqlast.Subquery); !ok {
		t.Errorf("cmp.Right = %T, want *sqlast.Subquery", cmp.Right)
	}
}

func TestParseInsertColumnsAreAssignTargets(t *testing.T) {
	stmt, diag := Parse("INSERT INTO orders (user_id, amount) VALUES (1, 2)")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	ins, ok := stmt.(*sqlast.Insert)
	if !ok {
		t.Fatalf("Parse() returned %T, want *sqlast.Insert", stmt)
	}
	if len(ins.Columns) != 2 || ins.Columns[0].Role != sqlast.RoleAssignTarget {
		t.Errorf("ins.Columns = %+v, want 2 assign-target columns", ins.Columns)
	}
}

func TestParseUpdateAssignment(t *testing.T) {
	stmt, diag := Parse("UPDATE orders SET amount = 5 WHERE id = 1")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	upd, ok := stmt.(*sqlast.Update)
	if !ok {
		t.Fatalf("Parse() returned %T, want *sqlast.Update", stmt)
	}
	if len(upd.Assignments) != 1 || upd.Assignments[0].Target.Name != "amount" {
		t.Errorf("upd.Assignments = %+v, want one assignment to amount", upd.Assignments)
	}
	if upd.Where == nil {
		t.Error("expected a Where expression")
	}
}

func TestParseDelete(t *testing.T) {
	stmt, diag := Parse("DELETE FROM orders WHERE id = 1")
	if diag != nil {
		t.Fatalf("Parse() diagnostic = %v", diag)
	}
	del, ok := stmt.(*sqlast.Delete)
	if !ok {
		t.Fatalf("Parse() returned %T, want *sqlast.Delete", stmt)
	}
	if del.Where == nil {
		t.Error("expected a Where expression")
	}
}
