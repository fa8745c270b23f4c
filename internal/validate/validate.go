// Package validate implements the rule engine (spec §4.4): eight
// validators run in a fixed order against a resolved statement, each
// emitting zero or more diagnostics. Ordering is chosen so a query
// rejected for more than one reason reports the most structurally
// fundamental one first — a table the caller cannot see at all outranks
// a column-level detail about it.
package validate

import (
	"fmt"
	"strings"

	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/internal/resolver"
	"github.com/askdba/langsec/internal/sqlast"
	"github.com/askdba/langsec/schema"
)

// Mode selects how the engine behaves once a validator produces findings.
type Mode int

const (
	// FailFast stops at the first validator that produces any finding and
	// reports only that finding (spec §4.4 "Failure mode", the default).
	FailFast Mode = iota
	// CollectAll runs every validator to completion regardless of earlier
	// failures and reports every finding: as a diagnostic.Composite when
	// there is more than one, otherwise as the single diagnostic.
	CollectAll
)

type validatorFunc func(stmt sqlast.Statement, c *Collected, s *schema.SecuritySchema, res *resolver.Result) []*diagnostic.Diagnostic

// order is the fixed validator sequence spec §4.4's table lists, 1 through
// 8. Both run modes execute it in this order; only how findings are
// collected differs.
var order = []validatorFunc{
	tableAccess,
	columnAccess,
	joinPolicy,
	joinCount,
	aggregation,
	subquery,
	whereRequired,
	rowLimit,
}

// Run resolves and validates stmt against s in mode, returning nil on
// success. A single failure is returned as *diagnostic.Diagnostic; more
// than one (only possible in CollectAll mode) is returned as
// *diagnostic.Composite. Both satisfy error.
func Run(stmt sqlast.Statement, s *schema.SecuritySchema, mode Mode) error {
	res := resolver.Resolve(stmt, s)
	if res.Diagnostic != nil {
		return res.Diagnostic
	}

	c := Collect(stmt)

	var all []*diagnostic.Diagnostic
	for _, v := range order {
		findings := v(stmt, c, s, res)
		if len(findings) == 0 {
			continue
		}
		if mode == FailFast {
			return findings[0]
		}
		all = append(all, findings...)
	}

	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return &diagnostic.Composite{Findings: all}
	}
}

// tableAccess is validator 1: every base table referenced, anywhere in the
// statement, must be covered by s.tables or s.default_table_schema.
func tableAccess(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	var findings []*diagnostic.Diagnostic
	seen := map[string]bool{}
	for _, scope := range c.Scopes {
		for _, ref := range scope.DirectTables {
			if seen[ref.Table] {
				continue
			}
			seen[ref.Table] = true
			if s.Table(ref.Table) == nil {
				findings = append(findings, diagnostic.New(diagnostic.KindTableAccess,
					fmt.Sprintf("table %q is not permitted", ref.Table)).WithTable(ref.Table))
			}
		}
	}
	return findings
}

// columnAccess is validator 2: every column reference's resolved
// (table, column) must be READ- or WRITE-permitted for its role.
// References into a table already reported by tableAccess are skipped —
// the table-level finding takes precedence (spec §4.4 "Tie-breaks").
func columnAccess(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, res *resolver.Result) []*diagnostic.Diagnostic {
	var findings []*diagnostic.Diagnostic
	for _, scope := range c.Scopes {
		for _, occ := range scope.ColumnRefs {
			resolved, ok := res.Columns[occ.Ref.ID]
			if !ok || resolved.Computed {
				continue
			}
			table := s.Table(resolved.Table)
			if table == nil {
				continue // already reported by tableAccess
			}
			col := table.Column(resolved.Column)
			var permitted bool
			if occ.Ref.Role == sqlast.RoleAssignTarget {
				permitted = col.PermitsWrite(occ.Op)
			} else {
				permitted = col.PermitsRead()
			}
			if !permitted {
				findings = append(findings, diagnostic.New(diagnostic.KindColumnAccess,
					fmt.Sprintf("column %q on table %q is not permitted in this context", resolved.Column, resolved.Table)).
					WithTable(resolved.Table).WithColumn(resolved.Column))
			}
		}
	}
	return findings
}

// baseTableName returns the table name te resolves to for join-policy
// purposes, and whether te is a single named table at all — a join whose
// partner is itself a join group or a derived table has no single table
// name the schema's allowed_joins vocabulary can express, so it is
// exempted from this particular rule (it is still counted by joinCount).
func baseTableName(te sqlast.TableExpr) (string, bool) {
	ref, ok := te.(*sqlast.TableRef)
	if !ok {
		return "", false
	}
	return ref.Table, true
}

// joinPolicy is validator 3: each JOIN's kind must be permitted by at
// least one side's allowed_joins/default_allowed_join policy.
func joinPolicy(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	var findings []*diagnostic.Diagnostic
	for _, scope := range c.Scopes {
		for _, j := range scope.Joins {
			left, leftOK := baseTableName(j.Left)
			right, rightOK := baseTableName(j.Right)
			if !leftOK || !rightOK {
				continue
			}
			leftSchema := s.Table(left)
			rightSchema := s.Table(right)
			kind := schema.JoinType(j.Kind)
			if leftSchema.JoinAllowed(right, kind) || rightSchema.JoinAllowed(left, kind) {
				continue
			}
			findings = append(findings, diagnostic.New(diagnostic.KindJoinViolation,
				fmt.Sprintf("%s JOIN between %q and %q is not permitted", j.Kind, left, right)))
		}
	}
	return findings
}

// joinCount is validator 4: the total number of JOIN operators across
// every scope must not exceed max_joins.
func joinCount(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	total := 0
	for _, scope := range c.Scopes {
		total += len(scope.Joins)
	}
	if total > s.MaxJoins {
		return []*diagnostic.Diagnostic{diagnostic.New(diagnostic.KindQueryComplexity,
			fmt.Sprintf("query uses %d JOIN operators, exceeding max_joins %d", total, s.MaxJoins))}
	}
	return nil
}

// aggregation is validator 5: every aggregate call must be permitted on
// its argument column; COUNT(*) is permitted iff every table in the
// enclosing scope's FROM allows COUNT on at least one readable column.
func aggregation(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, res *resolver.Result) []*diagnostic.Diagnostic {
	var findings []*diagnostic.Diagnostic
	for _, scope := range c.Scopes {
		for _, fc := range scope.Aggregates {
			agg := schema.AggregationType(strings.ToUpper(fc.Name))
			if fc.Star {
				if !countStarPermitted(scope, s) {
					findings = append(findings, diagnostic.New(diagnostic.KindColumnAccess,
						"COUNT(*) requires at least one readable, COUNT-aggregable column in every table referenced"))
				}
				continue
			}
			for _, arg := range fc.Args {
				ref, ok := arg.(*sqlast.ColumnRef)
				if !ok {
					continue // a computed/opaque argument was already checked for column leaks by columnAccess
				}
				resolved, ok := res.Columns[ref.ID]
				if !ok || resolved.Computed {
					continue
				}
				table := s.Table(resolved.Table)
				if table == nil {
					continue
				}
				col := table.Column(resolved.Column)
				if !col.PermitsAggregation(agg) {
					findings = append(findings, diagnostic.New(diagnostic.KindColumnAccess,
						fmt.Sprintf("%s(%s) is not permitted on table %q", fc.Name, resolved.Column, resolved.Table)).
						WithTable(resolved.Table).WithColumn(resolved.Column))
				}
			}
		}
	}
	return findings
}

func countStarPermitted(scope *ScopeInfo, s *schema.SecuritySchema) bool {
	if len(scope.DirectTables) == 0 {
		return false
	}
	for _, ref := range scope.DirectTables {
		table := s.Table(ref.Table)
		if table == nil {
			return false
		}
		allowed := false
		for _, col := range table.Columns {
			if col.PermitsRead() && col.PermitsAggregation(schema.AggCount) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// subquery is validator 6: if allow_subqueries is false, any nested
// SELECT anywhere in the statement fails the whole query. When
// subqueries are allowed, each nested scope was already collected and
// resolved exactly as strictly as the top-level one (§8 invariant 4), so
// there is nothing further to check here.
func subquery(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	if !s.AllowSubqueries && c.HasNestedSelect {
		return []*diagnostic.Diagnostic{diagnostic.New(diagnostic.KindQueryComplexity, "nested SELECT statements are not permitted")}
	}
	return nil
}

// whereRequired is validator 7: a top-level SELECT/UPDATE/DELETE touching
// a table with require_where_clause must carry a non-trivial WHERE.
func whereRequired(stmt sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	if _, ok := stmt.(*sqlast.Insert); ok {
		return nil
	}
	var findings []*diagnostic.Diagnostic
	for _, scope := range c.Scopes {
		if !scope.Top {
			continue
		}
		if !isTrivialConstant(scope.Where) {
			continue
		}
		for _, ref := range scope.DirectTables {
			table := s.Table(ref.Table)
			if table != nil && table.RequireWhereClause {
				findings = append(findings, diagnostic.New(diagnostic.KindQueryComplexity,
					fmt.Sprintf("table %q requires a WHERE clause", ref.Table)).WithTable(ref.Table))
			}
		}
	}
	return findings
}

// rowLimit is validator 8: in every SELECT scope that carries an explicit
// LIMIT, that LIMIT must not exceed the smallest max_rows declared by any
// table the scope reads from directly. A statement with no LIMIT is not
// synthesized one — this rule is
// advisory, per spec §4.4 rule 8.
func rowLimit(_ sqlast.Statement, c *Collected, s *schema.SecuritySchema, _ *resolver.Result) []*diagnostic.Diagnostic {
	var findings []*diagnostic.Diagnostic
	for _, scope := range c.Scopes {
		if scope.Select == nil || scope.Select.Limit == nil {
			continue
		}
		limit := *scope.Select.Limit
		minRows := -1
		for _, ref := range scope.DirectTables {
			table := s.Table(ref.Table)
			if table == nil || table.MaxRows == nil {
				continue
			}
			if minRows < 0 || *table.MaxRows < minRows {
				minRows = *table.MaxRows
			}
		}
		if minRows >= 0 && limit > minRows {
			findings = append(findings, diagnostic.New(diagnostic.KindQueryComplexity,
				fmt.Sprintf("LIMIT %d exceeds max_rows %d", limit, minRows)))
		}
	}
	return findings
}
