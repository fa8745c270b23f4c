package resolver

import (
	"sort"

	"github.com/askdba/langsec/internal/sqlast"
)

// expandStar implements §4.3 step 4: a bare "*" or a qualified "t.*"
// expands to one synthetic resolution per currently readable column of
// the relevant table(s), in alphabetical order for determinism (a bare
// "*" visits the scope's bindings in alphabetical alias order). A table
// whose schema entry declares no explicit columns (relying solely on
// default_column_schema) contributes nothing to the expansion — there is
// no column name on record to enumerate it under.
func expandStar(scope *Scope, qualifier string, res *Result) {
	if res.schema == nil {
		return
	}
	if qualifier != "" {
		b, owner := lookupBinding(scope, qualifier)
		if owner == nil {
			return
		}
		expandBinding(b, res)
		return
	}
	aliases := make([]string, 0, len(scope.Bindings))
	for alias := range scope.Bindings {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		expandBinding(scope.Bindings[alias], res)
	}
}

func expandBinding(b Binding, res *Result) {
	if b.Derived != nil {
		expandDerived(b.Derived, res)
		return
	}
	table := res.schema.Table(b.BaseTable)
	if table == nil {
		return
	}
	names := make([]string, 0, len(table.Columns))
	for name, col := range table.Columns {
		if col.PermitsRead() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		res.Expanded = append(res.Expanded, Resolution{Table: b.BaseTable, Column: name, Role: sqlast.RoleProjection})
	}
}

func expandDerived(scope *Scope, res *Result) {
	if scope.Select == nil {
		return
	}
	names := make([]string, 0, len(scope.Select.Projection))
	for _, item := range scope.Select.Projection {
		if name := item.OutputName(); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		res.Expanded = append(res.Expanded, Resolution{Computed: true, Column: name, Role: sqlast.RoleProjection})
	}
}
