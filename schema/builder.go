package schema

import "strings"

// Builder assembles a SecuritySchema field by field and validates it once,
// at Build time (spec §9 "Schema immutability": "the source allows
// field-by-field mutation after construction. Treat the schema as
// constructed-then-frozen"). There is no setter that mutates a schema
// already returned by Build.
type Builder struct {
	def Definition
}

// NewBuilder returns an empty Builder. Fields default the same way an
// absent field in a Definition would: no tables, subqueries disallowed,
// no query-length cap (0 means "no limit" until explicitly set), no
// injection protection.
func NewBuilder() *Builder {
	return &Builder{def: Definition{Tables: map[string]TableDefinition{}}}
}

// AddTable registers a table's policy. Calling it twice for the same name
// (case-insensitively) replaces the earlier definition.
func (b *Builder) AddTable(name string, table TableDefinition) *Builder {
	b.def.Tables[strings.ToLower(name)] = table
	return b
}

// SetDefaultTableSchema sets the fallback policy for tables not explicitly
// listed.
func (b *Builder) SetDefaultTableSchema(table TableDefinition) *Builder {
	b.def.DefaultTableSchema = &table
	return b
}

// SetMaxJoins sets the upper bound on JOIN operators per query.
func (b *Builder) SetMaxJoins(n int) *Builder {
	b.def.MaxJoins = n
	return b
}

// SetAllowSubqueries toggles whether nested SELECTs are permitted at all.
func (b *Builder) SetAllowSubqueries(allow bool) *Builder {
	b.def.AllowSubqueries = allow
	return b
}

// SetMaxQueryLength sets the character-length cap on the raw input.
func (b *Builder) SetMaxQueryLength(n int) *Builder {
	b.def.MaxQueryLength = n
	return b
}

// SetSQLInjectionProtection toggles the heuristic pre-parse gate.
func (b *Builder) SetSQLInjectionProtection(enabled bool) *Builder {
	b.def.SQLInjectionProtection = enabled
	return b
}

// SetForbiddenKeywords sets the case-insensitive keyword blacklist.
func (b *Builder) SetForbiddenKeywords(keywords ...string) *Builder {
	b.def.ForbiddenKeywords = keywords
	return b
}

// Build validates the assembled definition and returns an immutable
// SecuritySchema, or an error describing the first inconsistency found.
func (b *Builder) Build() (*SecuritySchema, error) {
	return NewFromDefinition(b.def)
}

// NewFromDefinition validates def and constructs a SecuritySchema from it.
// This is the single point at which schema consistency is checked (spec
// §6): max_joins >= 0, no column both READ and DENIED (a column names
// exactly one Access value so this is enforced by parseAccess rejecting
// anything but the three known strings or an empty string, which it reads
// as DENIED), and join references point to
// tables present in the schema unless DefaultTableSchema is set.
func NewFromDefinition(def Definition) (*SecuritySchema, error) {
	if def.MaxJoins < 0 {
		return nil, errf("max_joins must be >= 0, got %d", def.MaxJoins)
	}
	if def.MaxQueryLength < 0 {
		return nil, errf("max_query_length must be >= 0, got %d", def.MaxQueryLength)
	}

	s := &SecuritySchema{
		Tables:                 make(map[string]*TableSchema, len(def.Tables)),
		MaxJoins:               def.MaxJoins,
		AllowSubqueries:        def.AllowSubqueries,
		MaxQueryLength:         def.MaxQueryLength,
		SQLInjectionProtection: def.SQLInjectionProtection,
		ForbiddenKeywords:      normalizeKeywordSet(toSet(def.ForbiddenKeywords)),
	}

	for name, td := range def.Tables {
		table, err := buildTable(td)
		if err != nil {
			return nil, errf("table %q: %w", name, err)
		}
		s.Tables[strings.ToLower(name)] = table
	}

	if def.DefaultTableSchema != nil {
		table, err := buildTable(*def.DefaultTableSchema)
		if err != nil {
			return nil, errf("default_table_schema: %w", err)
		}
		s.DefaultTableSchema = table
	}

	// Join references must name a table present in the schema, unless a
	// DefaultTableSchema makes every name resolvable.
	if s.DefaultTableSchema == nil {
		for name, table := range s.Tables {
			for partner := range table.AllowedJoins {
				if _, ok := s.Tables[partner]; !ok {
					return nil, errf("table %q: allowed_joins references unknown table %q", name, partner)
				}
			}
		}
	}

	return s, nil
}

func buildTable(td TableDefinition) (*TableSchema, error) {
	table := &TableSchema{
		Columns:            make(map[string]*ColumnSchema, len(td.Columns)),
		RequireWhereClause: td.RequireWhereClause,
		MaxRows:            td.MaxRows,
	}
	if table.MaxRows != nil && *table.MaxRows < 0 {
		return nil, errf("max_rows must be >= 0, got %d", *table.MaxRows)
	}

	for name, cd := range td.Columns {
		col, err := buildColumn(cd)
		if err != nil {
			return nil, errf("column %q: %w", name, err)
		}
		table.Columns[strings.ToLower(name)] = col
	}

	if td.DefaultColumnSchema != nil {
		col, err := buildColumn(*td.DefaultColumnSchema)
		if err != nil {
			return nil, errf("default_column_schema: %w", err)
		}
		table.DefaultColumnSchema = col
	}

	if len(td.AllowedJoins) > 0 {
		table.AllowedJoins = make(map[string]map[JoinType]bool, len(td.AllowedJoins))
		for partner, kinds := range td.AllowedJoins {
			kindSet, err := buildJoinSet(kinds)
			if err != nil {
				return nil, errf("allowed_joins[%q]: %w", partner, err)
			}
			table.AllowedJoins[strings.ToLower(partner)] = kindSet
		}
	}

	if td.DefaultAllowedJoin != nil {
		kindSet, err := buildJoinSet(td.DefaultAllowedJoin)
		if err != nil {
			return nil, errf("default_allowed_join: %w", err)
		}
		table.DefaultAllowedJoin = kindSet
	}

	return table, nil
}

func buildColumn(cd ColumnDefinition) (*ColumnSchema, error) {
	access, err := parseAccess(cd.Access)
	if err != nil {
		return nil, err
	}
	col := &ColumnSchema{Access: access}

	if len(cd.AllowedOperations) > 0 {
		col.AllowedOperations = make(map[Operation]bool, len(cd.AllowedOperations))
		for _, raw := range cd.AllowedOperations {
			op, err := parseOperation(raw)
			if err != nil {
				return nil, err
			}
			col.AllowedOperations[op] = true
		}
	}

	if len(cd.AllowedAggregations) > 0 {
		col.AllowedAggregations = make(map[AggregationType]bool, len(cd.AllowedAggregations))
		for _, raw := range cd.AllowedAggregations {
			agg, err := parseAggregation(raw)
			if err != nil {
				return nil, err
			}
			col.AllowedAggregations[agg] = true
		}
	}

	return col, nil
}

func buildJoinSet(kinds []string) (map[JoinType]bool, error) {
	set := make(map[JoinType]bool, len(kinds))
	for _, raw := range kinds {
		kind, err := parseJoinType(raw)
		if err != nil {
			return nil, err
		}
		set[kind] = true
	}
	return set, nil
}

func parseAccess(raw string) (Access, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "READ":
		return AccessRead, nil
	case "WRITE":
		return AccessWrite, nil
	case "DENIED", "":
		return AccessDenied, nil
	default:
		return AccessDenied, errf("unknown access level %q", raw)
	}
}

func parseOperation(raw string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(OpSelect):
		return OpSelect, nil
	case string(OpInsert):
		return OpInsert, nil
	case string(OpUpdate):
		return OpUpdate, nil
	case string(OpDelete):
		return OpDelete, nil
	default:
		return "", errf("unknown operation %q", raw)
	}
}

func parseAggregation(raw string) (AggregationType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(AggSum):
		return AggSum, nil
	case string(AggAvg):
		return AggAvg, nil
	case string(AggCount):
		return AggCount, nil
	case string(AggMin):
		return AggMin, nil
	case string(AggMax):
		return AggMax, nil
	default:
		return "", errf("unknown aggregation %q", raw)
	}
}

func parseJoinType(raw string) (JoinType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(JoinInner):
		return JoinInner, nil
	case string(JoinLeft):
		return JoinLeft, nil
	case string(JoinRight):
		return JoinRight, nil
	case string(JoinFull):
		return JoinFull, nil
	case string(JoinCross):
		return JoinCross, nil
	default:
		return "", errf("unknown join type %q", raw)
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
