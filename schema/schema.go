// Package schema models the declarative security policy LangSec enforces
// (spec §3): which tables and columns exist, how they may be joined, and
// what structural limits apply. A SecuritySchema is built once by the
// caller through Builder and is immutable and freely shareable afterward —
// validators only ever read it.
package schema

import (
	"fmt"
	"strings"
)

// Access describes what a column reference may be used for.
type Access int

const (
	// AccessDenied forbids all references to the column, anywhere.
	AccessDenied Access = iota
	// AccessRead permits the column in projections, predicates, GROUP BY,
	// and ORDER BY.
	AccessRead
	// AccessWrite permits the column as an assignment target in UPDATE/INSERT.
	AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessDenied:
		return "DENIED"
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Operation is one of the four SQL statement kinds a ColumnSchema's
// AllowedOperations may name.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// JoinType mirrors the explicit join kinds spec §4.2 requires the parser
// adapter to recognize.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)

// AggregationType is one of the five aggregate functions spec §3 names.
type AggregationType string

const (
	AggSum   AggregationType = "SUM"
	AggAvg   AggregationType = "AVG"
	AggCount AggregationType = "COUNT"
	AggMin   AggregationType = "MIN"
	AggMax   AggregationType = "MAX"
)

// ColumnSchema is the per-column policy described in spec §3.
type ColumnSchema struct {
	Access              Access
	AllowedOperations   map[Operation]bool
	AllowedAggregations map[AggregationType]bool
}

// permitsOperation reports whether op is allowed, honoring the rule that
// AllowedOperations only ever refines Access, never loosens it (§3 "refines
// access where stricter than it").
func (c *ColumnSchema) permitsOperation(op Operation) bool {
	if c == nil {
		return false
	}
	if c.Access == AccessDenied {
		return false
	}
	// The coarse Access field decides what is granted at all.
	var granted bool
	switch op {
	case OpSelect:
		granted = c.Access == AccessRead
	case OpInsert, OpUpdate:
		granted = c.Access == AccessWrite
	}
	if !granted {
		return false
	}
	// An explicit AllowedOperations set can only narrow that grant.
	return len(c.AllowedOperations) == 0 || c.AllowedOperations[op]
}

// PermitsRead reports whether the column may appear in a read-role
// position (projection, predicate, GROUP BY, ORDER BY, aggregate argument).
func (c *ColumnSchema) PermitsRead() bool {
	return c != nil && c.Access != AccessDenied && c.permitsOperation(OpSelect)
}

// PermitsWrite reports whether the column may appear as an assignment
// target in UPDATE or INSERT (spec §9(d): WRITE is meaningful only there).
func (c *ColumnSchema) PermitsWrite(op Operation) bool {
	if c == nil || c.Access == AccessDenied {
		return false
	}
	if op != OpUpdate && op != OpInsert {
		return false
	}
	return c.permitsOperation(op)
}

// PermitsAggregation reports whether agg may wrap this column.
func (c *ColumnSchema) PermitsAggregation(agg AggregationType) bool {
	if c == nil || !c.PermitsRead() {
		return false
	}
	return c.AllowedAggregations[agg]
}

// TableSchema is the per-table policy described in spec §3.
type TableSchema struct {
	Columns             map[string]*ColumnSchema
	DefaultColumnSchema  *ColumnSchema
	AllowedJoins         map[string]map[JoinType]bool
	DefaultAllowedJoin   map[JoinType]bool // nil means "deny by default"
	RequireWhereClause   bool
	MaxRows              *int
}

// Column looks up a column's policy, falling back to DefaultColumnSchema,
// normalizing the name to lower-case first (spec §9(a)).
func (t *TableSchema) Column(name string) *ColumnSchema {
	if t == nil {
		return nil
	}
	if c, ok := t.Columns[strings.ToLower(name)]; ok {
		return c
	}
	return t.DefaultColumnSchema
}

// JoinAllowed reports whether kind is permitted between t and other,
// consulting the explicit AllowedJoins map before DefaultAllowedJoin.
func (t *TableSchema) JoinAllowed(other string, kind JoinType) bool {
	if t == nil {
		return false
	}
	if kinds, ok := t.AllowedJoins[strings.ToLower(other)]; ok {
		if kinds[kind] {
			return true
		}
		// An explicit (possibly empty) entry for this partner still falls
		// back to the table-wide default for kinds it doesn't name.
		return t.DefaultAllowedJoin[kind]
	}
	return t.DefaultAllowedJoin[kind]
}

// SecuritySchema is the root policy object (spec §3), built once via
// Builder and never mutated afterward.
type SecuritySchema struct {
	Tables                 map[string]*TableSchema
	DefaultTableSchema     *TableSchema
	MaxJoins               int
	AllowSubqueries        bool
	MaxQueryLength         int
	SQLInjectionProtection bool
	ForbiddenKeywords      map[string]bool
}

// Table looks up a table's policy by name (case-insensitive), falling back
// to DefaultTableSchema. Returns nil if the table is denied (spec §8
// invariant 5: "a table ... absent from S ... is denied").
func (s *SecuritySchema) Table(name string) *TableSchema {
	if s == nil {
		return nil
	}
	if t, ok := s.Tables[strings.ToLower(name)]; ok {
		return t
	}
	return s.DefaultTableSchema
}

// TableExplicit reports whether name is listed explicitly in s.Tables
// (as opposed to only matching via DefaultTableSchema), returning that
// explicit entry if so. Unlike Table, it never falls back to
// DefaultTableSchema.
func (s *SecuritySchema) TableExplicit(name string) (*TableSchema, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.Tables[strings.ToLower(name)]
	return t, ok
}

func normalizeKeywordSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[strings.ToLower(k)] = true
		}
	}
	return out
}

// validationError is returned by Builder.Build for inconsistent schemas.
type validationError struct {
	reason string
}

func (e *validationError) Error() string { return e.reason }

func errf(format string, args ...interface{}) error {
	return &validationError{reason: fmt.Errorf(format, args...).Error()}
}
