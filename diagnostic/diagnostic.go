// Package diagnostic defines the stable result type the validation engine
// returns on failure. A Diagnostic is a value, never a panic: every stage of
// the pipeline (pre-parse gate, parser adapter, resolver, validators)
// produces one instead of raising.
package diagnostic

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which rule category produced a Diagnostic. The set is
// closed — callers switch on it exhaustively.
type Kind string

const (
	KindTableAccess       Kind = "TableAccessError"
	KindColumnAccess      Kind = "ColumnAccessError"
	KindJoinViolation     Kind = "JoinViolationError"
	KindQueryComplexity   Kind = "QueryComplexityError"
	KindQuerySyntax       Kind = "QuerySyntaxError"
	KindSQLInjection      Kind = "SQLInjectionError"
	KindMultipleViolations Kind = "MultipleViolations"
)

// Location is a half-open character range into the raw query string.
type Location struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Diagnostic is the wire-format result described in spec §6. Table, Column,
// and Location are nil when the failing rule has nothing to cite at that
// granularity (e.g. a query-length rejection cites neither).
type Diagnostic struct {
	Kind     Kind      `json:"kind"`
	Message  string    `json:"message"`
	Table    *string   `json:"table"`
	Column   *string   `json:"column"`
	Location *Location `json:"location"`
}

func (d *Diagnostic) Error() string {
	if d == nil {
		return ""
	}
	switch {
	case d.Table != nil && d.Column != nil:
		return fmt.Sprintf("%s: %s (table=%s, column=%s)", d.Kind, d.Message, *d.Table, *d.Column)
	case d.Table != nil:
		return fmt.Sprintf("%s: %s (table=%s)", d.Kind, d.Message, *d.Table)
	default:
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
}

// New builds a Diagnostic with no table/column/location citation.
func New(kind Kind, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: message}
}

// WithTable returns a copy of d with Table set.
func (d *Diagnostic) WithTable(table string) *Diagnostic {
	c := *d
	c.Table = &table
	return &c
}

// WithColumn returns a copy of d with Column set.
func (d *Diagnostic) WithColumn(column string) *Diagnostic {
	c := *d
	c.Column = &column
	return &c
}

// WithLocation returns a copy of d with Location set.
func (d *Diagnostic) WithLocation(start, end int) *Diagnostic {
	c := *d
	c.Location = &Location{Start: start, End: end}
	return &c
}

// Composite wraps every Diagnostic collected in collect-all mode (§4.4). It
// satisfies error and still reports as a single Kind on the wire, so callers
// that only check "did this fail" never need to special-case it.
type Composite struct {
	Findings []*Diagnostic `json:"findings"`
}

func (c *Composite) Kind() Kind { return KindMultipleViolations }

// MarshalJSON writes c as {"kind": "MultipleViolations", "findings": [...]}.
func (c *Composite) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     Kind          `json:"kind"`
		Findings []*Diagnostic `json:"findings"`
	}{Kind: KindMultipleViolations, Findings: c.Findings})
}

func (c *Composite) Error() string {
	if len(c.Findings) == 0 {
		return string(KindMultipleViolations)
	}
	if len(c.Findings) == 1 {
		return c.Findings[0].Error()
	}
	return fmt.Sprintf("%s: %d violations, first: %s", KindMultipleViolations, len(c.Findings), c.Findings[0].Error())
}

// First returns the highest-priority finding, or nil if there are none.
// Validators are expected to append findings in priority order (§4.4's
// tie-break rules), so First is simply Findings[0].
func (c *Composite) First() *Diagnostic {
	if len(c.Findings) == 0 {
		return nil
	}
	return c.Findings[0]
}
