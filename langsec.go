// Package langsec validates SQL statements against a declarative security
// policy before they ever reach a database driver (spec §1-§2). It is the
// engine at the center of the pipeline: a pre-parse gate, a SQL parser
// adapter, an identifier resolver, and an ordered rule engine of
// validators, wired together behind a single Validate call. Everything
// outside that pipeline — the calling façade, the database connection, an
// LLM client deciding what query to ask for — is a collaborator this
// package only ever sees through a narrow interface (audit.Logger) or not
// at all.
package langsec

import (
	"github.com/askdba/langsec/audit"
	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/internal/preparse"
	"github.com/askdba/langsec/internal/sqlparse"
	"github.com/askdba/langsec/internal/validate"
	"github.com/askdba/langsec/schema"
)

// Mode selects how Engine.Validate behaves once a rule produces a finding.
type Mode = validate.Mode

const (
	// FailFast stops at the first rule violated and returns that one
	// finding (the default).
	FailFast Mode = validate.FailFast
	// CollectAll runs every rule to completion and returns every finding:
	// a *diagnostic.Composite when there is more than one, otherwise the
	// single *diagnostic.Diagnostic.
	CollectAll Mode = validate.CollectAll
)

// Engine is a configured instance of the validation pipeline: a schema plus
// the run-time options that don't belong in the schema itself (run mode,
// audit logging). The zero value is not usable; construct one with New.
type Engine struct {
	schema *schema.SecuritySchema
	mode   Mode
	audit  audit.Logger
}

// New returns an Engine that validates against s in FailFast mode with no
// audit logging. Use the With* methods to adjust either before the first
// call to Validate.
func New(s *schema.SecuritySchema) *Engine {
	return &Engine{schema: s, mode: FailFast}
}

// WithMode returns a copy of e configured to run in mode.
func (e *Engine) WithMode(mode Mode) *Engine {
	c := *e
	c.mode = mode
	return &c
}

// WithAuditLogger returns a copy of e that reports every Validate call's
// outcome to logger.
func (e *Engine) WithAuditLogger(logger audit.Logger) *Engine {
	c := *e
	c.audit = logger
	return &c
}

// Validate runs the full pipeline against raw: the pre-parse gate, the SQL
// parser adapter, identifier resolution, and the rule engine, in that
// order (spec §2 "Pipeline"). It returns nil if raw is permitted by the
// schema, a *diagnostic.Diagnostic for a single violation, or a
// *diagnostic.Composite if e is in CollectAll mode and more than one
// finding was reported. Both diagnostic types satisfy error.
func (e *Engine) Validate(raw string) error {
	err := e.validate(raw)
	if e.audit != nil {
		e.audit.Log(audit.EntryFromResult(raw, err))
	}
	return err
}

func (e *Engine) validate(raw string) error {
	if d := preparse.Check(raw, e.schema); d != nil {
		return d
	}

	stmt, d := sqlparse.Parse(raw)
	if d != nil {
		return d
	}

	return validate.Run(stmt, e.schema, e.mode)
}

// Validate is a convenience wrapper around Engine for a caller that only
// ever needs fail-fast validation against a single schema and doesn't want
// to hold onto an Engine value.
func Validate(raw string, s *schema.SecuritySchema) error {
	return New(s).Validate(raw)
}

// AsDiagnostic extracts the single highest-priority diagnostic from err,
// whether err is already a *diagnostic.Diagnostic or a
// *diagnostic.Composite from CollectAll mode. Returns nil if err is nil.
func AsDiagnostic(err error) *diagnostic.Diagnostic {
	switch v := err.(type) {
	case nil:
		return nil
	case *diagnostic.Diagnostic:
		return v
	case *diagnostic.Composite:
		return v.First()
	default:
		return nil
	}
}
