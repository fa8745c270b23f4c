package preparse

import (
	"testing"

	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/schema"
)

func testSchema(t *testing.T, configure func(*schema.Builder) *schema.Builder) *schema.SecuritySchema {
	t.Helper()
	b := schema.NewBuilder().SetMaxQueryLength(200)
	if configure != nil {
		b = configure(b)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return s
}

func TestCheckRejectsOverLongQuery(t *testing.T) {
	s := testSchema(t, nil)
	long := "SELECT " + string(make([]byte, 300)) + " FROM t"
	diag := Check(long, s)
	if diag == nil || diag.Kind != diagnostic.KindQueryComplexity {
		t.Fatalf("Check() = %v, want QueryComplexityError", diag)
	}
}

func TestCheckRejectsForbiddenKeyword(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetForbiddenKeywords("DROP")
	})
	diag := Check("SELECT 1 FROM t; DROP TABLE t", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want a diagnostic for the forbidden keyword", diag)
	}
}

func TestCheckAllowsPlainQuery(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	if diag := Check("SELECT id, name FROM users WHERE id = 1", s); diag != nil {
		t.Errorf("Check() = %v, want nil", diag)
	}
}

func TestCheckRejectsMultiStatementUnderProtection(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	diag := Check("SELECT 1 FROM t; SELECT 2 FROM t", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want SQLInjectionError", diag)
	}
}

func TestCheckAllowsSingleTrailingSemicolon(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	if diag := Check("SELECT 1 FROM t;", s); diag != nil {
		t.Errorf("Check() = %v, want nil for a single trailing semicolon", diag)
	}
}

func TestCheckRejectsTautology(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	diag := Check("SELECT 1 FROM t WHERE 1=1", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want SQLInjectionError for a tautology", diag)
	}
}

func TestCheckRejectsUnbalancedQuote(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	diag := Check("SELECT 1 FROM t WHERE name = 'unterminated", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want SQLInjectionError for an unterminated string", diag)
	}
}

func TestCheckRejectsInlineComment(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetSQLInjectionProtection(true)
	})
	diag := Check("SELECT 1 FROM t WHERE id = 1 -- AND disabled = 0", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want SQLInjectionError for a trailing comment", diag)
	}
}

func TestCheckRejectsForbiddenKeywordOutsideStaticDictionary(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetForbiddenKeywords("xp_cmdshell")
	})
	diag := Check("SELECT xp_cmdshell('dir') FROM t", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want a diagnostic for a forbidden keyword not in the built-in dictionary", diag)
	}
}

func TestCheckIgnoresKeywordInsideStringLiteral(t *testing.T) {
	s := testSchema(t, func(b *schema.Builder) *schema.Builder {
		return b.SetForbiddenKeywords("DROP")
	})
	if diag := Check("SELECT 1 FROM t WHERE name = 'please do not DROP me'", s); diag != nil {
		t.Errorf("Check() = %v, want nil — DROP only appears inside a string literal", diag)
	}
}

func TestCheckRejectsDangerousFunctionRegardlessOfSchema(t *testing.T) {
	s := testSchema(t, nil)
	diag := Check("SELECT SLEEP(5)", s)
	if diag == nil || diag.Kind != diagnostic.KindSQLInjection {
		t.Fatalf("Check() = %v, want SQLInjectionError for SLEEP", diag)
	}
}

func TestCheckWithoutInjectionProtectionSkipsHeuristics(t *testing.T) {
	s := testSchema(t, nil)
	if diag := Check("SELECT 1 FROM t WHERE 1=1", s); diag != nil {
		t.Errorf("Check() = %v, want nil when sql_injection_protection is disabled", diag)
	}
}
