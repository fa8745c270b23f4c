// Package preparse implements the pre-parse gate (spec §4.1): a set of
// cheap, string-level checks run before the query ever reaches the SQL
// parser. Its job is to catch obvious abuse quickly and to keep the parser
// from ever seeing constructs — multi-statement strings chief among them —
// whose validation semantics would otherwise be ambiguous.
package preparse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdba/langsec/diagnostic"
	"github.com/askdba/langsec/schema"
)

// tautologyPattern matches a WHERE-clause-style tautology of the shape
// 'a'='a' or 1=1 — the same literal compared to itself across one of the
// equality/inequality comparison operators.
var tautologyPattern = regexp.MustCompile(`(?i)(?:'([^']*)'|\b(\d+(?:\.\d+)?)\b)\s*(=|<=|>=|!=|<>)\s*(?:'([^']*)'|\b(\d+(?:\.\d+)?)\b)`)

// dangerousFunctions are non-aggregating functions no schema may permit,
// regardless of column or forbidden_keywords policy: they exist only to
// stall a connection, leak timing, or touch server-side locks/files, never
// to answer a query.
var dangerousFunctions = map[string]bool{
	"SLEEP":        true,
	"BENCHMARK":    true,
	"GET_LOCK":     true,
	"RELEASE_LOCK": true,
}

// Check runs every pre-parse rule against raw in schema order and returns
// the first diagnostic produced, or nil if raw may proceed to the parser.
func Check(raw string, s *schema.SecuritySchema) *diagnostic.Diagnostic {
	if s.MaxQueryLength > 0 && len(raw) > s.MaxQueryLength {
		return diagnostic.New(diagnostic.KindQueryComplexity,
			fmt.Sprintf("query length %d exceeds max_query_length %d", len(raw), s.MaxQueryLength))
	}

	tokens := tokenize(raw)

	for _, tok := range tokens {
		// forbidden_keywords is an arbitrary schema-author-supplied
		// blacklist (spec §3), not limited to words tokenize recognizes as
		// SQL reserved words — any word-shaped token outside a string
		// literal or comment is a candidate.
		if tok.kind != tokenKeyword && tok.kind != tokenIdentifier {
			continue
		}
		if dangerousFunctions[strings.ToUpper(tok.text)] {
			return diagnostic.New(diagnostic.KindSQLInjection,
				fmt.Sprintf("%q is never permitted", tok.text))
		}
		for keyword := range s.ForbiddenKeywords {
			if strings.EqualFold(tok.text, keyword) {
				return diagnostic.New(diagnostic.KindSQLInjection,
					fmt.Sprintf("forbidden keyword %q", tok.text))
			}
		}
	}

	if !s.SQLInjectionProtection {
		return nil
	}

	if diag := checkMultiStatement(raw); diag != nil {
		return diag
	}
	if diag := checkTautology(raw); diag != nil {
		return diag
	}
	if diag := checkUnbalancedQuotes(tokens); diag != nil {
		return diag
	}
	if diag := checkTrailingComment(tokens); diag != nil {
		return diag
	}
	return nil
}

// checkMultiStatement rejects a semicolon separating two top-level
// statements; a single trailing semicolon (with only whitespace after it)
// is a harmless statement terminator and is allowed.
func checkMultiStatement(raw string) *diagnostic.Diagnostic {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "; \t\n\r")
	inStr, strQuote := false, byte(0)
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		switch {
		case inStr:
			if c == strQuote {
				inStr = false
			}
		case c == '\'' || c == '"':
			inStr, strQuote = true, c
		case c == ';':
			return diagnostic.New(diagnostic.KindSQLInjection, "multiple top-level statements separated by ';'")
		}
	}
	return nil
}

func checkTautology(raw string) *diagnostic.Diagnostic {
	idx := strings.Index(strings.ToUpper(raw), "WHERE")
	if idx < 0 {
		return nil
	}
	clause := raw[idx:]
	for _, m := range tautologyPattern.FindAllStringSubmatch(clause, -1) {
		left := m[1] + m[2]
		right := m[4] + m[5]
		if left == right {
			return diagnostic.New(diagnostic.KindSQLInjection,
				fmt.Sprintf("tautological condition %q", strings.TrimSpace(m[0])))
		}
	}
	return nil
}

func checkUnbalancedQuotes(tokens []token) *diagnostic.Diagnostic {
	for _, tok := range tokens {
		if tok.kind == tokenUnterminatedString {
			return diagnostic.New(diagnostic.KindSQLInjection, "unbalanced quote in query")
		}
	}
	return nil
}

// checkTrailingComment rejects an inline comment marker that would allow
// the rest of the statement to be silently dropped by the database. A
// legitimate policy-checked query has no reason to carry one, so any
// comment token — not just one trailing a predicate — is rejected.
func checkTrailingComment(tokens []token) *diagnostic.Diagnostic {
	for _, tok := range tokens {
		if tok.kind == tokenComment {
			return diagnostic.New(diagnostic.KindSQLInjection, "inline comment marker present in query")
		}
	}
	return nil
}
