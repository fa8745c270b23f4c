package preparse

import "strings"

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenKeyword
	tokenLiteral
	tokenComment
	tokenPunctuation
	tokenUnterminatedString
)

type token struct {
	kind tokenKind
	text string
}

// keywords is the set of reserved words the tokenizer classifies as
// tokenKeyword rather than tokenIdentifier. Check treats both kinds alike
// for the forbidden_keywords and dangerous-function checks, so this set
// does not limit which words a schema author may name in
// forbidden_keywords.
var keywords = func() map[string]bool {
	words := []string{
		"SELECT", "INSERT", "UPDATE", "DELETE", "FROM", "WHERE", "JOIN",
		"INNER", "LEFT", "RIGHT", "FULL", "CROSS", "ON", "USING", "GROUP",
		"BY", "HAVING", "ORDER", "LIMIT", "OFFSET", "DISTINCT", "UNION",
		"ALL", "AS", "AND", "OR", "NOT", "NULL", "IS", "IN", "EXISTS",
		"BETWEEN", "LIKE", "CASE", "WHEN", "THEN", "ELSE", "END",
		"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME", "GRANT", "REVOKE",
		"SET", "FLUSH", "RESET", "KILL", "SHUTDOWN", "LOCK", "UNLOCK",
		"START", "TRANSACTION", "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT",
		"PREPARE", "EXECUTE", "DEALLOCATE", "CALL", "INTO", "VALUES",
		"LOAD_FILE", "OUTFILE", "DUMPFILE", "SLEEP", "BENCHMARK",
		"GET_LOCK", "RELEASE_LOCK", "INFORMATION_SCHEMA", "PERFORMANCE_SCHEMA",
		"SHOW", "DESCRIBE", "DESC", "EXPLAIN",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}()

// tokenize splits raw into a coarse token stream, respecting single- and
// double-quoted strings and the -- / # / * block comment forms, so that a
// keyword appearing inside a string literal is never mistaken for an
// actual keyword occurrence.
func tokenize(raw string) []token {
	var out []token
	i, n := 0, len(raw)

	for i < n {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '\'' || c == '"':
			j := i + 1
			closed := false
			for j < n {
				if raw[j] == c {
					closed = true
					j++
					break
				}
				if raw[j] == '\\' && j+1 < n {
					j += 2
					continue
				}
				j++
			}
			if closed {
				out = append(out, token{kind: tokenLiteral, text: raw[i:j]})
			} else {
				out = append(out, token{kind: tokenUnterminatedString, text: raw[i:j]})
			}
			i = j

		case c == '-' && i+1 < n && raw[i+1] == '-':
			j := strings.IndexByte(raw[i:], '\n')
			if j < 0 {
				out = append(out, token{kind: tokenComment, text: raw[i:]})
				i = n
			} else {
				out = append(out, token{kind: tokenComment, text: raw[i : i+j]})
				i += j
			}

		case c == '#':
			j := strings.IndexByte(raw[i:], '\n')
			if j < 0 {
				out = append(out, token{kind: tokenComment, text: raw[i:]})
				i = n
			} else {
				out = append(out, token{kind: tokenComment, text: raw[i : i+j]})
				i += j
			}

		case c == '/' && i+1 < n && raw[i+1] == '*':
			end := strings.Index(raw[i:], "*/")
			if end < 0 {
				out = append(out, token{kind: tokenComment, text: raw[i:]})
				i = n
			} else {
				out = append(out, token{kind: tokenComment, text: raw[i : i+end+2]})
				i += end + 2
			}

		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentPart(raw[j]) {
				j++
			}
			word := raw[i:j]
			kind := tokenIdentifier
			if keywords[strings.ToUpper(word)] {
				kind = tokenKeyword
			}
			out = append(out, token{kind: kind, text: word})
			i = j

		case c >= '0' && c <= '9':
			j := i + 1
			for j < n && (isDigit(raw[j]) || raw[j] == '.') {
				j++
			}
			out = append(out, token{kind: tokenLiteral, text: raw[i:j]})
			i = j

		default:
			out = append(out, token{kind: tokenPunctuation, text: string(c)})
			i++
		}
	}

	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
