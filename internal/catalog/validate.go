package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var readStatements = map[string]bool{
	"select":  true,
	"with":    true,
	"values":  true,
	"table":   true,
	"show":    true,
	"explain": true,
}

var blockedKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true, "upsert": true,
	"truncate": true, "drop": true, "alter": true, "create": true, "rename": true,
	"grant": true, "revoke": true, "exec": true, "execute": true, "call": true,
	"copy": true, "vacuum": true, "attach": true, "detach": true,
	"backup": true, "restore": true, "dbcc": true,
	"openrowset": true, "opendatasource": true, "bulk": true,
}

// ValidateQueryReadOnly accepts a single read statement. Comments and quoted
// literals are ignored when looking for write keywords.
func ValidateQueryReadOnly(q string) error {
	stripped := stripCommentsAndLiterals(q)
	tokens := strings.FieldsFunc(strings.ToLower(stripped), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == ';')
	})
	if len(tokens) == 0 {
		return errors.New("query is empty")
	}

	if first := strings.TrimRight(tokens[0], ";"); !readStatements[first] {
		return fmt.Errorf("only read statements are allowed, got %q", first)
	}

	body := strings.TrimRight(strings.TrimSpace(stripped), "; \t\r\n")
	if strings.Contains(body, ";") {
		return errors.New("multiple statements are not allowed")
	}

	for _, tok := range tokens {
		tok = strings.Trim(tok, ";")
		if blockedKeywords[tok] {
			return fmt.Errorf("blocked keyword detected: %q", tok)
		}
	}
	return nil
}

// stripCommentsAndLiterals blanks out -- and /* */ comments, 'string'
// literals and "quoted" identifiers.
func stripCommentsAndLiterals(q string) string {
	var b strings.Builder
	b.Grow(len(q))

	for i := 0; i < len(q); i++ {
		switch {
		case strings.HasPrefix(q[i:], "--"):
			end := strings.IndexByte(q[i:], '\n')
			if end < 0 {
				return b.String()
			}
			i += end
			b.WriteByte('\n')
		case strings.HasPrefix(q[i:], "/*"):
			end := strings.Index(q[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
			b.WriteByte(' ')
		case q[i] == '\'' || q[i] == '"':
			quote := q[i]
			j := i + 1
			for j < len(q) {
				if q[j] == quote {
					if j+1 < len(q) && q[j+1] == quote {
						j += 2
						continue
					}
					break
				}
				j++
			}
			i = j
			b.WriteByte(' ')
		default:
			b.WriteByte(q[i])
		}
	}
	return b.String()
}
