// Package safety classifies SQL text as read-only before execution.
package safety

import "strings"

// forbiddenKeywords is matched as plain substrings of the upper-cased query.
// This is a lexical filter, not a parser: a SELECT whose string literal
// contains "DELETE" is rejected too. Compatibility baseline, kept on purpose.
var forbiddenKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER"}

// Gate decides whether a SQL statement may be executed. The zero value is the
// permissive keyword filter; Strict additionally requires the statement to be
// rooted at SELECT or WITH.
type Gate struct {
	Strict bool
}

func (g Gate) IsReadOnly(sqlText string) bool {
	upper := strings.ToUpper(sqlText)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return false
		}
	}
	if g.Strict {
		normalized := strings.ToLower(strings.TrimSpace(sqlText))
		return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
	}
	return true
}
