package media

import "strings"

// CleanText lowercases s, trims it and collapses unicode whitespace runs to
// single spaces. Total on any input and idempotent.
func CleanText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
