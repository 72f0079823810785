package symbols

import "strings"

// Transform replaces every whitespace-separated token that has a symbol and keeps
// the others verbatim. Runs of whitespace collapse to one space.
//
// Punctuation stays part of its token, so "plus," does not match "plus".
func (t *Table) Transform(text string) string {
	tokens := strings.Fields(text)
	for i, token := range tokens {
		tokens[i] = t.Resolve(token)
	}
	return strings.Join(tokens, " ")
}
