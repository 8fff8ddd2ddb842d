package analyzer

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// suggest probes the candidate names for a near miss of name: a case
// variant, or the singular/plural form a user reaches for when a
// table is named "orders" and they wrote "order". The first candidate
// that matches wins; "" means no suggestion.
func suggest(name string, candidates []string) string {
	singular := inflection.Singular(name)
	plural := inflection.Plural(name)
	for _, cand := range candidates {
		if strings.EqualFold(cand, name) ||
			strings.EqualFold(cand, singular) ||
			strings.EqualFold(cand, plural) {
			return cand
		}
	}
	return ""
}

// withSuggestion appends a did-you-mean note to a message when the
// probe finds one.
func withSuggestion(msg, name string, candidates []string) string {
	if s := suggest(name, candidates); s != "" {
		return fmt.Sprintf("%s, did you mean %q?", msg, s)
	}
	return msg
}
