package extraction

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores how alike two texts are on a 0..100 scale using
// character-level longest-matching-block comparison, ignoring case. An empty
// text is similar to nothing.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(chars(strings.ToLower(a)), chars(strings.ToLower(b)))
	return int(m.Ratio() * 100)
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
