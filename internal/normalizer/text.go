package normalizer

import (
	"regexp"
	"strings"
)

var (
	// urlPattern matches http(s) links and bare www hosts.
	urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)
	// symbolPattern matches everything that is not lowercase ascii text,
	// digits, whitespace or an apostrophe. Applied after lowercasing, so it
	// strips punctuation runs, emoji and other non-ascii symbols in one pass.
	symbolPattern = regexp.MustCompile(`[^a-z0-9\s']`)
)

// CleanText lowercases s, strips URLs, emoji and special characters, and
// collapses whitespace. The result may be empty; callers drop such rows.
func CleanText(s string) string {
	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllString(s, " ")
	s = symbolPattern.ReplaceAllString(s, " ")

	return strings.Join(strings.Fields(s), " ")
}
