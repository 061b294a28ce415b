package normalizer

import (
	"strings"

	"reviewetl/internal/config"
)

// BrandResolver collapses variant spellings of an app name ("Uber Eats",
// "uber-eats", "UberEATS") into the single canonical token configured for
// the app. Matching is case and spacing insensitive, exact first and then
// substring.
type BrandResolver struct {
	entries []brandEntry
}

type brandEntry struct {
	canonical string
	keys      []string
}

// NewBrandResolver builds a resolver from the configured apps. The canonical
// name itself always counts as an alias.
func NewBrandResolver(apps []config.AppConfig) *BrandResolver {
	r := &BrandResolver{}

	for _, app := range apps {
		entry := brandEntry{canonical: app.Name}
		entry.keys = append(entry.keys, brandKey(app.Name))

		for _, alias := range app.Aliases {
			if k := brandKey(alias); k != "" {
				entry.keys = append(entry.keys, k)
			}
		}

		r.entries = append(r.entries, entry)
	}

	return r
}

// Resolve maps a raw app label to its canonical brand token. The second
// return value is false when no configured brand matches.
func (r *BrandResolver) Resolve(raw string) (string, bool) {
	key := brandKey(raw)
	if key == "" {
		return "", false
	}

	// Exact match wins over substring.
	for _, e := range r.entries {
		for _, k := range e.keys {
			if key == k {
				return e.canonical, true
			}
		}
	}

	for _, e := range r.entries {
		for _, k := range e.keys {
			if strings.Contains(key, k) {
				return e.canonical, true
			}
		}
	}

	return "", false
}

// brandKey normalizes a label for alias comparison: lowercase with spacing
// and separator characters removed.
func brandKey(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder

	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '_', '.':
			continue
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
