package listing

import "strings"

// MatchesQuery reports whether the case-folded query is a contiguous
// substring of the listing's searchable text: name, tagline, description,
// category, products and services, joined with single spaces. Missing fields
// contribute empty strings. There is no tokenization or fuzzy matching; the
// empty query matches everything (the pipeline skips the call instead).
func (l *Listing) MatchesQuery(query string) bool {
	profile := l.Marketplace.Profile

	fields := make([]string, 0, 4+len(profile.Products)+len(profile.Services))
	fields = append(fields, l.Name, profile.Tagline, profile.Description, l.Category)
	fields = append(fields, profile.Products...)
	fields = append(fields, profile.Services...)

	haystack := strings.ToLower(strings.Join(fields, " "))
	return strings.Contains(haystack, strings.ToLower(query))
}
