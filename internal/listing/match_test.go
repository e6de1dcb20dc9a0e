package listing

import "testing"

func matchFixture() *Listing {
	return &Listing{
		Name:     "TechHub Gadgets",
		Category: "Electronics",
		Marketplace: Marketplace{
			Profile: Profile{
				Tagline:     "Apple Products Specialist",
				Description: "Gaming Laptops available, trade-ins welcome",
				Products:    []string{"iPhone", "MacBook"},
				Services:    []string{"Repair", "Warranty"},
			},
		},
	}
}

func TestListing_MatchesQuery(t *testing.T) {
	l := matchFixture()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"case-insensitive description match", "laptop", true},
		{"name match", "techhub", true},
		{"tagline match", "APPLE", true},
		{"category match", "electronics", true},
		{"product match", "iphone", true},
		{"service match", "repair", true},
		{"substring across a single field", "aming Lapt", true},
		{"no match", "plumbing", false},
		{"empty query matches", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.MatchesQuery(tt.query); got != tt.want {
				t.Errorf("MatchesQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestListing_MatchesQuery_MissingFields(t *testing.T) {
	l := &Listing{Name: "Bare Listing"}

	if !l.MatchesQuery("bare") {
		t.Error("should match on name alone")
	}
	if l.MatchesQuery("anything else") {
		t.Error("should not match absent fields")
	}
}

func TestListing_MatchesQuery_NoCrossFieldSubstrings(t *testing.T) {
	// Fields are joined with a space, so a query spanning two fields only
	// matches when the space is part of the query.
	l := &Listing{
		Name: "Alpha",
		Marketplace: Marketplace{
			Profile: Profile{Tagline: "Beta"},
		},
	}

	if l.MatchesQuery("alphabeta") {
		t.Error("fields should not concatenate without a separator")
	}
	if !l.MatchesQuery("alpha beta") {
		t.Error("space-joined fields should match a spaced query")
	}
}
