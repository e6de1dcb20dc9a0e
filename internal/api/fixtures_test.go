package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/confirmit/marketd/internal/geo"
	"github.com/confirmit/marketd/internal/listing"
)

// Lagos Island, roughly.
var testSearcher = geo.Point{Lat: 6.4541, Lng: 3.3947}

// kmNorth returns a point approximately km kilometers north of p.
func kmNorth(p geo.Point, km float64) *geo.Point {
	return &geo.Point{Lat: p.Lat + km/111.19493, Lng: p.Lng}
}

func intPtr(v int) *int { return &v }

// makeListing builds an active Lagos listing fixture.
func makeListing(id, name string, trust int, coords *geo.Point) *listing.Listing {
	return &listing.Listing{
		ID:         id,
		Name:       name,
		Category:   "electronics",
		TrustScore: intPtr(trust),
		Rating:     4.2,
		Marketplace: listing.Marketplace{
			Status: listing.Status{Status: listing.StatusActive},
			Profile: listing.Profile{
				Tagline:     "Phone repairs and accessories",
				Description: "Phone repairs and accessories",
				Products:    []string{"chargers"},
				Services:    []string{"screen repair"},
				Location: listing.Location{
					Area:        "Lekki",
					City:        "Lagos",
					Coordinates: coords,
				},
			},
		},
	}
}

// decodeErrorEnvelope decodes the standard error body and fails the test on
// malformed JSON.
func decodeErrorEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var envelope ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rec.Body.String(), err)
	}
	return envelope
}

// failingRepo errors on every operation.
type failingRepo struct{}

func (failingRepo) FetchActive(ctx context.Context, city string) ([]*listing.Listing, error) {
	return nil, errors.New("store offline")
}

func (failingRepo) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	return nil, errors.New("store offline")
}

func (failingRepo) IncrementCounter(ctx context.Context, id string, field listing.CounterField, delta int64) error {
	return errors.New("store offline")
}

func (failingRepo) UpdateProfile(ctx context.Context, id string, patch listing.ProfilePatch) error {
	return errors.New("store offline")
}
