// Package search implements the marketplace search pipeline: candidate
// retrieval, text and geographic filtering, relevance scoring, and
// deterministic pagination.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/confirmit/marketd/internal/geo"
	"github.com/confirmit/marketd/internal/listing"
	"github.com/confirmit/marketd/internal/ranking"
	"github.com/confirmit/marketd/internal/tracing"
)

// Pagination and filtering defaults. Handlers apply these before calling
// Search; the pipeline also applies them so direct callers get the same
// behavior.
const (
	DefaultRadiusKm = 10.0
	DefaultPage     = 1
	DefaultPageSize = 5
	MaxPageSize     = 20

	// Listings without coordinates get this sentinel distance when the
	// searcher supplied a location, which excludes them from any
	// realistic radius.
	MissingCoordinatesKm = 999.0
)

// Query describes one search request. Zero values for RadiusKm, Page, and
// PageSize are replaced with defaults.
type Query struct {
	Text          string
	UserLocation  *geo.Point
	City          string
	RadiusKm      float64
	MinTrustScore *int
	Page          int
	PageSize      int
}

// ResultLocation is the coarse location block on a search result.
type ResultLocation struct {
	Area string `json:"area"`
	City string `json:"city"`
}

// Result is the compact projection of one ranked listing.
type Result struct {
	BusinessID  string         `json:"businessId"`
	Name        string         `json:"name"`
	Tagline     string         `json:"tagline"`
	TrustScore  int            `json:"trustScore"`
	Products    []string       `json:"products"`
	Services    []string       `json:"services"`
	DistanceKm  float64        `json:"distanceKm"`
	Rating      float64        `json:"rating"`
	ReviewCount int            `json:"reviewCount"`
	Thumbnail   string         `json:"thumbnail"`
	Location    ResultLocation `json:"location"`
	IsOpen      bool           `json:"isOpen"`
	Verified    bool           `json:"verified"`
	Tier        int            `json:"tier"`
}

// LocationContext echoes the searcher's supplied location back on the
// response.
type LocationContext struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	City string  `json:"city,omitempty"`
}

// Response is the full search response payload.
type Response struct {
	Results      []Result         `json:"results"`
	Total        int              `json:"total"`
	Page         int              `json:"page"`
	PageSize     int              `json:"pageSize"`
	HasMore      bool             `json:"hasMore"`
	UserLocation *LocationContext `json:"userLocation,omitempty"`
}

// ranked pairs a candidate with its transient per-request annotations.
// It never outlives a single Search call.
type ranked struct {
	listing    *listing.Listing
	distanceKm float64
	hasCoords  bool
	score      float64
}

// Service runs the search pipeline against a listing repository.
type Service struct {
	repo     listing.Repository
	weights  *ranking.Weights
	hoursLoc *time.Location
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewService creates a search service. weights may be nil (defaults are
// used), hoursLoc may be nil (UTC), and metrics may be nil (not recorded).
func NewService(repo listing.Repository, weights *ranking.Weights, hoursLoc *time.Location, logger *slog.Logger, metrics *Metrics) *Service {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	if hoursLoc == nil {
		hoursLoc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		weights:  weights,
		hoursLoc: hoursLoc,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Used by tests to pin "now" for
// open-hours evaluation.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Search executes the pipeline: retrieve → text filter → distance
// annotation → radius filter → trust filter → score → sort → paginate →
// project. A repository fault aborts the whole search; there are no
// partial results.
func (s *Service) Search(ctx context.Context, q Query) (resp *Response, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "search_pipeline")
	defer func() { endSpan(err) }()

	q = q.withDefaults()

	// The city filter applies only when no user location was supplied;
	// location takes precedence as the geographic narrowing signal.
	cityFilter := ""
	if q.UserLocation == nil {
		cityFilter = q.City
	}

	candidates, err := s.repo.FetchActive(ctx, cityFilter)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncRetrievalErrors()
		}
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	retrieved := len(candidates)

	if q.Text != "" {
		filtered := candidates[:0]
		for _, l := range candidates {
			if l.MatchesQuery(q.Text) {
				filtered = append(filtered, l)
			}
		}
		candidates = filtered
	}

	survivors := make([]ranked, 0, len(candidates))
	for _, l := range candidates {
		r := ranked{listing: l}
		if q.UserLocation != nil {
			r.distanceKm = MissingCoordinatesKm
			if coords := l.Coordinates(); coords != nil {
				r.distanceKm = geo.Distance(*q.UserLocation, *coords)
				r.hasCoords = true
			}
			if r.distanceKm > q.RadiusKm {
				continue
			}
		}
		if q.MinTrustScore != nil && l.Trust() < *q.MinTrustScore {
			continue
		}
		survivors = append(survivors, r)
	}

	for i := range survivors {
		params := ranking.Params{
			TrustScore: survivors[i].listing.Trust(),
			RadiusKm:   q.RadiusKm,
		}
		if q.UserLocation != nil && survivors[i].hasCoords {
			params.DistanceKm = &survivors[i].distanceKm
		}
		survivors[i].score = ranking.Score(params, s.weights)
	}

	// Descending by score, ascending by ID on ties, so ordering is
	// reproducible regardless of retrieval order.
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].listing.ID < survivors[j].listing.ID
	})

	total := len(survivors)
	start := (q.Page - 1) * q.PageSize
	end := start + q.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	page := survivors[start:end]

	now := s.now().In(s.hoursLoc)
	results := make([]Result, 0, len(page))
	for _, r := range page {
		results = append(results, s.project(r, now))
	}

	s.logger.Debug("search completed",
		"query", q.Text,
		"city", cityFilter,
		"retrieved", retrieved,
		"total", total,
		"returned", len(results))

	if s.metrics != nil {
		s.metrics.ObserveSearch(retrieved, len(results))
	}

	resp = &Response{
		Results:  results,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
		HasMore:  q.Page*q.PageSize < total,
	}
	if q.UserLocation != nil {
		resp.UserLocation = &LocationContext{
			Lat:  q.UserLocation.Lat,
			Lng:  q.UserLocation.Lng,
			City: q.City,
		}
	}
	return resp, nil
}

func (s *Service) project(r ranked, now time.Time) Result {
	l := r.listing
	profile := l.Marketplace.Profile
	return Result{
		BusinessID:  l.ID,
		Name:        l.DisplayName(),
		Tagline:     profile.Tagline,
		TrustScore:  l.Trust(),
		Products:    profile.Products,
		Services:    profile.Services,
		DistanceKm:  roundKm(r.distanceKm),
		Rating:      l.Rating,
		ReviewCount: l.ReviewCount,
		Thumbnail:   profile.Photos.Primary,
		Location: ResultLocation{
			Area: profile.Location.Area,
			City: profile.Location.City,
		},
		IsOpen:   profile.Hours.OpenAt(now),
		Verified: l.Verification.Verified,
		Tier:     l.Tier(),
	}
}

func (q Query) withDefaults() Query {
	if q.RadiusKm <= 0 {
		q.RadiusKm = DefaultRadiusKm
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// roundKm rounds a distance to one decimal place for display.
func roundKm(km float64) float64 {
	return math.Round(km*10) / 10
}
