package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/confirmit/marketd/internal/analytics"
	"github.com/confirmit/marketd/internal/auth"
	"github.com/confirmit/marketd/internal/config"
	"github.com/confirmit/marketd/internal/listing"
	"github.com/confirmit/marketd/internal/middleware"
	"github.com/confirmit/marketd/internal/search"
)

// newTestHandler wires the full middleware chain around an in-memory store.
func newTestHandler(t *testing.T, repo listing.Repository) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Env:                      "development",
		SearchRadiusKm:           config.DefaultSearchRadiusKm,
		SearchPageSize:           config.DefaultSearchPageSize,
		RateLimitPerMinute:       1000,
		SearchRateLimitPerMinute: 1000,
		HoursTimezone:            "UTC",
	}

	logger := middleware.NewLogger(cfg.Env)
	httpMetrics := middleware.NewMetrics()
	searchMetrics := search.NewMetrics()
	trackerMetrics := analytics.NewMetrics()

	registry := prometheus.NewRegistry()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		searchMetrics.Register,
		trackerMetrics.Register,
	} {
		if err := register(registry); err != nil {
			t.Fatalf("failed to register metrics: %v", err)
		}
	}

	return newHandler(handlerDeps{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		searchSvc:      search.NewService(repo, nil, time.UTC, logger, searchMetrics),
		tracker:        analytics.NewTracker(repo, logger, trackerMetrics),
		jwtSvc:         auth.NewJWTService("test-secret"),
		registry:       registry,
		httpMetrics:    httpMetrics,
		rateLimitStore: middleware.NewInMemoryRateLimitStore(),
	})
}

func seedRepo() *listing.InMemoryRepository {
	repo := listing.NewInMemoryRepository()
	trust := 80
	repo.Put(&listing.Listing{
		ID:         "biz-a",
		Name:       "Ade Phones",
		TrustScore: &trust,
		Marketplace: listing.Marketplace{
			Status: listing.Status{Status: listing.StatusActive},
			Profile: listing.Profile{
				Description: "Phone repairs",
				Location:    listing.Location{City: "Lagos"},
			},
		},
	})
	return repo
}

func TestRoutes(t *testing.T) {
	handler := newTestHandler(t, seedRepo())

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"root banner", http.MethodGet, "/", http.StatusOK},
		{"unknown path", http.MethodGet, "/nope", http.StatusNotFound},
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"ready", http.MethodGet, "/ready", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"search", http.MethodGet, "/marketplace/search?q=phone", http.StatusOK},
		{"stats", http.MethodGet, "/marketplace/stats", http.StatusOK},
		{"business", http.MethodGet, "/marketplace/business/biz-a", http.StatusOK},
		{"business not found", http.MethodGet, "/marketplace/business/missing", http.StatusNotFound},
		{"patch without token", http.MethodPatch, "/marketplace/business/biz-a", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRoutes_SearchThroughFullChain(t *testing.T) {
	handler := newTestHandler(t, seedRepo())

	req := httptest.NewRequest(http.MethodGet, "/marketplace/search?q=phone", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rid := rec.Header().Get("X-Request-ID"); rid == "" {
		t.Error("expected X-Request-ID header from middleware chain")
	}

	var resp search.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].BusinessID != "biz-a" {
		t.Errorf("unexpected search response: %+v", resp)
	}
}

func TestRoutes_RateLimitExceeded(t *testing.T) {
	repo := seedRepo()

	cfg := &config.Config{
		Env:                      "development",
		SearchRadiusKm:           config.DefaultSearchRadiusKm,
		SearchPageSize:           config.DefaultSearchPageSize,
		RateLimitPerMinute:       1000,
		SearchRateLimitPerMinute: 2,
		HoursTimezone:            "UTC",
	}

	logger := middleware.NewLogger(cfg.Env)
	httpMetrics := middleware.NewMetrics()
	searchMetrics := search.NewMetrics()
	trackerMetrics := analytics.NewMetrics()
	registry := prometheus.NewRegistry()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		searchMetrics.Register,
		trackerMetrics.Register,
	} {
		if err := register(registry); err != nil {
			t.Fatalf("failed to register metrics: %v", err)
		}
	}

	handler := newHandler(handlerDeps{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		searchSvc:      search.NewService(repo, nil, time.UTC, logger, searchMetrics),
		tracker:        analytics.NewTracker(repo, logger, trackerMetrics),
		jwtSvc:         auth.NewJWTService("test-secret"),
		registry:       registry,
		httpMetrics:    httpMetrics,
		rateLimitStore: middleware.NewInMemoryRateLimitStore(),
	})

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/marketplace/search", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("expected 429 on third search request, got %d", lastCode)
	}
}
