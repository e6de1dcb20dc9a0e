package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimitConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  RateLimitConfig
		wantErr bool
	}{
		{"valid", RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}, false},
		{"zero requests", RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}, true},
		{"negative requests", RateLimitConfig{RequestsPerWindow: -1, WindowDuration: time.Minute}, true},
		{"zero window", RateLimitConfig{RequestsPerWindow: 10, WindowDuration: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInMemoryStoreAllowsUpToLimit(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := store.Allow(ctx, "client-1", config)
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "client-1", config)
	if allowed {
		t.Error("request over the limit should be blocked")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Errorf("retryAfter = %d, want in (0, 60]", retryAfter)
	}

	// A different key has its own bucket.
	if allowed, _ := store.Allow(ctx, "client-2", config); !allowed {
		t.Error("separate key should not share the bucket")
	}
}

func TestInMemoryStoreWindowExpiry(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 10 * time.Millisecond}
	ctx := context.Background()

	if allowed, _ := store.Allow(ctx, "k", config); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := store.Allow(ctx, "k", config); allowed {
		t.Fatal("second request in window should be blocked")
	}

	time.Sleep(15 * time.Millisecond)

	if allowed, _ := store.Allow(ctx, "k", config); !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

func TestInMemoryStoreCleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Nanosecond}

	store.Allow(context.Background(), "stale", config)
	time.Sleep(time.Millisecond)
	store.Cleanup()

	store.mu.RLock()
	defer store.mu.RUnlock()
	if len(store.buckets) != 0 {
		t.Errorf("expected stale buckets removed, have %d", len(store.buckets))
	}
}

func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:1234", nil, "203.0.113.7"},
		{"x-forwarded-for single", "203.0.113.7:1234", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "198.51.100.1"},
		{"x-forwarded-for chain", "203.0.113.7:1234", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"x-real-ip", "203.0.113.7:1234", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"ipv6", "[2001:db8::1]:1234", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/marketplace/search", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := keyFunc(r); got != tt.want {
				t.Errorf("key = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}

	handler := RateLimiter(store, config, IPKeyFunc())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/marketplace/search", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/marketplace/search", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("missing X-RateLimit-Reset header")
	}
}

func TestDefaultLimits(t *testing.T) {
	if err := DefaultGlobalLimit().Validate(); err != nil {
		t.Errorf("default global limit invalid: %v", err)
	}
	if err := DefaultSearchLimit().Validate(); err != nil {
		t.Errorf("default search limit invalid: %v", err)
	}
	if DefaultSearchLimit().RequestsPerWindow >= DefaultGlobalLimit().RequestsPerWindow {
		t.Error("search limit should be tighter than the global limit")
	}
}
