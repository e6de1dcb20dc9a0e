package validate

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		constraints URLConstraints
		wantErr     error
	}{
		{
			name:        "valid https",
			input:       "https://example.com/shop",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
		},
		{
			name:        "empty",
			input:       "",
			constraints: PublicWebURLConstraints,
			wantErr:     ErrEmpty,
		},
		{
			name:        "disallowed scheme",
			input:       "ftp://example.com",
			constraints: URLConstraints{AllowedSchemes: []string{"https", "http"}},
			wantErr:     ErrDisallowedScheme,
		},
		{
			name:        "missing hostname",
			input:       "https://",
			constraints: URLConstraints{AllowedSchemes: []string{"https"}},
			wantErr:     ErrInvalidURL,
		},
		{
			name:        "too long",
			input:       "https://example.com/" + strings.Repeat("a", 2048),
			constraints: PublicWebURLConstraints,
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "localhost blocked",
			input:       "http://localhost:8080/admin",
			constraints: PublicWebURLConstraints,
			wantErr:     ErrSSRFRisk,
		},
		{
			name:        "loopback IP blocked",
			input:       "http://127.0.0.1/",
			constraints: PublicWebURLConstraints,
			wantErr:     ErrSSRFRisk,
		},
		{
			name:        "private IP blocked",
			input:       "http://192.168.1.1/",
			constraints: PublicWebURLConstraints,
			wantErr:     ErrSSRFRisk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := URL(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.5", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"169.254.1.1", true},
		{"8.8.8.8", false},
		{"::1", true},
		{"fc00::1", true},
		{"2001:4860:4860::8888", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("failed to parse IP %s", tt.ip)
			}
			if got := isPrivateIP(ip); got != tt.private {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
			}
		})
	}
}
