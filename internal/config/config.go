// Package config provides configuration loading and validation for the API
// server. It uses koanf to merge environment variables with optional file
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (rate limiting); optional, in-memory fallback when unset
	RedisURL string `koanf:"redis_url"`

	// JWT authentication (profile updates)
	JWTSecret string `koanf:"jwt_secret"`

	// Authoritative time zone for open-hours evaluation
	HoursTimezone string `koanf:"hours_timezone"`

	// Search defaults
	SearchRadiusKm float64 `koanf:"search_radius_km"`
	SearchPageSize int     `koanf:"search_page_size"`

	// Optional JSON file overriding ranking weights
	RankingCalibrationPath string `koanf:"ranking_calibration_path"`

	// Rate limiting (requests per minute per client)
	RateLimitPerMinute       int `koanf:"rate_limit_per_minute"`
	SearchRateLimitPerMinute int `koanf:"search_rate_limit_per_minute"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"` // "grpc" or "http"
	TracingEndpoint   string  `koanf:"tracing_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`

	// CORS
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret    = errors.New("JWT_SECRET is required")
	ErrInvalidPort         = errors.New("PORT must be a valid integer")
	ErrInvalidTimezone     = errors.New("HOURS_TIMEZONE is not a recognized IANA zone")
	ErrInvalidRadius       = errors.New("SEARCH_RADIUS_KM must be greater than 0")
	ErrInvalidPageSize     = errors.New("SEARCH_PAGE_SIZE must be between 1 and 20")
	ErrInvalidExporter     = errors.New("TRACING_EXPORTER must be \"grpc\" or \"http\"")
	ErrInvalidSampleRate   = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort                     = 8080
	DefaultEnv                      = "development"
	DefaultHoursTimezone            = "Africa/Lagos"
	DefaultSearchRadiusKm           = 10.0
	DefaultSearchPageSize           = 5
	DefaultRateLimitPerMinute       = 120
	DefaultSearchRateLimitPerMinute = 60
	DefaultTracingExporter          = "grpc"
	DefaultTracingSampleRate        = 0.1
)

// MaxSearchPageSize caps the page size both as a config value and per request.
const MaxSearchPageSize = 20

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values. Returns the
// loaded config and a slice of validation errors (empty if valid). If a
// config file path is provided and the file cannot be loaded, an error is
// returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Try MARKETD_PORT first, then PORT for platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"MARKETD_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	pageSize, pageSizeErr := getEnvIntOrDefault("SEARCH_PAGE_SIZE", k.Int("search_page_size"), DefaultSearchPageSize)
	if pageSizeErr != nil {
		loadErrs = append(loadErrs, pageSizeErr)
	}

	radius, radiusErr := getEnvFloatOrDefault("SEARCH_RADIUS_KM", k.Float64("search_radius_km"), DefaultSearchRadiusKm)
	if radiusErr != nil {
		loadErrs = append(loadErrs, radiusErr)
	}

	rateLimit, rateLimitErr := getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", k.Int("rate_limit_per_minute"), DefaultRateLimitPerMinute)
	if rateLimitErr != nil {
		loadErrs = append(loadErrs, rateLimitErr)
	}

	searchRateLimit, searchRateLimitErr := getEnvIntOrDefault("SEARCH_RATE_LIMIT_PER_MINUTE", k.Int("search_rate_limit_per_minute"), DefaultSearchRateLimitPerMinute)
	if searchRateLimitErr != nil {
		loadErrs = append(loadErrs, searchRateLimitErr)
	}

	sampleRate, sampleRateErr := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), DefaultTracingSampleRate)
	if sampleRateErr != nil {
		loadErrs = append(loadErrs, sampleRateErr)
	}

	cfg := &Config{
		Port:                     port,
		Env:                      getEnvOrDefaultMulti([]string{"MARKETD_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:              getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:                 getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:                getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		HoursTimezone:            getEnvOrDefault("HOURS_TIMEZONE", k.String("hours_timezone"), DefaultHoursTimezone),
		SearchRadiusKm:           radius,
		SearchPageSize:           pageSize,
		RankingCalibrationPath:   getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "ranking_calibration_path"),
		RateLimitPerMinute:       rateLimit,
		SearchRateLimitPerMinute: searchRateLimit,
		TracingEnabled:           getEnvBool("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter:          getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint:          getEnvOrKoanf("TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSampleRate:        sampleRate,
		CORSAllowedOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// HoursLocation resolves the configured open-hours zone. Call after
// validation; an unrecognized zone falls back to UTC.
func (c *Config) HoursLocation() *time.Location {
	loc, err := time.LoadLocation(c.HoursTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment reports whether the server runs in a development
// environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvBool returns the environment variable as bool if set, otherwise the koanf value, or default.
func getEnvBool(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	if k.Exists(koanfKey) {
		return k.Bool(koanfKey)
	}
	return defaultVal
}

// getEnvList returns a comma-separated environment variable as a slice,
// otherwise the koanf string slice.
func getEnvList(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// Validate checks that all required configuration values are present and
// consistent. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if _, err := time.LoadLocation(c.HoursTimezone); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.HoursTimezone))
	}
	if c.SearchRadiusKm <= 0 {
		errs = append(errs, ErrInvalidRadius)
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > MaxSearchPageSize {
		errs = append(errs, ErrInvalidPageSize)
	}
	if c.TracingExporter != "grpc" && c.TracingExporter != "http" {
		errs = append(errs, ErrInvalidExporter)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                         fmt.Sprintf("%d", c.Port),
		"env":                          c.Env,
		"database_url":                 maskDatabaseURL(c.DatabaseURL),
		"redis_url":                    maskDatabaseURL(c.RedisURL),
		"jwt_secret":                   maskSecret(c.JWTSecret),
		"hours_timezone":               c.HoursTimezone,
		"search_radius_km":             fmt.Sprintf("%g", c.SearchRadiusKm),
		"search_page_size":             fmt.Sprintf("%d", c.SearchPageSize),
		"ranking_calibration_path":     c.RankingCalibrationPath,
		"rate_limit_per_minute":        fmt.Sprintf("%d", c.RateLimitPerMinute),
		"search_rate_limit_per_minute": fmt.Sprintf("%d", c.SearchRateLimitPerMinute),
		"tracing_enabled":              fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter":             c.TracingExporter,
		"tracing_endpoint":             c.TracingEndpoint,
		"tracing_sample_rate":          fmt.Sprintf("%g", c.TracingSampleRate),
		"cors_allowed_origins":         strings.Join(c.CORSAllowedOrigins, ","),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters
// followed by ****. If the secret is shorter than 8 characters, it's fully
// masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL. Supports
// postgres://, postgresql://, and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
