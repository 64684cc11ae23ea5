// Package config loads the server configuration from environment variables.
// Unset variables take their defaults; set but malformed ones are errors, and
// Load reports every problem at once.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig lists the browser origins allowed to call the API. Empty means
// any origin, without credentials.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig controls HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig configures trace export.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT, host:port
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0,1]
}

// StoreConfig tunes the document store and the resilience wrappers around it.
type StoreConfig struct {
	PageSize        int           // STORE_PAGE_SIZE: max items per backend page
	MaxLimit        int           // STORE_MAX_LIMIT: upper bound for top-N queries
	MaxRetries      int           // STORE_MAX_RETRIES: retries for throttled calls
	RetryInitial    time.Duration // STORE_RETRY_INITIAL: first backoff interval
	BreakerFailures int           // STORE_BREAKER_FAILURES: consecutive failures to open (0 = off)
	BreakerTimeout  time.Duration // STORE_BREAKER_TIMEOUT: open -> half-open delay
	CacheSize       int           // STORE_CACHE_SIZE: point-read cache entries per collection (0 = off)
}

// JobsConfig schedules the background jobs. Zero disables a job.
type JobsConfig struct {
	NotificationSweepInterval time.Duration // NOTIFICATION_SWEEP_INTERVAL
}

// Config is the whole server configuration.
type Config struct {
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	AppEnv string // development|staging|production
	DBPath string // SQLite file backing the document store

	Store StoreConfig
	Jobs  JobsConfig

	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	// IdempotencyTTL is how long an Idempotency-Key keeps replaying.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// IsDevelopment reports whether detailed error messages may be exposed.
func (c Config) IsDevelopment() bool { return c.AppEnv == "development" }

// MustLoad is Load that panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration.
func Load() (Config, error) {
	var e env
	cfg := Config{
		Port:              e.text("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    e.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(e.text("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(e.text("LOG_LEVEL", "info")),
		LogPretty:      e.flag("LOG_PRETTY", false),
		SwaggerEnabled: e.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(e.text("API_BASE_PATH", "/api/v1")),

		AppEnv: strings.ToLower(e.text("APP_ENV", "production")),
		DBPath: e.text("DB_PATH", "levelup.db"),

		Store: StoreConfig{
			PageSize:        e.integer("STORE_PAGE_SIZE", 100),
			MaxLimit:        e.integer("STORE_MAX_LIMIT", 1000),
			MaxRetries:      e.integer("STORE_MAX_RETRIES", 3),
			RetryInitial:    e.duration("STORE_RETRY_INITIAL", 50*time.Millisecond),
			BreakerFailures: e.integer("STORE_BREAKER_FAILURES", 5),
			BreakerTimeout:  e.duration("STORE_BREAKER_TIMEOUT", 30*time.Second),
			CacheSize:       e.integer("STORE_CACHE_SIZE", 512),
		},
		Jobs: JobsConfig{
			NotificationSweepInterval: e.duration("NOTIFICATION_SWEEP_INTERVAL", 0),
		},

		RateRPS:   e.number("RATE_RPS", 5),
		RateBurst: e.integer("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(e.text("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.flag("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.flag("OTEL_ENABLED", false),
			Endpoint:    e.text("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: e.text("OTEL_SERVICE_NAME", "levelup-backend"),
			SampleRatio: e.number("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	cfg.normalize()

	if err := errors.Join(e.errs, cfg.Validate()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.AppEnv {
	case "dev", "local":
		c.AppEnv = "development"
	case "prod":
		c.AppEnv = "production"
	}
}

// Validate reports every out-of-range setting, joined.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	switch c.AppEnv {
	case "development", "staging", "production":
	default:
		errs = append(errs, errors.New("APP_ENV must be one of: development, staging, production"))
	}

	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")

	check(c.Store.PageSize >= 1 && c.Store.PageSize <= 1000, "STORE_PAGE_SIZE must be between 1 and 1000")
	check(c.Store.MaxLimit >= 1, "STORE_MAX_LIMIT must be >= 1")
	check(c.Store.MaxRetries >= 0, "STORE_MAX_RETRIES must be >= 0")
	check(c.Store.RetryInitial > 0, "STORE_RETRY_INITIAL must be > 0")
	check(c.Store.BreakerFailures >= 0, "STORE_BREAKER_FAILURES must be >= 0")
	check(c.Store.BreakerTimeout > 0, "STORE_BREAKER_TIMEOUT must be > 0")
	check(c.Store.CacheSize >= 0, "STORE_CACHE_SIZE must be >= 0")

	check(c.Jobs.NotificationSweepInterval == 0 || c.Jobs.NotificationSweepInterval >= time.Second,
		"NOTIFICATION_SWEEP_INTERVAL must be 0 or at least 1s")

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// env reads variables and remembers every value that failed to parse.
type env struct {
	errs error
}

func (e *env) lookup(k string) (string, bool) {
	v, ok := os.LookupEnv(k)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func (e *env) fail(k, v string, err error) {
	e.errs = errors.Join(e.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

// text returns the raw value; unlike the typed readers it does not trim.
func (e *env) text(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func (e *env) integer(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return n
}

func (e *env) number(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return f
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v, err)
		return def
	}
	return d
}

func (e *env) flag(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	e.fail(k, v, errors.New("not a boolean"))
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath adds a leading slash and drops trailing ones; blank is
// root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
