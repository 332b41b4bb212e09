// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Live     LiveConfig
	Upstream UpstreamConfig
	Proxy    ProxyConfig
	Auth     AuthConfig
	Database DatabaseConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	RateLimit       int
	RateWindow      time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	SwaggerUser     string
	SwaggerPass     string
	LogLevel        string
	LogPretty       bool
}

// CacheConfig holds cache store configuration.
type CacheConfig struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MirrorTimeout   time.Duration
	// MirrorMaxEntries caps persistent entries, in memory or in MongoDB.
	MirrorMaxEntries int
	// StaleRetention keeps expired MongoDB entries around for stale reads.
	StaleRetention time.Duration
	TeamsTTL       time.Duration
	RostersTTL     time.Duration
	PlayersTTL     time.Duration
}

// LiveConfig holds the live update channel configuration.
type LiveConfig struct {
	Enabled        bool
	URL            string
	Channels       []string
	UserID         string
	MaxAttempts    int
	BaseDelay      time.Duration
	ProbabilityTTL time.Duration
}

// UpstreamConfig points at the Team/Roster Data Service.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
	// Circuit breaker configuration
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

// ProxyConfig holds the third-party proxy configuration.
type ProxyConfig struct {
	Enabled      bool
	AllowedHosts []string
	TTL          time.Duration
	Timeout      time.Duration
	OddsAPIKey   string
	RapidAPIKey  string
}

// AuthConfig describes bearer tokens accepted on the admin routes.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
	Audience  string
	Leeway    time.Duration
}

// DatabaseConfig holds MongoDB configuration for the durable cache mirror.
type DatabaseConfig struct {
	URI          string
	DatabaseName string
	Enabled      bool
	// Circuit breaker configuration
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

var (
	// ErrJWTSecretRequired is returned when auth is enabled without a secret.
	ErrJWTSecretRequired = errors.New("config: AUTH_ENABLED requires JWT_SECRET_KEY")
	// ErrLiveURLRequired is returned when the live channel is enabled without a URL.
	ErrLiveURLRequired = errors.New("config: LIVE_ENABLED requires LIVE_URL")
)

// Load reads .env from the working directory, when present, then the environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom seeds the environment from the given .env files, skipping missing
// ones. Variables already set in the environment take precedence.
func LoadFrom(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			RateLimit:       getEnvInt("RATE_LIMIT", 300),
			RateWindow:      getEnvDuration("RATE_WINDOW", time.Minute),
			RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     parseCORSOrigins(os.Getenv("CORS_ORIGINS")),
			SwaggerUser:     getEnv("SWAGGER_USER", ""),
			SwaggerPass:     getEnv("SWAGGER_PASS", ""),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			LogPretty:       getEnvBool("LOG_PRETTY", false),
		},
		Cache: CacheConfig{
			MaxEntries:       getEnvInt("CACHE_MAX_ENTRIES", 100),
			DefaultTTL:       getEnvDuration("CACHE_DEFAULT_TTL", 30*time.Second),
			CleanupInterval:  getEnvDuration("CACHE_CLEANUP_INTERVAL", 2*time.Minute),
			MirrorTimeout:    getEnvDuration("CACHE_MIRROR_TIMEOUT", 2*time.Second),
			MirrorMaxEntries: getEnvInt("CACHE_MIRROR_MAX_ENTRIES", 500),
			StaleRetention:   getEnvDuration("CACHE_STALE_RETENTION", 24*time.Hour),
			TeamsTTL:         getEnvDuration("CACHE_TEAMS_TTL", 5*time.Minute),
			RostersTTL:       getEnvDuration("CACHE_ROSTERS_TTL", 10*time.Minute),
			PlayersTTL:       getEnvDuration("CACHE_PLAYERS_TTL", time.Minute),
		},
		Live: LiveConfig{
			Enabled:        getEnvBool("LIVE_ENABLED", false),
			URL:            getEnv("LIVE_URL", ""),
			Channels:       parseList(getEnv("LIVE_CHANNELS", "game-updates")),
			UserID:         getEnv("LIVE_USER_ID", ""),
			MaxAttempts:    getEnvInt("LIVE_MAX_RECONNECT_ATTEMPTS", 5),
			BaseDelay:      getEnvDuration("LIVE_RECONNECT_DELAY", time.Second),
			ProbabilityTTL: getEnvDuration("LIVE_PROBABILITY_TTL", 30*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:                        getEnv("ROSTER_SERVICE_URL", "http://localhost:3001"),
			Timeout:                        getEnvDuration("ROSTER_SERVICE_TIMEOUT", 10*time.Second),
			CircuitBreakerFailureThreshold: getEnvInt("ROSTER_CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("ROSTER_CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("ROSTER_CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Proxy: ProxyConfig{
			Enabled:      getEnvBool("PROXY_ENABLED", true),
			AllowedHosts: parseList(os.Getenv("PROXY_ALLOWED_HOSTS")),
			TTL:          getEnvDuration("PROXY_TTL", 30*time.Second),
			Timeout:      getEnvDuration("PROXY_TIMEOUT", 10*time.Second),
			OddsAPIKey:   getEnv("ODDS_API_KEY", ""),
			RapidAPIKey:  getEnv("RAPIDAPI_KEY", ""),
		},
		Auth: AuthConfig{
			Enabled:   getEnvBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("JWT_SECRET_KEY", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
			Audience:  getEnv("JWT_AUDIENCE", ""),
			Leeway:    getEnvDuration("JWT_LEEWAY", 30*time.Second),
		},
		Database: DatabaseConfig{
			URI:                            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			DatabaseName:                   getEnv("MONGODB_DATABASE", "sunday_edge"),
			Enabled:                        getEnvBool("MONGODB_ENABLED", false),
			CircuitBreakerFailureThreshold: getEnvInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, ErrJWTSecretRequired)
	}
	if c.Live.Enabled && c.Live.URL == "" {
		errs = append(errs, ErrLiveURLRequired)
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func parseCORSOrigins(s string) []string {
	defaults := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	return append(defaults, parseList(s)...)
}
