package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/politicianfinder/edge-gate/internal/ratelimit"
	"github.com/politicianfinder/edge-gate/internal/services/auth"
	"github.com/politicianfinder/edge-gate/internal/validation"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort   string   `yaml:"server_port" validate:"required,numeric"`
	PathPrefixes []string `yaml:"path_prefixes" validate:"required,min=1,dive,startswith=/"`

	RateLimitRequests      int64   `yaml:"rate_limit_requests" validate:"min=1"`
	RateLimitWindowSeconds int     `yaml:"rate_limit_window_seconds" validate:"min=1"`
	RateLimitRate          string  `yaml:"rate_limit_rate" validate:"omitempty,ulule_rate"`
	RateLimitStore         string  `yaml:"rate_limit_store" validate:"rate_store"`
	RateLimitFailClosed    bool    `yaml:"rate_limit_fail_closed"`
	GlobalRateRPS          float64 `yaml:"global_rate_rps" validate:"gte=0"`
	GlobalRateBurst        int     `yaml:"global_rate_burst" validate:"gte=0"`
	TrustProxyHeaders      bool    `yaml:"trust_proxy_headers"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" validate:"required,min=1,dive,cors_origin"`
	CORSMaxAgeSeconds  int      `yaml:"cors_max_age_seconds" validate:"gte=0"`

	AuthVerifier     string        `yaml:"auth_verifier" validate:"token_verifier"`
	AuthJWTSecret    string        `yaml:"auth_jwt_secret"`
	AuthJWKSURL      string        `yaml:"auth_jwks_url" validate:"omitempty,url"`
	AuthIssuer       string        `yaml:"auth_issuer"`
	AuthAudience     string        `yaml:"auth_audience"`
	AuthRemoteURL    string        `yaml:"auth_remote_url" validate:"omitempty,url"`
	AuthRemoteAPIKey string        `yaml:"auth_remote_api_key"`
	AuthTimeout      time.Duration `yaml:"auth_timeout" validate:"gt=0"`

	RedisURL       string        `yaml:"redis_url"`
	DatabaseURL    string        `yaml:"database_url"`
	RabbitMQURL    string        `yaml:"rabbitmq_url"`
	UpstreamURL    string        `yaml:"upstream_url" validate:"omitempty,url"`
	ReloadInterval time.Duration `yaml:"reload_interval" validate:"gt=0"`

	MaxRequestBytes int64 `yaml:"max_request_bytes" validate:"gte=0"`

	EnableHSTS      bool   `yaml:"enable_hsts"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	OTELEndpoint    string `yaml:"otel_endpoint"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		ServerPort:             "8080",
		PathPrefixes:           []string{"/api/"},
		RateLimitRequests:      ratelimit.DefaultLimit,
		RateLimitWindowSeconds: int(ratelimit.DefaultWindow / time.Second),
		RateLimitStore:         validation.StoreMemory,
		TrustProxyHeaders:      true,
		CORSAllowedOrigins:     []string{"*"},
		AuthVerifier:           validation.VerifierPlaceholder,
		AuthTimeout:            auth.DefaultTimeout,
		ReloadInterval:         time.Minute,
		MaxRequestBytes:        1 << 20,
	}
}

// Load loads configuration from the optional GATE_CONFIG_FILE overlay and then
// environment variables, which take precedence.
func Load() (*Config, error) {
	// A local .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return load(os.Getenv)
}

func load(lookup func(string) string) (*Config, error) {
	cfg := Defaults()

	if path := lookup("GATE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	env := envReader(lookup)
	cfg.ServerPort = env.getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.PathPrefixes = env.getEnvList("GATE_PATH_PREFIXES", cfg.PathPrefixes)
	cfg.RateLimitRequests = int64(env.getEnvInt("RATE_LIMIT_REQUESTS", int(cfg.RateLimitRequests)))
	cfg.RateLimitWindowSeconds = env.getEnvInt("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimitWindowSeconds)
	cfg.RateLimitRate = env.getEnv("RATE_LIMIT_RATE", cfg.RateLimitRate)
	cfg.RateLimitStore = env.getEnv("RATE_LIMIT_STORE", cfg.RateLimitStore)
	cfg.RateLimitFailClosed = env.getEnvBool("RATE_LIMIT_FAIL_CLOSED", cfg.RateLimitFailClosed)
	cfg.GlobalRateRPS = env.getEnvFloat("GLOBAL_RATE_RPS", cfg.GlobalRateRPS)
	cfg.GlobalRateBurst = env.getEnvInt("GLOBAL_RATE_BURST", cfg.GlobalRateBurst)
	cfg.TrustProxyHeaders = env.getEnvBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)
	cfg.CORSAllowedOrigins = env.getEnvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.CORSMaxAgeSeconds = env.getEnvInt("CORS_MAX_AGE", cfg.CORSMaxAgeSeconds)
	cfg.AuthVerifier = env.getEnv("AUTH_VERIFIER", cfg.AuthVerifier)
	cfg.AuthJWTSecret = env.getEnv("AUTH_JWT_SECRET", cfg.AuthJWTSecret)
	cfg.AuthJWKSURL = env.getEnv("AUTH_JWKS_URL", cfg.AuthJWKSURL)
	cfg.AuthIssuer = env.getEnv("AUTH_ISSUER", cfg.AuthIssuer)
	cfg.AuthAudience = env.getEnv("AUTH_AUDIENCE", cfg.AuthAudience)
	cfg.AuthRemoteURL = env.getEnv("AUTH_REMOTE_URL", cfg.AuthRemoteURL)
	cfg.AuthRemoteAPIKey = env.getEnv("AUTH_REMOTE_API_KEY", cfg.AuthRemoteAPIKey)
	cfg.AuthTimeout = env.getEnvDuration("AUTH_TIMEOUT", cfg.AuthTimeout)
	cfg.RedisURL = env.getEnv("REDIS_URL", cfg.RedisURL)
	cfg.DatabaseURL = env.getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RabbitMQURL = env.getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.UpstreamURL = env.getEnv("UPSTREAM_URL", cfg.UpstreamURL)
	cfg.ReloadInterval = env.getEnvDuration("CONFIG_RELOAD_INTERVAL", cfg.ReloadInterval)
	cfg.MaxRequestBytes = int64(env.getEnvInt("MAX_REQUEST_BYTES", int(cfg.MaxRequestBytes)))
	cfg.EnableHSTS = env.getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = env.getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = env.getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = env.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the combinations between them.
func (c *Config) Validate() error {
	if err := validation.Validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var errs []error
	switch c.RateLimitStore {
	case validation.StoreRedis, validation.StoreUluleRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL is required for rate limit store %q", c.RateLimitStore))
		}
	}
	switch c.AuthVerifier {
	case validation.VerifierJWT:
		if c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
			errs = append(errs, errors.New("AUTH_JWT_SECRET or AUTH_JWKS_URL is required for the jwt verifier"))
		}
	case validation.VerifierRemote:
		if c.AuthRemoteURL == "" {
			errs = append(errs, errors.New("AUTH_REMOTE_URL is required for the remote verifier"))
		}
	}
	return errors.Join(errs...)
}

// RatePolicy returns the per-client policy. RATE_LIMIT_RATE wins over the
// request/window pair when set.
func (c *Config) RatePolicy() ratelimit.Policy {
	if c.RateLimitRate != "" {
		if p, err := ratelimit.PolicyFromRate(c.RateLimitRate); err == nil {
			return p
		}
	}
	return ratelimit.Policy{
		Limit:  c.RateLimitRequests,
		Window: time.Duration(c.RateLimitWindowSeconds) * time.Second,
	}
}

// VerifierSettings returns the token verifier selection.
func (c *Config) VerifierSettings() auth.Settings {
	return auth.Settings{
		Kind:         c.AuthVerifier,
		JWTSecret:    c.AuthJWTSecret,
		JWKSURL:      c.AuthJWKSURL,
		Issuer:       c.AuthIssuer,
		Audience:     c.AuthAudience,
		RemoteURL:    c.AuthRemoteURL,
		RemoteAPIKey: c.AuthRemoteAPIKey,
	}
}

type envReader func(string) string

func (e envReader) getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(e(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e envReader) getEnvBool(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e envReader) getEnvInt(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e envReader) getEnvFloat(key string, defaultValue float64) float64 {
	if value := e(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("3s") or a bare number of seconds.
func (e envReader) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := e(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (e envReader) getEnvList(key string, defaultValue []string) []string {
	value := e(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
