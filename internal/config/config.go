package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and counter backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTIssuer          string `mapstructure:"JWT_ISSUER"`
	JWTTTLMinutes      int    `mapstructure:"JWT_TTL_MINUTES"`
	JWTRefreshTTLHours int    `mapstructure:"JWT_REFRESH_TTL_HOURS"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	TrustedProxies     string `mapstructure:"TRUSTED_PROXIES"`

	RateLimitBackend     string  `mapstructure:"RATE_LIMIT_BACKEND"`
	RegisterMaxAttempts  int     `mapstructure:"REGISTER_MAX_ATTEMPTS"`
	LoginMaxAttempts     int     `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	AttemptWindowSeconds int     `mapstructure:"ATTEMPT_WINDOW_SECONDS"`
	ThrottleRPS          float64 `mapstructure:"THROTTLE_RPS"`
	ThrottleBurst        int     `mapstructure:"THROTTLE_BURST"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"STORAGE_DRIVER", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "JWT_ISSUER", "JWT_TTL_MINUTES", "JWT_REFRESH_TTL_HOURS",
	"CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES",
	"RATE_LIMIT_BACKEND", "REGISTER_MAX_ATTEMPTS", "LOGIN_MAX_ATTEMPTS", "ATTEMPT_WINDOW_SECONDS",
	"THROTTLE_RPS", "THROTTLE_BURST",
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("JWT_ISSUER", "carelink-backend")
	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("JWT_REFRESH_TTL_HOURS", 24)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("RATE_LIMIT_BACKEND", "")
	v.SetDefault("REGISTER_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 10)
	v.SetDefault("ATTEMPT_WINDOW_SECONDS", 3600)
	v.SetDefault("THROTTLE_RPS", 5)
	v.SetDefault("THROTTLE_BURST", 20)

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.RateLimitBackend = strings.ToLower(strings.TrimSpace(c.RateLimitBackend))
	if c.RateLimitBackend == "" {
		c.RateLimitBackend = c.StorageDriver
	}
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	if c.JWTTTLMinutes <= 0 {
		c.JWTTTLMinutes = 60
	}
	if c.JWTRefreshTTLHours <= 0 {
		c.JWTRefreshTTLHours = 24
	}
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StorageDriver)
	}
	switch c.RateLimitBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.RateLimitBackend)
	}
	if c.RateLimitBackend == BackendPostgres && c.StorageDriver != BackendPostgres {
		return errors.New("RATE_LIMIT_BACKEND=postgres requires STORAGE_DRIVER=postgres")
	}
	if c.StorageDriver == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RegisterMaxAttempts <= 0 || c.LoginMaxAttempts <= 0 || c.AttemptWindowSeconds <= 0 {
		return errors.New("attempt limits and window must be positive")
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsDev() bool {
	return c.Env == "development"
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLHours) * time.Hour
}

// AttemptWindow is the window shared by the register and login policies.
func (c Config) AttemptWindow() time.Duration {
	return time.Duration(c.AttemptWindowSeconds) * time.Second
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS. An empty list means every origin.
func (c Config) CORSOrigins() []string {
	out := parseCSV(c.CORSAllowedOrigins)
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// TrustedProxyList splits TRUSTED_PROXIES. Forwarded client addresses are
// ignored unless the direct peer is in this list; it is empty by default.
func (c Config) TrustedProxyList() []string {
	return parseCSV(c.TrustedProxies)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
