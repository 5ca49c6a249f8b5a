package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CARTSYNC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "CARTSYNC_APP_ENV"
	EnvPort               = "CARTSYNC_APP_PORT"
	EnvLogLevel           = "CARTSYNC_LOG_LEVEL"
	EnvCORSOrigins        = "CARTSYNC_CORS_ORIGINS"
	EnvRemoteBaseURL      = "CARTSYNC_REMOTE_BASE_URL"
	EnvRemoteTimeout      = "CARTSYNC_REMOTE_TIMEOUT"
	EnvRemoteBreakerFails = "CARTSYNC_REMOTE_BREAKER_FAILURES"
	EnvRemoteBreakerCool  = "CARTSYNC_REMOTE_BREAKER_COOLDOWN"
	EnvCartAllowVendor    = "CARTSYNC_CART_ALLOW_VENDOR"
	EnvCartMaxQuantity    = "CARTSYNC_CART_MAX_QUANTITY"
	EnvCheckoutLockTTL    = "CARTSYNC_CHECKOUT_LOCK_TTL"
	EnvSessionIdleTTL     = "CARTSYNC_SESSION_IDLE_TTL"
	EnvJWTSecret          = "CARTSYNC_JWT_SECRET"
	EnvJWTIssuer          = "CARTSYNC_JWT_ISSUER"
	EnvRedisURL           = "CARTSYNC_REDIS_URL"
)

type Config struct {
	App    AppConfig
	Remote RemoteConfig
	Cart   CartConfig
	JWT    JWTConfig
	Redis  RedisConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Remote.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CARTSYNC_APP_ENV" required:"true"`
	Port         string   `envconfig:"CARTSYNC_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CARTSYNC_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// RemoteConfig points at the authoritative cart service.
type RemoteConfig struct {
	BaseURL         string        `envconfig:"CARTSYNC_REMOTE_BASE_URL" required:"true"`
	Timeout         time.Duration `envconfig:"CARTSYNC_REMOTE_TIMEOUT" default:"10s"`
	BreakerFailures uint32        `envconfig:"CARTSYNC_REMOTE_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"CARTSYNC_REMOTE_BREAKER_COOLDOWN" default:"30s"`
}

func (r RemoteConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(r.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvRemoteBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvRemoteBaseURL)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvRemoteTimeout)
	}
	return nil
}

// CartConfig holds the cart eligibility policy and quantity bounds.
type CartConfig struct {
	AllowVendor     bool          `envconfig:"CARTSYNC_CART_ALLOW_VENDOR" default:"true"`
	MaxQuantity     int           `envconfig:"CARTSYNC_CART_MAX_QUANTITY" default:"99"`
	CheckoutLockTTL time.Duration `envconfig:"CARTSYNC_CHECKOUT_LOCK_TTL" default:"2m"`
	SessionIdleTTL  time.Duration `envconfig:"CARTSYNC_SESSION_IDLE_TTL" default:"30m"`
}

func (c CartConfig) validate() error {
	if c.MaxQuantity < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCartMaxQuantity)
	}
	return nil
}

type JWTConfig struct {
	Secret string `envconfig:"CARTSYNC_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CARTSYNC_JWT_ISSUER" required:"true"`
}

// RedisConfig is optional; without a URL or address checkout single-flight
// stays in-process.
type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}
