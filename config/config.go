package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/rr-balancer/internal/httpserver"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

var DefaultBackends = []string{
	"http://localhost:8001",
	"http://localhost:8002",
	"http://localhost:8003",
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type HealthCheckConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Path     string        `mapstructure:"path"`
}

type ProxyConfig struct {
	// Timeout bounds the wait for backend response headers. Zero means none.
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	// Address of the admin listener serving /metrics. Empty disables it.
	Address    string `mapstructure:"address"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type RateLimitConfig struct {
	// RequestsPerSecond of zero disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Backends       []string             `mapstructure:"backends"`
	HealthCheck    HealthCheckConfig    `mapstructure:"health_check"`
	Proxy          ProxyConfig          `mapstructure:"proxy"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// Load reads config.yaml from ./config or the working directory if present,
// overlays environment variables (server.address -> SERVER_ADDRESS,
// BACKENDS as a comma separated list) and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("backends", DefaultBackends)
	v.SetDefault("health_check.interval", "5s")
	v.SetDefault("health_check.timeout", "2s")
	v.SetDefault("health_check.path", "/")
	v.SetDefault("proxy.timeout", "0s")
	v.SetDefault("metrics.address", ":9090")
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.reset_timeout", "30s")
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 0)
	v.SetDefault("logging.level", LogLevelInfo)
}

// BackendURLs parses the configured backend list in order.
func (c *Config) BackendURLs() ([]*url.URL, error) {
	urls := make([]*url.URL, 0, len(c.Backends))
	for _, raw := range c.Backends {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse backend %q: %w", raw, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Backends,
			validation.Required,
			validation.Each(validation.By(validateBackendURL)),
			validation.By(validateUnique),
		),
		validation.Field(&c.HealthCheck),
		validation.Field(&c.Proxy),
		validation.Field(&c.Metrics),
		validation.Field(&c.CircuitBreaker),
		validation.Field(&c.RateLimit),
		validation.Field(&c.Logging),
	)
}

func (sc ServerConfig) Validate() error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&sc.Address,
			validation.Required,
			validation.By(httpserver.ValidateHostPort),
		),
	)
}

func (hc HealthCheckConfig) Validate() error {
	return validation.ValidateStruct(&hc,
		validation.Field(&hc.Interval, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&hc.Timeout, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&hc.Path,
			validation.Required,
			validation.By(func(value interface{}) error {
				if p, _ := value.(string); !strings.HasPrefix(p, "/") {
					return validation.NewError("validation_invalid_path", "must start with /")
				}
				return nil
			}),
		),
	)
}

func (pc ProxyConfig) Validate() error {
	return validation.ValidateStruct(&pc,
		validation.Field(&pc.Timeout, validation.Min(time.Duration(0))),
	)
}

func (mc MetricsConfig) Validate() error {
	return validation.ValidateStruct(&mc,
		validation.Field(&mc.Address, validation.When(mc.Address != "", validation.By(httpserver.ValidateHostPort))),
		validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
	)
}

func (cc CircuitBreakerConfig) Validate() error {
	return validation.ValidateStruct(&cc,
		validation.Field(&cc.FailureThreshold, validation.When(cc.Enabled, validation.Required, validation.Min(1))),
		validation.Field(&cc.ResetTimeout, validation.When(cc.Enabled, validation.Required, validation.Min(time.Duration(0)).Exclusive())),
	)
}

func (rc RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&rc,
		validation.Field(&rc.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&rc.Burst, validation.Min(0)),
	)
}

func (lc LoggingConfig) Validate() error {
	return validation.ValidateStruct(&lc,
		validation.Field(&lc.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func validateBackendURL(value interface{}) error {
	backendURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if backendURL == "" {
		return validation.NewError("validation_empty_url", "backend URL cannot be empty")
	}

	parsedURL, err := url.Parse(backendURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateUnique(value interface{}) error {
	backends, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of URLs")
	}

	seen := make(map[string]struct{}, len(backends))
	for _, b := range backends {
		if _, dup := seen[b]; dup {
			return validation.NewError("validation_duplicate_backend", "duplicate backend "+b)
		}
		seen[b] = struct{}{}
	}

	return nil
}
