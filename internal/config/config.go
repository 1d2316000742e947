// Package config provides configuration loading using koanf.
// Precedence: FUZZY_* environment variables, then compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/aelexs/fuzzyclock/internal/domain"
	"github.com/aelexs/fuzzyclock/internal/fuzzy"
	"github.com/aelexs/fuzzyclock/internal/scheduler"
)

// EnvPrefix is stripped from variable names. A double underscore separates
// nesting levels: FUZZY_CLOCK__HOUR_FORMAT sets clock.hour_format.
const EnvPrefix = "FUZZY_"

// Config holds all service configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	HTTP  HTTPConfig  `koanf:"http"`
	Clock ClockConfig `koanf:"clock"`
	Redis RedisConfig `koanf:"redis"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// HTTPConfig holds the widget host's listener configuration.
type HTTPConfig struct {
	Port int `koanf:"port"`
}

// ClockConfig selects how displays registered at startup are rendered.
type ClockConfig struct {
	Policy      string `koanf:"policy"`      // fast|precise|slow|warped
	HourFormat  string `koanf:"hour_format"` // auto|12|24
	Timezone    string `koanf:"timezone"`    // IANA name; empty uses the system zone
	Instances   string `koanf:"instances"`   // comma-separated instance ids
	Orientation string `koanf:"orientation"` // portrait|landscape
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string        `koanf:"addr"` // Empty keeps preferences in memory
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		HTTP: HTTPConfig{
			Port: 8080,
		},
		Clock: ClockConfig{
			Policy:      fuzzy.DefaultKind.String(),
			HourFormat:  scheduler.FormatAuto.String(),
			Instances:   domain.DefaultInstanceID,
			Orientation: string(domain.OrientationPortrait),
		},
		Redis: RedisConfig{
			DB:      0,
			Timeout: domain.RedisTimeout,
		},
		OTEL: OTELConfig{
			ServiceName: "fuzzyclock",
		},
	}
}

// Load loads configuration from FUZZY_* environment variables over the
// compiled defaults, then validates it. Invalid values fail startup.
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envKey maps FUZZY_CLOCK__HOUR_FORMAT to clock.hour_format.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// validate checks that every clock setting parses.
func validate(cfg *Config) error {
	if _, err := cfg.Clock.Kind(); err != nil {
		return fmt.Errorf("%w: clock.policy: %w", domain.ErrInvalidInput, err)
	}
	if _, err := cfg.Clock.FormatPreference(); err != nil {
		return fmt.Errorf("%w: clock.hour_format: %w", domain.ErrInvalidInput, err)
	}
	if _, err := cfg.Clock.OrientationValue(); err != nil {
		return fmt.Errorf("%w: clock.orientation: %w", domain.ErrInvalidInput, err)
	}
	if _, err := cfg.Clock.Location(); err != nil {
		return fmt.Errorf("clock.timezone: %w", err)
	}
	if _, err := cfg.Clock.InstanceIDs(); err != nil {
		return fmt.Errorf("%w: clock.instances: %w", domain.ErrInvalidInput, err)
	}
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port %d", domain.ErrInvalidInput, cfg.HTTP.Port)
	}
	return nil
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	if cfg.Environment == "prod" && cfg.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr", domain.ErrConfigRequired)
	}
	return nil
}

// Kind parses the configured policy.
func (c ClockConfig) Kind() (fuzzy.Kind, error) {
	return fuzzy.ParseKind(c.Policy)
}

// FormatPreference parses the configured hour format.
func (c ClockConfig) FormatPreference() (scheduler.FormatPreference, error) {
	return scheduler.ParseFormatPreference(c.HourFormat)
}

// OrientationValue parses the configured orientation.
func (c ClockConfig) OrientationValue() (domain.Orientation, error) {
	return domain.ParseOrientation(strings.ToLower(strings.TrimSpace(c.Orientation)))
}

// Location resolves the timezone override.
func (c ClockConfig) Location() (*time.Location, error) {
	return domain.LoadLocation(strings.TrimSpace(c.Timezone))
}

// InstanceIDs splits the instance list. Blank entries are skipped and
// duplicates collapse.
func (c ClockConfig) InstanceIDs() ([]domain.InstanceID, error) {
	var ids []domain.InstanceID
	seen := make(map[domain.InstanceID]bool)
	for _, raw := range strings.Split(c.Instances, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := domain.NewInstanceID(raw)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
