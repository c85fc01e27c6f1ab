package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rain-checker/datasource"
)

// OpenWeatherConfig configures the upstream weather API
type OpenWeatherConfig struct {
	APIKey      string        `yaml:"api_key"`
	GeoBaseURL  string        `yaml:"geo_base_url"`
	DataBaseURL string        `yaml:"data_base_url"`
	Timeout     time.Duration `yaml:"timeout"`

	// RateLimit toggles the outbound token bucket; RPS and Burst size it.
	RateLimit *bool   `yaml:"rate_limit,omitempty"`
	RPS       float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
}

// RateLimitConfig is the per-client-IP limit on rain checks
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

// Config is the top-level application configuration
type Config struct {
	Port            int               `yaml:"port"`
	Environment     string            `yaml:"environment"`
	LogLevel        string            `yaml:"log_level"`
	Timezone        string            `yaml:"timezone"`
	TrustProxy      bool              `yaml:"trust_proxy"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout"`
	OpenWeather     OpenWeatherConfig `yaml:"openweather"`
	RateLimit       RateLimitConfig   `yaml:"rate_limit"`
}

// DefaultConfig returns an in-memory default configuration
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults
func (c *Config) Normalize() {
	if c.Port <= 0 {
		c.Port = 3000
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.OpenWeather.GeoBaseURL == "" {
		c.OpenWeather.GeoBaseURL = datasource.DefaultGeoBaseURL
	}
	if c.OpenWeather.DataBaseURL == "" {
		c.OpenWeather.DataBaseURL = datasource.DefaultDataBaseURL
	}
	if c.OpenWeather.Timeout <= 0 {
		c.OpenWeather.Timeout = datasource.DefaultTimeout
	}
	if c.OpenWeather.RateLimit == nil {
		enabled := true
		c.OpenWeather.RateLimit = &enabled
	}
	// OpenWeatherMap free tier allows 60 calls/minute = 1 call per second
	if c.OpenWeather.RPS <= 0 {
		c.OpenWeather.RPS = 1
	}
	if c.OpenWeather.Burst <= 0 {
		c.OpenWeather.Burst = 5
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = 15 * time.Minute
	}
	if c.RateLimit.Max <= 0 {
		c.RateLimit.Max = 100
	}
}

// Development reports whether the app runs in development mode
func (c *Config) Development() bool {
	return c.Environment == "development"
}

// APIKeyConfigured reports whether a usable OpenWeatherMap key is set
func (c *Config) APIKeyConfigured() bool {
	return c.OpenWeather.APIKey != "" && c.OpenWeather.APIKey != "your_api_key_here"
}

// Location resolves Timezone; nil means host local time
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the YAML file at path (a missing file is not an error),
// applies environment overrides and normalizes the result
func Load(path string) (*Config, error) {
	c := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	c.Normalize()
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("APP_ENV", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)
	str("TZ_NAME", &c.Timezone)
	str("OPENWEATHER_API_KEY", &c.OpenWeather.APIKey)
	str("OPENWEATHER_GEO_URL", &c.OpenWeather.GeoBaseURL)
	str("OPENWEATHER_DATA_URL", &c.OpenWeather.DataBaseURL)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := lookup("TRUST_PROXY"); ok && v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		c.TrustProxy = trust
	}
	if v, ok := lookup("RATE_LIMIT_MAX"); ok && v != "" {
		max, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_MAX %q: %w", v, err)
		}
		c.RateLimit.Max = max
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"OPENWEATHER_TIMEOUT", &c.OpenWeather.Timeout},
		{"RATE_LIMIT_WINDOW", &c.RateLimit.Window},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}
