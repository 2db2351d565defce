package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServiceName string
	LogLevel    string
	LogFormat   string // "json" or "console"

	ServerPort     string
	RequestTimeout time.Duration

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	GeocoderURL       string
	GeocoderTimeout   time.Duration
	GeocoderRateLimit float64
	GeocoderUserAgent string

	KnowledgeAPIURL     string
	KnowledgeAPITimeout time.Duration

	GeolocationTimeout    time.Duration
	GeolocationMaximumAge time.Duration

	DefaultLocation string
	DefaultLanguage string

	StateBackend          string // "in_memory", "file" or "memcached"
	StateFilePath         string
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerCooldown         time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	HealthWindow              time.Duration
	HealthDegradedFallbackPct int
	HealthOverloadDenials     int
}

type fileConfig struct {
	Logging struct {
		Service string `yaml:"service"`
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
	} `yaml:"logging"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Geocoder struct {
		URL          string  `yaml:"url"`
		Timeout      string  `yaml:"timeout"`
		RateLimitRPS float64 `yaml:"rate_limit_rps"`
		UserAgent    string  `yaml:"user_agent"`
	} `yaml:"geocoder"`

	KnowledgeAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"knowledge_api"`

	Geolocation struct {
		Timeout    string `yaml:"timeout"`
		MaximumAge string `yaml:"maximum_age"`
	} `yaml:"geolocation"`

	Location struct {
		Default string `yaml:"default"`
	} `yaml:"location"`

	Locale struct {
		Default string `yaml:"default"`
	} `yaml:"locale"`

	State struct {
		Backend string `yaml:"backend"`
		File    struct {
			Path string `yaml:"path"`
		} `yaml:"file"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"state"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`

		CircuitBreaker struct {
			Enabled          *bool  `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			Cooldown         string `yaml:"cooldown"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		Window              string `yaml:"window"`
		DegradedFallbackPct int    `yaml:"degraded_fallback_pct"`
		OverloadDenials     int    `yaml:"overload_denials"`
	} `yaml:"health"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) after
// loading a .env file from the working directory when one exists.
// Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes, applying env overrides and defaults.
func Parse(data []byte) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServiceName = strings.TrimSpace(fc.Logging.Service)
	if cfg.ServiceName == "" {
		cfg.ServiceName = "krishi-dashboard"
	}
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = strings.TrimSpace(fc.Logging.Level)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.TrimSpace(strings.ToLower(fc.Logging.Format))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.open-meteo.com/v1/forecast"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)

	cfg.GeocoderURL = fc.Geocoder.URL
	if cfg.GeocoderURL == "" {
		cfg.GeocoderURL = "https://nominatim.openstreetmap.org/reverse"
	}
	cfg.GeocoderTimeout = parseDurationOrZero(fc.Geocoder.Timeout, 3*time.Second)
	cfg.GeocoderRateLimit = fc.Geocoder.RateLimitRPS
	if cfg.GeocoderRateLimit <= 0 {
		cfg.GeocoderRateLimit = 1
	}
	cfg.GeocoderUserAgent = strings.TrimSpace(fc.Geocoder.UserAgent)
	if cfg.GeocoderUserAgent == "" {
		cfg.GeocoderUserAgent = "krishi-dashboard/1.0"
	}

	cfg.KnowledgeAPIURL = strings.TrimSpace(os.Getenv("KNOWLEDGE_API_URL"))
	if cfg.KnowledgeAPIURL == "" {
		cfg.KnowledgeAPIURL = strings.TrimSpace(fc.KnowledgeAPI.URL)
	}
	if cfg.KnowledgeAPIURL == "" {
		cfg.KnowledgeAPIURL = "http://localhost:5000/api"
	}
	cfg.KnowledgeAPITimeout = parseDurationOrZero(fc.KnowledgeAPI.Timeout, 5*time.Second)

	cfg.GeolocationTimeout = parseDuration(fc.Geolocation.Timeout, 8*time.Second)
	cfg.GeolocationMaximumAge = parseDuration(fc.Geolocation.MaximumAge, 5*time.Minute)

	cfg.DefaultLocation = strings.TrimSpace(os.Getenv("DEFAULT_LOCATION"))
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = strings.TrimSpace(fc.Location.Default)
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = "New Delhi"
	}
	cfg.DefaultLanguage = strings.TrimSpace(strings.ToLower(fc.Locale.Default))
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}

	cfg.StateBackend = strings.TrimSpace(strings.ToLower(os.Getenv("STATE_BACKEND")))
	if cfg.StateBackend == "" {
		cfg.StateBackend = strings.TrimSpace(strings.ToLower(fc.State.Backend))
	}
	if cfg.StateBackend == "" {
		cfg.StateBackend = "file"
	}
	cfg.StateFilePath = strings.TrimSpace(fc.State.File.Path)
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = "data/session.yaml"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.State.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.State.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.State.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.CircuitBreakerEnabled = true
	if fc.Reliability.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.Reliability.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerFailureThreshold = fc.Reliability.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerCooldown = parseDuration(fc.Reliability.CircuitBreaker.Cooldown, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.HealthDegradedFallbackPct = fc.Health.DegradedFallbackPct
	if cfg.HealthDegradedFallbackPct <= 0 {
		cfg.HealthDegradedFallbackPct = 50
	}

	cfg.HealthOverloadDenials = fc.Health.OverloadDenials
	if cfg.HealthOverloadDenials <= 0 {
		cfg.HealthOverloadDenials = 100
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (validate rejects them).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// Upstream timeouts must be positive and RequestTimeout is raised above the
// slowest upstream so a request can always see a widget finish.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.KnowledgeAPITimeout <= 0 {
		return fmt.Errorf("knowledge_api.timeout must be positive")
	}
	if cfg.GeocoderTimeout <= 0 {
		return fmt.Errorf("geocoder.timeout must be positive")
	}
	slowest := cfg.GeolocationTimeout + cfg.GeocoderTimeout
	for _, d := range []time.Duration{cfg.WeatherAPITimeout, cfg.KnowledgeAPITimeout} {
		if d > slowest {
			slowest = d
		}
	}
	if cfg.RequestTimeout <= slowest {
		cfg.RequestTimeout = slowest + time.Second
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.LogFormat)
	}
	switch cfg.StateBackend {
	case "in_memory", "file", "memcached":
		// valid
	default:
		return fmt.Errorf("state.backend must be in_memory, file or memcached, got %q", cfg.StateBackend)
	}
	switch cfg.DefaultLanguage {
	case "en", "hi":
	default:
		return fmt.Errorf("locale.default must be en or hi, got %q", cfg.DefaultLanguage)
	}
	if cfg.HealthDegradedFallbackPct > 100 {
		return fmt.Errorf("health.degraded_fallback_pct must be <= 100, got %d", cfg.HealthDegradedFallbackPct)
	}
	return nil
}
