package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Fetch   FetchConfig
	Browser BrowserConfig
	Session SessionConfig
	GenAI   GenAIConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type ScraperConfig struct {
	PerCategoryLimit int
	MaxCategories    int
	AggregateTimeout time.Duration
	DedupeGlobal     bool
}

type FetchConfig struct {
	Mode              string
	Timeout           time.Duration
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	RateLimitMin      time.Duration
	RateLimitMax      time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgents        []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

type SessionConfig struct {
	Backend       string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

type GenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "5000"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 3*time.Minute),
			RequestTimeout:  getDurationOrDefault("SERVER_REQUEST_TIMEOUT", 150*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"*"}),
		},
		Scraper: ScraperConfig{
			PerCategoryLimit: getIntOrDefault("SCRAPER_PER_CATEGORY_LIMIT", 3),
			MaxCategories:    getIntOrDefault("SCRAPER_MAX_CATEGORIES", 7),
			AggregateTimeout: getDurationOrDefault("SCRAPER_AGGREGATE_TIMEOUT", 90*time.Second),
			DedupeGlobal:     getBoolOrDefault("SCRAPER_DEDUPE_GLOBAL", false),
		},
		Fetch: FetchConfig{
			Mode:              getEnvOrDefault("FETCH_MODE", "http"),
			Timeout:           getDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
			MaxAttempts:       getIntOrDefault("FETCH_MAX_ATTEMPTS", 3),
			BaseBackoff:       getDurationOrDefault("FETCH_BACKOFF_BASE", 2*time.Second),
			MaxBackoff:        getDurationOrDefault("FETCH_BACKOFF_MAX", 15*time.Second),
			RateLimitMin:      getDurationOrDefault("FETCH_RATE_LIMIT_MIN", 1*time.Second),
			RateLimitMax:      getDurationOrDefault("FETCH_RATE_LIMIT_MAX", 3*time.Second),
			RequestsPerSecond: getFloatOrDefault("FETCH_REQUESTS_PER_SECOND", 2),
			Burst:             getIntOrDefault("FETCH_BURST", 4),
			UserAgents:        getStringSliceOrDefault("FETCH_USER_AGENTS", nil),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-GB,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/London"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-GB"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Session: SessionConfig{
			Backend:       getEnvOrDefault("SESSION_BACKEND", "memory"),
			TTL:           getDurationOrDefault("SESSION_TTL", 24*time.Hour),
			RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
		},
		GenAI: GenAIConfig{
			APIKey:      getEnvOrDefault("GEMINI_API_KEY", ""),
			BaseURL:     getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:     getDurationOrDefault("GEMINI_TIMEOUT", 60*time.Second),
			Temperature: getFloatOrDefault("GEMINI_TEMPERATURE", 0.4),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.PerCategoryLimit < 1 {
		return fmt.Errorf("SCRAPER_PER_CATEGORY_LIMIT must be at least 1")
	}

	if c.Scraper.MaxCategories < 1 {
		return fmt.Errorf("SCRAPER_MAX_CATEGORIES must be at least 1")
	}

	if c.Scraper.AggregateTimeout < 0 {
		return fmt.Errorf("SCRAPER_AGGREGATE_TIMEOUT cannot be negative")
	}

	if c.Fetch.Mode != "http" && c.Fetch.Mode != "browser" {
		return fmt.Errorf("FETCH_MODE must be http or browser, got %q", c.Fetch.Mode)
	}

	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1")
	}

	if c.Fetch.RateLimitMin > c.Fetch.RateLimitMax {
		return fmt.Errorf("FETCH_RATE_LIMIT_MIN cannot be greater than FETCH_RATE_LIMIT_MAX")
	}

	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", c.Session.Backend)
	}

	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis session backend")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return defaultValue
}
