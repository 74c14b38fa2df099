package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session backends.
const (
	SessionCookie = "cookie"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

// Config holds all application configuration.
// Values come from environment variables (optionally seeded by a .env file)
// with defaults for everything that is not a credential.
type Config struct {
	// Server
	Port     int    `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// REST backend
	APIURL      string        `mapstructure:"API_URL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`

	// Resilience
	MaxConcurrency int `mapstructure:"MAX_CONCURRENCY"`

	// Session
	SessionBackend string        `mapstructure:"SESSION_BACKEND"`
	SessionSecret  string        `mapstructure:"SESSION_SECRET"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	CookieSecure   bool          `mapstructure:"COOKIE_SECURE"`

	// Redis (SESSION_BACKEND=redis)
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Maps and geolocation
	MapsAPIKey string        `mapstructure:"MAPS_API_KEY"`
	GeoTimeout time.Duration `mapstructure:"GEO_TIMEOUT"`

	// EmailJS
	EmailJSServiceID  string `mapstructure:"EMAILJS_SERVICE_ID"`
	EmailJSTemplateID string `mapstructure:"EMAILJS_TEMPLATE_ID"`
	EmailJSPublicKey  string `mapstructure:"EMAILJS_PUBLIC_KEY"`
	EmailJSPrivateKey string `mapstructure:"EMAILJS_PRIVATE_KEY"`
	EmailJSURL        string `mapstructure:"EMAILJS_URL"`

	// CORS for /api
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Observability
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
}

var keys = []string{
	"PORT", "LOG_LEVEL",
	"API_URL", "HTTP_TIMEOUT",
	"MAX_CONCURRENCY",
	"SESSION_BACKEND", "SESSION_SECRET", "SESSION_TTL", "COOKIE_SECURE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"MAPS_API_KEY", "GEO_TIMEOUT",
	"EMAILJS_SERVICE_ID", "EMAILJS_TEMPLATE_ID", "EMAILJS_PUBLIC_KEY", "EMAILJS_PRIVATE_KEY", "EMAILJS_URL",
	"CORS_ALLOWED_ORIGINS",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
}

// Load reads configuration from the environment with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_CONCURRENCY", 50)
	v.SetDefault("SESSION_BACKEND", SessionCookie)
	v.SetDefault("SESSION_TTL", 8*time.Hour)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GEO_TIMEOUT", 10*time.Second)
	v.SetDefault("EMAILJS_URL", "https://api.emailjs.com/api/v1.0/email/send")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "fieldvisit-bfa")

	// AutomaticEnv only feeds Unmarshal for keys viper already knows.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.SessionBackend = strings.ToLower(cfg.SessionBackend)
	return &cfg, nil
}

// Validate reports every required key that is missing.
func (c *Config) Validate() error {
	var missing []string
	need := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	need("API_URL", c.APIURL)
	need("MAPS_API_KEY", c.MapsAPIKey)
	need("EMAILJS_SERVICE_ID", c.EmailJSServiceID)
	need("EMAILJS_TEMPLATE_ID", c.EmailJSTemplateID)
	need("EMAILJS_PUBLIC_KEY", c.EmailJSPublicKey)

	switch c.SessionBackend {
	case SessionCookie:
		need("SESSION_SECRET", c.SessionSecret)
	case SessionRedis:
		need("REDIS_ADDR", c.RedisAddr)
	case SessionMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q (want cookie, redis or memory)", c.SessionBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
