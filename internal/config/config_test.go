package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/skynet/fieldvisit-bfa/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("API_URL", "https://api.skynet.gt/")
	t.Setenv("MAPS_API_KEY", "maps")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("EMAILJS_PUBLIC_KEY", "pub")
	t.Setenv("SESSION_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.SessionBackend != config.SessionCookie {
		t.Errorf("expected cookie sessions, got %q", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("expected 8h session TTL, got %v", cfg.SessionTTL)
	}
	if cfg.GeoTimeout != 10*time.Second {
		t.Errorf("expected 10s geo timeout, got %v", cfg.GeoTimeout)
	}
	if cfg.APIURL != "https://api.skynet.gt" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.APIURL)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Errorf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GEO_TIMEOUT", "5s")
	t.Setenv("SESSION_BACKEND", "MEMORY")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.gt, https://b.gt,")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.GeoTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.GeoTimeout)
	}
	if cfg.SessionBackend != config.SessionMemory {
		t.Errorf("expected memory sessions, got %q", cfg.SessionBackend)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.gt" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestValidate_ReportsMissingKeys(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("MAPS_API_KEY", "")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("EMAILJS_PUBLIC_KEY", "pub")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, key := range []string{"API_URL", "MAPS_API_KEY", "SESSION_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected %s in %q", key, err.Error())
		}
	}
}

func TestValidate_RedisNeedsAddress(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Errorf("expected REDIS_ADDR to be required, got %v", err)
	}
}

func TestValidate_UnknownBackend(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_BACKEND", "files")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}
