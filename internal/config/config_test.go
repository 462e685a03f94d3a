package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "GRPC_ADDR", "KIOSK_IDLE_TIMEOUT_MS", "KIOSK_PROMPT_TIMEOUT_MS", "KIOSK_MEDIA_FALLBACK_MS", "HEYGEN_BASE_URL"} {
		t.Setenv(k, "")
	}

	c := Load()

	if c.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", c.Server.Port)
	}
	if c.Server.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", c.Server.LogLevel)
	}
	if c.IdleTimeout() != 30*time.Second || c.PromptTimeout() != 10*time.Second {
		t.Fatalf("unexpected watchdog defaults: %v/%v", c.IdleTimeout(), c.PromptTimeout())
	}
	if c.MediaFallback() != 120*time.Second {
		t.Fatalf("expected 120s media fallback, got %v", c.MediaFallback())
	}
	if c.HeyGen.BaseURL != "https://api.heygen.com" {
		t.Fatalf("unexpected heygen base url %q", c.HeyGen.BaseURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("KIOSK_IDLE_TIMEOUT_MS", "5000")
	t.Setenv("KIOSK_PROMPT_TIMEOUT_MS", "-1")
	t.Setenv("HEYGEN_BASE_URL", "http://localhost:1234/")
	t.Setenv("KIOSK_CATALOG_PATH", "/etc/kiosk/catalog.yaml")

	c := Load()

	if c.Server.Port != "9999" {
		t.Fatalf("expected port 9999, got %q", c.Server.Port)
	}
	if c.IdleTimeout() != 5*time.Second {
		t.Fatalf("expected 5s idle timeout, got %v", c.IdleTimeout())
	}
	if c.PromptTimeout() != 10*time.Second {
		t.Fatalf("negative prompt timeout should fall back to default, got %v", c.PromptTimeout())
	}
	if c.HeyGen.BaseURL != "http://localhost:1234" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.HeyGen.BaseURL)
	}
	if c.Kiosk.CatalogPath != "/etc/kiosk/catalog.yaml" {
		t.Fatalf("unexpected catalog path %q", c.Kiosk.CatalogPath)
	}
}
