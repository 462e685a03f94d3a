package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	GRPC struct {
		Addr string
	}
	HeyGen struct {
		APIKey     string
		BaseURL    string
		AvatarName string
		Quality    string
		Language   string
	}
	OpenAI struct {
		APIKey       string
		Model        string
		SystemPrompt string
	}
	Kiosk struct {
		CatalogPath     string
		WatchCatalog    bool
		IdleTimeoutMs   int
		PromptTimeoutMs int
		MediaFallbackMs int
		WSTokenSecret   string
		WSTokenTTLMin   int
		WSTokenSkewSecs int
	}
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Kiosk.IdleTimeoutMs) * time.Millisecond
}

func (c Config) PromptTimeout() time.Duration {
	return time.Duration(c.Kiosk.PromptTimeoutMs) * time.Millisecond
}

func (c Config) MediaFallback() time.Duration {
	return time.Duration(c.Kiosk.MediaFallbackMs) * time.Millisecond
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("grpc.addr", ":9090")

	v.SetDefault("heygen.base_url", "https://api.heygen.com")
	v.SetDefault("heygen.avatar_name", "Wayne_20240711")
	v.SetDefault("heygen.quality", "medium")
	v.SetDefault("heygen.language", "en")

	v.SetDefault("openai.model", "gpt-4o-mini")

	v.SetDefault("kiosk.watch_catalog", true)
	v.SetDefault("kiosk.idle_timeout_ms", 30000)
	v.SetDefault("kiosk.prompt_timeout_ms", 10000)
	v.SetDefault("kiosk.media_fallback_ms", 120000)
	v.SetDefault("kiosk.ws_token_ttl_min", 720)
	v.SetDefault("kiosk.ws_token_skew_secs", 60)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("grpc.addr", "GRPC_ADDR")

	v.BindEnv("heygen.api_key", "HEYGEN_API_KEY")
	v.BindEnv("heygen.base_url", "HEYGEN_BASE_URL")
	v.BindEnv("heygen.avatar_name", "HEYGEN_AVATAR_NAME")
	v.BindEnv("heygen.quality", "HEYGEN_QUALITY")
	v.BindEnv("heygen.language", "HEYGEN_LANGUAGE")

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")
	v.BindEnv("openai.system_prompt", "OPENAI_SYSTEM_PROMPT")

	v.BindEnv("kiosk.catalog_path", "KIOSK_CATALOG_PATH")
	v.BindEnv("kiosk.watch_catalog", "KIOSK_WATCH_CATALOG")
	v.BindEnv("kiosk.idle_timeout_ms", "KIOSK_IDLE_TIMEOUT_MS")
	v.BindEnv("kiosk.prompt_timeout_ms", "KIOSK_PROMPT_TIMEOUT_MS")
	v.BindEnv("kiosk.media_fallback_ms", "KIOSK_MEDIA_FALLBACK_MS")
	v.BindEnv("kiosk.ws_token_secret", "KIOSK_WS_TOKEN_SECRET")
	v.BindEnv("kiosk.ws_token_ttl_min", "KIOSK_WS_TOKEN_TTL_MIN")
	v.BindEnv("kiosk.ws_token_skew_secs", "KIOSK_WS_TOKEN_SKEW_SECS")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.GRPC.Addr = v.GetString("grpc.addr")

	c.HeyGen.APIKey = v.GetString("heygen.api_key")
	c.HeyGen.BaseURL = strings.TrimSuffix(v.GetString("heygen.base_url"), "/")
	c.HeyGen.AvatarName = v.GetString("heygen.avatar_name")
	c.HeyGen.Quality = v.GetString("heygen.quality")
	c.HeyGen.Language = v.GetString("heygen.language")

	c.OpenAI.APIKey = v.GetString("openai.api_key")
	c.OpenAI.Model = v.GetString("openai.model")
	c.OpenAI.SystemPrompt = v.GetString("openai.system_prompt")

	c.Kiosk.CatalogPath = v.GetString("kiosk.catalog_path")
	c.Kiosk.WatchCatalog = v.GetBool("kiosk.watch_catalog")
	c.Kiosk.IdleTimeoutMs = positive(v.GetInt("kiosk.idle_timeout_ms"), 30000)
	c.Kiosk.PromptTimeoutMs = positive(v.GetInt("kiosk.prompt_timeout_ms"), 10000)
	c.Kiosk.MediaFallbackMs = positive(v.GetInt("kiosk.media_fallback_ms"), 120000)
	c.Kiosk.WSTokenSecret = v.GetString("kiosk.ws_token_secret")
	c.Kiosk.WSTokenTTLMin = positive(v.GetInt("kiosk.ws_token_ttl_min"), 720)
	c.Kiosk.WSTokenSkewSecs = v.GetInt("kiosk.ws_token_skew_secs")

	return c
}

func toString(v any) string { return fmt.Sprint(v) }

// positive falls back to def for zero or negative durations, which would
// otherwise make the watchdog fire in a tight loop.
func positive(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
