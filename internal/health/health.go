package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"kiosk/agent/internal/config"
	"kiosk/agent/internal/heygen"
)

type CheckResult struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Optional bool          `json:"optional,omitempty"`
	Latency  time.Duration `json:"latency_ms"`
	Error    string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		fmt.Fprintf(&b, "  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			fmt.Fprintf(&b, " - %s", c.Error)
		}
		if c.Optional && !c.OK {
			b.WriteString(" (optional)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Checker runs one dependency check.
type Checker func(ctx context.Context) CheckResult

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, cfg config.Config) HealthStatus {
	return Run(ctx, HeyGen(cfg), OpenAI(cfg))
}

// Run combines checks. Optional checks never fail the whole status.
func Run(ctx context.Context, checks ...Checker) HealthStatus {
	out := HealthStatus{OK: true, CheckedAt: time.Now().UTC()}
	for _, check := range checks {
		r := check(ctx)
		if !r.OK && !r.Optional {
			out.OK = false
		}
		out.Checks = append(out.Checks, r)
	}
	return out
}

// HeyGen mints a streaming token, the cheapest call that proves the key.
func HeyGen(cfg config.Config) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: "heygen"}
		if cfg.HeyGen.APIKey == "" {
			result.Error = "HEYGEN_API_KEY not set"
			return result
		}
		_, err := heygen.NewClient(cfg.HeyGen.APIKey, cfg.HeyGen.BaseURL).CreateToken(ctx)
		result.Latency = time.Since(start)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.OK = true
		return result
	}
}

// OpenAI looks up the configured model. Free-form answers fall back to the
// avatar's own talk mode, so the check is optional.
func OpenAI(cfg config.Config, opts ...option.RequestOption) Checker {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: "openai", Optional: true}
		if cfg.OpenAI.APIKey == "" {
			result.Error = "OPENAI_API_KEY not set"
			return result
		}
		all := append([]option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey), option.WithMaxRetries(0)}, opts...)
		client := openai.NewClient(all...)
		_, err := client.Models.Get(ctx, cfg.OpenAI.Model)
		result.Latency = time.Since(start)
		if err != nil {
			result.Error = fmt.Sprintf("model %q: %v", cfg.OpenAI.Model, err)
			return result
		}
		result.OK = true
		return result
	}
}
