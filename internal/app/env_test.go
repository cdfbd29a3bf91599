package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LoadEnvFiles reads KEY=VALUE pairs into the process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nBAR=\"beta\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta" {
		t.Fatalf("BAR=%q, want beta", got)
	}
}

// Later files override earlier ones when loading multiple dotenv files.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
}

func TestApplyEnvToConfig_FromEnv(t *testing.T) {
	t.Setenv("SEARX_URL", "")
	t.Setenv("SEARXNG_URL", "http://searxng.example")
	t.Setenv("CACHE_DIR", "/tmp/pubfilter-cache")
	t.Setenv("RANGE_START", "2024-01-01")
	t.Setenv("RANGE_END", "2024-06-30")
	t.Setenv("BATCH_CONCURRENCY", "7")
	t.Setenv("BATCH_DEADLINE", "40s")
	t.Setenv("STRICT", "yes")

	cfg := Config{RangeEnd: "2024-12-31"}
	ApplyEnvToConfig(&cfg)
	if cfg.SearxURL != "http://searxng.example" {
		t.Fatalf("SearxURL=%q, want fallback from SEARXNG_URL", cfg.SearxURL)
	}
	if cfg.CacheDir != "/tmp/pubfilter-cache" {
		t.Fatalf("CacheDir=%q", cfg.CacheDir)
	}
	if cfg.RangeStart != "2024-01-01" || cfg.RangeEnd != "2024-12-31" {
		t.Fatalf("explicit values must win over env: %q..%q", cfg.RangeStart, cfg.RangeEnd)
	}
	if cfg.Concurrency != 7 || cfg.OverallDeadline != 40*time.Second || !cfg.Strict {
		t.Fatalf("unexpected batch settings: %+v", cfg)
	}
}

func TestApplyEnvOverrides_ReplacesFileValues(t *testing.T) {
	t.Setenv("RANGE_END", "2025-01-31")
	t.Setenv("STRICT", "off")
	t.Setenv("BATCH_PER_REQUEST", "3s")
	t.Setenv("BATCH_CONCURRENCY", "not-a-number")

	cfg := Config{RangeEnd: "2024-12-31", Strict: true, PerRequestTimeout: 8 * time.Second, Concurrency: 5}
	ApplyEnvOverrides(&cfg)
	if cfg.RangeEnd != "2025-01-31" {
		t.Fatalf("RangeEnd=%q", cfg.RangeEnd)
	}
	if cfg.Strict {
		t.Fatalf("STRICT=off should disable strict mode")
	}
	if cfg.PerRequestTimeout != 3*time.Second {
		t.Fatalf("PerRequestTimeout=%v", cfg.PerRequestTimeout)
	}
	if cfg.Concurrency != 5 {
		t.Fatalf("malformed env must be ignored, got %d", cfg.Concurrency)
	}
}
