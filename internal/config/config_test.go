package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearServiceEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "METRICS_PORT", "DATABASE_URL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearServiceEnv(t)

	buf := &bytes.Buffer{}
	cfg, err := Load("", log.New(buf, "", 0))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Fatalf("unexpected ports: %+v", cfg)
	}
	if cfg.RateLimitPerSec != 100 || cfg.RateLimitBurst != 200 {
		t.Fatalf("unexpected rate limits: %+v", cfg)
	}
	if cfg.ShutdownTimeout() != 10*time.Second {
		t.Fatalf("unexpected shutdown timeout: %s", cfg.ShutdownTimeout())
	}
	if !strings.Contains(buf.String(), "PORT not set") {
		t.Fatalf("expected default warning, got %q", buf.String())
	}
}

func TestLoad_YAMLFileAndEnvPrecedence(t *testing.T) {
	clearServiceEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
port: "3000"
database_url: postgres://file/db
rate_limit_per_sec: 25
shutdown_timeout_sec: 30
cors_origins:
  - https://app.example.com
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "4000")

	cfg, err := Load(path, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "4000" {
		t.Fatalf("expected environment to win over file, got %q", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://file/db" {
		t.Fatalf("expected file DSN, got %q", cfg.DatabaseURL)
	}
	if cfg.RateLimitPerSec != 25 || cfg.ShutdownTimeout() != 30*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://app.example.com"}) {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearServiceEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), log.New(&bytes.Buffer{}, "", 0)); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	clearServiceEnv(t)
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := Load("", log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.CORSOrigins, want) {
		t.Fatalf("expected %v, got %v", want, cfg.CORSOrigins)
	}
}

func TestParseEnvFile(t *testing.T) {
	const existingKey = "CONFIG_TEST_EXISTING"
	t.Setenv(existingKey, "keep-me")

	keys := []string{"CONFIG_TEST_PLAIN", "CONFIG_TEST_QUOTED", "CONFIG_TEST_EXPORTED"}
	t.Cleanup(func() {
		for _, key := range keys {
			os.Unsetenv(key)
		}
	})

	input := "\ufeff# comment line\n" +
		"CONFIG_TEST_PLAIN=plain\n" +
		"CONFIG_TEST_QUOTED=\"with spaces\"\n" +
		"export CONFIG_TEST_EXPORTED='single'\n" +
		"not a key value pair\n" +
		existingKey + "=overwritten\n"

	if err := parseEnvFile(strings.NewReader(input)); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := os.Getenv("CONFIG_TEST_PLAIN"); got != "plain" {
		t.Fatalf("expected plain value, got %q", got)
	}
	if got := os.Getenv("CONFIG_TEST_QUOTED"); got != "with spaces" {
		t.Fatalf("expected quotes stripped, got %q", got)
	}
	if got := os.Getenv("CONFIG_TEST_EXPORTED"); got != "single" {
		t.Fatalf("expected export prefix handled, got %q", got)
	}
	if got := os.Getenv(existingKey); got != "keep-me" {
		t.Fatalf("expected existing value preserved, got %q", got)
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b", []string{"a", "b"}},
		{" a , b ,,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if got := splitCSV(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitCSV(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
