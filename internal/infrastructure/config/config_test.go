package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iho/loanledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.JWTSecret != "" {
		t.Fatalf("expected JWT secret default to be empty, got %q", cfg.JWTSecret)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.StorageDriver != config.StorageDriverPostgres {
		t.Fatalf("expected postgres storage by default, got %s", cfg.StorageDriver)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("INITIAL_FUND", "100.00")

	cfg, err := config.LoadFiles()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if cfg.StorageDriver != config.StorageDriverMemory || cfg.InitialFund != "100.00" {
		t.Fatalf("expected memory storage with seed, got %s %q", cfg.StorageDriver, cfg.InitialFund)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")

	if _, err := config.LoadFiles(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{name: "auth without secret", env: map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": ""}},
		{name: "bad initial fund", env: map[string]string{"INITIAL_FUND": "lots"}},
		{name: "zero rate limit", env: map[string]string{"RATE_LIMIT_RPS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.LoadFiles(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("LOANLEDGER_TEST_PORT_UNUSED=1\nOUTBOX_CHANNEL=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("OUTBOX_CHANNEL", "")
	os.Unsetenv("OUTBOX_CHANNEL")
	t.Cleanup(func() { os.Unsetenv("LOANLEDGER_TEST_PORT_UNUSED") })

	cfg, err := config.LoadFiles(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OutboxChannel != "from-dotenv" {
		t.Fatalf("expected value from dotenv file, got %q", cfg.OutboxChannel)
	}
}
