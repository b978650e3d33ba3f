package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("QUIZ_AUTH_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  allowed_origins: ["http://localhost:3000"]
log:
  level: debug
sqlite:
  path: data/quiz.db
session:
  idle_ttl: 45m
  atomic_points: true
auth:
  secret: ${QUIZ_AUTH_SECRET}
metrics:
  enabled: true
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Auth.Secret != "from-env" {
		t.Fatalf("expected secret expanded from env, got %q", cfg.Auth.Secret)
	}
	if !cfg.Session.AtomicPoints || !cfg.Metrics.Enabled || cfg.SQLite.Path != "data/quiz.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Session.IdleTTL, time.Minute); got != 45*time.Minute {
		t.Fatalf("expected 45m idle ttl, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %s", got)
	}
}
