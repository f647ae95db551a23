package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orquestra/console/internal/config"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Store.Kind != "memory" {
		t.Errorf("Store.Kind = %q, want memory", cfg.Store.Kind)
	}
	if cfg.Pacing.ToolDelay != 500*time.Millisecond {
		t.Errorf("Pacing.ToolDelay = %v, want 500ms", cfg.Pacing.ToolDelay)
	}
}

func TestLoadFrom_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orquestra.yaml")
	yml := "port: 9090\nstore:\n  kind: sqlite\npacing:\n  mode: none\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORQUESTRA_PORT", "7070")

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Port)
	}
	if cfg.Store.Kind != "sqlite" {
		t.Errorf("Store.Kind = %q, want sqlite from yaml", cfg.Store.Kind)
	}
	if cfg.Pacing.Mode != "none" {
		t.Errorf("Pacing.Mode = %q, want none from yaml", cfg.Pacing.Mode)
	}
}

func TestLoadFrom_RejectsUnknownStore(t *testing.T) {
	t.Setenv("ORQUESTRA_STORE", "etcd")
	if _, err := config.LoadFrom(""); err == nil {
		t.Fatal("LoadFrom() with unknown store kind should fail")
	}
}

func TestLoadFrom_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("ORQUESTRA_TERMINAL_LINES", "lots")
	t.Setenv("ORQUESTRA_TOOL_DELAY", "soon")
	cfg, err := config.LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Terminal.MaxLines != 500 {
		t.Errorf("Terminal.MaxLines = %d, want default 500", cfg.Terminal.MaxLines)
	}
	if cfg.Pacing.ToolDelay != 500*time.Millisecond {
		t.Errorf("Pacing.ToolDelay = %v, want default", cfg.Pacing.ToolDelay)
	}
}

func TestLoadFrom_PostgresNeedsURL(t *testing.T) {
	t.Setenv("ORQUESTRA_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := config.LoadFrom(""); err == nil {
		t.Fatal("LoadFrom() with postgres and no DATABASE_URL should fail")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/orquestra")
	cfg, err := config.LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Store.PostgresURL != "postgres://localhost/orquestra" {
		t.Errorf("Store.PostgresURL = %q", cfg.Store.PostgresURL)
	}
}

func TestAuthKeys(t *testing.T) {
	got := config.AuthConfig{APIKeys: " a, ,b "}.Keys()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
	if keys := (config.AuthConfig{}).Keys(); len(keys) != 0 {
		t.Errorf("Keys() of empty = %v, want none", keys)
	}
}
