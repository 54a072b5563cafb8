package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DefaultTimeoutSec != 60 {
		t.Errorf("expected default timeout 60, got %d", cfg.DefaultTimeoutSec)
	}
	if cfg.MaxTimeoutSec != 300 {
		t.Errorf("expected max timeout 300, got %d", cfg.MaxTimeoutSec)
	}
	wd, _ := os.Getwd()
	if cfg.ProjectRoot != wd {
		t.Errorf("expected project root %s, got %s", wd, cfg.ProjectRoot)
	}
	if !filepath.IsAbs(cfg.ScratchDir) {
		t.Errorf("scratch dir not absolute: %s", cfg.ScratchDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTBOX_PORT", "9191")
	t.Setenv("AGENTBOX_PROJECT_ROOT", "/srv/project")
	t.Setenv("AGENTBOX_DEFAULT_TIMEOUT_SEC", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Port)
	}
	if cfg.ProjectRoot != "/srv/project" {
		t.Errorf("expected project root /srv/project, got %s", cfg.ProjectRoot)
	}
	if cfg.DefaultTimeoutSec != 30 {
		t.Errorf("expected timeout 30, got %d", cfg.DefaultTimeoutSec)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("AGENTBOX_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestLoad_TimeoutOutOfRange(t *testing.T) {
	t.Setenv("AGENTBOX_DEFAULT_TIMEOUT_SEC", "500")
	if _, err := Load(); err == nil {
		t.Error("expected error for default timeout above max")
	}
}

func TestRoots_Order(t *testing.T) {
	t.Setenv("AGENTBOX_PROJECT_ROOT", "/srv/project")
	t.Setenv("AGENTBOX_SCRATCH_DIR", "/var/scratch")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	roots := cfg.Roots()
	if len(roots) != 2 || roots[0] != "/srv/project" || roots[1] != "/var/scratch" {
		t.Errorf("unexpected roots: %v", roots)
	}
}
