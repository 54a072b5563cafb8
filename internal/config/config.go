package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration for the agentbox daemon.
type Config struct {
	Port   int
	APIKey string

	// Allowed roots. Every path an operation touches must resolve under
	// one of these. Fixed for the lifetime of the process.
	ProjectRoot string // default: current working directory
	ScratchDir  string // volatile scratch space, default: os.TempDir()

	// Local data directory for the SQLite audit log.
	DataDir string

	// Command execution limits.
	DefaultTimeoutSec int // default 60
	MaxTimeoutSec     int // default 300
	OutputLimitBytes  int // per-stream cap, tail kept; default 64KiB

	// Background process retention: exited entries older than this are
	// evicted from the registry.
	RetentionSec int // default 3600
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              8080,
		APIKey:            os.Getenv("AGENTBOX_API_KEY"),
		ProjectRoot:       os.Getenv("AGENTBOX_PROJECT_ROOT"),
		ScratchDir:        envOrDefault("AGENTBOX_SCRATCH_DIR", os.TempDir()),
		DataDir:           envOrDefault("AGENTBOX_DATA_DIR", ".agentbox"),
		DefaultTimeoutSec: envOrDefaultInt("AGENTBOX_DEFAULT_TIMEOUT_SEC", 60),
		MaxTimeoutSec:     envOrDefaultInt("AGENTBOX_MAX_TIMEOUT_SEC", 300),
		OutputLimitBytes:  envOrDefaultInt("AGENTBOX_OUTPUT_LIMIT_BYTES", 64*1024),
		RetentionSec:      envOrDefaultInt("AGENTBOX_RETENTION_SEC", 3600),
	}

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}

	// Roots must be absolute; the guard compares canonical paths.
	for name, p := range map[string]*string{
		"AGENTBOX_PROJECT_ROOT": &cfg.ProjectRoot,
		"AGENTBOX_SCRATCH_DIR":  &cfg.ScratchDir,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, *p, err)
		}
		*p = abs
	}

	if portStr := os.Getenv("AGENTBOX_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AGENTBOX_PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if cfg.DefaultTimeoutSec <= 0 || cfg.DefaultTimeoutSec > cfg.MaxTimeoutSec {
		return nil, fmt.Errorf("default timeout %ds outside (0, %ds]", cfg.DefaultTimeoutSec, cfg.MaxTimeoutSec)
	}

	return cfg, nil
}

// Roots returns the allowed roots in resolution order.
func (c *Config) Roots() []string {
	return []string{c.ProjectRoot, c.ScratchDir}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
