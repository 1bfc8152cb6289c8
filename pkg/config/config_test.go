package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateRoot != DefaultStateRoot {
		t.Errorf("StateRoot = %v, want %v", cfg.StateRoot, DefaultStateRoot)
	}
	if cfg.RunDir != DefaultRunDir {
		t.Errorf("RunDir = %v, want %v", cfg.RunDir, DefaultRunDir)
	}
	if cfg.OverlayEnabled {
		t.Error("OverlayEnabled = true, want false by default")
	}
	if cfg.OverlayIsolation != IsolationNode {
		t.Errorf("OverlayIsolation = %v, want %v", cfg.OverlayIsolation, IsolationNode)
	}
	if cfg.WaitTimeout != 0 {
		t.Errorf("WaitTimeout = %v, want 0", cfg.WaitTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUTCH_ROOT", "/tmp/hutch-test")
	t.Setenv("HUTCH_OVERLAY", "1")
	t.Setenv("HUTCH_OVERLAY_ISOLATION", "tenant")
	t.Setenv("HUTCH_WAIT_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateRoot != "/tmp/hutch-test" {
		t.Errorf("StateRoot = %v, want /tmp/hutch-test", cfg.StateRoot)
	}
	if !cfg.OverlayEnabled {
		t.Error("OverlayEnabled = false, want true")
	}
	if cfg.OverlayIsolation != IsolationTenant {
		t.Errorf("OverlayIsolation = %v, want tenant", cfg.OverlayIsolation)
	}
	if cfg.WaitTimeout != 90*time.Second {
		t.Errorf("WaitTimeout = %v, want 90s", cfg.WaitTimeout)
	}
}

func TestLoadConfigFileOverridesEnvironment(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hutch.conf")
	content := "# runtime overrides\nHUTCH_ROOT=/from/file\n\nHUTCH_OVERLAY = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("HUTCH_CONFIG", path)
	t.Setenv("HUTCH_ROOT", "/from/env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StateRoot != "/from/file" {
		t.Errorf("StateRoot = %v, want file value to win", cfg.StateRoot)
	}
	if !cfg.OverlayEnabled {
		t.Error("OverlayEnabled = false, want true from file")
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "hutch.conf")
	if err := os.WriteFile(path, []byte("NOT A PAIR\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("HUTCH_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUTCH_OVERLAY", "maybe")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted invalid HUTCH_OVERLAY")
	}

	clearEnv(t)
	t.Setenv("HUTCH_OVERLAY_ISOLATION", "pod")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted invalid HUTCH_OVERLAY_ISOLATION")
	}

	clearEnv(t)
	t.Setenv("HUTCH_WAIT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted invalid HUTCH_WAIT_TIMEOUT")
	}
}

func TestScopedPaths(t *testing.T) {
	cfg := &Config{RunDir: "/run/hutch", OverlayDir: "/var/lib/hutch/overlay", OverlayIsolation: IsolationNode}

	if got := cfg.LockPath("acme"); got != "/run/hutch/overlay.lock" {
		t.Errorf("LockPath() = %v, tenant must be ignored under node mode", got)
	}
	if got := cfg.NamespacePath("acme"); got != "/run/hutch/ns" {
		t.Errorf("NamespacePath() = %v", got)
	}

	cfg.OverlayIsolation = IsolationTenant
	if got := cfg.LockPath("acme"); got != "/run/hutch/overlay-acme.lock" {
		t.Errorf("LockPath() = %v", got)
	}
	if got := cfg.UpperDir("acme"); got != "/var/lib/hutch/overlay/upper-acme" {
		t.Errorf("UpperDir() = %v", got)
	}
	if got := cfg.MergedDir("acme"); got != "/var/lib/hutch/overlay/merged-acme" {
		t.Errorf("MergedDir() = %v", got)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HUTCH_ROOT", "HUTCH_RUN_DIR", "HUTCH_LOG", "HUTCH_LOG_LEVEL",
		"HUTCH_OVERLAY", "HUTCH_OVERLAY_DIR", "HUTCH_OVERLAY_ISOLATION",
		"HUTCH_WAIT_TIMEOUT", "HUTCH_CONFIG",
	} {
		t.Setenv(key, "")
	}
}
