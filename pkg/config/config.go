package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cuemby/hutch/pkg/log"
)

// Isolation selects how widely the shared overlay namespace is scoped
type Isolation string

const (
	// IsolationNode shares one namespace across every container on the node
	IsolationNode Isolation = "node"
	// IsolationTenant gives each tenant its own namespace and overlay layers
	IsolationTenant Isolation = "tenant"
)

// Defaults for environment-derived settings
const (
	DefaultStateRoot  = "/var/lib/hutch/containers"
	DefaultRunDir     = "/run/hutch"
	DefaultOverlayDir = "/var/lib/hutch/overlay"
)

// Config is the process-wide runtime configuration. It is constructed
// once at process entry from the environment plus an optional KEY=VALUE
// override file, and is immutable afterwards; components receive it as a
// parameter instead of reading process globals.
type Config struct {
	// StateRoot holds one directory per container id
	StateRoot string

	// RunDir holds the coordination lock and namespace reference files
	RunDir string

	// LogFile is where detached processes append their logs; empty means stderr
	LogFile string

	// LogLevel filters log output
	LogLevel log.Level

	// OverlayEnabled turns on the shared overlay namespace for workloads
	OverlayEnabled bool

	// OverlayDir is the base directory for overlay upper/work layers
	OverlayDir string

	// OverlayIsolation scopes the namespace node-wide or per tenant
	OverlayIsolation Isolation

	// WaitTimeout bounds the daemon's wait on workload exit; 0 waits forever
	WaitTimeout time.Duration
}

// Load builds the Config from the process environment. When HUTCH_CONFIG
// names a KEY=VALUE file, values from the file take precedence over the
// environment.
func Load() (*Config, error) {
	get := func(key string) string { return os.Getenv(key) }

	if path := os.Getenv("HUTCH_CONFIG"); path != "" {
		overrides, err := parseFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		get = func(key string) string {
			if v, ok := overrides[key]; ok {
				return v
			}
			return os.Getenv(key)
		}
	}

	cfg := &Config{
		StateRoot:        orDefault(get("HUTCH_ROOT"), DefaultStateRoot),
		RunDir:           orDefault(get("HUTCH_RUN_DIR"), DefaultRunDir),
		LogFile:          get("HUTCH_LOG"),
		LogLevel:         log.Level(orDefault(get("HUTCH_LOG_LEVEL"), string(log.InfoLevel))),
		OverlayDir:       orDefault(get("HUTCH_OVERLAY_DIR"), DefaultOverlayDir),
		OverlayIsolation: Isolation(orDefault(get("HUTCH_OVERLAY_ISOLATION"), string(IsolationNode))),
	}

	switch v := get("HUTCH_OVERLAY"); v {
	case "", "0", "false":
	case "1", "true":
		cfg.OverlayEnabled = true
	default:
		return nil, fmt.Errorf("invalid HUTCH_OVERLAY value %q", v)
	}

	if cfg.OverlayIsolation != IsolationNode && cfg.OverlayIsolation != IsolationTenant {
		return nil, fmt.Errorf("invalid HUTCH_OVERLAY_ISOLATION value %q", cfg.OverlayIsolation)
	}

	if v := get("HUTCH_WAIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HUTCH_WAIT_TIMEOUT value %q: %w", v, err)
		}
		cfg.WaitTimeout = d
	}

	return cfg, nil
}

// parseFile reads a flat KEY=VALUE file. Blank lines and lines starting
// with '#' are skipped.
func parseFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE, got %q", lineno, line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values, scanner.Err()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// scopeSuffix returns the per-tenant path component, empty under node mode
func (c *Config) scopeSuffix(tenant string) string {
	if c.OverlayIsolation == IsolationTenant {
		return tenant
	}
	return ""
}

// LockPath returns the coordination lock file for the given scope
func (c *Config) LockPath(tenant string) string {
	return filepath.Join(c.RunDir, joinScope("overlay", c.scopeSuffix(tenant))+".lock")
}

// NamespacePath returns the persisted namespace reference file for the scope
func (c *Config) NamespacePath(tenant string) string {
	return filepath.Join(c.RunDir, joinScope("ns", c.scopeSuffix(tenant)))
}

// UpperDir returns the overlay upper layer directory for the scope
func (c *Config) UpperDir(tenant string) string {
	return filepath.Join(c.OverlayDir, joinScope("upper", c.scopeSuffix(tenant)))
}

// WorkDir returns the overlay work directory for the scope
func (c *Config) WorkDir(tenant string) string {
	return filepath.Join(c.OverlayDir, joinScope("work", c.scopeSuffix(tenant)))
}

// MergedDir returns the overlay mount point for the scope
func (c *Config) MergedDir(tenant string) string {
	return filepath.Join(c.OverlayDir, joinScope("merged", c.scopeSuffix(tenant)))
}

func joinScope(base, scope string) string {
	if scope == "" {
		return base
	}
	return base + "-" + scope
}
