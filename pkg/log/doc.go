/*
Package log provides structured logging for Hutch using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers and configurable log levels. All
logs include timestamps and support filtering by severity level.

Hutch processes come in two flavors with different logging needs:

  - CLI operations (create, state, kill, delete and the caller side of
    start) write human-readable console output to stderr.
  - The detached monitoring daemon and the overlay anchor helper have no
    terminal; they append JSON lines to the runtime log file configured
    via HUTCH_LOG (see InitFile).

# Usage

Initializing the logger:

	// Console output (CLI operations)
	log.Init(log.Config{
		Level:  log.InfoLevel,
		Output: os.Stderr,
	})

	// File output (detached daemon)
	log.InitFile(log.InfoLevel, cfg.LogFile)

Component loggers:

	launcherLog := log.WithComponent("launcher")
	launcherLog.Info().Int("pid", pid).Msg("workload spawned")

	ctrLog := log.WithContainerID("web-1")
	ctrLog.Error().Err(err).Msg("spawn failed")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at process entry, before any component runs
  - Accessible from all packages without passing

Context Logger Pattern:
  - Create child loggers with context fields (component, container_id)
  - Pass context loggers to functions
  - Automatically includes context in all logs
*/
package log
