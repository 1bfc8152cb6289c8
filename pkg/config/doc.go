/*
Package config builds the immutable process-wide configuration for Hutch.

Configuration is read exactly once at process entry and threaded into
every component as a parameter; nothing else in the codebase reads the
environment. The sources, in order of precedence:

 1. the optional KEY=VALUE file named by HUTCH_CONFIG
 2. the process environment
 3. built-in defaults

Recognized keys (file keys match the environment names):

	HUTCH_ROOT               state root, one directory per container
	HUTCH_RUN_DIR            lock and namespace reference files
	HUTCH_LOG                log file for detached processes
	HUTCH_LOG_LEVEL          debug | info | warn | error
	HUTCH_OVERLAY            1/true enables the shared overlay namespace
	HUTCH_OVERLAY_DIR        base directory for overlay upper/work layers
	HUTCH_OVERLAY_ISOLATION  node | tenant
	HUTCH_WAIT_TIMEOUT       bound on workload wait, e.g. "2h"; empty = none
	HUTCH_CONFIG             path of the override file itself

The Config also derives the well-known coordination paths (lock file,
namespace reference, overlay layer directories). Under tenant isolation
every one of those paths is suffixed with the tenant name, giving each
tenant an independent namespace and overlay; under node isolation all
containers share one set.
*/
package config
