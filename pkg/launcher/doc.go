/*
Package launcher is the process launch and daemonization state machine
at the heart of the runtime.

	created ──(start)──> daemon spawned ──(spawn)──> running ──(exit)──> stopped

# Fork before spawn, never spawn before fork

The command process handling start never spawns the workload. It
re-executes itself into a detached monitoring daemon first, and the
daemon spawns the workload as its direct child. Reaping only works for
the workload's actual OS parent; spawning first and detaching later
would leave an unreapable zombie. The daemon therefore must be the true
parent from spawn time onward.

# Daemon responsibilities, in order

 1. Run in its own session so it survives the caller's exit (Setsid at
    spawn time).
 2. Join or create the shared overlay namespace when enabled, before
    the spawn, since the namespace decides the workload's filesystem
    view. Fail-closed: no namespace, no workload.
 3. Re-read the persisted record for caller-supplied I/O paths.
 4. Stdin from the null device, stdout/stderr via pkg/stdio.
 5. Spawn with the resolved program path, args, cwd, env and bundle
    user identity.
 6. Persist running + the real pid, answer the caller's readiness pipe,
    then hold the running state briefly so fast workloads stay
    observable.
 7. Block on the exit (bounded by the configured wait timeout, if any)
    and persist stopped + the exit code; 128+signal for signal deaths,
    1 when the wait itself fails or the spawn never happened.

Failures after the fork have no caller to report to; they become the
container's terminal state, observable through the state operation and
the event journal.

# Caller handshake

The caller reads one line from a pipe the daemon inherits: "ok <pid>" on
success or "err <kind> <message>" for definite pre-spawn failures. On
timeout or a torn pipe it degrades to re-reading the persisted record
and finally to the daemon's own pid. The handshake is best-effort; the
persisted state is the source of truth.

# Re-entrant start

Start on a container whose status is not created is rejected outright; a
second daemon for the same id would fight the first over the record.
*/
package launcher
