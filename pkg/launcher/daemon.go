package launcher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/moby/sys/reexec"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/bundle"
	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/overlay"
	"github.com/cuemby/hutch/pkg/state"
	"github.com/cuemby/hutch/pkg/stdio"
	"github.com/cuemby/hutch/pkg/types"
)

// runningObservabilityDelay keeps very fast workloads visible in the
// running state long enough for polling callers to observe it before
// the stopped transition lands.
const runningObservabilityDelay = 500 * time.Millisecond

func init() {
	reexec.Register(daemonEntry, daemonMain)
}

// daemonMain is the monitoring daemon. It runs detached from the caller
// (own session, re-exec'd before any workload exists) and is the true
// OS parent of the workload, which makes it the only process that can
// reap it. Failures in here have no caller to report to; they are
// persisted as the container's terminal state instead.
func daemonMain() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s CONTAINER-ID\n", daemonEntry)
		os.Exit(1)
	}
	id := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", daemonEntry, err)
		os.Exit(1)
	}

	if cfg.LogFile != "" {
		log.InitFile(cfg.LogLevel, cfg.LogFile)
	} else {
		log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: true})
	}

	store, err := state.NewStore(cfg.StateRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", daemonEntry, err)
		os.Exit(1)
	}

	d := &daemon{
		cfg:   cfg,
		store: store,
		id:    id,
		ready: os.NewFile(3, "ready"),
		log:   log.WithContainerID(id),
	}
	d.run()

	// Terminal state has been recorded either way; the daemon's own
	// exit is always clean
	os.Exit(0)
}

type daemon struct {
	cfg   *config.Config
	store *state.Store
	id    string
	ready *os.File
	log   zerolog.Logger
}

func (d *daemon) run() {
	// The namespace join binds to this thread, and the workload fork
	// must happen on the same thread to inherit it
	runtime.LockOSThread()

	st, err := d.store.Load(d.id)
	if err != nil {
		d.fail(types.KindState, err)
		return
	}

	if d.cfg.OverlayEnabled {
		if d.cfg.OverlayIsolation == config.IsolationTenant && st.Tenant == "" {
			d.fail(types.KindNamespace, fmt.Errorf("tenant isolation requires a tenant scope for container %s", d.id))
			return
		}
		// Fail-closed: no namespace, no workload. The namespace decides
		// the workload's filesystem view, so it must exist before spawn.
		if err := overlay.New(d.cfg).Join(st.Tenant); err != nil {
			d.fail(types.KindNamespace, err)
			return
		}
	}

	// Re-read the record: the caller may have amended the I/O paths
	// between the fork and this point
	if fresh, err := d.store.Load(d.id); err == nil {
		st = fresh
	}

	proc, err := bundle.ReadProcess(st.Bundle)
	if err != nil {
		d.fail(types.KindConfig, err)
		return
	}

	argv0, err := lookPath(proc.Args[0], proc.Env)
	if err != nil {
		d.fail(types.KindSpawn, err)
		return
	}

	devnull, err := stdio.NullDevice()
	if err != nil {
		d.fail(types.KindSpawn, err)
		return
	}
	defer devnull.Close()

	streams := stdio.Setup(context.Background(), st.Stdout, st.Stderr)
	defer streams.Close()

	cmd := &exec.Cmd{
		Path:   argv0,
		Args:   proc.Args,
		Dir:    proc.Cwd,
		Env:    proc.Env,
		Stdin:  devnull,
		Stdout: streams.Stdout,
		Stderr: streams.Stderr,
	}
	if proc.User.UID != 0 || proc.User.GID != 0 || len(proc.User.AdditionalGids) > 0 {
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{
				Uid:    proc.User.UID,
				Gid:    proc.User.GID,
				Groups: proc.User.AdditionalGids,
			},
		}
	}
	if proc.User.Umask != nil {
		unix.Umask(int(*proc.User.Umask))
	}

	if err := cmd.Start(); err != nil {
		d.fail(types.KindSpawn, fmt.Errorf("failed to spawn %s: %w", argv0, err))
		return
	}
	pid := cmd.Process.Pid

	st.Status = types.StatusRunning
	st.Pid = pid
	if err := d.store.Save(st); err != nil {
		d.log.Error().Err(err).Msg("failed to persist running state")
	}
	if err := d.store.SavePID(d.id, pid); err != nil {
		d.log.Error().Err(err).Msg("failed to persist pid file")
	}

	d.signalReady(pid)
	d.log.Info().Int("pid", pid).Msg("workload spawned")
	events.Record(d.cfg.StateRoot, events.EventContainerStarted, d.id, "workload started", map[string]string{
		"pid": strconv.Itoa(pid),
	})

	// Keep fast workloads observable as running before the terminal
	// transition can land
	time.Sleep(runningObservabilityDelay)

	code := d.waitWorkload(cmd)

	st.Status = types.StatusStopped
	st.ExitCode = &code
	if err := d.store.Save(st); err != nil {
		d.log.Error().Err(err).Msg("failed to persist stopped state")
	}

	d.log.Info().Int("exit_code", code).Msg("workload exited")
	events.Record(d.cfg.StateRoot, events.EventContainerStopped, d.id, "workload exited", map[string]string{
		"exit_code": strconv.Itoa(code),
	})
}

// waitWorkload blocks on the workload's exit and maps its wait status
// to a numeric exit code. With a configured timeout the workload is
// killed on expiry; a failed wait reports code 1.
func (d *daemon) waitWorkload(cmd *exec.Cmd) int {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var err error
	if d.cfg.WaitTimeout > 0 {
		timer := time.NewTimer(d.cfg.WaitTimeout)
		defer timer.Stop()
		select {
		case err = <-done:
		case <-timer.C:
			d.log.Warn().Dur("timeout", d.cfg.WaitTimeout).Msg("workload wait timed out, killing")
			cmd.Process.Kill()
			err = <-done
		}
	} else {
		err = <-done
	}

	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return mapWaitStatus(ws)
		}
	}
	d.log.Error().Err(err).Msg("wait on workload failed")
	return 1
}

// mapWaitStatus converts a wait status to the recorded exit code:
// normal exits keep their code, signal deaths record 128+signal.
func mapWaitStatus(ws syscall.WaitStatus) int {
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

// fail records the terminal state for a failure that happened before the
// workload could run, and reports it through the readiness pipe while a
// caller may still be listening.
func (d *daemon) fail(kind types.Kind, err error) {
	d.log.Error().Err(err).Str("kind", string(kind)).Msg("daemon failed before workload ran")

	code := 1
	if st, lerr := d.store.Load(d.id); lerr == nil {
		st.Status = types.StatusStopped
		st.ExitCode = &code
		if serr := d.store.Save(st); serr != nil {
			d.log.Error().Err(serr).Msg("failed to persist failure state")
		}
	}

	events.Record(d.cfg.StateRoot, events.EventContainerStopped, d.id, "daemon failed: "+err.Error(), map[string]string{
		"exit_code": "1",
		"kind":      string(kind),
	})

	if d.ready != nil {
		fmt.Fprintf(d.ready, "err %s %v\n", kind, err)
		d.ready.Close()
		d.ready = nil
	}
}

// signalReady completes the caller handshake with the workload pid
func (d *daemon) signalReady(pid int) {
	if d.ready == nil {
		return
	}
	fmt.Fprintf(d.ready, "ok %d\n", pid)
	d.ready.Close()
	d.ready = nil
}
