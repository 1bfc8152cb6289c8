package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/moby/sys/reexec"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/sigdispatch"
	"github.com/cuemby/hutch/pkg/state"
	"github.com/cuemby/hutch/pkg/types"
)

// daemonEntry is the reexec entrypoint name of the monitoring daemon
const daemonEntry = "hutch-daemon"

// handshakeTimeout bounds the caller's wait for the daemon's readiness
// line. The handshake is best-effort: on timeout the caller falls back
// to the persisted record and then to the daemon's own pid.
const handshakeTimeout = 10 * time.Second

// CreateOpts carries the optional create parameters
type CreateOpts struct {
	Stdin  string
	Stdout string
	Stderr string
	Tenant string
}

// Create writes the initial record for a new container. The bundle is
// not read here: create only records metadata, and a broken bundle
// surfaces at start time.
func Create(store *state.Store, id, bundleDir string, opts CreateOpts) (*types.ContainerState, error) {
	if id == "" {
		return nil, types.Errorf(types.KindState, "create", "empty container id")
	}
	if bundleDir == "" {
		return nil, types.Errorf(types.KindConfig, "create", "empty bundle path")
	}
	if _, err := store.Load(id); err == nil {
		return nil, types.Errorf(types.KindState, "create", "container %s already exists", id)
	}

	st := &types.ContainerState{
		ID:        id,
		Bundle:    bundleDir,
		Status:    types.StatusCreated,
		Stdin:     opts.Stdin,
		Stdout:    opts.Stdout,
		Stderr:    opts.Stderr,
		Tenant:    opts.Tenant,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(st); err != nil {
		return nil, err
	}

	events.Record(store.Root(), events.EventContainerCreated, id, "container created", map[string]string{
		"bundle": bundleDir,
	})
	return st, nil
}

// Start spawns the monitoring daemon for container id and reports the
// workload pid.
//
// The fork-before-spawn invariant lives here: this process never spawns
// the workload itself. It detaches the daemon first, and only the
// daemon performs the spawn, as the workload's true OS parent and the
// one process that can reap it.
func Start(cfg *config.Config, store *state.Store, id string) (int, error) {
	st, err := store.Load(id)
	if err != nil {
		return 0, err
	}
	if st.Status != types.StatusCreated {
		return 0, types.Errorf(types.KindState, "start", "container %s already started (status %s)", id, st.Status)
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return 0, types.NewError(types.KindSpawn, "start", err)
	}
	defer readyR.Close()

	cmd := reexec.Command(daemonEntry, id)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true} // survives this process's exit
	cmd.ExtraFiles = []*os.File{readyW}                  // fd 3 in the daemon
	// The daemon inherits the caller's output streams so a workload
	// without pipe paths still lands its output somewhere visible
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		readyW.Close()
		return 0, types.NewError(types.KindSpawn, "fork daemon", err)
	}
	readyW.Close()

	// The daemon is detached on purpose; it is never waited on here.
	// Its readiness line replaces the old sleep-and-poll handshake.
	pid, herr := readHandshake(readyR)
	if herr == nil {
		return pid, nil
	}
	var classified *types.Error
	if errors.As(herr, &classified) {
		// The daemon reported a definite failure before the workload ran
		return 0, herr
	}

	// No definite answer (timeout, torn pipe): fall back to the
	// persisted record, then to the daemon's own pid
	ctrLog := log.WithContainerID(id)
	ctrLog.Warn().Err(herr).Msg("daemon handshake inconclusive, falling back to persisted state")
	if st, err := store.Load(id); err == nil && st.Pid != 0 {
		return st.Pid, nil
	}
	return cmd.Process.Pid, nil
}

// readHandshake reads the daemon's single status line:
//
//	ok <pid>    workload spawned, running state persisted
//	err <kind> <message>   definite failure before the workload ran
func readHandshake(r *os.File) (int, error) {
	if err := r.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return 0, err
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("daemon handshake: %w", err)
	}
	return parseHandshake(strings.TrimSpace(line))
}

func parseHandshake(line string) (int, error) {
	switch {
	case strings.HasPrefix(line, "ok "):
		pid, err := strconv.Atoi(strings.TrimPrefix(line, "ok "))
		if err != nil || pid <= 0 {
			return 0, fmt.Errorf("daemon handshake: malformed pid in %q", line)
		}
		return pid, nil
	case strings.HasPrefix(line, "err "):
		rest := strings.TrimPrefix(line, "err ")
		kind, msg, ok := strings.Cut(rest, " ")
		if !ok {
			msg = rest
			kind = string(types.KindSpawn)
		}
		return 0, types.Errorf(types.Kind(kind), "start", "%s", msg)
	}
	return 0, fmt.Errorf("daemon handshake: unrecognized line %q", line)
}

// Delete removes the container's persisted state. With force, the
// recorded process is terminated first. Deleting an absent container is
// success.
func Delete(store *state.Store, id string, force bool) error {
	if force {
		if err := sigdispatch.Kill(store, id, sigdispatch.DefaultSignal); err != nil && !errors.Is(err, types.ErrNotFound) {
			ctrLog := log.WithContainerID(id)
			ctrLog.Warn().Err(err).Msg("force delete: signal delivery failed")
		}
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	events.Record(store.Root(), events.EventContainerDeleted, id, "container deleted", nil)
	return nil
}
