package overlay

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"
	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/config"
	"github.com/cuemby/hutch/pkg/events"
	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/types"
)

// anchorEntry is the reexec entrypoint name of the namespace anchor helper
const anchorEntry = "hutch-overlay-anchor"

// anchorReadyTimeout bounds the wait for the helper's readiness byte
const anchorReadyTimeout = 30 * time.Second

// resolverFiles are the host configuration files that must stay intact
// inside the namespace; overlay layering can leave stale empty copies in
// the upper layer that mask the host versions.
var resolverFiles = []string{"resolv.conf", "hosts", "nsswitch.conf"}

// Manager elects a first creator of the shared mount namespace and
// overlay filesystem, or joins the existing one. The namespace is kept
// alive by a sacrificial anchor process and discovered through a
// bind-mounted namespace reference file; once created it is never torn
// down.
type Manager struct {
	cfg *config.Config
}

// New creates a Manager operating on the given configuration
func New(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Join attaches the calling goroutine's OS thread to the shared mount
// namespace for the tenant scope, creating namespace and overlay when
// this is the first workload. The caller must hold runtime.LockOSThread
// for the duration of its use of the namespace; the workload has to be
// spawned from the same locked goroutine so the fork inherits the
// joined namespace.
//
// Participation is mandatory once the overlay is enabled: any failure
// here must prevent the workload from running (fail-closed).
func (m *Manager) Join(tenant string) error {
	if m.cfg.OverlayIsolation == config.IsolationTenant && tenant == "" {
		return types.Errorf(types.KindNamespace, "join", "tenant isolation requires a tenant scope")
	}

	if err := os.MkdirAll(m.cfg.RunDir, 0o755); err != nil {
		return types.NewError(types.KindLock, "join", err)
	}

	// Exclusive blocking lock: only the holder may create the namespace,
	// so concurrently starting workloads serialize here
	lockFile, err := os.OpenFile(m.cfg.LockPath(tenant), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return types.NewError(types.KindLock, "open lock", err)
	}
	defer lockFile.Close()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		return types.NewError(types.KindLock, "acquire lock", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	// Snapshot host resolver state while still in the host namespace;
	// needed to repair stale copies after the join
	snapshot := snapshotResolvers("/etc")

	nsPath := m.cfg.NamespacePath(tenant)
	created := false
	if !namespaceUsable(nsPath) {
		if err := m.create(tenant, nsPath); err != nil {
			return err
		}
		created = true
	}

	if err := JoinThread(nsPath); err != nil {
		return err
	}

	// From here the locked thread sees the merged root; verify the
	// resolver files survived the layering and restore them if not
	repairResolvers("/etc", snapshot)

	eventType := events.EventOverlayJoined
	if created {
		eventType = events.EventOverlayCreated
	}
	events.Record(m.cfg.StateRoot, eventType, "", "overlay namespace "+string(eventType), map[string]string{
		"tenant": tenant,
		"nsref":  nsPath,
	})

	return nil
}

// namespaceUsable reports whether the namespace reference is present and
// actually carries a bind-mounted namespace handle. An interrupted
// create can leave a plain file behind; that leftover is removed so the
// lock holder re-creates the namespace instead of failing the join.
func namespaceUsable(nsPath string) bool {
	if _, err := os.Stat(nsPath); err != nil {
		return false
	}
	mounted, err := mountinfo.Mounted(nsPath)
	if err != nil || !mounted {
		olog := log.WithComponent("overlay")
		olog.Warn().Str("nsref", nsPath).
			Msg("removing stale namespace reference")
		os.Remove(nsPath)
		return false
	}
	return true
}

// create elects this process the namespace creator: it spawns the anchor
// helper in a fresh mount namespace, waits for it to finish building the
// overlay and pivoting, then persists the namespace by bind-mounting the
// helper's namespace handle onto nsPath.
func (m *Manager) create(tenant, nsPath string) error {
	olog := log.WithComponent("overlay")
	upper := m.cfg.UpperDir(tenant)
	work := m.cfg.WorkDir(tenant)
	merged := m.cfg.MergedDir(tenant)

	for _, dir := range []string{upper, work, merged} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.NewError(types.KindNamespace, "create layers", err)
		}
	}

	readyR, readyW, err := os.Pipe()
	if err != nil {
		return types.NewError(types.KindNamespace, "create", err)
	}
	defer readyR.Close()

	cmd := reexec.Command(anchorEntry, merged, upper, work, m.cfg.StateRoot)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Unshareflags: syscall.CLONE_NEWNS,
		Setsid:       true,
	}
	cmd.ExtraFiles = []*os.File{readyW} // fd 3 in the helper
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		readyW.Close()
		return types.NewError(types.KindNamespace, "spawn anchor", err)
	}
	readyW.Close()

	olog.Debug().Int("pid", cmd.Process.Pid).Msg("anchor helper spawned")

	// One byte means every mount and the pivot succeeded; EOF means the
	// helper died before finishing
	if err := awaitReady(readyR); err != nil {
		abandonAnchor(cmd)
		return types.NewError(types.KindNamespace, "anchor setup", err)
	}

	// Anchor the namespace on disk: bind the helper's namespace handle
	// onto the well-known reference path so future joiners find it
	// without the helper's pid
	if err := touch(nsPath); err != nil {
		abandonAnchor(cmd)
		return types.NewError(types.KindNamespace, "create nsref", err)
	}
	src := "/proc/" + strconv.Itoa(cmd.Process.Pid) + "/ns/mnt"
	if err := mount.Mount(src, nsPath, "none", "bind"); err != nil {
		abandonAnchor(cmd)
		return types.NewError(types.KindNamespace, "bind nsref", err)
	}

	// The helper is left running on purpose: it is the namespace anchor,
	// and it is never reaped. When this process exits it reparents to
	// init and sleeps on.
	olog.Info().
		Int("anchor_pid", cmd.Process.Pid).
		Str("nsref", nsPath).
		Str("tenant", tenant).
		Msg("overlay namespace created")

	return nil
}

// abandonAnchor kills and reaps a helper that cannot serve as the
// namespace anchor: without a persisted nsref there would be no way to
// find it again, and a sleeping orphan would accumulate per failed create.
func abandonAnchor(cmd *exec.Cmd) {
	cmd.Process.Kill()
	cmd.Wait()
}

func awaitReady(r *os.File) error {
	if err := r.SetReadDeadline(time.Now().Add(anchorReadyTimeout)); err != nil {
		return err
	}
	buf := make([]byte, 1)
	n, err := r.Read(buf)
	if err != nil {
		return fmt.Errorf("anchor helper did not signal readiness: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("anchor helper readiness read returned %d bytes", n)
	}
	return nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}

// snapshotResolvers reads the resolver files under etcDir into memory.
// Missing files are simply absent from the snapshot.
func snapshotResolvers(etcDir string) map[string][]byte {
	snapshot := make(map[string][]byte)
	for _, name := range resolverFiles {
		data, err := os.ReadFile(filepath.Join(etcDir, name))
		if err != nil {
			continue
		}
		snapshot[name] = data
	}
	return snapshot
}

// repairResolvers restores resolver files that are empty or missing in
// the current view from the host snapshot. Writes land in the overlay
// upper layer when called from a joined thread.
func repairResolvers(etcDir string, snapshot map[string][]byte) {
	olog := log.WithComponent("overlay")
	for name, data := range snapshot {
		if len(data) == 0 {
			continue
		}
		path := filepath.Join(etcDir, name)
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			olog.Warn().Err(err).Str("file", path).Msg("failed to repair resolver file")
		}
	}
}
