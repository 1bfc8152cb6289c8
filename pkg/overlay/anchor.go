package overlay

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/mount"
	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"
)

func init() {
	reexec.Register(anchorEntry, anchorMain)
}

// anchorMain is the namespace anchor helper. It runs inside a freshly
// unshared mount namespace (Unshareflags on the spawning side), builds
// the overlay view, pivots into it, signals readiness on fd 3 and then
// sleeps forever. Its continued existence is what keeps the namespace
// alive between workloads; it is never killed and never reaped.
func anchorMain() {
	if len(os.Args) != 5 {
		fmt.Fprintf(os.Stderr, "usage: %s MERGED UPPER WORK STATEROOT\n", anchorEntry)
		os.Exit(1)
	}
	merged, upper, work, stateRoot := os.Args[1], os.Args[2], os.Args[3], os.Args[4]

	if err := buildMergedRoot(merged, upper, work, stateRoot); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", anchorEntry, err)
		os.Exit(1)
	}

	ready := os.NewFile(3, "ready")
	if _, err := ready.Write([]byte{1}); err != nil {
		fmt.Fprintf(os.Stderr, "%s: readiness write: %v\n", anchorEntry, err)
		os.Exit(1)
	}
	ready.Close()

	// Namespace anchor: hold the mount namespace open indefinitely
	select {}
}

// buildMergedRoot assembles the shared filesystem view and makes it this
// process's root.
func buildMergedRoot(merged, upper, work, stateRoot string) error {
	// Nothing done here may propagate back to the host
	if err := mount.MakeRPrivate("/"); err != nil {
		return fmt.Errorf("make mounts private: %w", err)
	}

	// Host root as the read-only lower layer, configured upper/work pair
	// as the writable layer
	opts := fmt.Sprintf("lowerdir=/,upperdir=%s,workdir=%s", upper, work)
	if err := mount.Mount("overlay", merged, "overlay", opts); err != nil {
		return fmt.Errorf("mount overlay on %s: %w", merged, err)
	}

	// Only kernel-backed filesystems and the runtime's own state
	// directory are bound through from the host. /tmp deliberately is
	// not: temp writes must land in the upper layer, isolated from the
	// host.
	binds := []string{"/proc", "/sys", "/dev", stateRoot}
	for _, src := range binds {
		target := filepath.Join(merged, src)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("prepare bind target %s: %w", target, err)
		}
		if err := mount.Mount(src, target, "none", "rbind"); err != nil {
			return fmt.Errorf("bind %s: %w", src, err)
		}
	}

	// Seed resolver configuration into the merged /etc; these writes go
	// to the upper layer and guarantee non-empty copies for joiners
	for name, data := range snapshotResolvers("/etc") {
		if len(data) == 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(merged, "etc", name), data, 0o644); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}

	return pivotInto(merged)
}

// pivotInto swaps the process root to newRoot and detaches the old root
func pivotInto(newRoot string) error {
	oldRoot := filepath.Join(newRoot, ".old_root")
	if err := os.MkdirAll(oldRoot, 0o700); err != nil {
		return fmt.Errorf("prepare old root: %w", err)
	}

	if err := unix.PivotRoot(newRoot, oldRoot); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	if err := unix.Unmount("/.old_root", unix.MNT_DETACH); err != nil {
		return fmt.Errorf("detach old root: %w", err)
	}
	if err := os.Remove("/.old_root"); err != nil {
		return fmt.Errorf("remove old root dir: %w", err)
	}
	return nil
}
