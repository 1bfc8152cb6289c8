package overlay

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/types"
)

// JoinThread attaches the current OS thread to the mount namespace
// referenced by nsPath. The calling goroutine must already hold
// runtime.LockOSThread, and everything that should see the namespace
// (in particular the workload fork) must happen on that same goroutine.
//
// setns for a mount namespace is refused while the thread shares
// filesystem state with the rest of the process, so the thread's fs
// context is unshared first. The thread is unusable for host-filesystem
// work afterwards, which is fine: the daemon's whole purpose past this
// point is to run inside the namespace.
func JoinThread(nsPath string) error {
	f, err := os.Open(nsPath)
	if err != nil {
		return types.NewError(types.KindNamespace, "open nsref", err)
	}
	defer f.Close()

	if err := unix.Unshare(unix.CLONE_FS); err != nil {
		return types.NewError(types.KindNamespace, "unshare fs", err)
	}
	if err := unix.Setns(int(f.Fd()), unix.CLONE_NEWNS); err != nil {
		return types.NewError(types.KindNamespace, "setns", err)
	}
	return nil
}
