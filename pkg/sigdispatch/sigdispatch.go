package sigdispatch

import (
	"errors"
	"fmt"
	"syscall"

	msignal "github.com/moby/sys/signal"
	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/state"
	"github.com/cuemby/hutch/pkg/types"
)

// DefaultSignal is delivered when the caller does not name one
const DefaultSignal = unix.SIGTERM

// Parse resolves a signal given by name ("TERM", "SIGKILL") or number.
// An empty value resolves to the default termination signal.
func Parse(raw string) (syscall.Signal, error) {
	if raw == "" {
		return DefaultSignal, nil
	}
	sig, err := msignal.ParseSignal(raw)
	if err != nil {
		return 0, types.NewError(types.KindSignal, "parse", err)
	}
	return sig, nil
}

// Kill delivers sig to the recorded process of container id. A target
// that no longer exists is success: the caller's goal, "this process is
// not running", already holds. Any other delivery failure is an error.
func Kill(store *state.Store, id string, sig syscall.Signal) error {
	pid, err := store.LoadPID(id)
	if err != nil {
		return fmt.Errorf("failed to resolve pid for %s: %w", id, err)
	}

	ctrLog := log.WithContainerID(id)
	if err := unix.Kill(pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			ctrLog.Debug().Int("pid", pid).Msg("signal target already gone")
			return nil
		}
		return types.NewError(types.KindSignal, "kill", fmt.Errorf("pid %d signal %d: %w", pid, sig, err))
	}

	ctrLog.Debug().Int("pid", pid).Int("signal", int(sig)).Msg("signal delivered")
	return nil
}
