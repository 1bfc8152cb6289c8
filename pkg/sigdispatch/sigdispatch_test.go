package sigdispatch

import (
	"errors"
	"os/exec"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/state"
	"github.com/cuemby/hutch/pkg/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    syscall.Signal
		wantErr bool
	}{
		{"", unix.SIGTERM, false},
		{"TERM", unix.SIGTERM, false},
		{"SIGKILL", unix.SIGKILL, false},
		{"9", unix.SIGKILL, false},
		{"15", unix.SIGTERM, false},
		{"NOSUCHSIG", 0, true},
	}

	for _, tt := range tests {
		got, err := Parse(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		if err != nil && !types.IsKind(err, types.KindSignal) {
			t.Errorf("Parse(%q) error not classified as signal error", tt.raw)
		}
	}
}

func TestKillDeliversSignal(t *testing.T) {
	s, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	defer cmd.Wait()

	if err := s.SavePID("c1", cmd.Process.Pid); err != nil {
		t.Fatalf("SavePID() error = %v", err)
	}

	if err := Kill(s, "c1", unix.SIGKILL); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Wait() = %v, want exit error from SIGKILL", err)
	}
	ws := exitErr.Sys().(syscall.WaitStatus)
	if !ws.Signaled() || ws.Signal() != unix.SIGKILL {
		t.Errorf("wait status = %v, want SIGKILL death", ws)
	}
}

func TestKillVanishedProcessIsSuccess(t *testing.T) {
	s, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	// A pid above the kernel's pid_max cannot name a live process
	if err := s.SavePID("c1", 1<<30); err != nil {
		t.Fatalf("SavePID() error = %v", err)
	}

	if err := Kill(s, "c1", unix.SIGTERM); err != nil {
		t.Errorf("Kill() of vanished process = %v, want nil", err)
	}
}

func TestKillUnknownContainer(t *testing.T) {
	s, err := state.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := Kill(s, "ghost", unix.SIGTERM); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Kill() error = %v, want ErrNotFound", err)
	}
}
