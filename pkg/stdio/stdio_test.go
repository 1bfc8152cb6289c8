package stdio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"
)

func TestSetupEmptyPathsInheritStreams(t *testing.T) {
	s := Setup(context.Background(), "", "")
	defer s.Close()

	if s.Stdout != os.Stdout {
		t.Error("Stdout not inherited for empty path")
	}
	if s.Stderr != os.Stderr {
		t.Error("Stderr not inherited for empty path")
	}
}

func TestSetupMissingFifoFallsBack(t *testing.T) {
	// Scenario: caller supplied a stdout path that does not exist.
	// Launch must proceed with the inherited stream.
	s := Setup(context.Background(), filepath.Join(t.TempDir(), "nonexistent.out"), "")
	defer s.Close()

	if s.Stdout != os.Stdout {
		t.Error("Stdout not inherited when pipe path is absent")
	}
}

func TestSetupFifoWithoutReaderFallsBack(t *testing.T) {
	// A real FIFO with no reader: non-blocking open fails with ENXIO
	// and the inherited stream is used instead of hanging.
	path := filepath.Join(t.TempDir(), "out.fifo")
	if err := unix.Mkfifo(path, 0o644); err != nil {
		t.Fatalf("Mkfifo() error = %v", err)
	}

	s := Setup(context.Background(), path, "")
	defer s.Close()

	if s.Stdout != os.Stdout {
		t.Error("Stdout not inherited when no reader is attached")
	}
}

func TestSetupFifoWithReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.fifo")
	if err := unix.Mkfifo(path, 0o644); err != nil {
		t.Fatalf("Mkfifo() error = %v", err)
	}

	// Attach a reader first so the non-blocking writer open succeeds
	r, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("open reader error = %v", err)
	}
	defer r.Close()

	s := Setup(context.Background(), path, "")
	defer s.Close()

	if s.Stdout == os.Stdout {
		t.Fatal("Stdout should be the pipe, not the inherited stream")
	}

	if _, err := io.WriteString(s.Stdout, "marker\n"); err != nil {
		t.Fatalf("write to pipe error = %v", err)
	}

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("read from pipe error = %v", err)
	}
	if string(buf[:n]) != "marker\n" {
		t.Errorf("read %q, want %q", buf[:n], "marker\n")
	}
}

func TestNullDevice(t *testing.T) {
	f, err := NullDevice()
	if err != nil {
		t.Fatalf("NullDevice() error = %v", err)
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := f.Read(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("Read() = (%d, %v), want (0, EOF)", n, err)
	}
}
