package stdio

import (
	"context"
	"io"
	"os"

	"github.com/containerd/fifo"
	"golang.org/x/sys/unix"

	"github.com/cuemby/hutch/pkg/log"
)

// Streams carries the writers the workload's stdout and stderr are wired
// to, plus any FIFO handles that need closing after the workload exits.
type Streams struct {
	Stdout  io.Writer
	Stderr  io.Writer
	closers []io.Closer
}

// Close releases any FIFO endpoints opened by Setup
func (s *Streams) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}

// Setup resolves the caller-supplied output paths. An empty path keeps
// the inherited stream; a path that cannot be opened (absent FIFO, no
// reader yet, permissions) also falls back to the inherited stream
// rather than failing the launch.
func Setup(ctx context.Context, stdoutPath, stderrPath string) *Streams {
	s := &Streams{Stdout: os.Stdout, Stderr: os.Stderr}

	if w := s.attach(ctx, stdoutPath, "stdout"); w != nil {
		s.Stdout = w
	}
	if w := s.attach(ctx, stderrPath, "stderr"); w != nil {
		s.Stderr = w
	}
	return s
}

// attach opens path for writing without blocking on an absent reader.
// Returns nil when the inherited stream should be used.
func (s *Streams) attach(ctx context.Context, path, name string) io.Writer {
	if path == "" {
		return nil
	}

	// Probe with a raw non-blocking open first. fifo defers the real open
	// to the background, so a missing reader would otherwise surface as a
	// Write that blocks forever rather than as ENXIO here.
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Str("stream", name).
			Msg("failed to open output pipe, inheriting stream")
		return nil
	}
	unix.Close(fd)

	w, err := fifo.OpenFifo(ctx, path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		log.Logger.Warn().Err(err).Str("path", path).Str("stream", name).
			Msg("failed to open output pipe, inheriting stream")
		return nil
	}
	s.closers = append(s.closers, w)
	return w
}

// NullDevice opens /dev/null for the workload's stdin; interactive input
// is not supported.
func NullDevice() (*os.File, error) {
	return os.OpenFile(os.DevNull, os.O_RDONLY, 0)
}
