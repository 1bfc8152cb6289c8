package types

import (
	"time"
)

// Status represents the lifecycle state of a container
type Status string

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// rank orders statuses along the lifecycle; transitions never move backward
func (s Status) rank() int {
	switch s {
	case StatusCreated:
		return 0
	case StatusRunning:
		return 1
	case StatusStopped:
		return 2
	}
	return -1
}

// Valid reports whether s is a known status value
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanTransition reports whether moving from s to next preserves the
// monotonic created -> running -> stopped ordering. Skipping forward
// (created -> stopped) is allowed for spawn failures; moving backward
// never is.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// ContainerState is the persisted record for a single container.
// ID and Bundle are immutable after creation; the daemon spawned by
// start is the only writer of Pid, ExitCode and the running/stopped
// transitions.
type ContainerState struct {
	ID        string    `json:"id"`
	Bundle    string    `json:"bundle"`
	Status    Status    `json:"status"`
	Pid       int       `json:"pid,omitempty"`
	ExitCode  *int      `json:"exit_code,omitempty"`
	Stdin     string    `json:"stdin,omitempty"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
	Tenant    string    `json:"tenant,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Exited reports whether the container has reached its terminal state
func (c *ContainerState) Exited() bool {
	return c.Status == StatusStopped
}

// ProcessUser carries the identity the workload runs as, taken from the
// bundle's process.user section. Zero values mean "inherit".
type ProcessUser struct {
	UID            uint32
	GID            uint32
	AdditionalGids []uint32
	Umask          *uint32
}

// Process is the resolved bundle process section: what to execute and how
type Process struct {
	Args []string
	Env  []string
	Cwd  string
	User ProcessUser
}
