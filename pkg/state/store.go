package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/cuemby/hutch/pkg/types"
)

const (
	stateFile = "state.json"
	pidFile   = "pid"
)

// Store persists container records as flat files, one directory per
// container id under the state root. Writes go through a temp-file
// rename so readers never observe a partially written record; there is
// no locking beyond that, and concurrent writers to the same id remain
// last-write-wins.
type Store struct {
	root string
}

// NewStore creates a store rooted at root, creating the directory if needed
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the state root directory
func (s *Store) Root() string {
	return s.root
}

// ContainerDir returns the per-container directory for id
func (s *Store) ContainerDir(id string) string {
	return filepath.Join(s.root, id)
}

// Save overwrites the record for st.ID, creating its directory if absent
func (s *Store) Save(st *types.ContainerState) error {
	if st.ID == "" {
		return types.Errorf(types.KindState, "save", "empty container id")
	}
	dir := s.ContainerDir(st.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewError(types.KindState, "save", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return types.NewError(types.KindState, "save", err)
	}
	if err := atomicwriter.WriteFile(filepath.Join(dir, stateFile), data, 0o644); err != nil {
		return types.NewError(types.KindState, "save", err)
	}
	return nil
}

// Load reads the record for id. A missing directory, missing file, or
// unparsable record all surface as types.ErrNotFound in the chain.
func (s *Store) Load(id string) (*types.ContainerState, error) {
	data, err := os.ReadFile(filepath.Join(s.ContainerDir(id), stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewError(types.KindState, "load", fmt.Errorf("%w: %s", types.ErrNotFound, id))
		}
		return nil, types.NewError(types.KindState, "load", err)
	}

	var st types.ContainerState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, types.NewError(types.KindState, "load", fmt.Errorf("%w: %s: corrupt record: %v", types.ErrNotFound, id, err))
	}
	return &st, nil
}

// SavePID persists the numeric process id beside the record
func (s *Store) SavePID(id string, pid int) error {
	dir := s.ContainerDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.NewError(types.KindState, "save pid", err)
	}
	if err := atomicwriter.WriteFile(filepath.Join(dir, pidFile), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return types.NewError(types.KindState, "save pid", err)
	}
	return nil
}

// LoadPID reads the persisted process id for id
func (s *Store) LoadPID(id string) (int, error) {
	data, err := os.ReadFile(filepath.Join(s.ContainerDir(id), pidFile))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, types.NewError(types.KindState, "load pid", fmt.Errorf("%w: %s", types.ErrNotFound, id))
		}
		return 0, types.NewError(types.KindState, "load pid", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, types.NewError(types.KindState, "load pid", fmt.Errorf("corrupt pid file for %s: %v", id, err))
	}
	return pid, nil
}

// Delete removes the container directory tree. Deleting an absent id is
// success, not an error.
func (s *Store) Delete(id string) error {
	if err := os.RemoveAll(s.ContainerDir(id)); err != nil {
		return types.NewError(types.KindState, "delete", err)
	}
	return nil
}
