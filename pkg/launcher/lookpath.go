package launcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errNotFoundInPath = errors.New("executable file not found in PATH")

// lookPath resolves the workload's program path against the workload's
// own environment, not the daemon's: the bundle env is what the process
// will see, so its PATH is the one that counts.
func lookPath(name string, env []string) (string, error) {
	// A path with a separator is used as given
	if filepath.Base(name) != name {
		return name, nil
	}

	for _, dir := range pathDirs(env) {
		if dir == "" {
			dir = "."
		}
		p := filepath.Join(dir, name)
		if err := findExecutable(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, errNotFoundInPath)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// pathDirs extracts the PATH entries from env; the last PATH wins
func pathDirs(env []string) []string {
	const prefix = "PATH="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return filepath.SplitList(env[i][len(prefix):])
		}
	}
	return nil
}
