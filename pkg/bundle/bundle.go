package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cuemby/hutch/pkg/types"
)

// ConfigFile is the bundle's spec file name per the OCI layout
const ConfigFile = "config.json"

// ReadProcess parses the process section of the bundle's config.json.
// A missing or unparsable file, or an absent process section, is a
// config error; a present process section with an empty args vector is
// rejected too since there is nothing to execute.
func ReadProcess(bundleDir string) (*types.Process, error) {
	path := filepath.Join(bundleDir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.KindConfig, "read bundle", err)
	}

	var spec specs.Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, types.NewError(types.KindConfig, "read bundle", fmt.Errorf("unparsable %s: %w", ConfigFile, err))
	}
	if spec.Process == nil {
		return nil, types.Errorf(types.KindConfig, "read bundle", "%s has no process section", ConfigFile)
	}
	if len(spec.Process.Args) == 0 {
		return nil, types.Errorf(types.KindConfig, "read bundle", "process.args is empty: no program to execute")
	}

	p := &types.Process{
		Args: spec.Process.Args,
		Env:  spec.Process.Env,
		Cwd:  spec.Process.Cwd,
		User: types.ProcessUser{
			UID:            spec.Process.User.UID,
			GID:            spec.Process.User.GID,
			AdditionalGids: spec.Process.User.AdditionalGids,
			Umask:          spec.Process.User.Umask,
		},
	}
	return p, nil
}
