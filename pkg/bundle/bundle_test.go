package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hutch/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0o644))
	return dir
}

func TestReadProcess(t *testing.T) {
	dir := writeConfig(t, `{
		"ociVersion": "1.0.2",
		"process": {
			"args": ["/bin/echo", "hello world"],
			"env": ["PATH=/usr/bin:/bin", "MODE=test"],
			"cwd": "/tmp",
			"user": {"uid": 1000, "gid": 1000, "additionalGids": [10, 20], "umask": 18}
		}
	}`)

	p, err := ReadProcess(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"/bin/echo", "hello world"}, p.Args)
	assert.Equal(t, []string{"PATH=/usr/bin:/bin", "MODE=test"}, p.Env)
	assert.Equal(t, "/tmp", p.Cwd)
	assert.Equal(t, uint32(1000), p.User.UID)
	assert.Equal(t, uint32(1000), p.User.GID)
	assert.Equal(t, []uint32{10, 20}, p.User.AdditionalGids)
	require.NotNil(t, p.User.Umask)
	assert.Equal(t, uint32(18), *p.User.Umask)
}

func TestReadProcessMinimal(t *testing.T) {
	dir := writeConfig(t, `{"process": {"args": ["/bin/true"]}}`)

	p, err := ReadProcess(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"/bin/true"}, p.Args)
	assert.Empty(t, p.Env)
	assert.Nil(t, p.User.Umask)
}

func TestReadProcessMissingFile(t *testing.T) {
	_, err := ReadProcess(t.TempDir())
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConfig))
}

func TestReadProcessUnparsable(t *testing.T) {
	dir := writeConfig(t, `{"process": `)
	_, err := ReadProcess(dir)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConfig))
}

func TestReadProcessNoProcessSection(t *testing.T) {
	dir := writeConfig(t, `{"ociVersion": "1.0.2"}`)
	_, err := ReadProcess(dir)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConfig))
}

func TestReadProcessEmptyArgs(t *testing.T) {
	dir := writeConfig(t, `{"process": {"args": []}}`)
	_, err := ReadProcess(dir)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindConfig))
}
