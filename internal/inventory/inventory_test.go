package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeInventory(t, `
hosts:
  - name: gpu-01
  - name: gpu-02
  - name: gpu-03
`)

	inv, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu-01", "gpu-02", "gpu-03"}, inv.HostNames())
	assert.Equal(t, path, inv.Path)
}

func TestLoadSkipsBlankNames(t *testing.T) {
	path := writeInventory(t, `
hosts:
  - name: gpu-01
  - name: "  "
  - name: ""
`)

	inv, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpu-01"}, inv.HostNames())
}

func TestLoadEmptyInventory(t *testing.T) {
	path := writeInventory(t, "hosts: []\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "contains no hosts")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeInventory(t, "hosts: [unclosed")

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse inventory")
}
