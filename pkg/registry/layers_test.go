// pkg/registry/layers_test.go
package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	typeflag byte
	mode     int64
	body     string
	linkname string
}

func writeLayer(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, entry := range entries {
		header := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Mode:     entry.mode,
			Linkname: entry.linkname,
			Size:     int64(len(entry.body)),
		}
		require.NoError(t, tw.WriteHeader(header))
		if entry.body != "" {
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractLayer(t *testing.T) {
	layer := filepath.Join(t.TempDir(), "layer.tar.gz")
	writeLayer(t, layer, []tarEntry{
		{name: "./opt/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "./opt/python/note.txt", typeflag: tar.TypeReg, mode: 0o444, body: "hello"},
		{name: "./opt/python/cp311-cp311", typeflag: tar.TypeSymlink, mode: 0o777, linkname: "/opt/_internal/cpython-3.11.9"},
		{name: "./bin/tool", typeflag: tar.TypeReg, mode: 0o755, body: "#!/bin/sh\n"},
		{name: "./bin/tool-alias", typeflag: tar.TypeLink, mode: 0o755, linkname: "bin/tool"},
	})

	dest := t.TempDir()
	require.NoError(t, extractLayer(layer, "application/vnd.docker.image.rootfs.diff.tar.gzip", dest))

	data, err := os.ReadFile(filepath.Join(dest, "opt/python/note.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Read-only sources become owner-writable so later layers can override.
	info, err := os.Stat(filepath.Join(dest, "opt/python/note.txt"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o200)

	target, err := os.Readlink(filepath.Join(dest, "opt/python/cp311-cp311"))
	require.NoError(t, err)
	assert.Equal(t, "/opt/_internal/cpython-3.11.9", target)

	tool, err := os.Stat(filepath.Join(dest, "bin/tool"))
	require.NoError(t, err)
	assert.NotZero(t, tool.Mode()&0o111)
	assert.FileExists(t, filepath.Join(dest, "bin/tool-alias"))
}

func TestExtractLayerSkipsWhiteouts(t *testing.T) {
	layer := filepath.Join(t.TempDir(), "layer.tar.gz")
	writeLayer(t, layer, []tarEntry{
		{name: "./etc/.wh.hostname", typeflag: tar.TypeReg, mode: 0o644},
		{name: "./etc/hosts", typeflag: tar.TypeReg, mode: 0o644, body: "localhost\n"},
	})

	dest := t.TempDir()
	require.NoError(t, extractLayer(layer, "application/vnd.docker.image.rootfs.diff.tar.gzip", dest))

	assert.FileExists(t, filepath.Join(dest, "etc/hosts"))
	assert.NoFileExists(t, filepath.Join(dest, "etc/.wh.hostname"))
}

func TestExtractLayerOverlays(t *testing.T) {
	dest := t.TempDir()

	lower := filepath.Join(t.TempDir(), "lower.tar.gz")
	writeLayer(t, lower, []tarEntry{
		{name: "etc/hosts", typeflag: tar.TypeReg, mode: 0o444, body: "old\n"},
	})
	upper := filepath.Join(t.TempDir(), "upper.tar.gz")
	writeLayer(t, upper, []tarEntry{
		{name: "etc/hosts", typeflag: tar.TypeReg, mode: 0o644, body: "new\n"},
	})

	mediaType := "application/vnd.docker.image.rootfs.diff.tar.gzip"
	require.NoError(t, extractLayer(lower, mediaType, dest))
	require.NoError(t, extractLayer(upper, mediaType, dest))

	data, err := os.ReadFile(filepath.Join(dest, "etc/hosts"))
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}
