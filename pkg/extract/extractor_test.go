// pkg/extract/extractor_test.go
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/manylinux-go/rcpr/internal/elftest"
	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePatcher records SetSearchPath calls in order instead of invoking an
// external process
type fakePatcher struct {
	paths   map[string]string
	order   []string
	failOn  string
	readErr error
}

func newFakePatcher() *fakePatcher {
	return &fakePatcher{paths: make(map[string]string)}
}

func (p *fakePatcher) SetSearchPath(_ context.Context, file string, entries []string) error {
	if p.failOn != "" && strings.HasSuffix(file, p.failOn) {
		return fmt.Errorf("patch tool exited with status 1")
	}
	p.paths[file] = strings.Join(entries, ":")
	p.order = append(p.order, file)
	return nil
}

func (p *fakePatcher) SearchPath(_ context.Context, file string) (string, error) {
	if p.readErr != nil {
		return "", p.readErr
	}
	return p.paths[file], nil
}

// fakeManylinux lays out the spec scenario: a rootfs holding a tagged
// installation whose interpreter depends on libpython one directory over.
func fakeManylinux(t *testing.T) *image.Image {
	t.Helper()
	root := t.TempDir()

	prefix := filepath.Join(root, "opt/_internal/cpython-3.11.9")
	for _, dir := range []string{"bin", "lib", "lib/python3.11/lib-dynload", "include/python3.11"} {
		require.NoError(t, os.MkdirAll(filepath.Join(prefix, dir), 0o755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "opt/python"), 0o755))
	require.NoError(t, os.Symlink("/opt/_internal/cpython-3.11.9",
		filepath.Join(root, "opt/python/cp311-cp311")))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib64"), 0o755))

	require.NoError(t, elftest.WriteExecutable(
		filepath.Join(prefix, "bin/python3.11"), "libpython3.11.so.1.0", "libc.so.6"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(prefix, "lib/libpython3.11.so.1.0"), "libpython3.11.so.1.0", "libc.so.6"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(prefix, "lib/python3.11/lib-dynload/_ssl.cpython-311.so"),
		"", "libssl.so.3", "libc.so.6"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(root, "lib64/libssl.so.3"), "libssl.so.3", "libc.so.6"))

	require.NoError(t, os.WriteFile(
		filepath.Join(prefix, "lib/python3.11/os.py"), []byte("import sys\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(prefix, "include/python3.11/Python.h"), []byte("#define PY\n"), 0o444))
	require.NoError(t, os.Symlink("libpython3.11.so.1.0",
		filepath.Join(prefix, "lib/libpython3.11.so")))

	return image.New(root, image.ArchX86_64)
}

func newExtractor(t *testing.T, img *image.Image, patcher *fakePatcher) *Extractor {
	t.Helper()
	e, err := New(Options{Image: img, Tag: "cp311-cp311", Patcher: patcher})
	require.NoError(t, err)
	return e
}

func TestExtractEndToEnd(t *testing.T) {
	img := fakeManylinux(t)
	patcher := newFakePatcher()
	dest := filepath.Join(t.TempDir(), "out")

	result, err := newExtractor(t, img, patcher).Extract(context.Background(), dest)
	require.NoError(t, err)

	// Interpreter copied with exec bits, patched toward lib/.
	interp := filepath.Join(dest, "bin/python3.11")
	info, err := os.Stat(interp)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "interpreter must stay executable")
	assert.Equal(t, "$ORIGIN/../lib", patcher.paths[interp])

	// Closure pulled libssl from lib64 into lib/ and patched it.
	ssl := filepath.Join(dest, "lib/libssl.so.3")
	assert.FileExists(t, ssl)
	assert.Equal(t, "$ORIGIN", patcher.paths[ssl])

	// Extension module reaches lib/ two levels up.
	module := filepath.Join(dest, "lib/python3.11/lib-dynload/_ssl.cpython-311.so")
	assert.Equal(t, "$ORIGIN/../..", patcher.paths[module])

	// Data files pass through; read-only sources stay owner-writable copies.
	assert.FileExists(t, filepath.Join(dest, "lib/python3.11/os.py"))
	header, err := os.Stat(filepath.Join(dest, "include/python3.11/Python.h"))
	require.NoError(t, err)
	assert.NotZero(t, header.Mode()&0o200, "copies must be owner writable")

	assert.Equal(t, 4, result.BinariesPatched)
	assert.Len(t, patcher.order, 4)
	assert.Empty(t, result.Report.Skipped)
}

func TestExtractPreservesSymlinkTopology(t *testing.T) {
	img := fakeManylinux(t)
	dest := filepath.Join(t.TempDir(), "out")

	_, err := newExtractor(t, img, newFakePatcher()).Extract(context.Background(), dest)
	require.NoError(t, err)

	target, err := os.Readlink(filepath.Join(dest, "lib/libpython3.11.so"))
	require.NoError(t, err)
	assert.Equal(t, "libpython3.11.so.1.0", target)

	// Convenience aliases created next to the versioned interpreter.
	target, err = os.Readlink(filepath.Join(dest, "bin/python3"))
	require.NoError(t, err)
	assert.Equal(t, "python3.11", target)
	target, err = os.Readlink(filepath.Join(dest, "bin/python"))
	require.NoError(t, err)
	assert.Equal(t, "python3", target)
}

func TestExtractDestinationExists(t *testing.T) {
	img := fakeManylinux(t)
	dest := t.TempDir() // exists, even though empty

	_, err := newExtractor(t, img, newFakePatcher()).Extract(context.Background(), dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDestinationExists)

	entries, readErr := os.ReadDir(dest)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no writes may occur when the destination exists")
}

func TestExtractTagNotFound(t *testing.T) {
	img := fakeManylinux(t)
	e, err := New(Options{Image: img, Tag: "cp39-cp39", Patcher: newFakePatcher()})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	_, err = e.Extract(context.Background(), dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTagNotFound)
	assert.NoDirExists(t, dest, "resolution failures abort before any writes")
}

func TestExtractUnresolvedDependencyFailsBeforePatching(t *testing.T) {
	img := fakeManylinux(t)
	require.NoError(t, os.Remove(filepath.Join(img.Root, "lib64/libssl.so.3")))
	patcher := newFakePatcher()

	dest := filepath.Join(t.TempDir(), "out")
	_, err := newExtractor(t, img, patcher).Extract(context.Background(), dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnresolvedDependency)
	assert.Empty(t, patcher.order, "no binary may be patched after a failed resolution")
}

func TestExtractPatchFailureIsFailFast(t *testing.T) {
	img := fakeManylinux(t)
	patcher := newFakePatcher()
	// Plan order is sorted by Rel; failing on the second binary leaves
	// exactly the first one patched.
	patcher.failOn = "lib/libpython3.11.so.1.0"

	dest := filepath.Join(t.TempDir(), "out")
	_, err := newExtractor(t, img, patcher).Extract(context.Background(), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lib/libpython3.11.so.1.0")

	require.Len(t, patcher.order, 1)
	assert.True(t, strings.HasSuffix(patcher.order[0], "bin/python3.11"))
	assert.DirExists(t, dest, "partial destination is left for inspection")
}

func TestExtractValidationFailure(t *testing.T) {
	img := fakeManylinux(t)
	patcher := newFakePatcher()
	patcher.readErr = fmt.Errorf("short read")

	// SetSearchPath succeeds but validation cannot read back; extraction
	// must fail after patching.
	dest := filepath.Join(t.TempDir(), "out")
	_, err := newExtractor(t, img, patcher).Extract(context.Background(), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating")
}

func TestExtractDeterministicPatchOrder(t *testing.T) {
	first := newFakePatcher()
	second := newFakePatcher()

	img := fakeManylinux(t)
	base := t.TempDir()
	_, err := newExtractor(t, img, first).Extract(context.Background(), filepath.Join(base, "one"))
	require.NoError(t, err)
	_, err = newExtractor(t, img, second).Extract(context.Background(), filepath.Join(base, "two"))
	require.NoError(t, err)

	trim := func(paths []string, root string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			out[i] = strings.TrimPrefix(p, root)
		}
		return out
	}
	assert.Equal(t,
		trim(first.order, filepath.Join(base, "one")),
		trim(second.order, filepath.Join(base, "two")))
}

func TestNewValidatesOptions(t *testing.T) {
	img := fakeManylinux(t)

	_, err := New(Options{Tag: "cp311-cp311", Patcher: newFakePatcher()})
	require.Error(t, err)
	_, err = New(Options{Image: img, Patcher: newFakePatcher()})
	require.Error(t, err)
	_, err = New(Options{Image: img, Tag: "cp311-cp311"})
	require.Error(t, err)
}
