// pkg/scan/closure_test.go
package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/manylinux-go/rcpr/internal/elftest"
	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closureImage builds an image whose installation depends on system
// libraries living outside the prefix: python -> libpython -> libssl ->
// libcrypto, with libssl under the pinned OpenSSL directory.
func closureImage(t *testing.T) (*image.Image, *image.Installation) {
	t.Helper()
	root := t.TempDir()

	prefix := filepath.Join(root, "opt/_internal/cpython-3.11.9")
	for _, dir := range []string{"bin", "lib"} {
		require.NoError(t, os.MkdirAll(filepath.Join(prefix, dir), 0o755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib64"), 0o755))
	ssl := filepath.Join(root, "opt/_internal/openssl-3.0.13/lib")
	require.NoError(t, os.MkdirAll(ssl, 0o755))

	require.NoError(t, elftest.WriteExecutable(
		filepath.Join(prefix, "bin/python3.11"), "libpython3.11.so.1.0", "libc.so.6"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(prefix, "lib/libpython3.11.so.1.0"), "libpython3.11.so.1.0",
		"libssl.so.3", "libc.so.6"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(ssl, "libssl.so.3"), "libssl.so.3", "libcrypto.so.3"))
	require.NoError(t, elftest.WriteLibrary(
		filepath.Join(ssl, "libcrypto.so.3"), "libcrypto.so.3", "libc.so.6"))

	version, err := image.ParseVersion("3.11.9")
	require.NoError(t, err)
	return image.New(root, image.ArchX86_64), &image.Installation{
		Tag:     "cp311-cp311",
		Prefix:  prefix,
		Impl:    image.ImplCPython,
		Version: version,
	}
}

func TestResolveClosure(t *testing.T) {
	img, install := closureImage(t)

	set, err := Walk(install)
	require.NoError(t, err)
	require.NoError(t, set.ResolveClosure(img, DefaultExcludelist()))

	// libssl and, transitively, libcrypto land under lib/; the excluded
	// libc never enters the set.
	assert.True(t, set.Contains("lib/libssl.so.3"))
	assert.True(t, set.Contains("lib/libcrypto.so.3"))
	assert.False(t, set.Contains("lib/libc.so.6"))
}

func TestResolveClosureUnresolved(t *testing.T) {
	img, install := closureImage(t)
	require.NoError(t, os.Remove(
		filepath.Join(img.Root, "opt/_internal/openssl-3.0.13/lib/libcrypto.so.3")))

	set, err := Walk(install)
	require.NoError(t, err)

	err = set.ResolveClosure(img, DefaultExcludelist())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "libcrypto.so.3")
}

func TestResolveClosureSearchOrder(t *testing.T) {
	img, install := closureImage(t)

	// A same-named library in lib64 must win over the OpenSSL directory,
	// which comes later in the search order.
	decoy := filepath.Join(img.Root, "lib64/libssl.so.3")
	require.NoError(t, elftest.WriteLibrary(decoy, "libssl.so.3", "libcrypto.so.3"))

	set, err := Walk(install)
	require.NoError(t, err)
	require.NoError(t, set.ResolveClosure(img, DefaultExcludelist()))

	libs := set.Lookup("libssl.so.3")
	require.Len(t, libs, 1)
	assert.Equal(t, decoy, libs[0].Source)
}
