// pkg/image/resolver.go
package image

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/manylinux-go/rcpr/pkg/core"
)

// TagDir is the conventional directory holding one entry per Python build
// in a Manylinux image. Entries are usually symlinks into opt/_internal.
const TagDir = "opt/python"

// Tags lists the Python build tags discoverable in the image, sorted.
func (m *Image) Tags() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.Root, TagDir))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", TagDir, err)
	}

	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		tags = append(tags, entry.Name())
	}
	sort.Strings(tags)
	return tags, nil
}

// Resolve locates the single installation matching tag. The tag may be an
// exact entry name under opt/python or a glob pattern; zero matches or more
// than one match are both errors, never a guess.
func (m *Image) Resolve(tag string) (*Installation, error) {
	tags, err := m.Tags()
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, candidate := range tags {
		ok, err := filepath.Match(tag, candidate)
		if err != nil {
			return nil, fmt.Errorf("invalid tag pattern %q: %w", tag, err)
		}
		if ok || candidate == tag {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q (available: %s)", core.ErrTagNotFound, tag, strings.Join(tags, ", "))
	case 1:
	default:
		return nil, fmt.Errorf("%w: %q matches %s", core.ErrAmbiguousTag, tag, strings.Join(matches, ", "))
	}

	prefix, err := m.resolvePrefix(matches[0])
	if err != nil {
		return nil, err
	}

	impl, version, err := parseInstallName(filepath.Base(prefix))
	if err != nil {
		return nil, fmt.Errorf("tag %q: %w", matches[0], err)
	}

	return &Installation{
		Tag:     matches[0],
		Prefix:  prefix,
		Impl:    impl,
		Version: version,
	}, nil
}

// resolvePrefix turns an opt/python entry into the absolute installation
// directory. Absolute link targets are re-rooted under the image root so a
// rootfs extracted anywhere still resolves inside itself.
func (m *Image) resolvePrefix(name string) (string, error) {
	entry := filepath.Join(m.Root, TagDir, name)

	info, err := os.Lstat(entry)
	if err != nil {
		return "", fmt.Errorf("inspecting %s: %w", entry, err)
	}

	if info.Mode()&os.ModeSymlink == 0 {
		if !info.IsDir() {
			return "", fmt.Errorf("tag entry %s is neither a directory nor a symlink", entry)
		}
		return entry, nil
	}

	target, err := os.Readlink(entry)
	if err != nil {
		return "", fmt.Errorf("reading link %s: %w", entry, err)
	}

	var prefix string
	if filepath.IsAbs(target) {
		prefix = filepath.Join(m.Root, strings.TrimPrefix(target, "/"))
	} else {
		prefix = filepath.Join(filepath.Dir(entry), target)
	}

	if info, err := os.Stat(prefix); err != nil {
		return "", fmt.Errorf("resolving %s -> %s: %w", entry, target, err)
	} else if !info.IsDir() {
		return "", fmt.Errorf("resolving %s -> %s: not a directory", entry, target)
	}
	return prefix, nil
}

// parseInstallName parses installation directory names like "cpython-3.11.9"
func parseInstallName(name string) (Impl, Version, error) {
	head, tail, found := strings.Cut(name, "-")
	if !found {
		return "", Version{}, fmt.Errorf("unrecognized installation name %q", name)
	}
	if Impl(head) != ImplCPython {
		return "", Version{}, fmt.Errorf("unsupported implementation %q", head)
	}
	version, err := ParseVersion(tail)
	if err != nil {
		return "", Version{}, err
	}
	return ImplCPython, version, nil
}

// LibraryPaths returns the ordered system directories searched when a
// binary's dependency lives outside the installation prefix. The order
// mirrors the loader search path the image was built with.
func (m *Image) LibraryPaths() []string {
	paths := []string{
		filepath.Join(m.Root, m.Arch.SystemLibDir()),
		filepath.Join(m.Root, "usr/local/lib"),
	}

	// Manylinux keeps its pinned OpenSSL outside the system directories.
	if ssl, _ := filepath.Glob(filepath.Join(m.Root, "opt/_internal/openssl-*")); len(ssl) > 0 {
		sort.Strings(ssl)
		paths = append(paths, filepath.Join(ssl[0], "lib"))
	}

	return paths
}
