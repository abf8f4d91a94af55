// pkg/image/types.go
package image

import (
	"fmt"
	"strconv"
	"strings"
)

// Impl identifies a Python implementation found in the image
type Impl string

const (
	// ImplCPython is the only implementation shipped by Manylinux images today
	ImplCPython Impl = "cpython"
)

// Version is a Python version triple. Patch is kept as a string because
// pre-release builds carry suffixes such as "0a7".
type Version struct {
	Major int
	Minor int
	Patch string
}

// ParseVersion parses a dotted version string like "3.11.9"
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: want major.minor.patch", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("invalid major version in %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("invalid minor version in %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor, Patch: parts[2]}, nil
}

// Short returns the major.minor form used in binary and package names
// (e.g. "3.11" for bin/python3.11)
func (v Version) Short() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Long returns the full major.minor.patch form
func (v Version) Long() string {
	return fmt.Sprintf("%d.%d.%s", v.Major, v.Minor, v.Patch)
}

func (v Version) String() string {
	return v.Long()
}

// Image is an extracted Manylinux root filesystem on disk. It is treated
// as immutable: no operation writes under Root.
type Image struct {
	// Root is the absolute path of the extracted rootfs
	Root string

	// Arch selects architecture-dependent system library directories
	Arch Architecture
}

// New creates an Image over an extracted rootfs
func New(root string, arch Architecture) *Image {
	return &Image{Root: root, Arch: arch}
}

// Installation is one tagged Python build resolved inside an Image
type Installation struct {
	// Tag is the requested binary tag (e.g. "cp311-cp311")
	Tag string

	// Prefix is the absolute installation root inside the image
	// (e.g. <root>/opt/_internal/cpython-3.11.9)
	Prefix string

	Impl    Impl
	Version Version
}

// Interpreter returns the interpreter path relative to the installation
// prefix (e.g. "bin/python3.11")
func (i *Installation) Interpreter() string {
	return "bin/python" + i.Version.Short()
}
