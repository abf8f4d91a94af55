// pkg/image/platform.go
package image

import (
	"fmt"
	"runtime"
)

// Architecture represents a Manylinux target architecture
type Architecture string

const (
	ArchX86_64  Architecture = "x86_64"  // x86 64-bit
	ArchI686    Architecture = "i686"    // x86 32-bit
	ArchAarch64 Architecture = "aarch64" // ARM 64-bit
)

// Architectures lists every supported architecture
var Architectures = []Architecture{ArchAarch64, ArchI686, ArchX86_64}

// ParseArchitecture converts a string to an Architecture
func ParseArchitecture(s string) (Architecture, error) {
	switch Architecture(s) {
	case ArchX86_64, ArchI686, ArchAarch64:
		return Architecture(s), nil
	}
	return "", fmt.Errorf("unsupported architecture: %q (supported: %v)", s, Architectures)
}

// DetectArchitecture maps the running system to a Manylinux architecture
func DetectArchitecture() (Architecture, error) {
	switch runtime.GOARCH {
	case "amd64":
		return ArchX86_64, nil
	case "386":
		return ArchI686, nil
	case "arm64":
		return ArchAarch64, nil
	}
	return "", fmt.Errorf("no manylinux architecture for %s/%s", runtime.GOOS, runtime.GOARCH)
}

func (a Architecture) String() string {
	return string(a)
}

// SystemLibDir returns the primary system library directory for the
// architecture, relative to the image root.
func (a Architecture) SystemLibDir() string {
	if a == ArchI686 {
		return "lib"
	}
	return "lib64"
}
