// rcpr.go
package rcpr

import (
	"fmt"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/extract"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/manylinux-go/rcpr/pkg/patch"
	"github.com/manylinux-go/rcpr/pkg/registry"
	"github.com/manylinux-go/rcpr/pkg/scan"
)

// Re-export core types for convenience
type (
	Architecture = image.Architecture
	Config       = core.Config
	Extractor    = extract.Extractor
	Image        = image.Image
	Installation = image.Installation
	Patcher      = patch.Patcher
	Result       = extract.Result
)

// Re-export architecture constants
const (
	ArchX86_64  = image.ArchX86_64
	ArchI686    = image.ArchI686
	ArchAarch64 = image.ArchAarch64
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// NewImage creates an Image over an extracted Manylinux rootfs
func NewImage(root string, arch Architecture) *Image {
	return image.New(root, arch)
}

// NewExtractor wires an Extractor from configuration: the patch tool is
// located, the excludelist loaded (or the embedded default used), and the
// image opened for the given architecture.
func NewExtractor(cfg *Config, root, tag string) (*Extractor, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}

	arch, err := resolveArch(cfg)
	if err != nil {
		return nil, err
	}

	tool, err := patch.NewTool(cfg.Patchelf)
	if err != nil {
		return nil, err
	}

	var excl *scan.Excludelist
	if cfg.Excludelist != "" {
		if excl, err = scan.LoadExcludelist(cfg.Excludelist); err != nil {
			return nil, err
		}
	}

	return extract.New(extract.Options{
		Image:       image.New(root, arch),
		Tag:         tag,
		Patcher:     tool,
		Excludelist: excl,
	})
}

// NewDownloader creates an image downloader from configuration
func NewDownloader(cfg *Config, quiet bool) *registry.Downloader {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	return registry.NewDownloader(registry.DownloaderOptions{
		RegistryURL: cfg.RegistryURL,
		Quiet:       quiet,
	})
}

func resolveArch(cfg *Config) (Architecture, error) {
	if cfg.Arch != "" {
		arch, err := image.ParseArchitecture(cfg.Arch)
		if err != nil {
			return "", fmt.Errorf("config arch: %w", err)
		}
		return arch, nil
	}
	return image.DetectArchitecture()
}
