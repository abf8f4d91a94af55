// pkg/scan/closure.go
package scan

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/manylinux-go/rcpr/pkg/logging"
)

// ClosureLibDir is where libraries pulled in from outside the installation
// prefix land in the output tree
const ClosureLibDir = "lib"

// ResolveClosure completes the set with the shared libraries its binaries
// depend on but that live outside the installation prefix, searching the
// image's system library directories. Found libraries are scheduled under
// lib/ and their own dependencies are resolved recursively. A dependency
// found nowhere makes the runtime non-relocatable and fails the scan.
func (s *Set) ResolveClosure(img *image.Image, excl *Excludelist) error {
	log := logging.GetLogger("scan")
	searchPaths := img.LibraryPaths()

	queue := s.Binaries()
	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		for _, name := range entry.Needed {
			if excl.Contains(name) {
				continue
			}
			if len(s.Lookup(name)) > 0 {
				continue
			}

			source, err := locateLibrary(searchPaths, name)
			if err != nil {
				return &core.Error{
					Op:   "resolving dependency",
					Path: entry.Rel,
					Err:  fmt.Errorf("%w: %s (searched %v)", core.ErrUnresolvedDependency, name, searchPaths),
				}
			}

			// The located path may itself be a version alias; classify the
			// real file so the copy carries content, not a dangling link.
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("inspecting dependency %s: %w", source, err)
			}
			dep, err := ClassifyFile(source, path.Join(ClosureLibDir, name), info.Mode())
			if err != nil {
				return fmt.Errorf("classifying dependency %s of %s: %w", name, entry.Rel, err)
			}
			if !dep.IsBinary() {
				return fmt.Errorf("dependency %s of %s resolved to non-library %s", name, entry.Rel, source)
			}

			log.Debug().Str("library", name).Str("source", source).Msg("dependency added to closure")
			s.Add(dep)
			queue = append(queue, dep)
		}
	}
	return nil
}

// locateLibrary finds a library by qualified name in ordered search dirs,
// first existing match wins
func locateLibrary(searchPaths []string, name string) (string, error) {
	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("library %s not found", name)
}
