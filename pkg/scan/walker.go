// pkg/scan/walker.go
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/manylinux-go/rcpr/pkg/logging"
)

// Walk builds the file set of an installation. Symlinks are recorded with
// their literal targets and never followed so the image's link topology
// (version aliases like python3 -> python3.11) survives extraction.
// Files carrying a corrupt ELF header are excluded and recorded in the
// set's report rather than silently dropped.
func Walk(install *image.Installation) (*Set, error) {
	log := logging.GetLogger("scan")
	set := NewSet()

	err := filepath.WalkDir(install.Prefix, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == install.Prefix || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(install.Prefix, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading link %s: %w", path, err)
			}
			set.Add(&FileEntry{
				Source:     path,
				Rel:        rel,
				Kind:       KindSymlink,
				LinkTarget: target,
			})
			return nil
		}

		if !d.Type().IsRegular() {
			// Sockets, devices and the like have no place in a runtime tree.
			set.skip(path, fmt.Sprintf("unsupported file type %v", d.Type()))
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry, err := ClassifyFile(path, rel, info.Mode())
		if err != nil {
			log.Warn().Str("file", path).Err(err).Msg("excluding unclassifiable file")
			set.skip(path, err.Error())
			return nil
		}
		set.Add(entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", install.Prefix, err)
	}

	log.Debug().
		Int("entries", len(set.entries)).
		Int("skipped", len(set.report.Skipped)).
		Str("prefix", install.Prefix).
		Msg("installation scanned")
	return set, nil
}
