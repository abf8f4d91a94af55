// pkg/registry/layers.go
package registry

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// extractLayer unpacks one layer tarball over destination. Compression is
// chosen from the layer media type; symlinks and hardlinks are recreated
// rather than followed, and extracted files are forced owner-writable so
// later layers (and the patch step) can override them.
func extractLayer(path, mediaType, destination string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening layer: %w", err)
	}
	defer f.Close()

	var tarReader *tar.Reader
	switch {
	case strings.HasSuffix(mediaType, ".tar.gzip") || strings.HasSuffix(mediaType, "+gzip"):
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzReader.Close()
		tarReader = tar.NewReader(gzReader)
	case strings.HasSuffix(mediaType, "+xz"):
		xzReader, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		tarReader = tar.NewReader(xzReader)
	default:
		tarReader = tar.NewReader(f)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		cleanPath := strings.TrimPrefix(header.Name, "./")
		if cleanPath == "" || cleanPath == "." {
			continue
		}
		// Whiteout markers delete files from lower layers; a rootfs pulled
		// for read-only extraction has nothing worth deleting.
		if strings.HasPrefix(filepath.Base(cleanPath), ".wh.") {
			continue
		}

		targetPath := filepath.Join(destination, cleanPath)
		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return fmt.Errorf("creating parent directory: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", targetPath, err)
			}

		case tar.TypeSymlink:
			os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", targetPath, header.Linkname, err)
			}

		case tar.TypeLink:
			os.Remove(targetPath)
			source := filepath.Join(destination, strings.TrimPrefix(header.Linkname, "./"))
			if err := os.Link(source, targetPath); err != nil {
				return fmt.Errorf("creating hardlink %s -> %s: %w", targetPath, header.Linkname, err)
			}

		case tar.TypeReg:
			mode := os.FileMode(header.Mode).Perm() | 0o200
			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("creating file %s: %w", targetPath, err)
			}

			written, err := io.Copy(outFile, tarReader)
			outFile.Close()
			if err != nil {
				return fmt.Errorf("writing file %s: %w", targetPath, err)
			}
			if written != header.Size {
				return fmt.Errorf("file size mismatch for %s: expected %d, got %d", targetPath, header.Size, written)
			}
			if err := os.Chmod(targetPath, mode); err != nil {
				return fmt.Errorf("setting mode on %s: %w", targetPath, err)
			}

		default:
			// Devices and FIFOs in base images have no use here.
			continue
		}
	}
	return nil
}
