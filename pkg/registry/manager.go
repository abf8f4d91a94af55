// pkg/registry/manager.go
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Downloader pulls a Manylinux image from a registry and lays its layers
// out as a root filesystem ready for extraction
type Downloader struct {
	client *Client
	logger zerolog.Logger
	quiet  bool
}

// DownloaderOptions configures a Downloader
type DownloaderOptions struct {
	// RegistryURL defaults to quay.io
	RegistryURL string

	// Quiet suppresses the per-layer progress bars
	Quiet bool
}

// NewDownloader creates a Downloader
func NewDownloader(opts DownloaderOptions) *Downloader {
	return &Downloader{
		client: NewClient(opts.RegistryURL),
		logger: logging.GetLogger("registry"),
		quiet:  opts.Quiet,
	}
}

// Pull downloads image:tag (e.g. "manylinux2014_x86_64", "latest") and
// extracts its layers, in manifest order, into destination. Layer blobs
// are digest-verified before extraction; the destination may exist and is
// layered over, matching how container runtimes assemble a rootfs.
func (d *Downloader) Pull(ctx context.Context, image, tag, destination string) error {
	repository := DefaultNamespace + "/" + image

	if err := d.client.Authenticate(ctx, repository); err != nil {
		return err
	}

	manifest, err := d.client.Manifest(ctx, repository, tag)
	if err != nil {
		return err
	}
	d.logger.Info().Str("image", image).Str("tag", tag).Int("layers", len(manifest.Layers)).Msg("pulling image")

	if err := os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("creating destination %s: %w", destination, err)
	}

	workdir, err := os.MkdirTemp("", "rcpr-pull-*")
	if err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}
	defer os.RemoveAll(workdir)

	for i, layer := range manifest.Layers {
		blob := filepath.Join(workdir, fmt.Sprintf("layer-%03d.tar", i))
		if err := d.fetchLayer(ctx, repository, layer, blob); err != nil {
			return err
		}

		d.logger.Debug().Str("digest", layer.Digest).Msg("extracting layer")
		if err := extractLayer(blob, layer.MediaType, destination); err != nil {
			return fmt.Errorf("extracting layer %s: %w", layer.Digest, err)
		}
		os.Remove(blob)
	}

	d.logger.Info().Str("destination", destination).Msg("image pulled")
	return nil
}

// fetchLayer streams one blob to disk, verifying its sha256 digest while
// writing. The file is only trusted after the digest matches.
func (d *Downloader) fetchLayer(ctx context.Context, repository string, layer Layer, target string) error {
	algo, want, found := strings.Cut(layer.Digest, ":")
	if !found || algo != "sha256" {
		return fmt.Errorf("unsupported digest %q", layer.Digest)
	}

	body, err := d.client.Blob(ctx, repository, layer.Digest)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("creating layer file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	writers := []io.Writer{f, hasher}
	if !d.quiet {
		bar := progressbar.DefaultBytes(layer.Size, "fetching "+want[:12])
		writers = append(writers, bar)
		defer bar.Close()
	}

	if _, err := io.Copy(io.MultiWriter(writers...), body); err != nil {
		return fmt.Errorf("downloading %s: %w", layer.Digest, err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if got != want {
		return &core.Error{
			Op:   "verifying layer",
			Path: layer.Digest,
			Err:  fmt.Errorf("%w: got sha256:%s", core.ErrDigestMismatch, got),
		}
	}
	return nil
}
