// pkg/extract/extractor.go
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/image"
	"github.com/manylinux-go/rcpr/pkg/logging"
	"github.com/manylinux-go/rcpr/pkg/patch"
	"github.com/manylinux-go/rcpr/pkg/plan"
	"github.com/manylinux-go/rcpr/pkg/scan"
	"github.com/rs/zerolog"
)

// stage names the pipeline phases for logging and failure context
type stage string

const (
	stageResolving stage = "resolving"
	stageCopying   stage = "copying"
	stagePlanning  stage = "planning"
	stagePatching  stage = "patching"
	stageValidate  stage = "validating"
)

// Options configures an Extractor
type Options struct {
	// Image is the extracted Manylinux rootfs (required)
	Image *image.Image

	// Tag selects the Python build to extract (required)
	Tag string

	// Patcher rewrites loader metadata on relocated binaries (required)
	Patcher patch.Patcher

	// Excludelist overrides the embedded default when non-nil
	Excludelist *scan.Excludelist
}

// Extractor drives the end-to-end pipeline: resolve the tagged
// installation, scan and classify its files, copy them into a fresh
// destination, and patch every relocated binary with $ORIGIN-relative
// search paths. The source image is never modified.
type Extractor struct {
	img     *image.Image
	tag     string
	patcher patch.Patcher
	excl    *scan.Excludelist
	logger  zerolog.Logger
}

// Result summarizes a completed extraction
type Result struct {
	// Destination is the root of the produced runtime tree
	Destination string

	// Installation is the resolved source installation
	Installation *image.Installation

	FilesCopied     int
	SymlinksCreated int
	BinariesPatched int

	// Report carries files excluded during classification
	Report *scan.Report
}

// New creates an Extractor
func New(opts Options) (*Extractor, error) {
	if opts.Image == nil {
		return nil, fmt.Errorf("image is required")
	}
	if opts.Tag == "" {
		return nil, fmt.Errorf("tag is required")
	}
	if opts.Patcher == nil {
		return nil, fmt.Errorf("patcher is required")
	}

	excl := opts.Excludelist
	if excl == nil {
		excl = scan.DefaultExcludelist()
	}

	return &Extractor{
		img:     opts.Image,
		tag:     opts.Tag,
		patcher: opts.Patcher,
		excl:    excl,
		logger:  logging.GetLogger("extract"),
	}, nil
}

// Extract runs the pipeline into destination. The destination must not
// exist; it is created file by file and, on failure, left in place so the
// cause can be inspected. There is no resumption: a failed destination
// must be removed before retrying.
func (e *Extractor) Extract(ctx context.Context, destination string) (*Result, error) {
	if _, err := os.Lstat(destination); err == nil {
		return nil, &core.Error{
			Op:   "extract",
			Path: destination,
			Err:  core.ErrDestinationExists,
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("inspecting destination %s: %w", destination, err)
	}

	e.logger.Info().Str("stage", string(stageResolving)).Str("tag", e.tag).Msg("resolving installation")
	install, err := e.img.Resolve(e.tag)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("prefix", install.Prefix).Stringer("version", install.Version).Msg("installation resolved")

	set, err := scan.Walk(install)
	if err != nil {
		return nil, err
	}
	if err := set.ResolveClosure(e.img, e.excl); err != nil {
		return nil, err
	}

	result := &Result{
		Destination:  destination,
		Installation: install,
		Report:       set.Report(),
	}

	e.logger.Info().Str("stage", string(stageCopying)).Str("destination", destination).Msg("copying files")
	if err := e.copyAll(set, destination, result); err != nil {
		return nil, err
	}
	if err := e.linkAliases(set, install, destination, result); err != nil {
		return nil, err
	}

	e.logger.Info().Str("stage", string(stagePlanning)).Msg("planning relocation")
	relocations, err := plan.Build(set, e.excl)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("stage", string(stagePatching)).Int("binaries", len(relocations.Entries)).Msg("patching binaries")
	for _, entry := range relocations.Entries {
		target := filepath.Join(destination, filepath.FromSlash(entry.Rel))
		if err := e.patcher.SetSearchPath(ctx, target, entry.SearchPath); err != nil {
			return nil, &core.Error{Op: "patching", Path: entry.Rel, Err: err}
		}
		result.BinariesPatched++
	}

	e.logger.Info().Str("stage", string(stageValidate)).Msg("validating patched binaries")
	if err := e.validate(ctx, destination, relocations); err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("files", result.FilesCopied).
		Int("symlinks", result.SymlinksCreated).
		Int("patched", result.BinariesPatched).
		Msg("extraction complete")
	return result, nil
}

// copyAll materializes every scheduled entry under destination, preserving
// relative structure, symlink targets and permission bits. Copies are
// forced owner-writable: image files are frequently read-only, which would
// otherwise block the patch step.
func (e *Extractor) copyAll(set *scan.Set, destination string, result *Result) error {
	for _, entry := range set.Entries() {
		target := filepath.Join(destination, filepath.FromSlash(entry.Rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", entry.Rel, err)
		}

		switch entry.Kind {
		case scan.KindSymlink:
			if err := os.Symlink(entry.LinkTarget, target); err != nil {
				return fmt.Errorf("creating symlink %s -> %s: %w", entry.Rel, entry.LinkTarget, err)
			}
			result.SymlinksCreated++
		default:
			if err := copyFile(entry.Source, target, entry.Mode|0o200); err != nil {
				return fmt.Errorf("copying %s: %w", entry.Rel, err)
			}
			result.FilesCopied++
		}
	}
	return nil
}

// linkAliases creates the conventional interpreter aliases next to the
// versioned binary: bin/python3 -> python3.X and bin/python -> python3
func (e *Extractor) linkAliases(set *scan.Set, install *image.Installation, destination string, result *Result) error {
	interpreter := install.Interpreter()
	if !set.Contains(interpreter) {
		e.logger.Warn().Str("interpreter", interpreter).Msg("interpreter missing, skipping aliases")
		return nil
	}

	binDir := filepath.Join(destination, "bin")
	major := fmt.Sprintf("python%d", install.Version.Major)

	for _, alias := range []struct{ name, target string }{
		{major, "python" + install.Version.Short()},
		{"python", major},
	} {
		link := filepath.Join(binDir, alias.name)
		if _, err := os.Lstat(link); err == nil {
			// The image shipped its own alias; keep it.
			continue
		}
		if err := os.Symlink(alias.target, link); err != nil {
			return fmt.Errorf("creating alias %s -> %s: %w", alias.name, alias.target, err)
		}
		result.SymlinksCreated++
	}
	return nil
}

// validate re-reads every patched binary's search path through the patcher
// and compares it with the plan, confirming the postcondition that no
// binary kept an absolute build-time path.
func (e *Extractor) validate(ctx context.Context, destination string, relocations *plan.Plan) error {
	for _, entry := range relocations.Entries {
		target := filepath.Join(destination, filepath.FromSlash(entry.Rel))
		got, err := e.patcher.SearchPath(ctx, target)
		if err != nil {
			return &core.Error{Op: "validating", Path: entry.Rel, Err: err}
		}
		want := strings.Join(entry.SearchPath, ":")
		if got != want {
			return &core.Error{
				Op:   "validating",
				Path: entry.Rel,
				Err:  fmt.Errorf("runpath is %q, want %q", got, want),
			}
		}
	}
	return nil
}

func copyFile(source, target string, mode os.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// O_CREATE modes pass through the umask; make the bits authoritative.
	return os.Chmod(target, mode.Perm())
}
