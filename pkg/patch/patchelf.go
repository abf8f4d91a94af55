// pkg/patch/patchelf.go
package patch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/logging"
	"github.com/rs/zerolog"
)

// ToolName is the external ELF patcher this package orchestrates. Its
// exact version affects compatibility with new ELF layouts and should be
// pinned by the environment that installs it.
const ToolName = "patchelf"

// Tool is the Patcher backed by the patchelf executable
type Tool struct {
	path   string
	logger zerolog.Logger
}

// NewTool wraps the patchelf binary at path. If path is empty the default
// candidate directories are searched.
func NewTool(path string) (*Tool, error) {
	located, err := Locate(path)
	if err != nil {
		return nil, err
	}
	return &Tool{
		path:   located,
		logger: logging.GetLogger("patch"),
	}, nil
}

// Path returns the located executable
func (t *Tool) Path() string {
	return t.path
}

// Locate finds the patchelf executable. An explicit path wins but must
// exist; otherwise the default candidates are searched in order.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%s at %s: %w", ToolName, explicit, err)
		}
		return explicit, nil
	}
	return LocateIn(defaultCandidates())
}

// LocateIn searches ordered candidate directories, first existing
// executable match wins
func LocateIn(dirs []string) (string, error) {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, ToolName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s not in any of %s", core.ErrPatchToolNotFound, ToolName, strings.Join(dirs, ", "))
}

func defaultCandidates() []string {
	// Rocky Linux installs patchelf into /bin.
	dirs := []string{"/bin"}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "bin"))
	}
	return dirs
}

// SetSearchPath rewrites the file's runpath to the ":"-joined entries.
// The current value is read first and an already-correct file is left
// untouched.
func (t *Tool) SetSearchPath(ctx context.Context, file string, entries []string) error {
	desired := strings.Join(entries, ":")

	current, err := t.SearchPath(ctx, file)
	if err != nil {
		return err
	}
	if current == desired {
		t.logger.Trace().Str("file", file).Msg("runpath already correct")
		return nil
	}

	if _, err := t.run(ctx, "--set-rpath", desired, file); err != nil {
		return err
	}
	t.logger.Debug().Str("file", file).Str("runpath", desired).Msg("runpath rewritten")
	return nil
}

// SearchPath reads the file's current runpath
func (t *Tool) SearchPath(ctx context.Context, file string) (string, error) {
	out, err := t.run(ctx, "--print-rpath", file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (t *Tool) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s: %w (%s)", ToolName, strings.Join(args, " "), err,
			strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
