// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTagNotFound indicates no installation directory matched the tag
	ErrTagNotFound = errors.New("tag not found")

	// ErrAmbiguousTag indicates the tag matched more than one installation
	ErrAmbiguousTag = errors.New("ambiguous tag")

	// ErrDestinationExists indicates the output path already exists
	ErrDestinationExists = errors.New("destination exists")

	// ErrUnresolvedDependency indicates a declared shared library has no
	// counterpart in the extracted file set
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrAmbiguousDependency indicates a dependency name matched several
	// equally near libraries
	ErrAmbiguousDependency = errors.New("ambiguous dependency")

	// ErrPatchToolNotFound indicates the ELF patch tool is not installed
	// in any of the searched directories
	ErrPatchToolNotFound = errors.New("patch tool not found")

	// ErrDigestMismatch indicates a downloaded layer failed digest verification
	ErrDigestMismatch = errors.New("digest mismatch")
)

// Error wraps an error with the failing operation and path
type Error struct {
	Op   string // Operation that failed
	Path string // File or directory if applicable
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
