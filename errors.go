// errors.go
package rcpr

import "github.com/manylinux-go/rcpr/pkg/core"

// Re-export error sentinels so callers can match failures with errors.Is
// without importing pkg/core
var (
	ErrTagNotFound          = core.ErrTagNotFound
	ErrAmbiguousTag         = core.ErrAmbiguousTag
	ErrDestinationExists    = core.ErrDestinationExists
	ErrUnresolvedDependency = core.ErrUnresolvedDependency
	ErrAmbiguousDependency  = core.ErrAmbiguousDependency
	ErrPatchToolNotFound    = core.ErrPatchToolNotFound
	ErrDigestMismatch       = core.ErrDigestMismatch
)

// Error wraps an error with the failing operation and path
type Error = core.Error
