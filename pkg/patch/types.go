// pkg/patch/types.go
package patch

import "context"

// Patcher rewrites the dynamic loader search path of an ELF file. The
// orchestrator depends on this contract only, so it can run against a
// recording fake in tests instead of a real external process.
type Patcher interface {
	// SetSearchPath replaces the file's loader search path with entries
	SetSearchPath(ctx context.Context, file string, entries []string) error

	// SearchPath reads the file's current loader search path, ":"-joined
	SearchPath(ctx context.Context, file string) (string, error)
}
