// pkg/plan/types.go
package plan

// OriginToken is the dynamic loader's placeholder for "the directory
// containing this binary". Search paths built around it keep working no
// matter where the output tree is installed.
const OriginToken = "$ORIGIN"

// Entry is the patch instruction for one relocated binary
type Entry struct {
	// Rel is the binary's path relative to the output root
	Rel string

	// SearchPath is the ordered list of loader search entries, each either
	// OriginToken or OriginToken + "/<relative dir>"
	SearchPath []string
}

// Plan maps every relocated binary to its loader search path. Entries are
// ordered by Rel so two runs over the same input produce identical plans.
type Plan struct {
	Entries []Entry
}
