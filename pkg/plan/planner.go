// pkg/plan/planner.go
package plan

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/scan"
)

// Build computes the relocation plan for every binary in the set. Each
// declared dependency must resolve to exactly one scheduled library; a
// missing or ambiguous dependency fails the plan rather than producing a
// silently broken runtime.
func Build(set *scan.Set, excl *scan.Excludelist) (*Plan, error) {
	p := &Plan{}

	for _, binary := range set.Binaries() {
		dirs, err := searchDirs(set, excl, binary)
		if err != nil {
			return nil, err
		}

		if len(dirs) == 0 {
			// No in-tree dependencies. The interpreter and C extension
			// modules still dlopen libraries at runtime, so everything is
			// pointed at the shared lib/ directory when one exists.
			if !set.HasLibDir(scan.ClosureLibDir) {
				continue
			}
			dirs = []string{relativeDir(path.Dir(binary.Rel), scan.ClosureLibDir)}
		}

		p.Entries = append(p.Entries, Entry{
			Rel:        binary.Rel,
			SearchPath: originEntries(dirs),
		})
	}

	sort.Slice(p.Entries, func(i, j int) bool { return p.Entries[i].Rel < p.Entries[j].Rel })
	return p, nil
}

// searchDirs returns the deduplicated, lexicographically sorted relative
// directories binary needs to reach every non-excluded dependency
func searchDirs(set *scan.Set, excl *scan.Excludelist, binary *scan.FileEntry) ([]string, error) {
	binDir := path.Dir(binary.Rel)
	seen := make(map[string]struct{})
	var dirs []string

	for _, name := range binary.Needed {
		if excl.Contains(name) {
			continue
		}

		dep, err := pickCandidate(set.Lookup(name), binDir, binary.Rel, name)
		if err != nil {
			return nil, err
		}

		dir := relativeDir(binDir, path.Dir(dep.Rel))
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// pickCandidate selects the library a dependency name resolves to. With
// several same-named candidates (version-aliased copies) the one nearest
// to the depending binary wins; an exact tie is refused, never guessed.
func pickCandidate(candidates []*scan.FileEntry, binDir, binRel, name string) (*scan.FileEntry, error) {
	switch len(candidates) {
	case 0:
		return nil, &core.Error{
			Op:   "planning relocation",
			Path: binRel,
			Err:  fmt.Errorf("%w: %s", core.ErrUnresolvedDependency, name),
		}
	case 1:
		return candidates[0], nil
	}

	best := make([]*scan.FileEntry, 0, 1)
	bestDist := -1
	for _, candidate := range candidates {
		dist := distance(binDir, path.Dir(candidate.Rel))
		switch {
		case bestDist < 0 || dist < bestDist:
			bestDist = dist
			best = append(best[:0], candidate)
		case dist == bestDist:
			best = append(best, candidate)
		}
	}

	if len(best) > 1 {
		rels := make([]string, len(best))
		for i, candidate := range best {
			rels[i] = candidate.Rel
		}
		sort.Strings(rels)
		return nil, &core.Error{
			Op:   "planning relocation",
			Path: binRel,
			Err:  fmt.Errorf("%w: %s found at %s", core.ErrAmbiguousDependency, name, strings.Join(rels, ", ")),
		}
	}
	return best[0], nil
}

// distance counts the path segments between two slash-separated directories
func distance(from, to string) int {
	rel := relativeDir(from, to)
	if rel == "." {
		return 0
	}
	return len(strings.Split(rel, "/"))
}

// relativeDir computes the slash-separated relative path between two
// directories expressed relative to the output root
func relativeDir(from, to string) string {
	if from == to {
		return "."
	}
	fromParts := splitDir(from)
	toParts := splitDir(to)

	common := 0
	for common < len(fromParts) && common < len(toParts) && fromParts[common] == toParts[common] {
		common++
	}

	var parts []string
	for range fromParts[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

func splitDir(dir string) []string {
	if dir == "." || dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// originEntries rewrites relative directories as loader search entries
func originEntries(dirs []string) []string {
	entries := make([]string, len(dirs))
	for i, dir := range dirs {
		if dir == "." {
			entries[i] = OriginToken
		} else {
			entries[i] = OriginToken + "/" + dir
		}
	}
	return entries
}
