// pkg/scan/types.go
package scan

import (
	"io/fs"
	"path"
	"sort"
)

// Kind classifies one entry of the installation tree
type Kind int

const (
	// KindFile is opaque data copied verbatim
	KindFile Kind = iota
	// KindExecutable is a dynamic ELF executable
	KindExecutable
	// KindLibrary is an ELF shared object
	KindLibrary
	// KindSymlink is a symbolic link preserved with its literal target
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindLibrary:
		return "library"
	case KindSymlink:
		return "symlink"
	default:
		return "file"
	}
}

// FileEntry is one file or symlink scheduled for extraction. Entries with
// an ELF kind additionally carry the dependency metadata read from the
// binary's dynamic section.
type FileEntry struct {
	// Source is the absolute path inside the image
	Source string

	// Rel is the path relative to the output root, always slash-separated
	Rel string

	Kind Kind

	// Mode holds the source permission bits (not the file type)
	Mode fs.FileMode

	// LinkTarget is the literal symlink target for KindSymlink entries
	LinkTarget string

	// Needed lists DT_NEEDED shared library names
	Needed []string

	// RunPath holds the existing DT_RUNPATH (or DT_RPATH) entries
	RunPath []string

	// SOName is the library's DT_SONAME, when declared
	SOName string
}

// IsBinary reports whether the entry carries patchable ELF metadata
func (e *FileEntry) IsBinary() bool {
	return e.Kind == KindExecutable || e.Kind == KindLibrary
}

// SkippedFile records a file excluded from extraction because its header
// could not be classified
type SkippedFile struct {
	Path   string
	Reason string
}

// Report collects non-fatal classification failures for the caller
type Report struct {
	Skipped []SkippedFile
}

// Set is the collection of entries scheduled for one extraction run
type Set struct {
	entries map[string]*FileEntry   // keyed by Rel
	byName  map[string][]*FileEntry // library basename -> entries
	report  Report
}

// NewSet returns an empty Set
func NewSet() *Set {
	return &Set{
		entries: make(map[string]*FileEntry),
		byName:  make(map[string][]*FileEntry),
	}
}

// Add schedules an entry, replacing any previous entry at the same Rel
func (s *Set) Add(entry *FileEntry) {
	if prev, ok := s.entries[entry.Rel]; ok && prev.Kind == KindLibrary {
		s.removeName(prev)
	}
	s.entries[entry.Rel] = entry
	if entry.Kind == KindLibrary {
		name := path.Base(entry.Rel)
		s.byName[name] = append(s.byName[name], entry)
	}
}

func (s *Set) removeName(entry *FileEntry) {
	name := path.Base(entry.Rel)
	kept := s.byName[name][:0]
	for _, e := range s.byName[name] {
		if e.Rel != entry.Rel {
			kept = append(kept, e)
		}
	}
	s.byName[name] = kept
}

// Lookup returns every scheduled shared library with the given filename
func (s *Set) Lookup(name string) []*FileEntry {
	return s.byName[name]
}

// Contains reports whether an entry is scheduled at rel
func (s *Set) Contains(rel string) bool {
	_, ok := s.entries[rel]
	return ok
}

// Entries returns all scheduled entries sorted by Rel
func (s *Set) Entries() []*FileEntry {
	out := make([]*FileEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out
}

// Binaries returns the ELF entries sorted by Rel
func (s *Set) Binaries() []*FileEntry {
	var out []*FileEntry
	for _, entry := range s.Entries() {
		if entry.IsBinary() {
			out = append(out, entry)
		}
	}
	return out
}

// HasLibDir reports whether any shared library is scheduled under dir
func (s *Set) HasLibDir(dir string) bool {
	for _, entries := range s.byName {
		for _, entry := range entries {
			if path.Dir(entry.Rel) == dir {
				return true
			}
		}
	}
	return false
}

// Report returns the classification failures recorded while building the set
func (s *Set) Report() *Report {
	return &s.report
}

func (s *Set) skip(path, reason string) {
	s.report.Skipped = append(s.report.Skipped, SkippedFile{Path: path, Reason: reason})
}
