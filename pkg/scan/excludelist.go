// pkg/scan/excludelist.go
package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	_ "embed"
)

//go:embed share/excludelist
var defaultExcludelist []byte

// Excludelist holds shared library names that are expected to come from
// the host system and therefore neither copied nor resolved.
type Excludelist struct {
	names map[string]struct{}
}

// DefaultExcludelist returns the embedded manylinux policy list
func DefaultExcludelist() *Excludelist {
	excl, err := readExcludelist(bytes.NewReader(defaultExcludelist))
	if err != nil {
		// The embedded list is part of the build; a parse failure here is
		// a programming error.
		panic(err)
	}
	return excl
}

// LoadExcludelist reads an excludelist file (one name per line, '#' comments)
func LoadExcludelist(path string) (*Excludelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening excludelist: %w", err)
	}
	defer f.Close()

	excl, err := readExcludelist(f)
	if err != nil {
		return nil, fmt.Errorf("reading excludelist %s: %w", path, err)
	}
	return excl, nil
}

// NewExcludelist builds an Excludelist from explicit names
func NewExcludelist(names ...string) *Excludelist {
	excl := &Excludelist{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		excl.names[name] = struct{}{}
	}
	return excl
}

func readExcludelist(r io.Reader) (*Excludelist, error) {
	excl := &Excludelist{names: make(map[string]struct{})}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		excl.names[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return excl, nil
}

// Contains reports whether the library name is excluded
func (e *Excludelist) Contains(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.names[name]
	return ok
}

// Len returns the number of excluded names
func (e *Excludelist) Len() int {
	if e == nil {
		return 0
	}
	return len(e.names)
}
