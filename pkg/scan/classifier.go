// pkg/scan/classifier.go
package scan

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// ClassifyFile inspects the regular file at source and builds its entry.
// Non-ELF files come back as KindFile. A file that carries the ELF magic
// but cannot be parsed is a classification error the caller must record.
func ClassifyFile(source, rel string, mode fs.FileMode) (*FileEntry, error) {
	isELF, err := sniffELF(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	entry := &FileEntry{
		Source: source,
		Rel:    rel,
		Kind:   KindFile,
		Mode:   mode.Perm(),
	}
	if !isELF {
		return entry, nil
	}

	f, err := elf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("parsing ELF %s: %w", source, err)
	}
	defer f.Close()

	entry.Kind = classifyELF(f)

	if entry.Needed, err = f.ImportedLibraries(); err != nil {
		return nil, fmt.Errorf("reading dependencies of %s: %w", source, err)
	}

	// DT_RUNPATH supersedes the legacy DT_RPATH when both are present.
	entry.RunPath, err = f.DynString(elf.DT_RUNPATH)
	if err != nil {
		return nil, fmt.Errorf("reading runpath of %s: %w", source, err)
	}
	if len(entry.RunPath) == 0 {
		if entry.RunPath, err = f.DynString(elf.DT_RPATH); err != nil {
			return nil, fmt.Errorf("reading rpath of %s: %w", source, err)
		}
	}

	if soname, err := f.DynString(elf.DT_SONAME); err == nil && len(soname) > 0 {
		entry.SOName = soname[0]
	}

	return entry, nil
}

// classifyELF distinguishes executables from shared objects. Position
// independent executables are ET_DYN like libraries, so the presence of a
// program interpreter is what marks them as executables.
func classifyELF(f *elf.File) Kind {
	if f.Type == elf.ET_EXEC {
		return KindExecutable
	}
	for _, prog := range f.Progs {
		if prog.Type == elf.PT_INTERP {
			return KindExecutable
		}
	}
	return KindLibrary
}

func sniffELF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(elfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Too short to be ELF, opaque data.
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(head, elfMagic), nil
}
