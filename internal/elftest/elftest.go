// internal/elftest/elftest.go

// Package elftest writes minimal but genuinely parseable ELF64 files so
// tests exercise the real debug/elf path instead of mocks. The generated
// files carry a .dynamic section with DT_NEEDED / DT_RUNPATH / DT_SONAME
// entries backed by a .dynstr string table; executables additionally get a
// PT_INTERP program header. The binaries hold no machine code and cannot
// run, which is all the classifier needs.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

// Binary describes the ELF file to generate
type Binary struct {
	// Type is elf.ET_DYN for shared objects, elf.ET_EXEC for executables
	Type elf.Type

	// Interp adds a PT_INTERP program header, marking a dynamic executable
	// (position independent executables are ET_DYN plus an interpreter)
	Interp bool

	// Needed lists DT_NEEDED shared library names
	Needed []string

	// RunPath sets DT_RUNPATH when non-empty
	RunPath string

	// SOName sets DT_SONAME when non-empty
	SOName string
}

const (
	ehsize    = 64
	phentsize = 56
	shentsize = 64
	dynEntLen = 16

	interpPath = "/lib64/ld-linux-x86-64.so.2\x00"
)

// WriteLibrary generates a shared object at path
func WriteLibrary(path, soname string, needed ...string) error {
	return Write(path, Binary{Type: elf.ET_DYN, SOName: soname, Needed: needed})
}

// WriteExecutable generates a dynamic executable at path
func WriteExecutable(path string, needed ...string) error {
	return Write(path, Binary{Type: elf.ET_EXEC, Interp: true, Needed: needed})
}

// WriteCorrupt generates a file with an ELF magic but an unparseable header
func WriteCorrupt(path string) error {
	return os.WriteFile(path, []byte{0x7f, 'E', 'L', 'F', 0x09, 0x00, 0x00}, 0o644)
}

// Write generates the described ELF file at path
func Write(path string, desc Binary) error {
	if desc.Type == elf.ET_NONE {
		desc.Type = elf.ET_DYN
	}
	// .dynstr starts with the conventional NUL entry.
	dynstr := []byte{0}
	offsets := make(map[string]uint64)
	addString := func(s string) uint64 {
		if off, ok := offsets[s]; ok {
			return off
		}
		off := uint64(len(dynstr))
		offsets[s] = off
		dynstr = append(dynstr, []byte(s)...)
		dynstr = append(dynstr, 0)
		return off
	}

	type dyn struct {
		tag elf.DynTag
		val uint64
	}
	var dyns []dyn
	for _, name := range desc.Needed {
		dyns = append(dyns, dyn{elf.DT_NEEDED, addString(name)})
	}
	if desc.RunPath != "" {
		dyns = append(dyns, dyn{elf.DT_RUNPATH, addString(desc.RunPath)})
	}
	if desc.SOName != "" {
		dyns = append(dyns, dyn{elf.DT_SONAME, addString(desc.SOName)})
	}
	dyns = append(dyns, dyn{elf.DT_NULL, 0})

	phnum := 0
	if desc.Interp {
		phnum = 1
	}

	phoff := uint64(0)
	if phnum > 0 {
		phoff = ehsize
	}

	off := uint64(ehsize + phnum*phentsize)
	interpOff := off
	if desc.Interp {
		off += uint64(len(interpPath))
	}
	dynstrOff := off
	off += uint64(len(dynstr))
	dynOff := off
	off += uint64(len(dyns) * dynEntLen)
	shoff := off

	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	// ELF header.
	ident := make([]byte, 16)
	copy(ident, elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	buf.Write(ident)
	writeAll(buf, le,
		uint16(desc.Type),
		uint16(elf.EM_X86_64),
		uint32(elf.EV_CURRENT),
		uint64(0), // entry
		phoff,
		shoff,
		uint32(0), // flags
		uint16(ehsize),
		uint16(phentsize),
		uint16(phnum),
		uint16(shentsize),
		uint16(3), // shnum: NULL, .dynstr, .dynamic
		uint16(0), // shstrndx: no section name table
	)

	if desc.Interp {
		writeAll(buf, le,
			uint32(elf.PT_INTERP),
			uint32(elf.PF_R),
			interpOff, // offset
			interpOff, // vaddr
			interpOff, // paddr
			uint64(len(interpPath)),
			uint64(len(interpPath)),
			uint64(1), // align
		)
		buf.WriteString(interpPath)
	}

	buf.Write(dynstr)
	for _, d := range dyns {
		writeAll(buf, le, uint64(d.tag), d.val)
	}

	// Section headers: the null section, then .dynstr and .dynamic. The
	// dynamic section's Link field points at .dynstr.
	writeAll(buf, le, make([]byte, shentsize))
	writeSection(buf, le, uint32(elf.SHT_STRTAB), 0, dynstrOff, uint64(len(dynstr)), 0, 1, 0)
	writeSection(buf, le, uint32(elf.SHT_DYNAMIC), uint64(elf.SHF_ALLOC), dynOff,
		uint64(len(dyns)*dynEntLen), 1, 8, dynEntLen)

	return os.WriteFile(path, buf.Bytes(), 0o755)
}

func writeSection(buf *bytes.Buffer, le binary.ByteOrder, typ uint32, flags, off, size uint64, link uint32, align, entsize uint64) {
	writeAll(buf, le,
		uint32(0), // name
		typ,
		flags,
		off,  // vaddr mirrors the file offset
		off,  // offset
		size,
		link,
		uint32(0), // info
		align,
		entsize,
	)
}

func writeAll(buf *bytes.Buffer, le binary.ByteOrder, values ...interface{}) {
	for _, value := range values {
		if err := binary.Write(buf, le, value); err != nil {
			panic(err)
		}
	}
}
