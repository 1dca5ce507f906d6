// Package objfile opens compiled binaries and exposes their symbol tables.
//
// ELF and PE/COFF images are read with the standard debug packages; Mach-O
// images, thin or universal, are read with github.com/blacktop/go-macho.
// The container format is detected from the magic number.
//
// # Usage
//
//	f, err := objfile.Open(data)
//	if err != nil {
//	    return err // errors.Is(err, objfile.ErrBinaryFormat)
//	}
//	for sym := range f.Symbols() {
//	    fmt.Println(sym.Name, sym.Global)
//	}
//
// The reader never interprets names. An entry whose name cannot be read is
// still yielded, with HasName false.
package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
)

// MaxFileSize is the largest binary the producer reads into memory (1 GB).
const MaxFileSize = 1 << 30

// Format identifies the container format of a binary.
type Format int

const (
	// FormatUnknown is the zero value.
	FormatUnknown Format = iota
	// FormatELF is an ELF executable, shared object or relocatable object.
	FormatELF
	// FormatPE is a PE/COFF image.
	FormatPE
	// FormatMachO is a thin Mach-O image.
	FormatMachO
	// FormatMachOFat is a universal Mach-O binary; symbols come from one slice.
	FormatMachOFat
)

// String returns a string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatELF:
		return "elf"
	case FormatPE:
		return "pe"
	case FormatMachO:
		return "macho"
	case FormatMachOFat:
		return "macho-fat"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Kind is the coarse symbol type reported by the symbol table.
type Kind int

const (
	// KindUnknown covers entries whose type the table does not record.
	KindUnknown Kind = iota
	// KindFunc is executable code.
	KindFunc
	// KindObject is data.
	KindObject
	// KindSection is a section symbol.
	KindSection
	// KindFile is a source file symbol.
	KindFile
)

// Symbol is one symbol table entry. It is a transient view and is not retained
// by the reader.
type Symbol struct {
	// Name is the raw, possibly mangled, name as stored in the table.
	Name string

	// HasName is false when the entry's name could not be read.
	HasName bool

	// Global is true for symbols with external (non-local) binding.
	Global bool

	// Undefined is true for symbols imported from another module.
	Undefined bool

	Kind  Kind
	Value uint64
}

// symbolTable is implemented once per container format.
type symbolTable interface {
	symbols() iter.Seq[Symbol]
}

// File is an opened binary.
type File struct {
	format Format
	table  symbolTable
	arch   string
}

// Format returns the detected container format.
func (f *File) Format() Format {
	return f.format
}

// Arch returns the architecture of the image the symbols are read from.
func (f *File) Arch() string {
	return f.arch
}

// Symbols returns a single-pass sequence over the symbol table.
// A stripped binary yields an empty sequence.
func (f *File) Symbols() iter.Seq[Symbol] {
	return f.table.symbols()
}

var (
	elfMagic       = []byte("\x7fELF")
	peMagic        = []byte("MZ")
	machoMagics    = []uint32{0xfeedface, 0xfeedfacf, 0xcefaedfe, 0xcffaedfe}
	machoFatMagics = []uint32{0xcafebabe, 0xcafebabf}
)

// maxFatArches separates universal binaries from Java class files, which
// share the 0xcafebabe magic but store a version number where the slice
// count would be.
const maxFatArches = 32

// Detect returns the container format of data, or FormatUnknown.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, elfMagic):
		return FormatELF
	case bytes.HasPrefix(data, peMagic):
		return FormatPE
	}

	if len(data) < 8 {
		return FormatUnknown
	}
	magic := binary.BigEndian.Uint32(data)
	for _, m := range machoMagics {
		if magic == m {
			return FormatMachO
		}
	}
	for _, m := range machoFatMagics {
		if magic == m && binary.BigEndian.Uint32(data[4:]) < maxFatArches {
			return FormatMachOFat
		}
	}
	return FormatUnknown
}

// Options tune how a binary is opened.
type Options struct {
	// Arch selects the slice of a universal Mach-O binary by CPU name
	// (case-insensitive). Empty selects the first slice.
	Arch string
}

// Open detects the format of data and parses its symbol table.
// It returns an error matching ErrBinaryFormat if data is not a supported,
// parsable object file.
func Open(data []byte) (*File, error) {
	return OpenWithOptions(data, Options{})
}

// OpenWithOptions is Open with explicit options.
func OpenWithOptions(data []byte, opts Options) (*File, error) {
	format := Detect(data)

	var (
		table symbolTable
		arch  string
		err   error
	)
	switch format {
	case FormatELF:
		table, arch, err = openELF(data)
	case FormatPE:
		table, arch, err = openPE(data)
	case FormatMachO:
		table, arch, err = openMachO(data)
	case FormatMachOFat:
		table, arch, err = openMachOFat(data, opts.Arch)
	default:
		return nil, ErrUnrecognizedFormat
	}
	if err != nil {
		return nil, &FormatError{Format: format, Err: err}
	}

	return &File{format: format, table: table, arch: arch}, nil
}
