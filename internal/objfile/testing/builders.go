// Package objfiletesting builds minimal in-memory object files for tests.
//
// The images contain only what a symbol table reader needs: headers, a symbol
// table and its string table. They are not loadable.
package objfiletesting

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Sym describes one symbol table entry.
type Sym struct {
	Name      string
	Global    bool
	Func      bool
	Undefined bool
	Value     uint64

	// BadName points the entry's name outside the string table (ELF only).
	BadName bool

	// Debug marks the entry as a debugger (stab) entry (Mach-O only).
	Debug bool
}

// Mach-O CPU types.
const (
	CPUAmd64 uint32 = 0x01000007
	CPUArm64 uint32 = 0x0100000c
)

// WriteFile stores data under dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, data, 0o644) //nolint:gosec // test helper: 0644 is intentional for test files
	require.NoError(t, err)
	return path
}

// ELF returns a 64-bit little-endian x86-64 executable whose .symtab holds syms.
func ELF(syms ...Sym) []byte {
	return buildELF(elf.SHT_SYMTAB, ".symtab", ".strtab", syms)
}

// DynamicELF returns an ELF image that only has a .dynsym table, as left by strip.
func DynamicELF(syms ...Sym) []byte {
	return buildELF(elf.SHT_DYNSYM, ".dynsym", ".dynstr", syms)
}

// StrippedELF returns an ELF image without any symbol table.
func StrippedELF() []byte {
	return buildELF(elf.SHT_NULL, "", "", nil)
}

const (
	elfHeaderSize  = 64
	elfShdrSize    = 64
	elfSymSize     = 24
	elfTextSize    = 16
	elfBadNameOffs = 0x7fffffff
)

func buildELF(symType elf.SectionType, symName, strName string, syms []Sym) []byte {
	le := binary.LittleEndian

	// Names: null, .text, symbol table, string table, .shstrtab.
	shstr := []byte{0}
	nameOff := func(name string) uint32 {
		off := uint32(len(shstr))
		shstr = append(append(shstr, name...), 0)
		return off
	}
	textName := nameOff(".text")
	var symNameOff, strNameOff uint32
	if symType != elf.SHT_NULL {
		symNameOff = nameOff(symName)
		strNameOff = nameOff(strName)
	}
	shstrName := nameOff(".shstrtab")

	strtab := []byte{0}
	symtab := make([]byte, elfSymSize) // index 0 is the null symbol
	for _, s := range syms {
		var entry [elfSymSize]byte
		nameIdx := uint32(len(strtab))
		if s.BadName {
			nameIdx = elfBadNameOffs
		} else {
			strtab = append(append(strtab, s.Name...), 0)
		}
		bind := elf.STB_LOCAL
		if s.Global {
			bind = elf.STB_GLOBAL
		}
		typ := elf.STT_OBJECT
		if s.Func {
			typ = elf.STT_FUNC
		}
		shndx := uint16(1)
		if s.Undefined {
			shndx = uint16(elf.SHN_UNDEF)
		}
		le.PutUint32(entry[0:], nameIdx)
		entry[4] = elf.ST_INFO(bind, typ)
		le.PutUint16(entry[6:], shndx)
		le.PutUint64(entry[8:], s.Value)
		symtab = append(symtab, entry[:]...)
	}

	textOff := uint64(elfHeaderSize)
	symOff := textOff + elfTextSize
	strOff := symOff + uint64(len(symtab))
	shstrOff := strOff + uint64(len(strtab))
	shOff := align8(shstrOff + uint64(len(shstr)))

	type shdr struct {
		name, typ          uint32
		flags, off, size   uint64
		link, info         uint32
		addralign, entsize uint64
	}
	sections := []shdr{
		{},
		{name: textName, typ: uint32(elf.SHT_PROGBITS), flags: uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR), off: textOff, size: elfTextSize, addralign: 16},
	}
	shstrndx := uint16(2)
	if symType != elf.SHT_NULL {
		sections = append(sections,
			shdr{name: symNameOff, typ: uint32(symType), off: symOff, size: uint64(len(symtab)), link: 3, info: 1, addralign: 8, entsize: elfSymSize},
			shdr{name: strNameOff, typ: uint32(elf.SHT_STRTAB), off: strOff, size: uint64(len(strtab)), addralign: 1},
		)
		shstrndx = 4
	}
	sections = append(sections, shdr{name: shstrName, typ: uint32(elf.SHT_STRTAB), off: shstrOff, size: uint64(len(shstr)), addralign: 1})

	buf := make([]byte, shOff+uint64(len(sections))*elfShdrSize)

	copy(buf, elf.ELFMAG)
	buf[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	buf[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	buf[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	le.PutUint16(buf[16:], uint16(elf.ET_EXEC))
	le.PutUint16(buf[18:], uint16(elf.EM_X86_64))
	le.PutUint32(buf[20:], uint32(elf.EV_CURRENT))
	le.PutUint64(buf[40:], shOff)
	le.PutUint16(buf[52:], elfHeaderSize)
	le.PutUint16(buf[54:], 56)
	le.PutUint16(buf[58:], elfShdrSize)
	le.PutUint16(buf[60:], uint16(len(sections)))
	le.PutUint16(buf[62:], shstrndx)

	if symType != elf.SHT_NULL {
		copy(buf[symOff:], symtab)
		copy(buf[strOff:], strtab)
	}
	copy(buf[shstrOff:], shstr)

	for i, s := range sections {
		h := buf[shOff+uint64(i)*elfShdrSize:]
		le.PutUint32(h[0:], s.name)
		le.PutUint32(h[4:], s.typ)
		le.PutUint64(h[8:], s.flags)
		le.PutUint64(h[24:], s.off)
		le.PutUint64(h[32:], s.size)
		le.PutUint32(h[40:], s.link)
		le.PutUint32(h[44:], s.info)
		le.PutUint64(h[48:], s.addralign)
		le.PutUint64(h[56:], s.entsize)
	}

	return buf
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// PE returns an x86-64 PE image whose COFF symbol table holds syms. Names
// longer than eight bytes are stored in the string table.
func PE(syms ...Sym) []byte {
	const (
		peSigOff     = 0x40
		fileHdrSize  = 20
		coffSymSize  = 18
		machineAMD64 = 0x8664
	)
	le := binary.LittleEndian

	symOff := peSigOff + 4 + fileHdrSize
	strtab := []byte{0, 0, 0, 0} // size prefix, filled below
	table := make([]byte, 0, len(syms)*coffSymSize)
	for _, s := range syms {
		var entry [coffSymSize]byte
		if len(s.Name) <= 8 {
			copy(entry[0:8], s.Name)
		} else {
			le.PutUint32(entry[4:], uint32(len(strtab)))
			strtab = append(append(strtab, s.Name...), 0)
		}
		le.PutUint32(entry[8:], uint32(s.Value))
		section := uint16(1)
		if s.Undefined {
			section = 0
		}
		le.PutUint16(entry[12:], section)
		if s.Func {
			le.PutUint16(entry[14:], 0x20)
		}
		entry[16] = 3 // IMAGE_SYM_CLASS_STATIC
		if s.Global {
			entry[16] = 2 // IMAGE_SYM_CLASS_EXTERNAL
		}
		table = append(table, entry[:]...)
	}
	le.PutUint32(strtab, uint32(len(strtab)))

	var buf bytes.Buffer
	dos := make([]byte, peSigOff)
	copy(dos, "MZ")
	le.PutUint32(dos[0x3c:], peSigOff)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	hdr := make([]byte, fileHdrSize)
	le.PutUint16(hdr[0:], machineAMD64)
	le.PutUint32(hdr[8:], uint32(symOff))
	le.PutUint32(hdr[12:], uint32(len(syms)))
	buf.Write(hdr)

	buf.Write(table)
	buf.Write(strtab)

	// debug/pe reads a 96-byte DOS header unconditionally.
	for buf.Len() < 96 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// Mach-O nlist type bits.
const (
	machoNExt  = 0x01
	machoNSect = 0x0e
	machoNFun  = 0x24
)

// MachO returns a 64-bit little-endian Mach-O executable for cpu with a
// single LC_SYMTAB load command. Mach-O symbol names carry a leading
// underscore; syms are stored exactly as given.
func MachO(cpu uint32, syms ...Sym) []byte {
	return buildMachO(cpu, nil, syms)
}

// MachOWithCommands is MachO with extra raw load commands placed after
// LC_SYMTAB. Each command must carry its own cmd and cmdsize fields.
func MachOWithCommands(cpu uint32, commands [][]byte, syms ...Sym) []byte {
	return buildMachO(cpu, commands, syms)
}

// LoadCommand returns a load command of the given type padded to size bytes.
func LoadCommand(cmd uint32, size int) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint32(b[0:], cmd)
	binary.LittleEndian.PutUint32(b[4:], uint32(size))
	return b
}

func buildMachO(cpu uint32, extra [][]byte, syms []Sym) []byte {
	const (
		headerSize = 32
		symtabCmd  = 24
		nlistSize  = 16
		lcSymtab   = 2
		mhExecute  = 2
	)
	le := binary.LittleEndian

	strtab := []byte{' ', 0}
	nlists := make([]byte, 0, len(syms)*nlistSize)
	for _, s := range syms {
		var entry [nlistSize]byte
		le.PutUint32(entry[0:], uint32(len(strtab)))
		strtab = append(append(strtab, s.Name...), 0)

		var typ byte
		switch {
		case s.Debug:
			typ = machoNFun
		case s.Undefined:
			typ = 0
		default:
			typ = machoNSect
			entry[5] = 1
		}
		if s.Global && !s.Debug {
			typ |= machoNExt
		}
		entry[4] = typ
		le.PutUint64(entry[8:], s.Value)
		nlists = append(nlists, entry[:]...)
	}
	for len(strtab)%8 != 0 {
		strtab = append(strtab, 0)
	}

	cmds := make([]byte, symtabCmd)
	for _, c := range extra {
		cmds = append(cmds, c...)
	}

	symOff := headerSize + len(cmds)
	strOff := symOff + len(nlists)

	buf := make([]byte, strOff+len(strtab))
	le.PutUint32(buf[0:], 0xfeedfacf)
	le.PutUint32(buf[4:], cpu)
	le.PutUint32(buf[8:], 3)
	le.PutUint32(buf[12:], mhExecute)
	le.PutUint32(buf[16:], uint32(1+len(extra)))
	le.PutUint32(buf[20:], uint32(len(cmds)))

	le.PutUint32(cmds[0:], lcSymtab)
	le.PutUint32(cmds[4:], symtabCmd)
	le.PutUint32(cmds[8:], uint32(symOff))
	le.PutUint32(cmds[12:], uint32(len(syms)))
	le.PutUint32(cmds[16:], uint32(strOff))
	le.PutUint32(cmds[20:], uint32(len(strtab)))
	copy(buf[headerSize:], cmds)

	copy(buf[symOff:], nlists)
	copy(buf[strOff:], strtab)
	return buf
}

// FatMachO wraps thin Mach-O images built by MachO into a universal binary.
func FatMachO(slices ...[]byte) []byte {
	const (
		fatHeaderSize = 8
		fatArchSize   = 20
		alignShift    = 12
	)
	be := binary.BigEndian

	offset := uint32(1) << alignShift
	header := make([]byte, fatHeaderSize+len(slices)*fatArchSize)
	be.PutUint32(header[0:], 0xcafebabe)
	be.PutUint32(header[4:], uint32(len(slices)))

	var body bytes.Buffer
	for i, s := range slices {
		arch := header[fatHeaderSize+i*fatArchSize:]
		be.PutUint32(arch[0:], binary.LittleEndian.Uint32(s[4:]))
		be.PutUint32(arch[4:], binary.LittleEndian.Uint32(s[8:]))
		be.PutUint32(arch[8:], offset)
		be.PutUint32(arch[12:], uint32(len(s)))
		be.PutUint32(arch[16:], alignShift)

		body.Write(s)
		size := (uint32(len(s)) + (1 << alignShift) - 1) &^ ((1 << alignShift) - 1)
		body.Write(make([]byte, int(size)-len(s)))
		offset += size
	}

	buf := make([]byte, 1<<alignShift, (1<<alignShift)+body.Len())
	copy(buf, header)
	return append(buf, body.Bytes()...)
}
