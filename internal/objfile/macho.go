package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"strings"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
)

// Mach-O layout, see <mach-o/loader.h> and <mach-o/fat.h>.
const (
	machoHeaderSize32 = 28
	machoHeaderSize64 = 32
	machoNlistSize32  = 12
	machoNlistSize64  = 16
	machoLoadCmdSize  = 8
	machoSymtabSize   = 24

	fatHeaderSize = 8
	fatArchSize32 = 20
	fatArchSize64 = 32
	fatMagic64    = 0xcafebabf
)

type machoTable struct {
	syms []macho.Symbol
}

// symtabOnly limits go-macho to the symbol table. Other load commands are
// neither decoded nor reported.
var symtabOnly = []types.LoadCmd{types.LC_SYMTAB}

func openMachO(data []byte) (symbolTable, string, error) {
	if err := checkMachOBounds(data); err != nil {
		return nil, "", err
	}

	// With a config, go-macho needs the section reader supplied. The address
	// converter is only consulted for segments, which are not loaded.
	r := bytes.NewReader(data)
	m, err := macho.NewFile(r, macho.FileConfig{
		LoadIncluding: symtabOnly,
		SectionReader: types.NewCustomSectionReader(r, &types.VMAddrConverter{}, 0, int64(len(data))),
	})
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = m.Close() }()

	return newMachoTable(m), m.CPU.String(), nil
}

type fatSlice struct {
	cpu  types.CPU
	data []byte
}

// openMachOFat reads the slice whose CPU matches arch, or the first slice
// when arch is empty.
func openMachOFat(data []byte, arch string) (symbolTable, string, error) {
	slices, err := fatSlices(data)
	if err != nil {
		return nil, "", err
	}

	chosen := slices[0]
	if arch != "" {
		available := make([]string, 0, len(slices))
		found := false
		for _, s := range slices {
			name := s.cpu.String()
			if strings.EqualFold(name, arch) {
				chosen, found = s, true
				break
			}
			available = append(available, name)
		}
		if !found {
			return nil, "", fmt.Errorf("%w: %q (available: %s)", ErrArchNotFound, arch, strings.Join(available, ", "))
		}
	}

	table, _, err := openMachO(chosen.data)
	if err != nil {
		return nil, "", fmt.Errorf("slice %s: %w", chosen.cpu, err)
	}
	return table, chosen.cpu.String(), nil
}

// fatSlices splits a universal binary into its thin images.
func fatSlices(data []byte) ([]fatSlice, error) {
	if len(data) < fatHeaderSize {
		return nil, ErrTruncated
	}
	be := binary.BigEndian
	archSize := fatArchSize32
	if be.Uint32(data) == fatMagic64 {
		archSize = fatArchSize64
	}

	count := uint64(be.Uint32(data[4:]))
	if count == 0 {
		return nil, ErrEmptyFatFile
	}
	if fatHeaderSize+count*uint64(archSize) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d architecture entries", ErrTruncated, count)
	}

	slices := make([]fatSlice, 0, count)
	for i := range count {
		entry := data[fatHeaderSize+i*uint64(archSize):]
		var offset, size uint64
		if archSize == fatArchSize64 {
			offset, size = be.Uint64(entry[8:]), be.Uint64(entry[16:])
		} else {
			offset, size = uint64(be.Uint32(entry[8:])), uint64(be.Uint32(entry[12:]))
		}
		if !fits(offset, size, len(data)) {
			return nil, fmt.Errorf("%w: slice %d at %#x+%#x", ErrTruncated, i, offset, size)
		}
		slices = append(slices, fatSlice{
			cpu:  types.CPU(be.Uint32(entry)),
			data: data[offset : offset+size],
		})
	}
	return slices, nil
}

// checkMachOBounds verifies that the load command area and the symbol and
// string tables lie inside data. go-macho sizes its buffers from these
// header fields before reading.
func checkMachOBounds(data []byte) error {
	if len(data) < machoHeaderSize32 {
		return ErrTruncated
	}

	var bo binary.ByteOrder = binary.BigEndian
	if m := binary.LittleEndian.Uint32(data); m == uint32(types.Magic32) || m == uint32(types.Magic64) {
		bo = binary.LittleEndian
	}
	headerSize, nlistSize := uint64(machoHeaderSize32), uint64(machoNlistSize32)
	if bo.Uint32(data) == uint32(types.Magic64) {
		headerSize, nlistSize = machoHeaderSize64, machoNlistSize64
	}
	if uint64(len(data)) < headerSize {
		return ErrTruncated
	}

	ncmds := uint64(bo.Uint32(data[16:]))
	sizeofcmds := uint64(bo.Uint32(data[20:]))
	if !fits(headerSize, sizeofcmds, len(data)) || ncmds*machoLoadCmdSize > sizeofcmds {
		return fmt.Errorf("%w: %d load commands in %d bytes", ErrTruncated, ncmds, sizeofcmds)
	}

	cmds := data[headerSize : headerSize+sizeofcmds]
	for range ncmds {
		if len(cmds) < machoLoadCmdSize {
			return fmt.Errorf("%w: load command area", ErrTruncated)
		}
		cmd, cmdsize := bo.Uint32(cmds), uint64(bo.Uint32(cmds[4:]))
		if cmdsize < machoLoadCmdSize || cmdsize > uint64(len(cmds)) {
			return fmt.Errorf("%w: load command size %d", ErrTruncated, cmdsize)
		}
		if types.LoadCmd(cmd) == types.LC_SYMTAB {
			if cmdsize < machoSymtabSize {
				return fmt.Errorf("%w: LC_SYMTAB size %d", ErrTruncated, cmdsize)
			}
			symoff, nsyms := uint64(bo.Uint32(cmds[8:])), uint64(bo.Uint32(cmds[12:]))
			stroff, strsize := uint64(bo.Uint32(cmds[16:])), uint64(bo.Uint32(cmds[20:]))
			if !fits(symoff, nsyms*nlistSize, len(data)) {
				return fmt.Errorf("%w: %d symbols at %#x", ErrTruncated, nsyms, symoff)
			}
			if !fits(stroff, strsize, len(data)) {
				return fmt.Errorf("%w: string table of %d bytes at %#x", ErrTruncated, strsize, stroff)
			}
		}
		cmds = cmds[cmdsize:]
	}
	return nil
}

// fits reports whether [off, off+size) lies within a buffer of length n.
func fits(off, size uint64, n int) bool {
	end := off + size
	return end >= off && end <= uint64(n)
}

func newMachoTable(m *macho.File) *machoTable {
	if m == nil || m.Symtab == nil {
		return &machoTable{}
	}
	return &machoTable{syms: m.Symtab.Syms}
}

func (t *machoTable) symbols() iter.Seq[Symbol] {
	return func(yield func(Symbol) bool) {
		for _, s := range t.syms {
			// Debugger entries describe source files and scopes, not linkable symbols.
			if s.Type&types.N_STAB != 0 {
				continue
			}
			if !yield(machoSymbol(s)) {
				return
			}
		}
	}
}

func machoSymbol(s macho.Symbol) Symbol {
	// nlist entries carry no symbol type.
	return Symbol{
		Name:      s.Name,
		HasName:   s.Name != "",
		Global:    s.Type&types.N_EXT != 0,
		Undefined: s.Type&types.N_TYPE == types.N_UNDF,
		Value:     s.Value,
	}
}
