package objfile

import (
	"bytes"
	"debug/pe"
	"fmt"
	"iter"
)

// COFF symbol table constants, see
// https://learn.microsoft.com/en-us/windows/win32/debug/pe-format#coff-symbol-table
const (
	imageSymUndefined         = 0
	imageSymClassExternal     = 2
	imageSymClassWeakExternal = 105
	imageSymDtypeFunction     = 2
	imageSymDtypeShift        = 4
)

type peTable struct {
	syms []*pe.Symbol
}

// openPE reads the COFF symbol table. Linked images usually carry none, in
// which case the table is empty.
func openPE(data []byte) (symbolTable, string, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	return &peTable{syms: f.Symbols}, peMachine(f.Machine), nil
}

func (t *peTable) symbols() iter.Seq[Symbol] {
	return func(yield func(Symbol) bool) {
		for _, s := range t.syms {
			if s == nil {
				continue
			}
			if !yield(peSymbol(s)) {
				return
			}
		}
	}
}

func peSymbol(s *pe.Symbol) Symbol {
	kind := KindUnknown
	if s.Type>>imageSymDtypeShift == imageSymDtypeFunction {
		kind = KindFunc
	}
	global := s.StorageClass == imageSymClassExternal || s.StorageClass == imageSymClassWeakExternal
	return Symbol{
		Name:      s.Name,
		HasName:   s.Name != "",
		Global:    global,
		Undefined: s.SectionNumber == imageSymUndefined,
		Kind:      kind,
		Value:     uint64(s.Value),
	}
}

func peMachine(m uint16) string {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "i386"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "amd64"
	case pe.IMAGE_FILE_MACHINE_ARM:
		return "arm"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "arm64"
	default:
		return fmt.Sprintf("unknown(0x%x)", m)
	}
}
