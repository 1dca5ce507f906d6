package objfile

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"iter"
)

type elfTable struct {
	syms []elf.Symbol
}

// openELF reads .symtab, falling back to .dynsym when the static table has
// been stripped. A binary with neither yields an empty table.
func openELF(data []byte) (symbolTable, string, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	// The file is backed by data; Close releases nothing.
	defer func() { _ = f.Close() }()

	syms, err := f.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		syms, err = f.DynamicSymbols()
	}
	if errors.Is(err, elf.ErrNoSymbols) {
		return &elfTable{}, f.Machine.String(), nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read symbol table: %w", err)
	}

	return &elfTable{syms: syms}, f.Machine.String(), nil
}

func (t *elfTable) symbols() iter.Seq[Symbol] {
	return func(yield func(Symbol) bool) {
		for _, s := range t.syms {
			if !yield(elfSymbol(s)) {
				return
			}
		}
	}
}

// elfSymbol converts one entry. debug/elf leaves Name empty when the string
// table offset is out of range.
func elfSymbol(s elf.Symbol) Symbol {
	return Symbol{
		Name:      s.Name,
		HasName:   s.Name != "",
		Global:    elf.ST_BIND(s.Info) != elf.STB_LOCAL,
		Undefined: s.Section == elf.SHN_UNDEF,
		Kind:      elfKind(elf.ST_TYPE(s.Info)),
		Value:     s.Value,
	}
}

func elfKind(t elf.SymType) Kind {
	switch t {
	case elf.STT_FUNC, elf.STT_LOOS: // STT_LOOS is STT_GNU_IFUNC on Linux
		return KindFunc
	case elf.STT_OBJECT, elf.STT_TLS, elf.STT_COMMON:
		return KindObject
	case elf.STT_SECTION:
		return KindSection
	case elf.STT_FILE:
		return KindFile
	default:
		return KindUnknown
	}
}
