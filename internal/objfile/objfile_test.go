package objfile_test

import (
	"bytes"
	"log"
	"slices"
	"testing"

	"github.com/blacktop/go-macho/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isseis/go-app-manifest/internal/objfile"
	objfiletesting "github.com/isseis/go-app-manifest/internal/objfile/testing"
)

func collect(t *testing.T, f *objfile.File) []objfile.Symbol {
	t.Helper()
	return slices.Collect(f.Symbols())
}

func names(syms []objfile.Symbol) []string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	return out
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want objfile.Format
	}{
		{"elf", objfiletesting.ELF(), objfile.FormatELF},
		{"pe", objfiletesting.PE(), objfile.FormatPE},
		{"macho", objfiletesting.MachO(objfiletesting.CPUAmd64), objfile.FormatMachO},
		{"fat macho", objfiletesting.FatMachO(objfiletesting.MachO(objfiletesting.CPUAmd64)), objfile.FormatMachOFat},
		{"java class file", []byte{0xca, 0xfe, 0xba, 0xbe, 0x00, 0x00, 0x00, 0x34}, objfile.FormatUnknown},
		{"text", []byte("#!/bin/sh\necho hello\n"), objfile.FormatUnknown},
		{"empty", nil, objfile.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objfile.Detect(tt.data))
		})
	}
}

func TestOpen_ELF(t *testing.T) {
	data := objfiletesting.ELF(
		objfiletesting.Sym{Name: "main", Global: true, Func: true, Value: 0x1000},
		objfiletesting.Sym{Name: "helper", Func: true, Value: 0x1010},
		objfiletesting.Sym{Name: "counter", Global: true, Value: 0x2000},
		objfiletesting.Sym{Name: "write", Global: true, Func: true, Undefined: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)
	assert.Equal(t, objfile.FormatELF, f.Format())
	assert.NotEmpty(t, f.Arch())

	syms := collect(t, f)
	require.Equal(t, []string{"main", "helper", "counter", "write"}, names(syms))

	assert.Equal(t, objfile.Symbol{Name: "main", HasName: true, Global: true, Kind: objfile.KindFunc, Value: 0x1000}, syms[0])
	assert.False(t, syms[1].Global)
	assert.Equal(t, objfile.KindObject, syms[2].Kind)
	assert.True(t, syms[3].Undefined)
	assert.True(t, syms[3].Global)
}

func TestOpen_ELFFallsBackToDynsym(t *testing.T) {
	data := objfiletesting.DynamicELF(
		objfiletesting.Sym{Name: "exported", Global: true, Func: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"exported"}, names(collect(t, f)))
}

func TestOpen_ELFWithoutSymbols(t *testing.T) {
	f, err := objfile.Open(objfiletesting.StrippedELF())
	require.NoError(t, err)
	assert.Empty(t, collect(t, f))
}

func TestOpen_ELFUnreadableName(t *testing.T) {
	data := objfiletesting.ELF(
		objfiletesting.Sym{Name: "lost", Global: true, BadName: true},
		objfiletesting.Sym{Name: "kept", Global: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)

	syms := collect(t, f)
	require.Len(t, syms, 2, "unreadable entries are still yielded")
	assert.False(t, syms[0].HasName)
	assert.True(t, syms[1].HasName)
	assert.Equal(t, "kept", syms[1].Name)
}

func TestOpen_PE(t *testing.T) {
	data := objfiletesting.PE(
		objfiletesting.Sym{Name: "main", Global: true, Func: true, Value: 0x10},
		objfiletesting.Sym{Name: "a_rather_long_symbol_name", Global: true},
		objfiletesting.Sym{Name: "static", Value: 0x20},
		objfiletesting.Sym{Name: "imported", Global: true, Undefined: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)
	assert.Equal(t, objfile.FormatPE, f.Format())
	assert.Equal(t, "amd64", f.Arch())

	syms := collect(t, f)
	require.Equal(t, []string{"main", "a_rather_long_symbol_name", "static", "imported"}, names(syms))
	assert.Equal(t, objfile.KindFunc, syms[0].Kind)
	assert.True(t, syms[0].Global)
	assert.True(t, syms[1].Global)
	assert.False(t, syms[2].Global)
	assert.True(t, syms[3].Undefined)
}

func TestOpen_MachO(t *testing.T) {
	data := objfiletesting.MachO(objfiletesting.CPUAmd64,
		objfiletesting.Sym{Name: "_main", Global: true, Value: 0x100000f50},
		objfiletesting.Sym{Name: "main.go", Debug: true},
		objfiletesting.Sym{Name: "_private", Value: 0x100000f60},
		objfiletesting.Sym{Name: "_printf", Global: true, Undefined: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)
	assert.Equal(t, objfile.FormatMachO, f.Format())

	syms := collect(t, f)
	require.Equal(t, []string{"_main", "_private", "_printf"}, names(syms), "stab entries are skipped")
	assert.True(t, syms[0].Global)
	assert.Equal(t, uint64(0x100000f50), syms[0].Value)
	assert.False(t, syms[1].Global)
	assert.True(t, syms[2].Undefined)
}

func TestOpen_FatMachO(t *testing.T) {
	data := objfiletesting.FatMachO(
		objfiletesting.MachO(objfiletesting.CPUAmd64, objfiletesting.Sym{Name: "_intel", Global: true}),
		objfiletesting.MachO(objfiletesting.CPUArm64, objfiletesting.Sym{Name: "_arm", Global: true}),
	)

	t.Run("first slice by default", func(t *testing.T) {
		f, err := objfile.Open(data)
		require.NoError(t, err)
		assert.Equal(t, objfile.FormatMachOFat, f.Format())
		assert.Equal(t, types.CPUAmd64.String(), f.Arch())
		assert.Equal(t, []string{"_intel"}, names(collect(t, f)))
	})

	t.Run("selected slice", func(t *testing.T) {
		f, err := objfile.OpenWithOptions(data, objfile.Options{Arch: types.CPUArm64.String()})
		require.NoError(t, err)
		assert.Equal(t, []string{"_arm"}, names(collect(t, f)))
	})

	t.Run("missing slice", func(t *testing.T) {
		_, err := objfile.OpenWithOptions(data, objfile.Options{Arch: "sparc"})
		require.Error(t, err)
		assert.ErrorIs(t, err, objfile.ErrArchNotFound)
		assert.ErrorIs(t, err, objfile.ErrBinaryFormat)
	})
}

func TestOpen_Malformed(t *testing.T) {
	truncated := objfiletesting.ELF(objfiletesting.Sym{Name: "main", Global: true})
	truncated = truncated[:80]

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"unrecognized", []byte("not a binary at all"), objfile.ErrUnrecognizedFormat},
		{"empty", []byte{}, objfile.ErrUnrecognizedFormat},
		{"truncated elf", truncated, objfile.ErrBinaryFormat},
		{"bare elf magic", []byte("\x7fELF"), objfile.ErrBinaryFormat},
		{"bare pe magic", []byte("MZ"), objfile.ErrBinaryFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := objfile.Open(tt.data)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, objfile.ErrBinaryFormat)
		})
	}
}

// withByte returns a copy of data with data[off] set to b.
func withByte(data []byte, off int, b byte) []byte {
	out := slices.Clone(data)
	out[off] = b
	return out
}

func TestOpen_MalformedMachO(t *testing.T) {
	// Layout of the fixture: 32-byte header (ncmds at 16, sizeofcmds at 20),
	// then LC_SYMTAB (cmdsize at 36, nsyms at 44, strsize at 52).
	thin := objfiletesting.MachO(objfiletesting.CPUAmd64,
		objfiletesting.Sym{Name: "_main", Global: true},
	)
	fat := objfiletesting.FatMachO(thin)
	const sliceOff = 4096

	tests := []struct {
		name string
		data []byte
	}{
		{"huge symbol count", withByte(thin, 47, 0x1c)},
		{"huge string table", withByte(thin, 55, 0x7f)},
		{"load commands past the end", withByte(thin, 23, 0x10)},
		{"more commands than fit", withByte(thin, 19, 0x10)},
		{"command size below minimum", withByte(thin, 36, 0x04)},
		{"command size past the area", withByte(thin, 37, 0x01)},
		{"truncated header", thin[:20]},
		{"fat slice with huge symbol count", withByte(fat, sliceOff+47, 0x1c)},
		{"fat slice offset past the end", withByte(fat, 16, 0x7f)},
		{"fat slice size past the end", withByte(fat, 20, 0x7f)},
		{"fat without architectures", withByte(fat, 7, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := objfile.Open(tt.data)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, objfile.ErrBinaryFormat)
		})
	}
}

func TestOpen_MalformedPE(t *testing.T) {
	pe := objfiletesting.PE(objfiletesting.Sym{Name: "main", Global: true})

	for name, data := range map[string][]byte{
		"truncated dos header": pe[:50],
		"signature offset past the end": withByte(pe, 0x3d, 0x7f),
	} {
		t.Run(name, func(t *testing.T) {
			f, err := objfile.Open(data)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, objfile.ErrBinaryFormat)
		})
	}
}

func TestOpen_MachOUnknownLoadCommand(t *testing.T) {
	var logged bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logged)
	t.Cleanup(func() { log.SetOutput(prev) })

	data := objfiletesting.MachOWithCommands(objfiletesting.CPUAmd64,
		[][]byte{objfiletesting.LoadCommand(0x7e, 16)},
		objfiletesting.Sym{Name: "_main", Global: true},
	)

	f, err := objfile.Open(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"_main"}, names(collect(t, f)))
	assert.Empty(t, logged.String(), "nothing is written to the standard logger")
}

func TestSymbols_StopsEarly(t *testing.T) {
	f, err := objfile.Open(objfiletesting.ELF(
		objfiletesting.Sym{Name: "a", Global: true},
		objfiletesting.Sym{Name: "b", Global: true},
		objfiletesting.Sym{Name: "c", Global: true},
	))
	require.NoError(t, err)

	var seen []string
	for s := range f.Symbols() {
		seen = append(seen, s.Name)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "elf", objfile.FormatELF.String())
	assert.Equal(t, "pe", objfile.FormatPE.String())
	assert.Equal(t, "macho", objfile.FormatMachO.String())
	assert.Equal(t, "macho-fat", objfile.FormatMachOFat.String())
	assert.Equal(t, "unknown(0)", objfile.FormatUnknown.String())
}
