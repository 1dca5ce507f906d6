// Package symname turns raw symbol table names into readable paths.
package symname

import (
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// rustHashLen is the length of the "h" + 16 hex digits segment legacy Rust
// mangling appends to every path.
const rustHashLen = 17

// Normalize demangles Rust (legacy and v0) and Itanium C++ names to their
// name-only form, without parameters or template arguments. Names that are
// not mangled, or fail to demangle, are returned unchanged.
func Normalize(raw string) string {
	name := raw

	// Mach-O prefixes every C-level name with an underscore.
	if strings.HasPrefix(name, "__Z") || strings.HasPrefix(name, "__R") {
		name = name[1:]
	}
	if !strings.HasPrefix(name, "_Z") && !strings.HasPrefix(name, "_R") {
		return raw
	}

	out, err := demangle.ToString(name, demangle.NoParams, demangle.NoTemplateParams)
	if err != nil {
		return raw
	}
	return unwrapInherentImpl(stripRustHash(out))
}

// unwrapInherentImpl rewrites a leading "<Type>::" to "Type::". Rust v0
// names methods of inherent impls that way; legacy mangling does not wrap
// them. Trait impls ("<Type as Trait>::") are left alone.
func unwrapInherentImpl(name string) string {
	if !strings.HasPrefix(name, "<") {
		return name
	}
	depth := 0
	for i, c := range name {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth > 0 {
				continue
			}
			inner, rest := name[1:i], name[i+1:]
			if !strings.HasPrefix(rest, "::") || strings.Contains(inner, " as ") {
				return name
			}
			return inner + rest
		}
	}
	return name
}

// stripRustHash removes a trailing "::h<16 hex>" segment.
func stripRustHash(name string) string {
	i := strings.LastIndex(name, "::")
	if i < 0 {
		return name
	}
	seg := name[i+2:]
	if len(seg) != rustHashLen || seg[0] != 'h' {
		return name
	}
	for _, c := range seg[1:] {
		if !isHex(c) {
			return name
		}
	}
	return name[:i]
}

func isHex(c rune) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f')
}
