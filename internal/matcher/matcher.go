// Package matcher selects the catalog labels whose API names occur in a
// binary's symbol table.
package matcher

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/isseis/go-app-manifest/internal/hazard"
	"github.com/isseis/go-app-manifest/internal/objfile"
	"github.com/isseis/go-app-manifest/internal/symname"
)

// DefaultNamespacePrefix is the path of the client type whose methods make up
// the labelled API surface.
const DefaultNamespacePrefix = "sifis_api::service::SifisApiClient"

// DefaultSyntheticMarkers mark compiler-generated symbols such as closures.
var DefaultSyntheticMarkers = []string{"closure"}

// ErrUnknownDuplicates indicates an unrecognized duplicate policy name.
var ErrUnknownDuplicates = errors.New("unknown duplicate policy")

// Duplicates selects how repeated labels are reported.
type Duplicates int

const (
	// DuplicatesKeep reports a label once per matching symbol.
	DuplicatesKeep Duplicates = iota

	// DuplicatesByAPIName reports each API name once, at its first match.
	DuplicatesByAPIName
)

// String returns a string representation of Duplicates.
func (d Duplicates) String() string {
	switch d {
	case DuplicatesKeep:
		return "keep"
	case DuplicatesByAPIName:
		return "by-api-name"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ParseDuplicates parses the name produced by Duplicates.String.
func ParseDuplicates(s string) (Duplicates, error) {
	switch s {
	case "", "keep":
		return DuplicatesKeep, nil
	case "by-api-name":
		return DuplicatesByAPIName, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDuplicates, s)
	}
}

// Config controls symbol selection.
type Config struct {
	// NamespacePrefix restricts matching to demangled names starting with it.
	// Empty accepts every name.
	NamespacePrefix string

	// SyntheticMarkers exclude demangled names containing any of them.
	SyntheticMarkers []string

	// RequireGlobal drops symbols with local binding.
	RequireGlobal bool

	Duplicates Duplicates
}

// DefaultConfig returns the configuration for the sifis-home API client.
func DefaultConfig() Config {
	return Config{
		NamespacePrefix:  DefaultNamespacePrefix,
		SyntheticMarkers: append([]string(nil), DefaultSyntheticMarkers...),
		RequireGlobal:    true,
		Duplicates:       DuplicatesKeep,
	}
}

// NormalizedSymbol is a symbol together with its demangled name.
type NormalizedSymbol struct {
	objfile.Symbol

	Demangled string

	// Synthetic is set when Demangled contains a synthetic marker.
	Synthetic bool
}

// Matcher applies a Config to symbol sequences. It holds no per-run state and
// may be reused.
type Matcher struct {
	cfg Config
}

// New creates a Matcher.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Normalize demangles sym and flags synthetic names.
func (m *Matcher) Normalize(sym objfile.Symbol) NormalizedSymbol {
	demangled := symname.Normalize(sym.Name)
	return NormalizedSymbol{
		Symbol:    sym,
		Demangled: demangled,
		Synthetic: m.isSynthetic(demangled),
	}
}

func (m *Matcher) isSynthetic(name string) bool {
	for _, marker := range m.cfg.SyntheticMarkers {
		if marker != "" && strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Candidates yields the normalized symbols that pass the namespace, synthetic
// and binding filters, in symbol table order.
func (m *Matcher) Candidates(symbols iter.Seq[objfile.Symbol]) iter.Seq[NormalizedSymbol] {
	return func(yield func(NormalizedSymbol) bool) {
		for sym := range symbols {
			if !sym.HasName {
				continue
			}
			if m.cfg.RequireGlobal && !sym.Global {
				continue
			}
			ns := m.Normalize(sym)
			if !strings.HasPrefix(ns.Demangled, m.cfg.NamespacePrefix) || ns.Synthetic {
				continue
			}
			if !yield(ns) {
				return
			}
		}
	}
}

// Match returns a copy of every catalog label whose API name is a substring
// of a candidate symbol. Labels are ordered by symbol, then by catalog order.
// Labels with an empty API name never match.
func (m *Matcher) Match(symbols iter.Seq[objfile.Symbol], catalog *hazard.Catalog) []hazard.APILabel {
	matched := []hazard.APILabel{}
	if catalog == nil {
		return matched
	}

	seen := make(map[string]struct{})
	for ns := range m.Candidates(symbols) {
		for _, label := range catalog.Labels {
			if label.Name == "" || !strings.Contains(ns.Demangled, label.Name) {
				continue
			}
			if m.cfg.Duplicates == DuplicatesByAPIName {
				if _, dup := seen[label.Name]; dup {
					continue
				}
				seen[label.Name] = struct{}{}
			}
			slog.Debug("Symbol matched API label",
				slog.String("symbol", ns.Demangled),
				slog.String("api_name", label.Name))
			matched = append(matched, label.Clone())
		}
	}
	return matched
}
