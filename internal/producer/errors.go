package producer

import (
	"errors"
	"fmt"
)

// Kind classifies a failed run.
type Kind int

const (
	// KindIO is a filesystem read or write failure.
	KindIO Kind = iota
	// KindPathFormat is a path that must name a regular file but does not.
	KindPathFormat
	// KindBinaryFormat is a binary the object file reader cannot interpret.
	KindBinaryFormat
	// KindCatalogFormat is a catalog that matches neither accepted shape.
	KindCatalogFormat
	// KindRemoteFetch is a failure to retrieve a remote catalog.
	KindRemoteFetch
)

// Sentinels matched by errors.Is on an *Error of the corresponding Kind.
var (
	ErrIO            = errors.New("i/o error")
	ErrPathFormat    = errors.New("invalid path")
	ErrBinaryFormat  = errors.New("invalid binary")
	ErrCatalogFormat = errors.New("invalid catalog")
	ErrRemoteFetch   = errors.New("remote fetch failed")
)

// ErrEmptyPath indicates a required path argument is empty.
var ErrEmptyPath = errors.New("path is empty")

// String returns the snake_case name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPathFormat:
		return "path_format"
	case KindBinaryFormat:
		return "binary_format"
	case KindCatalogFormat:
		return "catalog_format"
	case KindRemoteFetch:
		return "remote_fetch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPathFormat:
		return ErrPathFormat
	case KindBinaryFormat:
		return ErrBinaryFormat
	case KindCatalogFormat:
		return ErrCatalogFormat
	case KindRemoteFetch:
		return ErrRemoteFetch
	default:
		return ErrIO
	}
}

// Error is the error returned by Producer.Run.
type Error struct {
	Kind Kind
	Op   string // step that failed, e.g. "read binary"
	Path string // path or catalog source involved, if any
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the Kind's sentinel and the underlying error.
func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if !errors.As(err, &perr) {
		return 0, false
	}
	return perr.Kind, true
}
