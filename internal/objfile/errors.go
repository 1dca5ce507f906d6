package objfile

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrBinaryFormat is matched by every error that rejects the input bytes.
	ErrBinaryFormat = errors.New("invalid object file")

	// ErrUnrecognizedFormat indicates the magic number matches no supported format.
	ErrUnrecognizedFormat = fmt.Errorf("%w: unrecognized object file format", ErrBinaryFormat)

	// ErrEmptyFatFile indicates a universal Mach-O binary without any slice.
	ErrEmptyFatFile = fmt.Errorf("%w: universal binary has no architectures", ErrBinaryFormat)

	// ErrTruncated indicates a header field points past the end of the data.
	ErrTruncated = fmt.Errorf("%w: header points outside the file", ErrBinaryFormat)

	// ErrArchNotFound indicates the requested slice is absent from a universal binary.
	ErrArchNotFound = errors.New("architecture not found in universal binary")
)

// FormatError indicates the container was recognized but could not be parsed.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Format, e.Err)
}

// Unwrap exposes ErrBinaryFormat and the parser error to errors.Is.
func (e *FormatError) Unwrap() []error {
	return []error{ErrBinaryFormat, e.Err}
}
