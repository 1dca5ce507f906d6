// Package safefileio reads analysis inputs and writes manifests, accepting
// nothing but regular files. Reads resolve symlinks before opening; writes
// refuse any symlink in the target path.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path is a symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrIsDirectory indicates that a path which must name a file names a directory.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrFileTooLarge indicates that the file is larger than the caller's limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileExists indicates that the file already exists.
	ErrFileExists = errors.New("file exists")
)
