package safefileio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// DefaultMaxFileSize is the read limit used by SafeReadFile (128 MB).
const DefaultMaxFileSize = 128 * 1024 * 1024

// FileSystem abstracts the open call so tests can inject failures.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
}

// File is the subset of *os.File used by this package.
type File interface {
	io.Reader
	io.Writer
	Close() error
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
}

var defaultFS FileSystem = osFS{}

type osFS struct{}

func (osFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	// #nosec G304 - The path is validated after opening to prevent TOCTOU attacks
	return os.OpenFile(name, flag, perm)
}

// CheckNotDirectory returns ErrIsDirectory when path exists and is a directory.
// A path that does not exist yet is accepted; the caller decides whether that is an error.
func CheckNotDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}
	return nil
}

// SafeReadFile reads a file of at most DefaultMaxFileSize bytes.
func SafeReadFile(filePath string) ([]byte, error) {
	return SafeReadFileWithLimit(filePath, DefaultMaxFileSize)
}

// SafeReadFileWithLimit reads a regular file. Symlinks in filePath are
// resolved once up front; the resolved path is then opened without following
// symlinks, so a link swapped in after resolution is rejected with
// ErrIsSymlink. Files larger than limit are rejected with ErrFileTooLarge.
func SafeReadFileWithLimit(filePath string, limit int64) ([]byte, error) {
	return safeReadFileWithFS(filePath, limit, defaultFS)
}

func safeReadFileWithFS(filePath string, limit int64, fs FileSystem) ([]byte, error) {
	absPath, err := resolveInputPath(filePath)
	if err != nil {
		return nil, err
	}

	file, err := fs.OpenFile(absPath, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if isNoFollowError(err) {
			return nil, ErrIsSymlink
		}
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("error closing file", slog.String("path", absPath), slog.Any("error", closeErr))
		}
	}()

	if err := verifyPathComponents(absPath); err != nil {
		return nil, err
	}

	fileInfo, err := validateFile(file, absPath)
	if err != nil {
		return nil, err
	}
	if fileInfo.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fileInfo.Size(), limit)
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}

	return content, nil
}

// SafeWriteFile creates filePath and writes content to it. It fails with
// ErrFileExists if the file is already present.
func SafeWriteFile(filePath string, content []byte, perm os.FileMode) error {
	return safeWriteFileWithFS(filePath, content, perm, os.O_WRONLY|os.O_CREATE|os.O_EXCL, defaultFS)
}

// SafeWriteFileOverwrite writes content to filePath, truncating an existing
// regular file. Symlinks anywhere in the path are rejected.
func SafeWriteFileOverwrite(filePath string, content []byte, perm os.FileMode) error {
	return safeWriteFileWithFS(filePath, content, perm, os.O_WRONLY|os.O_CREATE, defaultFS)
}

func safeWriteFileWithFS(filePath string, content []byte, perm os.FileMode, flag int, fs FileSystem) (err error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// Checked before the open so that a directory target never gets an O_CREAT attempt.
	if err := CheckNotDirectory(absPath); err != nil {
		return err
	}

	file, err := fs.OpenFile(absPath, flag|syscall.O_NOFOLLOW, perm)
	if err != nil {
		switch {
		case os.IsExist(err):
			return ErrFileExists
		case isNoFollowError(err):
			return ErrIsSymlink
		default:
			return fmt.Errorf("failed to open file: %w", err)
		}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
	}()

	if err := verifyPathComponents(absPath); err != nil {
		return err
	}

	if _, err := validateFile(file, absPath); err != nil {
		return err
	}

	// Truncate only after validation so a rejected target keeps its content.
	if flag&os.O_EXCL == 0 {
		if err := file.Truncate(0); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", absPath, err)
		}
	}

	if _, err = file.Write(content); err != nil {
		return fmt.Errorf("failed to write to %s: %w", absPath, err)
	}

	return nil
}

// SafeCreateFile creates a new regular file for writing and returns it open.
// It fails with ErrFileExists if the file is already present and with
// ErrIsSymlink if any component of the path is a symlink.
func SafeCreateFile(filePath string, perm os.FileMode) (*os.File, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// #nosec G304 - The path is validated after opening to prevent TOCTOU attacks
	file, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL|syscall.O_NOFOLLOW, perm)
	if err != nil {
		switch {
		case os.IsExist(err):
			return nil, ErrFileExists
		case isNoFollowError(err):
			return nil, ErrIsSymlink
		default:
			return nil, fmt.Errorf("failed to create file: %w", err)
		}
	}

	if err := verifyPathComponents(absPath); err != nil {
		_ = file.Close()
		return nil, err
	}
	return file, nil
}

// resolveInputPath returns the absolute, symlink-free form of an input path.
func resolveInputPath(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", absPath, err)
	}
	return resolved, nil
}

// verifyPathComponents checks if any directory component of the path is a symlink.
// This is called after opening the file to prevent TOCTOU attacks.
func verifyPathComponents(absPath string) error {
	current := filepath.Dir(absPath)
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}

		fi, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}

		current = parent
	}
}

// validateFile checks through the open descriptor that the file is a regular file.
func validateFile(file File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, filePath)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidFilePath, filePath)
	}

	return fileInfo, nil
}

// isNoFollowError checks if the error indicates we tried to open a symlink.
// Linux reports ELOOP for O_NOFOLLOW on a symlink, FreeBSD reports EMLINK.
func isNoFollowError(err error) bool {
	var e *os.PathError
	if !errors.As(err, &e) {
		return false
	}
	return errors.Is(e.Err, syscall.ELOOP) || errors.Is(e.Err, syscall.EMLINK)
}
