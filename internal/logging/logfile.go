package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/isseis/go-app-manifest/internal/safefileio"
)

// ErrEmptyLogDirectory is returned by OpenLogFile for an empty directory.
var ErrEmptyLogDirectory = errors.New("log directory cannot be empty")

const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600
)

// NewRunID returns a new, lexically time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// LogFileName returns the per-run log file name
// "<hostname>_<UTC timestamp>_<run id>.json".
func LogFileName(hostname string, at time.Time, runID string) string {
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s.json", hostname, at.UTC().Format("20060102T150405Z"), runID)
}

// OpenLogFile creates dir if needed and a new log file for runID inside it.
// The file is created exclusively and never through a symlink.
func OpenLogFile(dir, runID string) (*os.File, string, error) {
	if dir == "" {
		return nil, "", ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}
	path := filepath.Join(dir, LogFileName(hostname, time.Now(), runID))

	f, err := safefileio.SafeCreateFile(path, logFilePerm)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, path, nil
}
