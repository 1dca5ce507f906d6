package manifest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/isseis/go-app-manifest/internal/safefileio"
)

// FilePerm is the permission of manifest files.
const FilePerm = 0o644

// Writer emits manifests to a file or to standard output.
type Writer struct {
	stdout io.Writer
}

// NewWriter creates a Writer that prints to stdout when no path is given.
func NewWriter(stdout io.Writer) *Writer {
	return &Writer{stdout: stdout}
}

// Write stores label as compact JSON at path, replacing an existing regular
// file. With an empty path the manifest is printed to stdout as indented JSON.
func (w *Writer) Write(path string, label AppLabel) error {
	if path == "" {
		return Encode(w.stdout, label)
	}

	data, err := Marshal(label)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := safefileio.SafeWriteFileOverwrite(path, data, FilePerm); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	slog.Debug("Manifest written",
		slog.String("path", path),
		slog.Int("api_labels", len(label.APILabels)))
	return nil
}
