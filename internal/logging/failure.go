package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ReportFailure prints a short failure block for a person to w. The same
// failure goes to the JSON log file when there is one; the console handlers
// are skipped so the failure is shown once. kind names the error category.
func (s *Session) ReportFailure(w io.Writer, kind string, err error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", kind)
	fmt.Fprintf(&sb, "  Details: %v\n", err)
	if s.RunID != "" {
		fmt.Fprintf(&sb, "  Run ID: %s\n", s.RunID)
	}
	if s.LogPath != "" {
		fmt.Fprintf(&sb, "  Log: %s\n", s.LogPath)
	}
	_, _ = io.WriteString(w, sb.String())

	if s.fileLogger != nil {
		s.fileLogger.Error("Run failed",
			slog.String("error_kind", kind),
			slog.Any("error", err))
	}
}
