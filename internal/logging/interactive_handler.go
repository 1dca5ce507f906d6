package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/isseis/go-app-manifest/internal/terminal"
)

// Static errors for InteractiveHandler validation
var (
	ErrInteractiveHandlerWriterRequired       = errors.New("InteractiveHandler: Writer is required")
	ErrInteractiveHandlerCapabilitiesRequired = errors.New("InteractiveHandler: Capabilities is required")
	ErrInteractiveHandlerFormatterRequired    = errors.New("InteractiveHandler: Formatter is required")
)

// InteractiveHandler renders records for a person at a terminal. Below debug
// level it prints a condensed line per record; in verbose runs it prints
// every attribute. Error records are followed by a hint naming the log file.
type InteractiveHandler struct {
	capabilities terminal.Capabilities
	formatter    MessageFormatter
	writer       io.Writer
	mu           *sync.Mutex
	level        slog.Level
	logPath      string

	// attrs already carry the group prefix in effect when they were added.
	attrs  []slog.Attr
	prefix string
}

// InteractiveHandlerOptions configures the InteractiveHandler.
type InteractiveHandlerOptions struct {
	// Level is the minimum log level to handle.
	Level slog.Level

	// Writer is the output destination, usually os.Stderr.
	Writer io.Writer

	// Capabilities provides terminal feature detection.
	Capabilities terminal.Capabilities

	// Formatter renders records.
	Formatter MessageFormatter

	// LogPath is the run's log file, named in hints after errors. Optional.
	LogPath string
}

// NewInteractiveHandler creates a new InteractiveHandler with the given options.
func NewInteractiveHandler(opts InteractiveHandlerOptions) (*InteractiveHandler, error) {
	if opts.Writer == nil {
		return nil, ErrInteractiveHandlerWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrInteractiveHandlerCapabilitiesRequired
	}
	if opts.Formatter == nil {
		return nil, ErrInteractiveHandlerFormatterRequired
	}

	return &InteractiveHandler{
		capabilities: opts.Capabilities,
		formatter:    opts.Formatter,
		writer:       opts.Writer,
		mu:           &sync.Mutex{},
		level:        opts.Level,
		logPath:      opts.LogPath,
	}, nil
}

// Enabled reports whether the session is interactive and level is sufficient.
func (h *InteractiveHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.capabilities.IsInteractive() && level >= h.level
}

// Handle writes one formatted line for r, plus a log file hint for errors.
func (h *InteractiveHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.capabilities.IsInteractive() {
		return nil
	}

	record := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	record.AddAttrs(h.attrs...)
	r.Attrs(func(attr slog.Attr) bool {
		record.AddAttrs(h.qualify(attr))
		return true
	})

	useColor := h.capabilities.SupportsColor()
	var sb strings.Builder
	if h.level <= slog.LevelDebug {
		sb.WriteString(h.formatter.FormatRecordWithColor(record, useColor))
	} else {
		sb.WriteString(h.formatter.FormatRecordInteractive(record, useColor))
	}
	sb.WriteString("\n")

	if record.Level >= slog.LevelError {
		if hint := h.formatter.FormatLogFileHint(h.logPath, useColor); hint != "" {
			sb.WriteString(hint)
			sb.WriteString("\n")
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *InteractiveHandler) qualify(attr slog.Attr) slog.Attr {
	if h.prefix == "" {
		return attr
	}
	return slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value}
}

// WithAttrs returns a new handler with additional attributes.
func (h *InteractiveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(attr))
	}
	return &clone
}

// WithGroup returns a new handler with an additional group.
func (h *InteractiveHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}
