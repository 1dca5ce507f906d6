package logging

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/isseis/go-app-manifest/internal/color"
)

// MessageFormatter renders log records for a human reader.
type MessageFormatter interface {
	// FormatRecordWithColor renders the whole record: timestamp, level,
	// message and every attribute.
	FormatRecordWithColor(record slog.Record, useColor bool) string

	// FormatRecordInteractive renders the level, the message and only the
	// attributes a reader needs to act on.
	FormatRecordInteractive(record slog.Record, useColor bool) string

	// FormatLogFileHint points the reader at the run's log file. It returns
	// "" when there is no log file.
	FormatLogFileHint(logPath string, useColor bool) string
}

// DefaultMessageFormatter marks levels with a symbol and an optional colour.
type DefaultMessageFormatter struct{}

// NewDefaultMessageFormatter creates a new DefaultMessageFormatter.
func NewDefaultMessageFormatter() *DefaultMessageFormatter {
	return &DefaultMessageFormatter{}
}

// maxInteractiveAttrs bounds the fallback attribute list of FormatRecordInteractive.
const maxInteractiveAttrs = 3

// Keys identifying what a record is about, in display order.
var baseInteractiveKeys = []string{"error", "path", "source", "version", "api_name", "symbol"}

// Keys that only make sense in a verbose run.
var debugInteractiveKeys = []string{"schema", "api_labels", "format", "arch"}

// Keys that never help an interactive reader.
var skipInteractiveKeys = []string{
	"time", "level", "msg", "run_id", "hostname", "pid", "schema_version",
	"interactive_mode", "color_support", "log_file",
}

// FormatRecordWithColor renders the whole record.
func (f *DefaultMessageFormatter) FormatRecordWithColor(record slog.Record, useColor bool) string {
	var sb strings.Builder

	sb.WriteString(record.Time.Format("2006-01-02 15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(f.formatLevel(record.Level, useColor))
	sb.WriteString(" ")
	sb.WriteString(record.Message)

	record.Attrs(func(attr slog.Attr) bool {
		f.writeAttr(&sb, attr)
		return true
	})

	return sb.String()
}

// FormatRecordInteractive renders the level, the message and the priority
// attributes. When none is present the first few non-internal attributes
// are shown instead.
func (f *DefaultMessageFormatter) FormatRecordInteractive(record slog.Record, useColor bool) string {
	var sb strings.Builder

	sb.WriteString(f.formatLevel(record.Level, useColor))
	sb.WriteString(" ")
	sb.WriteString(record.Message)

	for _, attr := range f.interactiveAttrs(record) {
		f.writeAttr(&sb, attr)
	}

	return sb.String()
}

func (f *DefaultMessageFormatter) priorityKeys(level slog.Level) []string {
	if level <= slog.LevelDebug {
		return slices.Concat(baseInteractiveKeys, debugInteractiveKeys)
	}
	return baseInteractiveKeys
}

func (f *DefaultMessageFormatter) interactiveAttrs(record slog.Record) []slog.Attr {
	var found []slog.Attr
	for _, key := range f.priorityKeys(record.Level) {
		record.Attrs(func(attr slog.Attr) bool {
			if attr.Key == key || strings.HasSuffix(attr.Key, "."+key) {
				found = append(found, attr)
				return false
			}
			return true
		})
	}
	if len(found) > 0 {
		return found
	}

	record.Attrs(func(attr slog.Attr) bool {
		if !f.shouldSkipInteractiveAttr(attr.Key) {
			found = append(found, attr)
		}
		return len(found) < maxInteractiveAttrs
	})
	return found
}

func (f *DefaultMessageFormatter) shouldSkipInteractiveAttr(key string) bool {
	return slices.Contains(skipInteractiveKeys, key)
}

// FormatLogFileHint points the reader at the run's JSON log file.
func (f *DefaultMessageFormatter) FormatLogFileHint(logPath string, useColor bool) string {
	if logPath == "" {
		return ""
	}

	prefix := "HINT: "
	if useColor {
		prefix = color.Cyan("* ")
	}
	return prefix + "See " + logPath + " for details"
}

func (f *DefaultMessageFormatter) formatLevel(level slog.Level, useColor bool) string {
	if !useColor {
		switch level {
		case slog.LevelDebug:
			return "[DEBUG]"
		case slog.LevelInfo:
			return "[INFO ]"
		case slog.LevelWarn:
			return "[WARN ]"
		case slog.LevelError:
			return "[ERROR]"
		default:
			return "[" + strings.ToUpper(level.String()) + "]"
		}
	}

	switch level {
	case slog.LevelDebug:
		return color.Gray("* DEBUG")
	case slog.LevelInfo:
		return color.Green("+ INFO ")
	case slog.LevelWarn:
		return color.Yellow("! WARN ")
	case slog.LevelError:
		return color.Red("X ERROR")
	default:
		return color.Gray("> " + level.String())
	}
}

func (f *DefaultMessageFormatter) writeAttr(sb *strings.Builder, attr slog.Attr) {
	sb.WriteString(" ")
	sb.WriteString(attr.Key)
	sb.WriteString("=")
	sb.WriteString(f.formatValue(attr.Value))
}

func (f *DefaultMessageFormatter) formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindTime:
		return value.Time().Format(time.RFC3339)
	case slog.KindGroup:
		attrs := value.Group()
		parts := make([]string, 0, len(attrs))
		for _, attr := range attrs {
			parts = append(parts, attr.Key+"="+f.formatValue(attr.Value))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return value.String()
	}
}
