package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-app-manifest/internal/terminal"
)

// logSchemaVersion versions the attribute set of the JSON log file.
const logSchemaVersion = 1

// Options configures Setup.
type Options struct {
	Level slog.Level

	// Console receives human-readable output. Defaults to os.Stderr.
	Console io.Writer

	// LogDir enables a JSON log file per run when set.
	LogDir string

	// RunID identifies the run. A new one is generated when empty.
	RunID string

	// Terminal overrides interactive and colour detection.
	Terminal terminal.Options
}

// Session is the logging state of one run.
type Session struct {
	Logger      *slog.Logger
	RunID       string
	LogPath     string
	Interactive bool

	logFile    io.Closer
	fileLogger *slog.Logger
}

// Setup builds the handler chain, installs it as the slog default and
// returns the session. Call Close when the run is over.
func Setup(opts Options) (*Session, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	capabilities := terminal.NewCapabilities(opts.Terminal)

	session := &Session{RunID: runID, Interactive: capabilities.IsInteractive()}
	handlers := make([]slog.Handler, 0, 3)

	if opts.LogDir != "" {
		f, path, err := OpenLogFile(opts.LogDir, runID)
		if err != nil {
			return nil, err
		}
		session.logFile = f
		session.LogPath = path

		hostname, _ := os.Hostname()
		fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.Int("pid", os.Getpid()),
			slog.Int("schema_version", logSchemaVersion),
		})
		handlers = append(handlers, fileHandler)
		session.fileLogger = slog.New(fileHandler).With(slog.String("run_id", runID))
	}

	interactive, err := NewInteractiveHandler(InteractiveHandlerOptions{
		Level:        opts.Level,
		Writer:       console,
		Capabilities: capabilities,
		Formatter:    NewDefaultMessageFormatter(),
		LogPath:      session.LogPath,
	})
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to create interactive handler: %w", err)
	}

	text, err := NewConditionalTextHandler(ConditionalTextHandlerOptions{
		Capabilities:       capabilities,
		TextHandlerOptions: &slog.HandlerOptions{Level: opts.Level},
		Writer:             console,
	})
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to create text handler: %w", err)
	}
	handlers = append(handlers, interactive, text)

	session.Logger = slog.New(NewMultiHandler(handlers...)).With(slog.String("run_id", runID))
	slog.SetDefault(session.Logger)

	slog.Debug("Logger initialized",
		slog.String("level", opts.Level.String()),
		slog.String("log_file", session.LogPath),
		slog.Bool("interactive_mode", capabilities.IsInteractive()),
		slog.Bool("color_support", capabilities.SupportsColor()))

	return session, nil
}

// Close closes the log file, if any.
func (s *Session) Close() error {
	if s.logFile == nil {
		return nil
	}
	err := s.logFile.Close()
	s.logFile = nil
	return err
}
