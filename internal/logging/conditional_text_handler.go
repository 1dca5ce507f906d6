package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isseis/go-app-manifest/internal/terminal"
)

// Static errors for ConditionalTextHandler validation
var (
	ErrConditionalTextHandlerCapabilitiesRequired = errors.New("ConditionalTextHandler: Capabilities is required")
	ErrConditionalTextHandlerWriterRequired       = errors.New("ConditionalTextHandler: Writer is required")
)

// ConditionalTextHandler writes plain slog text output, but only when the
// session is not interactive. It is the counterpart of InteractiveHandler:
// exactly one of the two is active for a given terminal.
type ConditionalTextHandler struct {
	capabilities terminal.Capabilities
	text         slog.Handler
}

// ConditionalTextHandlerOptions configures the ConditionalTextHandler.
type ConditionalTextHandlerOptions struct {
	// Capabilities decides whether the session is interactive.
	Capabilities terminal.Capabilities

	// TextHandlerOptions are passed to slog.NewTextHandler.
	TextHandlerOptions *slog.HandlerOptions

	// Writer receives the text output.
	Writer io.Writer
}

// NewConditionalTextHandler wraps a slog.TextHandler writing to opts.Writer.
func NewConditionalTextHandler(opts ConditionalTextHandlerOptions) (*ConditionalTextHandler, error) {
	if opts.Capabilities == nil {
		return nil, ErrConditionalTextHandlerCapabilitiesRequired
	}
	if opts.Writer == nil {
		return nil, ErrConditionalTextHandlerWriterRequired
	}

	return &ConditionalTextHandler{
		capabilities: opts.Capabilities,
		text:         slog.NewTextHandler(opts.Writer, opts.TextHandlerOptions),
	}, nil
}

// Enabled reports false on interactive terminals and otherwise defers to the
// text handler's level.
func (h *ConditionalTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.capabilities.IsInteractive() && h.text.Enabled(ctx, level)
}

// Handle writes r unless the session is interactive.
func (h *ConditionalTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.capabilities.IsInteractive() {
		return nil
	}
	return h.text.Handle(ctx, r)
}

// WithAttrs returns a new handler with additional attributes.
func (h *ConditionalTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, text: h.text.WithAttrs(attrs)}
}

// WithGroup returns a new handler with an additional group.
func (h *ConditionalTextHandler) WithGroup(name string) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, text: h.text.WithGroup(name)}
}
