package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCapabilities implements terminal.Capabilities for tests.
type fakeCapabilities struct {
	interactive   bool
	supportsColor bool
}

func (c *fakeCapabilities) IsInteractive() bool             { return c.interactive }
func (c *fakeCapabilities) SupportsColor() bool             { return c.supportsColor }
func (c *fakeCapabilities) HasExplicitUserPreference() bool { return false }

func newTextHandler(t *testing.T, caps *fakeCapabilities, level slog.Level) (*ConditionalTextHandler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h, err := NewConditionalTextHandler(ConditionalTextHandlerOptions{
		Capabilities:       caps,
		Writer:             &buf,
		TextHandlerOptions: &slog.HandlerOptions{Level: level},
	})
	require.NoError(t, err)
	return h, &buf
}

func TestNewConditionalTextHandler_RequiredOptions(t *testing.T) {
	_, err := NewConditionalTextHandler(ConditionalTextHandlerOptions{Writer: &bytes.Buffer{}})
	assert.ErrorIs(t, err, ErrConditionalTextHandlerCapabilitiesRequired)

	_, err = NewConditionalTextHandler(ConditionalTextHandlerOptions{Capabilities: &fakeCapabilities{}})
	assert.ErrorIs(t, err, ErrConditionalTextHandlerWriterRequired)
}

func TestConditionalTextHandler_Enabled(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		level       slog.Level
		want        bool
	}{
		{"non-interactive info", false, slog.LevelInfo, true},
		{"non-interactive debug below level", false, slog.LevelDebug, false},
		{"interactive error", true, slog.LevelError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTextHandler(t, &fakeCapabilities{interactive: tt.interactive}, slog.LevelInfo)
			assert.Equal(t, tt.want, h.Enabled(context.Background(), tt.level))
		})
	}
}

func TestConditionalTextHandler_Handle(t *testing.T) {
	caps := &fakeCapabilities{}
	h, buf := newTextHandler(t, caps, slog.LevelInfo)

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "Manifest written", 0)
	record.AddAttrs(slog.String("output", "app.json"))
	require.NoError(t, h.Handle(context.Background(), record))
	assert.Contains(t, buf.String(), `msg="Manifest written"`)
	assert.Contains(t, buf.String(), "output=app.json")

	buf.Reset()
	caps.interactive = true
	require.NoError(t, h.Handle(context.Background(), record))
	assert.Empty(t, buf.String(), "interactive sessions are left to InteractiveHandler")
}

func TestConditionalTextHandler_WithAttrsAndGroup(t *testing.T) {
	h, buf := newTextHandler(t, &fakeCapabilities{}, slog.LevelInfo)

	derived := h.WithAttrs([]slog.Attr{slog.String("run_id", "01HZY")}).WithGroup("catalog")
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "Catalog loaded", 0)
	record.AddAttrs(slog.String("version", "0.1"))
	require.NoError(t, derived.Handle(context.Background(), record))

	assert.Contains(t, buf.String(), "run_id=01HZY")
	assert.Contains(t, buf.String(), "catalog.version=0.1")
}
