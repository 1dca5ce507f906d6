// Package color wraps text in ANSI colour escape sequences for terminal
// diagnostics.
//
//nolint:revive // package name conflicts with standard library
package color

const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m" // Bright black
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	cyanCode   = "\033[36m"
)

// Color wraps text with an ANSI escape sequence and a reset.
type Color func(text string) string

// NewColor creates a color function with the specified ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// Colours used for log levels and hints.
var (
	Gray   = NewColor(grayCode)
	Green  = NewColor(greenCode)
	Yellow = NewColor(yellowCode)
	Red    = NewColor(redCode)
	Cyan   = NewColor(cyanCode)
)
