package terminal

import (
	"strings"
)

// colorTerminals lists TERM values (or prefixes before "-") known to
// support basic colours.
var colorTerminals = []string{
	"xterm",
	"screen",
	"tmux",
	"rxvt",
	"vt100",
	"vt220",
	"ansi",
	"linux",
	"cygwin",
	"putty",
}

// ColorDetector reports whether the terminal can render colours.
type ColorDetector interface {
	SupportsColor() bool
}

// DefaultColorDetector inspects TERM.
type DefaultColorDetector struct {
	env LookupEnvFunc
}

func newColorDetector(env LookupEnvFunc) *DefaultColorDetector {
	return &DefaultColorDetector{env: env}
}

// SupportsColor returns true for known colour terminals. Unknown and dumb
// terminals get no colour.
func (d *DefaultColorDetector) SupportsColor() bool {
	termName := strings.ToLower(strings.TrimSpace(getenv(d.env, "TERM")))
	if termName == "" || termName == "dumb" {
		return false
	}
	for _, colorTerm := range colorTerminals {
		if termName == colorTerm || strings.HasPrefix(termName, colorTerm+"-") {
			return true
		}
	}
	return false
}
