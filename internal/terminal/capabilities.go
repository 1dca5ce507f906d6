// Package terminal decides whether diagnostics go to a person at a terminal
// and whether that terminal should get ANSI colours. Only stderr is examined:
// stdout may carry the manifest itself and be redirected to a file.
package terminal

import (
	"os"
	"strings"
)

// LookupEnvFunc reads an environment variable, like os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// Options contains all terminal-related configuration options.
type Options struct {
	PreferenceOptions PreferenceOptions
	DetectorOptions   DetectorOptions

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv LookupEnvFunc
}

// Capabilities reports what the diagnostic stream can do.
type Capabilities interface {
	IsInteractive() bool
	SupportsColor() bool
	HasExplicitUserPreference() bool
}

// DefaultCapabilities combines interactive detection, terminal colour
// detection and the user's colour preference.
type DefaultCapabilities struct {
	interactiveDetector InteractiveDetector
	colorDetector       ColorDetector
	userPreference      *UserPreference
	env                 LookupEnvFunc
}

// NewCapabilities creates a new Capabilities instance with the given options.
func NewCapabilities(options Options) Capabilities {
	env := options.LookupEnv
	if env == nil {
		env = os.LookupEnv
	}
	return &DefaultCapabilities{
		interactiveDetector: newInteractiveDetector(options.DetectorOptions, env, stderrIsTerminal),
		colorDetector:       newColorDetector(env),
		userPreference:      newUserPreference(options.PreferenceOptions, env),
		env:                 env,
	}
}

// IsInteractive returns true if stderr should be treated as interactive.
func (c *DefaultCapabilities) IsInteractive() bool {
	return c.interactiveDetector.IsInteractive()
}

// SupportsColor resolves colour output in priority order: command line
// options, CLICOLOR_FORCE, NO_COLOR, then (interactive sessions only)
// terminal capability and CLICOLOR.
func (c *DefaultCapabilities) SupportsColor() bool {
	if c.userPreference.HasExplicitPreference() {
		return c.userPreference.SupportsColor()
	}

	if !c.IsInteractive() || !c.colorDetector.SupportsColor() {
		return false
	}

	if cliColor := getenv(c.env, "CLICOLOR"); cliColor != "" {
		return isTruthy(cliColor)
	}
	return true
}

// HasExplicitUserPreference returns true if the user has explicitly set
// a color preference through command line options or environment variables.
func (c *DefaultCapabilities) HasExplicitUserPreference() bool {
	return c.userPreference.HasExplicitPreference()
}

// getenv treats an empty value like an unset variable.
func getenv(env LookupEnvFunc, key string) string {
	v, _ := env(key)
	return v
}

// isTruthy accepts "1", "true" and "yes" in any case.
func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
