package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars are set by common CI systems.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"TRAVIS",
	"CIRCLECI",
	"JENKINS_URL",
	"BUILD_NUMBER",
	"GITLAB_CI",
	"APPVEYOR",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
}

// DetectorOptions contains options for controlling interactive detection.
type DetectorOptions struct {
	ForceInteractive    bool // Force interactive mode regardless of environment
	ForceNonInteractive bool // Force non-interactive mode regardless of environment
}

// InteractiveDetector decides whether the session is interactive.
type InteractiveDetector interface {
	IsInteractive() bool
	IsTerminal() bool
	IsCIEnvironment() bool
}

// DefaultInteractiveDetector implements InteractiveDetector.
type DefaultInteractiveDetector struct {
	options    DetectorOptions
	env        LookupEnvFunc
	isTerminal func() bool
}

func newInteractiveDetector(options DetectorOptions, env LookupEnvFunc, isTerminal func() bool) *DefaultInteractiveDetector {
	return &DefaultInteractiveDetector{options: options, env: env, isTerminal: isTerminal}
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// IsInteractive applies, in order: the force options, CI detection, and
// whether stderr is a terminal.
func (d *DefaultInteractiveDetector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal()
}

// IsTerminal reports whether stderr is connected to a terminal.
func (d *DefaultInteractiveDetector) IsTerminal() bool {
	return d.isTerminal()
}

// IsCIEnvironment reports whether a CI variable is set. CI itself must be
// truthy; for the others presence is enough.
func (d *DefaultInteractiveDetector) IsCIEnvironment() bool {
	for _, key := range ciEnvVars {
		value := getenv(d.env, key)
		if value == "" {
			continue
		}
		if key == "CI" {
			return isCITruthy(value)
		}
		return true
	}
	return false
}

// isCITruthy rejects CI=false, CI=0 and CI=no.
func isCITruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "0", "no":
		return false
	default:
		return true
	}
}
