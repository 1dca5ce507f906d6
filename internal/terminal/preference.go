package terminal

// PreferenceOptions contains command-line options for terminal preferences.
type PreferenceOptions struct {
	ForceColor   bool // Force color output regardless of environment
	DisableColor bool // Disable color output regardless of environment
}

// UserPreference resolves explicit colour choices from options and the
// CLICOLOR_FORCE and NO_COLOR variables.
type UserPreference struct {
	options PreferenceOptions
	env     LookupEnvFunc
}

func newUserPreference(options PreferenceOptions, env LookupEnvFunc) *UserPreference {
	return &UserPreference{options: options, env: env}
}

// SupportsColor returns the explicit choice, or false when there is none.
func (p *UserPreference) SupportsColor() bool {
	if p.options.ForceColor {
		return true
	}
	if p.options.DisableColor {
		return false
	}
	if isTruthy(getenv(p.env, "CLICOLOR_FORCE")) {
		return true
	}
	// NO_COLOR, or no preference at all.
	return false
}

// HasExplicitPreference reports whether an option, a truthy CLICOLOR_FORCE
// or any NO_COLOR is present. CLICOLOR is not explicit: it only applies to
// interactive sessions.
func (p *UserPreference) HasExplicitPreference() bool {
	if p.options.ForceColor || p.options.DisableColor {
		return true
	}
	if isTruthy(getenv(p.env, "CLICOLOR_FORCE")) {
		return true
	}
	_, noColor := p.env("NO_COLOR")
	return noColor
}
