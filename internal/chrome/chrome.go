// Package chrome constructs Chromium launch invocations.
package chrome

import "time"

// Config holds configuration for building a Chromium command line.
type Config struct {
	// ExecutablePath is the path to the Chromium binary.
	// When empty, the launcher resolves it from the pinned revision.
	ExecutablePath string

	// Headless runs the browser without a visible window.
	// Forced off when Devtools is set.
	Headless bool

	// Devtools auto-opens the devtools panel for every tab.
	// Implies a headful browser.
	Devtools bool

	// UserDataDir is an explicit profile directory. When empty, the
	// supervisor allocates (and later removes) a temporary one. The
	// argument builder never injects this flag itself.
	UserDataDir string

	// Args are caller-supplied extra arguments, appended last.
	Args []string

	// IgnoreAllDefaultArgs suppresses the entire baseline flag set.
	IgnoreAllDefaultArgs bool

	// IgnoreDefaultArgs removes the named flags from the baseline set.
	// Entries match either the full argument or the flag name before "=".
	IgnoreDefaultArgs []string

	// UsePipe selects the pipe transport instead of a debugging port.
	UsePipe bool

	// SlowMo delays every channel send and dispatch by this amount.
	SlowMo time.Duration

	// Timeout bounds the wait for the DevTools readiness line.
	// Zero disables the timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Headless: true,
		Timeout:  30 * time.Second,
	}
}

// EffectiveHeadless reports whether the browser will actually run
// headless: devtools always forces a visible window.
func (c *Config) EffectiveHeadless() bool {
	return c.Headless && !c.Devtools
}
