package chrome

import "strings"

// baselineArgs is the fixed set of flags that disables background
// networking, telemetry, update checks, and other non-deterministic
// browser behavior, and marks the session as automated. Order matters:
// Chromium lets later duplicate flags override earlier ones.
var baselineArgs = []string{
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-breakpad",
	"--disable-client-side-phishing-detection",
	"--disable-component-extensions-with-background-pages",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-extensions",
	"--disable-features=TranslateUI",
	"--disable-hang-monitor",
	"--disable-ipc-flooding-protection",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-renderer-backgrounding",
	"--disable-sync",
	"--enable-automation",
	"--force-color-profile=srgb",
	"--metrics-recording-only",
	"--no-first-run",
	"--password-store=basic",
	"--use-mock-keychain",
}

// BuildArguments turns a Config into the final ordered argument list
// for the Chromium process. It is pure: no filesystem or environment
// access, and the same Config always yields the identical list. The
// user-data-dir and remote-debugging flags are appended later by the
// supervisor, once it knows which resources it owns.
func BuildArguments(cfg *Config) []string {
	var args []string

	if !cfg.IgnoreAllDefaultArgs {
		args = append(args, filterArgs(defaultArgs(cfg), cfg.IgnoreDefaultArgs)...)
	}

	// Guarantee the browser always has a destination to open: when
	// every caller argument looks like a flag, none of them can be a
	// navigation target.
	if allFlags(cfg.Args) {
		args = append(args, "about:blank")
	}
	args = append(args, cfg.Args...)

	return args
}

// DefaultArguments returns the baseline flags the given Config would
// produce, before caller extras. Exposed for "what would be used"
// inspection (-print-cmd).
func DefaultArguments(cfg *Config) []string {
	return defaultArgs(cfg)
}

func defaultArgs(cfg *Config) []string {
	args := make([]string, 0, len(baselineArgs)+4)
	args = append(args, baselineArgs...)

	if cfg.Devtools {
		args = append(args, "--auto-open-devtools-for-tabs")
	}
	if cfg.EffectiveHeadless() {
		args = append(args,
			"--headless",
			"--hide-scrollbars",
			"--mute-audio",
		)
	}

	return args
}

// filterArgs removes ignored flags from the baseline. An ignore entry
// matches either the full argument or the flag name before "=".
func filterArgs(args, ignore []string) []string {
	if len(ignore) == 0 {
		return args
	}

	ignored := make(map[string]bool, len(ignore))
	for _, flag := range ignore {
		ignored[flag] = true
	}

	kept := make([]string, 0, len(args))
	for _, arg := range args {
		name := arg
		if idx := strings.IndexByte(arg, '='); idx >= 0 {
			name = arg[:idx]
		}
		if ignored[arg] || ignored[name] {
			continue
		}
		kept = append(kept, arg)
	}
	return kept
}

// allFlags reports whether every argument starts with a flag marker.
// Vacuously true for an empty list.
func allFlags(args []string) bool {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return false
		}
	}
	return true
}
