package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// argList is a custom flag type for repeatable -arg flags.
type argList []string

func (a *argList) String() string {
	return strings.Join(*a, ", ")
}

func (a *argList) Set(value string) error {
	*a = append(*a, value)
	return nil
}

// ParseFlags parses command-line flags and returns a Config.
// Returns an error if required arguments are missing or invalid.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()
	var extraArgs argList
	var ignoreArgs argList

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `go-chrome-launch - Chromium launch and DevTools attachment

Usage:
  go-chrome-launch [flags]

Browser Selection:
`)
		// Print flags by category
		printFlagCategory([]string{"executable-path", "revision", "platform", "host"})

		fmt.Fprintf(os.Stderr, "\nLaunch Behavior:\n")
		printFlagCategory([]string{"headless", "devtools", "user-data-dir", "arg", "ignore-all-default-args", "ignore-default-arg", "pipe", "slow-mo", "timeout", "dumpio"})

		fmt.Fprintf(os.Stderr, "\nAttach (instead of launching):\n")
		printFlagCategory([]string{"ws-endpoint", "browser-url", "wait-for-browser", "connect-timeout"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format", "tui"})

		fmt.Fprintf(os.Stderr, "\nSafety & Diagnostics:\n")
		printFlagCategory([]string{"print-cmd", "resolve", "status", "skip-preflight"})

		fmt.Fprintf(os.Stderr, `
Examples:
  # Launch a headless browser and hold it open
  go-chrome-launch -executable-path /usr/bin/chromium

  # Launch over the pipe transport with an extra flag
  go-chrome-launch -pipe -arg --no-sandbox

  # Attach to a browser someone else started
  go-chrome-launch -browser-url http://127.0.0.1:9222

  # Print the download URL for a pinned build without launching
  go-chrome-launch -resolve -revision 756035 -platform linux

`)
	}

	// Browser selection
	flag.StringVar(&cfg.ExecutablePath, "executable-path", cfg.ExecutablePath, "Path to the browser binary (skips revision resolution)")
	flag.IntVar(&cfg.Revision, "revision", cfg.Revision, "Pinned Chromium revision (0 = built-in default)")
	flag.StringVar(&cfg.Platform, "platform", cfg.Platform, `Download platform: "linux", "mac", "win32", "win64" (default: current)`)
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Download host for -resolve (default: Google storage)")

	// Launch behavior
	flag.BoolVar(&cfg.Headless, "headless", cfg.Headless, "Run without a visible window (use -headless=false to disable)")
	flag.BoolVar(&cfg.Devtools, "devtools", cfg.Devtools, "Auto-open DevTools for each tab (forces headful)")
	flag.StringVar(&cfg.UserDataDir, "user-data-dir", cfg.UserDataDir, "Profile directory (default: fresh temp dir, removed on exit)")
	flag.Var(&extraArgs, "arg", "Extra browser argument (can repeat)")
	flag.BoolVar(&cfg.IgnoreAllDefaultArgs, "ignore-all-default-args", cfg.IgnoreAllDefaultArgs, "Drop the entire default argument set")
	flag.Var(&ignoreArgs, "ignore-default-arg", "Drop one default argument by name (can repeat)")
	flag.BoolVar(&cfg.UsePipe, "pipe", cfg.UsePipe, "Speak the protocol over fd 3/4 pipes instead of a websocket")
	flag.DurationVar(&cfg.SlowMo, "slow-mo", cfg.SlowMo, "Delay applied to every protocol message")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Readiness wait bound (0 = wait forever)")
	flag.BoolVar(&cfg.DumpIO, "dumpio", cfg.DumpIO, "Mirror browser stdout/stderr to this process")

	// Signal forwarding
	flag.BoolVar(&cfg.HandleSIGINT, "handle-sigint", cfg.HandleSIGINT, "Close the browser on SIGINT")
	flag.BoolVar(&cfg.HandleSIGTERM, "handle-sigterm", cfg.HandleSIGTERM, "Close the browser on SIGTERM")
	flag.BoolVar(&cfg.HandleSIGHUP, "handle-sighup", cfg.HandleSIGHUP, "Close the browser on SIGHUP")

	// Attach
	flag.StringVar(&cfg.WSEndpoint, "ws-endpoint", cfg.WSEndpoint, "Attach to this DevTools websocket endpoint")
	flag.StringVar(&cfg.BrowserURL, "browser-url", cfg.BrowserURL, "Attach via this base URL's /json/version endpoint")
	flag.BoolVar(&cfg.WaitForBrowser, "wait-for-browser", cfg.WaitForBrowser, "Poll -browser-url with backoff until it answers")
	flag.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Bound for -wait-for-browser polling")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Live terminal dashboard")

	// Safety & Diagnostics
	flag.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the browser command line and exit")
	flag.BoolVar(&cfg.Resolve, "resolve", cfg.Resolve, "Print the download URL for the pinned revision and exit")
	flag.BoolVar(&cfg.Status, "status", cfg.Status, "Scrape a running launcher's metrics endpoint and exit")
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Parse
	flag.Parse()

	cfg.Args = extraArgs
	cfg.IgnoreDefaultArgs = ignoreArgs

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" && f.DefValue != "[]" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
