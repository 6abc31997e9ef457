// Package config provides configuration management for go-chrome-launch.
package config

import "time"

// Config holds all configuration options for the launcher CLI.
type Config struct {
	// Browser selection
	ExecutablePath string `json:"executable_path"` // empty = resolve pinned revision
	Revision       int    `json:"revision"`
	Platform       string `json:"platform"` // empty = current platform
	Host           string `json:"host"`     // download host for -resolve

	// Launch behavior
	Headless             bool          `json:"headless"`
	Devtools             bool          `json:"devtools"`
	UserDataDir          string        `json:"user_data_dir"` // empty = temp profile
	Args                 []string      `json:"args"`
	IgnoreAllDefaultArgs bool          `json:"ignore_all_default_args"`
	IgnoreDefaultArgs    []string      `json:"ignore_default_args"`
	UsePipe              bool          `json:"use_pipe"`
	SlowMo               time.Duration `json:"slow_mo"`
	Timeout              time.Duration `json:"timeout"` // 0 = wait forever
	DumpIO               bool          `json:"dumpio"`

	// Signal forwarding
	HandleSIGINT  bool `json:"handle_sigint"`
	HandleSIGTERM bool `json:"handle_sigterm"`
	HandleSIGHUP  bool `json:"handle_sighup"`

	// Attach (connect to a running browser instead of launching)
	WSEndpoint     string        `json:"ws_endpoint"`
	BrowserURL     string        `json:"browser_url"`
	WaitForBrowser bool          `json:"wait_for_browser"`
	ConnectTimeout time.Duration `json:"connect_timeout"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	TUIEnabled  bool   `json:"tui"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	Resolve       bool `json:"resolve"`
	Status        bool `json:"status"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Browser selection
		Revision: 0, // 0 = pinned default revision

		// Launch behavior
		Headless: true,
		Timeout:  30 * time.Second,

		// Signal forwarding
		HandleSIGINT:  true,
		HandleSIGTERM: true,
		HandleSIGHUP:  true,

		// Attach
		ConnectTimeout: 30 * time.Second,

		// Observability
		MetricsAddr: "0.0.0.0:17092", // launcher port, one above the swarm tools
		Verbose:     false,
		LogFormat:   "json",
		TUIEnabled:  false,
	}
}

// AttachMode reports whether the config requests attaching to an
// already-running browser rather than launching one.
func (c *Config) AttachMode() bool {
	return c.WSEndpoint != "" || c.BrowserURL != ""
}
