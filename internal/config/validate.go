package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Launching and attaching are mutually exclusive
	if cfg.WSEndpoint != "" && cfg.BrowserURL != "" {
		errs = append(errs, ValidationError{
			Field:   "ws_endpoint",
			Message: "only one of -ws-endpoint and -browser-url may be set",
		})
	}
	if cfg.AttachMode() && cfg.UsePipe {
		errs = append(errs, ValidationError{
			Field:   "pipe",
			Message: "the pipe transport only applies to a browser this process launches",
		})
	}
	if cfg.AttachMode() && cfg.ExecutablePath != "" {
		errs = append(errs, ValidationError{
			Field:   "executable_path",
			Message: "not used when attaching to a running browser",
		})
	}

	// Validate attach endpoints if provided
	if cfg.WSEndpoint != "" {
		if err := validateWSURL(cfg.WSEndpoint); err != nil {
			errs = append(errs, ValidationError{
				Field:   "ws_endpoint",
				Message: err.Error(),
			})
		}
	}
	if cfg.BrowserURL != "" {
		if err := validateHTTPURL(cfg.BrowserURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "browser_url",
				Message: err.Error(),
			})
		}
	}
	if cfg.WaitForBrowser && cfg.BrowserURL == "" {
		errs = append(errs, ValidationError{
			Field:   "wait_for_browser",
			Message: "requires -browser-url",
		})
	}

	// Revision must not be negative
	if cfg.Revision < 0 {
		errs = append(errs, ValidationError{
			Field:   "revision",
			Message: "must not be negative",
		})
	}

	// Platform must be valid if set
	if cfg.Platform != "" {
		validPlatforms := map[string]bool{
			"linux": true, "mac": true, "win32": true, "win64": true,
		}
		if !validPlatforms[cfg.Platform] {
			errs = append(errs, ValidationError{
				Field:   "platform",
				Message: fmt.Sprintf("must be one of: linux, mac, win32, win64 (got %q)", cfg.Platform),
			})
		}
	}

	// Timeouts must not be negative (zero = wait forever)
	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must not be negative",
		})
	}
	if cfg.SlowMo < 0 {
		errs = append(errs, ValidationError{
			Field:   "slow_mo",
			Message: "must not be negative",
		})
	}
	if cfg.ConnectTimeout <= 0 && cfg.WaitForBrowser {
		errs = append(errs, ValidationError{
			Field:   "connect_timeout",
			Message: "must be positive when -wait-for-browser is set",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Extra args should look like flags or URLs, not file paths typed by
	// accident
	for _, arg := range cfg.IgnoreDefaultArgs {
		if !strings.HasPrefix(arg, "--") {
			errs = append(errs, ValidationError{
				Field:   "ignore_default_arg",
				Message: fmt.Sprintf("default arguments start with -- (got %q)", arg),
			})
		}
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateWSURL checks the endpoint is a websocket URL.
func validateWSURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("URL scheme must be ws or wss (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}

// validateHTTPURL checks the base URL is plain http(s).
func validateHTTPURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}
