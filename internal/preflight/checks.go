// Package preflight provides startup validation checks run before a
// browser process is spawned.
package preflight

import (
	"fmt"
	"os"
	"syscall"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // name of the check
	Passed  bool   // whether the check passed
	Warning bool   // true if it's a warning (non-fatal)
	Message string // additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks against the browser executable.
func RunAll(executablePath string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 3),
		Passed: true,
	}

	for _, check := range []Check{
		checkExecutable(executablePath),
		checkTempDir(),
		checkFileDescriptors(),
	} {
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.Passed = false
		}
	}

	return result
}

// CheckExecutable verifies the browser binary exists and is runnable.
// Used by the launcher to fail fast, before any process or filesystem
// resource is allocated.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("browser executable not found at %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("browser executable path %s is a directory", path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("browser executable %s is not executable (mode %v)", path, info.Mode())
	}
	return nil
}

func checkExecutable(path string) Check {
	if err := CheckExecutable(path); err != nil {
		return Check{
			Name:    "browser_executable",
			Passed:  false,
			Message: err.Error(),
		}
	}
	return Check{
		Name:    "browser_executable",
		Passed:  true,
		Message: fmt.Sprintf("found at %s", path),
	}
}

// checkTempDir verifies a temporary profile directory can be created.
func checkTempDir() Check {
	dir, err := os.MkdirTemp("", "go-chrome-launch-preflight-")
	if err != nil {
		return Check{
			Name:    "temp_dir",
			Passed:  false,
			Message: fmt.Sprintf("cannot create temp profile dir: %v", err),
		}
	}
	os.RemoveAll(dir)
	return Check{
		Name:    "temp_dir",
		Passed:  true,
		Message: fmt.Sprintf("writable (%s)", os.TempDir()),
	}
}

// checkFileDescriptors verifies enough descriptors for the browser's
// renderer tree plus the launcher's pipes and sockets.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to read RLIMIT_NOFILE (assuming OK)",
		}
	}

	// A Chromium instance commonly opens several hundred descriptors.
	const required = 1024
	actual := int(limit.Cur)

	return Check{
		Name:    "file_descriptors",
		Passed:  actual >= required,
		Warning: actual < required*4,
		Message: fmt.Sprintf("ulimit -n %d (want at least %d)", actual, required),
	}
}
