package supervisor

import (
	"fmt"
	"strings"
	"time"
)

// SpawnError indicates the browser process could not be created: the
// executable is missing, not executable, or the OS refused the spawn.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to launch browser process %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates the DevTools readiness line did not appear on
// the diagnostic stream within the configured bound. The message names
// the bound and carries the recent browser output for diagnosis.
type TimeoutError struct {
	Timeout time.Duration
	Output  []string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("websocket endpoint not found within %dms", e.Timeout.Milliseconds())
	if len(e.Output) > 0 {
		msg += "; browser output:\n" + strings.Join(e.Output, "\n")
	}
	return msg
}

// ProcessExitedError indicates the browser terminated before readiness
// or handshake completed.
type ProcessExitedError struct {
	ExitCode int
	Output   []string
}

func (e *ProcessExitedError) Error() string {
	msg := fmt.Sprintf("browser process exited with code %d before becoming ready", e.ExitCode)
	if len(e.Output) > 0 {
		msg += "; browser output:\n" + strings.Join(e.Output, "\n")
	}
	return msg
}
