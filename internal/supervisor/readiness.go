package supervisor

import (
	"context"
	"regexp"
	"time"
)

// readinessPattern matches the single diagnostic line Chromium emits
// once its DevTools listener is ready, anchored at both ends. The
// capture group is the websocket endpoint address.
var readinessPattern = regexp.MustCompile(`^DevTools listening on (ws://[^\s]+)$`)

// AwaitEndpoint scans the diagnostic stream line-by-line for the
// readiness line, racing three events: a matching line appears, the
// timeout elapses, or the process exits. Whichever happens first
// decides the outcome. A zero timeout disables the timer. Used only in
// socket mode; the pipe transport needs no readiness wait.
func (h *Handle) AwaitEndpoint(ctx context.Context, timeout time.Duration) (string, error) {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case line, ok := <-h.lines:
			if !ok {
				// Diagnostic stream closed: the process is going away.
				return h.drainForEndpoint()
			}
			if endpoint, ok := matchEndpoint(line); ok {
				return endpoint, nil
			}

		case <-timeoutCh:
			return "", &TimeoutError{Timeout: timeout, Output: h.tap.Recent()}

		case <-h.exitCh:
			return h.drainForEndpoint()

		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// drainForEndpoint checks lines buffered before the exit won the race;
// the readiness line may already be sitting in the channel.
func (h *Handle) drainForEndpoint() (string, error) {
	for {
		select {
		case line, ok := <-h.lines:
			if !ok {
				return "", h.exitedError()
			}
			if endpoint, ok := matchEndpoint(line); ok {
				return endpoint, nil
			}
		default:
			return "", h.exitedError()
		}
	}
}

func (h *Handle) exitedError() error {
	// The stream can close a moment before Wait() returns.
	<-h.exitCh
	return &ProcessExitedError{ExitCode: h.ExitCode(), Output: h.tap.Recent()}
}

func matchEndpoint(line string) (string, bool) {
	m := readinessPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
