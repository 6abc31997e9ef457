// Package session hands an established transport channel off to the
// DevTools protocol layer and waits for the browser to expose its
// first controllable page. The protocol itself (command catalogue,
// event dispatch, object model) is out of scope; only the bootstrap
// handshake lives here.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-chrome-launch/internal/supervisor"
	"github.com/randomizedcoder/go-chrome-launch/internal/transport"
)

// defaultReadyTimeout bounds the wait for the first page target. This
// is the session layer's own bound; the launcher adds none on top.
const defaultReadyTimeout = 30 * time.Second

// Session is a live connection to a browser. When the browser was
// spawned by this launch, Session also owns its process handle.
type Session struct {
	channel transport.Channel
	handle  *supervisor.Handle // nil for attached browsers
	logger  *slog.Logger

	wsEndpoint    string
	readyDuration time.Duration
	nextID        atomic.Int64

	targets atomic.Int64
}

// Options configures Bootstrap.
type Options struct {
	// WSEndpoint is recorded for callers that want to share the
	// browser address; empty in pipe mode.
	WSEndpoint string

	// ReadyTimeout overrides the wait for the first page target.
	ReadyTimeout time.Duration

	// ReadyDuration is how long the browser took to announce its
	// DevTools listener; zero in pipe and attach modes.
	ReadyDuration time.Duration

	Logger *slog.Logger
}

// Bootstrap establishes a session over the channel and blocks until at
// least one page target is available. If that fails and the browser
// was spawned by this launch (handle non-nil), the process is
// terminated before the error propagates; attached browsers are never
// killed.
func Bootstrap(ctx context.Context, ch transport.Channel, handle *supervisor.Handle, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		channel:       ch,
		handle:        handle,
		logger:        logger,
		wsEndpoint:    opts.WSEndpoint,
		readyDuration: opts.ReadyDuration,
	}

	if handle != nil {
		handle.SetChannelOwned(func() {
			logger.Warn("browser_exited_unexpectedly")
			ch.Close()
		})
	}

	if err := s.waitForPageTarget(ctx, opts.ReadyTimeout); err != nil {
		ch.Close()
		if handle != nil {
			handle.Kill()
		}
		return nil, err
	}

	return s, nil
}

// waitForPageTarget enables target discovery and consumes events until
// the first page target appears.
func (s *Session) waitForPageTarget(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.send("Target.setDiscoverTargets", map[string]any{"discover": true}); err != nil {
		return err
	}

	for {
		select {
		case msg, ok := <-s.channel.Messages():
			if !ok {
				return &transport.ChannelError{
					Op:  "bootstrap",
					Err: fmt.Errorf("channel closed before a page target appeared"),
				}
			}
			if s.observeTargetEvent(msg) {
				return nil
			}

		case err := <-s.channel.Errors():
			return err

		case <-ctx.Done():
			return &transport.ChannelError{
				Op:  "bootstrap",
				Err: fmt.Errorf("no page target within %v: %w", timeout, ctx.Err()),
			}
		}
	}
}

// targetEvent is the subset of Target.targetCreated we consume.
type targetEvent struct {
	Method string `json:"method"`
	Params struct {
		TargetInfo struct {
			TargetID string `json:"targetId"`
			Type     string `json:"type"`
		} `json:"targetInfo"`
	} `json:"params"`
}

// observeTargetEvent reports whether the message announced a page
// target. Non-event traffic (command replies) is skipped.
func (s *Session) observeTargetEvent(msg []byte) bool {
	var ev targetEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.logger.Debug("unparseable_message", "error", err)
		return false
	}
	if ev.Method != "Target.targetCreated" {
		return false
	}
	s.targets.Add(1)
	s.logger.Debug("target_created",
		"target_id", ev.Params.TargetInfo.TargetID,
		"type", ev.Params.TargetInfo.Type,
	)
	return ev.Params.TargetInfo.Type == "page"
}

// send issues one protocol command without waiting for the reply.
func (s *Session) send(method string, params map[string]any) error {
	msg, err := json.Marshal(map[string]any{
		"id":     s.nextID.Add(1),
		"method": method,
		"params": params,
	})
	if err != nil {
		return err
	}
	return s.channel.Send(msg)
}

// WSEndpoint returns the browser's websocket address, or "" in pipe
// mode.
func (s *Session) WSEndpoint() string {
	return s.wsEndpoint
}

// ReadyDuration returns how long the browser took to announce its
// DevTools listener, or zero when that wait never happened.
func (s *Session) ReadyDuration() time.Duration {
	return s.readyDuration
}

// Targets returns the number of targets observed so far.
func (s *Session) Targets() int {
	return int(s.targets.Load())
}

// Process returns the owned process handle, or nil for attached
// browsers.
func (s *Session) Process() *supervisor.Handle {
	return s.handle
}

// Close asks the browser to shut down over the protocol, closes the
// channel, and, for self-spawned browsers, stops the process. Attached
// browsers keep running; only the channel is released.
func (s *Session) Close() error {
	// Best effort: the channel may already be gone.
	s.send("Browser.close", nil)
	err := s.channel.Close()

	if s.handle != nil {
		if stopErr := s.handle.Stop(5 * time.Second); stopErr != nil {
			err = stopErr
		}
	}
	return err
}
