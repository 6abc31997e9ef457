// Package launcher orchestrates browser startup and attachment: it
// builds arguments, spawns and supervises the process, negotiates the
// transport, and bootstraps the protocol session.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-chrome-launch/internal/chrome"
	"github.com/randomizedcoder/go-chrome-launch/internal/discovery"
	"github.com/randomizedcoder/go-chrome-launch/internal/fetcher"
	"github.com/randomizedcoder/go-chrome-launch/internal/preflight"
	"github.com/randomizedcoder/go-chrome-launch/internal/session"
	"github.com/randomizedcoder/go-chrome-launch/internal/supervisor"
	"github.com/randomizedcoder/go-chrome-launch/internal/transport"
)

// ConfigurationError indicates invalid or ambiguous options, surfaced
// before any process or network resource is allocated.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Options configures Launch.
type Options struct {
	// ExecutablePath overrides revision-based resolution.
	ExecutablePath string

	// Revision selects the pinned build when ExecutablePath is empty.
	// Zero means fetcher.DefaultRevision.
	Revision int

	Headless             bool
	Devtools             bool
	UserDataDir          string
	Args                 []string
	IgnoreAllDefaultArgs bool
	IgnoreDefaultArgs    []string

	// UsePipe selects the pipe transport over a websocket.
	UsePipe bool

	// Env is the child environment; nil snapshots os.Environ() at
	// spawn time.
	Env []string

	// DumpIO mirrors browser stdout/stderr to the caller's.
	DumpIO bool

	HandleSIGINT  bool
	HandleSIGTERM bool
	HandleSIGHUP  bool

	// SlowMo delays every channel send and dispatch.
	SlowMo time.Duration

	// Timeout bounds the readiness wait. Zero disables it.
	Timeout time.Duration

	// Observation hooks. All optional; all must be fast and
	// non-blocking, they run on transport and scanner goroutines.
	OnStderrLine      func(line string)
	OnMessageSent     func()
	OnMessageReceived func()

	Logger *slog.Logger
}

// DefaultOptions returns launch options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Headless:      true,
		Revision:      fetcher.DefaultRevision,
		HandleSIGINT:  true,
		HandleSIGTERM: true,
		HandleSIGHUP:  true,
		Timeout:       30 * time.Second,
	}
}

// BuildArguments returns the argument list Launch would pass to the
// browser, for inspection, before the supervisor appends the flags for
// resources it owns.
func BuildArguments(opts Options) []string {
	return chrome.BuildArguments(chromeConfig(opts))
}

func chromeConfig(opts Options) *chrome.Config {
	return &chrome.Config{
		ExecutablePath:       opts.ExecutablePath,
		Headless:             opts.Headless,
		Devtools:             opts.Devtools,
		UserDataDir:          opts.UserDataDir,
		Args:                 opts.Args,
		IgnoreAllDefaultArgs: opts.IgnoreAllDefaultArgs,
		IgnoreDefaultArgs:    opts.IgnoreDefaultArgs,
		UsePipe:              opts.UsePipe,
		SlowMo:               opts.SlowMo,
		Timeout:              opts.Timeout,
	}
}

// Launch spawns a browser and returns a live session. Every failure
// after the spawn terminates the process and removes its temporary
// profile before the error returns.
func Launch(ctx context.Context, opts Options) (*session.Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exePath, err := resolveExecutable(opts)
	if err != nil {
		return nil, err
	}
	if err := preflight.CheckExecutable(exePath); err != nil {
		return nil, &supervisor.SpawnError{Path: exePath, Err: err}
	}

	args := chrome.BuildArguments(chromeConfig(opts))

	start := time.Now()
	handle, err := supervisor.Spawn(supervisor.Spec{
		Path:          exePath,
		Args:          args,
		Env:           opts.Env,
		UsePipe:       opts.UsePipe,
		UserDataDir:   opts.UserDataDir,
		DumpIO:        opts.DumpIO,
		HandleSIGINT:  opts.HandleSIGINT,
		HandleSIGTERM: opts.HandleSIGTERM,
		HandleSIGHUP:  opts.HandleSIGHUP,
		LineHook:      opts.OnStderrLine,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	var (
		ch           transport.Channel
		wsEndpoint   string
		readyElapsed time.Duration
	)
	if opts.UsePipe {
		w, r := handle.PipeStreams()
		ch = transport.NewPipeChannel(w, r)
	} else {
		endpoint, err := handle.AwaitEndpoint(ctx, opts.Timeout)
		if err != nil {
			handle.Kill()
			return nil, err
		}
		wsEndpoint = endpoint
		readyElapsed = time.Since(start)

		wsCh, err := transport.DialWebSocket(ctx, endpoint)
		if err != nil {
			handle.Kill()
			return nil, err
		}
		ch = wsCh
	}
	ch = transport.WithCounters(ch, opts.OnMessageSent, opts.OnMessageReceived)
	ch = transport.WithSlowMo(ch, opts.SlowMo)

	sess, err := session.Bootstrap(ctx, ch, handle, session.Options{
		WSEndpoint:    wsEndpoint,
		ReadyDuration: readyElapsed,
		Logger:        logger,
	})
	if err != nil {
		// Bootstrap already tore down the channel and the process.
		return nil, err
	}

	logger.Info("browser_ready",
		"pid", handle.Pid(),
		"ws_endpoint", wsEndpoint,
		"pipe", opts.UsePipe,
		"startup", time.Since(start).String(),
	)
	return sess, nil
}

// resolveExecutable returns the explicit path, or resolves the pinned
// revision for the running platform.
func resolveExecutable(opts Options) (string, error) {
	if opts.ExecutablePath != "" {
		return opts.ExecutablePath, nil
	}

	revision := opts.Revision
	if revision == 0 {
		revision = fetcher.DefaultRevision
	}

	f := fetcher.New(fetcher.Config{})
	info, err := f.Resolve("", revision)
	if err != nil {
		return "", err
	}
	if !info.Local {
		return "", &ConfigurationError{Reason: fmt.Sprintf(
			"no executable path given and revision %d is not downloaded (expected at %s)",
			revision, info.ExecutablePath,
		)}
	}
	return info.ExecutablePath, nil
}

// ConnectOptions configures Connect. Exactly one of WSEndpoint,
// BrowserURL, or Channel must be set.
type ConnectOptions struct {
	// WSEndpoint is an explicit control-channel address.
	WSEndpoint string

	// BrowserURL is a base URL whose /json/version endpoint names the
	// control channel.
	BrowserURL string

	// Channel is an already-established transport.
	Channel transport.Channel

	// WaitForBrowser polls BrowserURL with backoff instead of a single
	// discovery request, bounded by Timeout.
	WaitForBrowser bool

	// Timeout bounds discovery polling when WaitForBrowser is set.
	Timeout time.Duration

	SlowMo time.Duration

	// Observation hooks, as in Options. Optional, non-blocking.
	OnMessageSent     func()
	OnMessageReceived func()

	Logger *slog.Logger
}

// Connect attaches to an already-running browser. The browser is never
// terminated by this flow; ownership stays with whoever started it.
func Connect(ctx context.Context, opts ConnectOptions) (*session.Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	supplied := 0
	if opts.WSEndpoint != "" {
		supplied++
	}
	if opts.BrowserURL != "" {
		supplied++
	}
	if opts.Channel != nil {
		supplied++
	}
	if supplied != 1 {
		return nil, &ConfigurationError{
			Reason: "exactly one of browserWSEndpoint, browserURL, or an existing transport must be provided",
		}
	}

	var (
		ch         transport.Channel
		wsEndpoint string
		err        error
	)
	switch {
	case opts.Channel != nil:
		ch = opts.Channel

	case opts.WSEndpoint != "":
		wsEndpoint = opts.WSEndpoint
		ch, err = transport.DialWebSocket(ctx, wsEndpoint)
		if err != nil {
			return nil, err
		}

	default:
		client := discovery.NewClient(0)
		if opts.WaitForBrowser {
			wsEndpoint, err = client.Wait(ctx, opts.BrowserURL, opts.Timeout)
		} else {
			wsEndpoint, err = client.Discover(ctx, opts.BrowserURL)
		}
		if err != nil {
			return nil, err
		}
		ch, err = transport.DialWebSocket(ctx, wsEndpoint)
		if err != nil {
			return nil, err
		}
	}
	ch = transport.WithCounters(ch, opts.OnMessageSent, opts.OnMessageReceived)
	ch = transport.WithSlowMo(ch, opts.SlowMo)

	sess, err := session.Bootstrap(ctx, ch, nil, session.Options{
		WSEndpoint: wsEndpoint,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("browser_attached", "ws_endpoint", wsEndpoint)
	return sess, nil
}
