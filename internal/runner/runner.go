// Package runner coordinates the launcher CLI: it launches or attaches
// to a browser, serves metrics, optionally drives the terminal
// dashboard, and holds the session open until a signal arrives or the
// browser dies.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-chrome-launch/internal/config"
	"github.com/randomizedcoder/go-chrome-launch/internal/discovery"
	"github.com/randomizedcoder/go-chrome-launch/internal/fetcher"
	"github.com/randomizedcoder/go-chrome-launch/internal/launcher"
	"github.com/randomizedcoder/go-chrome-launch/internal/metrics"
	"github.com/randomizedcoder/go-chrome-launch/internal/preflight"
	"github.com/randomizedcoder/go-chrome-launch/internal/session"
	"github.com/randomizedcoder/go-chrome-launch/internal/stats"
	"github.com/randomizedcoder/go-chrome-launch/internal/supervisor"
	"github.com/randomizedcoder/go-chrome-launch/internal/transport"
	"github.com/randomizedcoder/go-chrome-launch/internal/tui"
)

// Runner coordinates all components for one launcher run.
type Runner struct {
	config *config.Config
	logger *slog.Logger

	collector     *metrics.Collector
	metricsServer *metrics.Server
	launchStats   *stats.LaunchStats

	mu        sync.Mutex
	sess      *session.Session
	startTime time.Time
}

// New creates a Runner from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) *Runner {
	return newWithRegistry(cfg, logger, version, prometheus.DefaultRegisterer)
}

func newWithRegistry(cfg *config.Config, logger *slog.Logger, version string, registry prometheus.Registerer) *Runner {
	revision := cfg.Revision
	if revision == 0 {
		revision = fetcher.DefaultRevision
	}
	transportName := "websocket"
	if cfg.UsePipe {
		transportName = "pipe"
	}

	r := &Runner{
		config:      cfg,
		logger:      logger,
		launchStats: stats.New(),
		collector: metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
			Version:   version,
			Platform:  string(fetcher.CurrentPlatform()),
			Revision:  revision,
			Transport: transportName,
		}, registry),
	}
	r.metricsServer = metrics.NewServer(cfg.MetricsAddr, logger, r.statusPayload)
	return r
}

// Run launches or attaches, then blocks until a signal arrives, the
// browser exits, or the dashboard quits.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()

	if !r.config.SkipPreflight && !r.config.AttachMode() && r.config.ExecutablePath != "" {
		result := preflight.RunAll(r.config.ExecutablePath)
		for _, check := range result.Checks {
			fmt.Println(check)
		}
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use -skip-preflight to override)")
		}
	}

	if err := r.metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	sess, err := r.establish(ctx)
	if err != nil {
		r.launchStats.RecordLaunchFailure()
		r.collector.RecordLaunchFailure(failurePhase(err))

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		r.metricsServer.Shutdown(stopCtx)
		return err
	}
	r.mu.Lock()
	r.sess = sess
	r.mu.Unlock()

	if sess.Process() != nil {
		r.collector.SetActiveBrowsers(1)
	}

	// Watch for the browser dying underneath us.
	exitCh := make(chan struct{})
	go r.watch(ctx, sess, exitCh)

	if r.config.TUIEnabled {
		err = r.runDashboard(ctx, sigCh, exitCh)
	} else {
		select {
		case sig := <-sigCh:
			r.logger.Info("received_signal", "signal", sig.String())
		case <-exitCh:
		case <-ctx.Done():
			r.logger.Info("context_cancelled")
		}
	}
	cancel()

	r.shutdown(sess)
	return err
}

// establish launches a browser or attaches to a running one.
func (r *Runner) establish(ctx context.Context) (*session.Session, error) {
	if r.config.AttachMode() {
		sess, err := launcher.Connect(ctx, launcher.ConnectOptions{
			WSEndpoint:        r.config.WSEndpoint,
			BrowserURL:        r.config.BrowserURL,
			WaitForBrowser:    r.config.WaitForBrowser,
			Timeout:           r.config.ConnectTimeout,
			SlowMo:            r.config.SlowMo,
			OnMessageSent:     r.collector.RecordMessageSent,
			OnMessageReceived: r.collector.RecordMessageReceived,
			Logger:            r.logger,
		})
		if err != nil {
			return nil, err
		}
		r.launchStats.RecordAttach()
		r.collector.RecordAttach()
		return sess, nil
	}

	start := time.Now()
	sess, err := launcher.Launch(ctx, launcher.Options{
		ExecutablePath:       r.config.ExecutablePath,
		Revision:             r.config.Revision,
		Headless:             r.config.Headless,
		Devtools:             r.config.Devtools,
		UserDataDir:          r.config.UserDataDir,
		Args:                 r.config.Args,
		IgnoreAllDefaultArgs: r.config.IgnoreAllDefaultArgs,
		IgnoreDefaultArgs:    r.config.IgnoreDefaultArgs,
		UsePipe:              r.config.UsePipe,
		DumpIO:               r.config.DumpIO,
		HandleSIGINT:         r.config.HandleSIGINT,
		HandleSIGTERM:        r.config.HandleSIGTERM,
		HandleSIGHUP:         r.config.HandleSIGHUP,
		SlowMo:               r.config.SlowMo,
		Timeout:              r.config.Timeout,
		OnStderrLine:         func(string) { r.collector.RecordStderrLine() },
		OnMessageSent:        r.collector.RecordMessageSent,
		OnMessageReceived:    r.collector.RecordMessageReceived,
		Logger:               r.logger,
	})
	if err != nil {
		return nil, err
	}

	total := time.Since(start)
	r.launchStats.RecordLaunch(total)
	if ready := sess.ReadyDuration(); ready > 0 {
		r.launchStats.RecordReadiness(ready)
	}
	r.collector.RecordLaunch(total, sess.ReadyDuration())
	return sess, nil
}

// watch closes exitCh when the owned process dies and keeps the
// elapsed-time gauge fresh. Attached sessions have no process to
// watch; only the gauge is serviced.
func (r *Runner) watch(ctx context.Context, sess *session.Session, exitCh chan struct{}) {
	var exited <-chan struct{} // nil blocks forever
	if handle := sess.Process(); handle != nil {
		exited = handle.Exited()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.collector.Tick()
		case <-exited:
			handle := sess.Process()
			r.logger.Warn("browser_exited",
				"exit_code", handle.ExitCode(),
			)
			r.launchStats.RecordUnexpectedExit()
			r.collector.RecordUnexpectedExit()
			r.collector.SetActiveBrowsers(0)
			close(exitCh)
			return
		}
	}
}

// runDashboard blocks in the TUI until it quits or the run ends.
func (r *Runner) runDashboard(ctx context.Context, sigCh chan os.Signal, exitCh chan struct{}) error {
	model := tui.New(tui.Config{
		MetricsAddr: r.config.MetricsAddr,
		Source:      r,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		select {
		case <-sigCh:
		case <-exitCh:
		case <-ctx.Done():
		}
		tui.SendQuit(program)
	}()

	_, err := program.Run()
	return err
}

// shutdown closes the session and prints the exit summary.
func (r *Runner) shutdown(sess *session.Session) {
	handle := sess.Process()
	exitCode := -1

	var uptime time.Duration
	if handle != nil {
		// Uptime reads as zero after the process is reaped, so grab it
		// before Close stops the browser.
		uptime = handle.Uptime()
		if uptime > 0 {
			r.launchStats.RecordUptime(uptime)
		}
	}
	if err := sess.Close(); err != nil {
		r.logger.Warn("session_close_error", "error", err)
	}
	if handle != nil {
		exitCode = handle.ExitCode()
		r.collector.RecordExit(exitCode, uptime)
		r.collector.SetActiveBrowsers(0)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("metrics_server_shutdown_error", "error", err)
	}

	fmt.Println(stats.FormatExitSummary(r.launchStats.Snapshot(), stats.SummaryConfig{
		Duration:    time.Since(r.startTime),
		MetricsAddr: r.config.MetricsAddr,
		ExitCode:    exitCode,
	}))
}

// failurePhase maps a launch error to a metrics label.
func failurePhase(err error) string {
	var spawnErr *supervisor.SpawnError
	var timeoutErr *supervisor.TimeoutError
	var exitErr *supervisor.ProcessExitedError
	var chanErr *transport.ChannelError
	var discErr *discovery.DiscoveryError

	switch {
	case errors.As(err, &spawnErr):
		return "spawn"
	case errors.As(err, &timeoutErr), errors.As(err, &exitErr):
		return "readiness"
	case errors.As(err, &discErr):
		return "discovery"
	case errors.As(err, &chanErr):
		return "session"
	default:
		return "other"
	}
}

// =============================================================================
// tui.Source
// =============================================================================

// BrowserView builds the dashboard's process panel.
func (r *Runner) BrowserView() tui.BrowserView {
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()

	view := tui.BrowserView{State: "starting"}
	if sess == nil {
		return view
	}

	view.WSEndpoint = sess.WSEndpoint()
	view.Targets = sess.Targets()
	view.Transport = "websocket"
	if r.config.UsePipe {
		view.Transport = "pipe"
	}

	if handle := sess.Process(); handle != nil {
		view.State = handle.State().String()
		view.Pid = handle.Pid()
		view.Uptime = handle.Uptime()
		view.UserDataDir = handle.TempDir()
		view.RecentOutput = handle.RecentOutput()
	} else {
		view.State = "running" // attached; liveness is the peer's concern
	}
	return view
}

// StatsSnapshot supplies the dashboard's timing panel.
func (r *Runner) StatsSnapshot() *stats.Snapshot {
	return r.launchStats.Snapshot()
}

// statusPayload serves the metrics server's /status endpoint.
func (r *Runner) statusPayload() any {
	view := r.BrowserView()
	return map[string]any{
		"state":       view.State,
		"pid":         view.Pid,
		"transport":   view.Transport,
		"ws_endpoint": view.WSEndpoint,
		"uptime":      view.Uptime.String(),
		"targets":     view.Targets,
		"stats":       r.launchStats.Snapshot(),
	}
}
