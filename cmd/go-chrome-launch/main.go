// Package main provides the go-chrome-launch CLI entry point.
//
// go-chrome-launch launches a Chromium browser with a DevTools control
// channel, or attaches to one that is already running, and supervises
// it until shutdown.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randomizedcoder/go-chrome-launch/internal/config"
	"github.com/randomizedcoder/go-chrome-launch/internal/fetcher"
	"github.com/randomizedcoder/go-chrome-launch/internal/launcher"
	"github.com/randomizedcoder/go-chrome-launch/internal/logging"
	"github.com/randomizedcoder/go-chrome-launch/internal/metrics"
	"github.com/randomizedcoder/go-chrome-launch/internal/runner"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-chrome-launch
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-chrome-launch %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle one-shot modes
	if cfg.PrintCmd {
		printChromeCommand(cfg)
		return 0
	}
	if cfg.Resolve {
		return printRevisionInfo(cfg)
	}
	if cfg.Status {
		return printStatus(cfg)
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"attach", cfg.AttachMode(),
		"pipe", cfg.UsePipe,
		"headless", cfg.Headless,
		"metrics_addr", cfg.MetricsAddr,
	)

	// Print startup banner
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	if err := runner.New(cfg, logger, version).Run(context.Background()); err != nil {
		logger.Error("run_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       go-chrome-launch                            ║")
	fmt.Println("║      Chromium Launch and DevTools Session Supervision             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	switch {
	case cfg.WSEndpoint != "":
		fmt.Printf("  Attach:      %s\n", cfg.WSEndpoint)
	case cfg.BrowserURL != "":
		fmt.Printf("  Attach:      %s (via /json/version)\n", cfg.BrowserURL)
	case cfg.ExecutablePath != "":
		fmt.Printf("  Browser:     %s\n", cfg.ExecutablePath)
	default:
		revision := cfg.Revision
		if revision == 0 {
			revision = fetcher.DefaultRevision
		}
		fmt.Printf("  Browser:     pinned revision %d\n", revision)
	}
	if !cfg.AttachMode() {
		transport := "websocket"
		if cfg.UsePipe {
			transport = "pipe"
		}
		fmt.Printf("  Transport:   %s\n", transport)
		fmt.Printf("  Headless:    %t\n", cfg.Headless)
	}
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printChromeCommand prints the argument list the browser would be
// started with.
func printChromeCommand(cfg *config.Config) {
	args := launcher.BuildArguments(launcher.Options{
		ExecutablePath:       cfg.ExecutablePath,
		Headless:             cfg.Headless,
		Devtools:             cfg.Devtools,
		UserDataDir:          cfg.UserDataDir,
		Args:                 cfg.Args,
		IgnoreAllDefaultArgs: cfg.IgnoreAllDefaultArgs,
		IgnoreDefaultArgs:    cfg.IgnoreDefaultArgs,
		UsePipe:              cfg.UsePipe,
	})

	fmt.Println("# Chromium arguments that would be used:")
	fmt.Println()
	for _, arg := range args {
		fmt.Println(arg)
	}
}

// printRevisionInfo resolves the configured revision to its download
// URL and local paths.
func printRevisionInfo(cfg *config.Config) int {
	revision := cfg.Revision
	if revision == 0 {
		revision = fetcher.DefaultRevision
	}

	f := fetcher.New(fetcher.Config{
		Host:     cfg.Host,
		Platform: fetcher.Platform(cfg.Platform),
	})
	info, err := f.Resolve(fetcher.Platform(cfg.Platform), revision)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolve error: %v\n", err)
		return 1
	}

	fmt.Printf("Platform:    %s\n", info.Platform)
	fmt.Printf("Revision:    %d\n", info.Revision)
	fmt.Printf("URL:         %s\n", info.URL)
	fmt.Printf("Folder:      %s\n", info.FolderPath)
	fmt.Printf("Executable:  %s\n", info.ExecutablePath)
	fmt.Printf("Downloaded:  %t\n", info.Local)
	return 0
}

// printStatus scrapes a running launcher's metrics endpoint and prints
// a summary.
func printStatus(cfg *config.Config) int {
	status, err := metrics.ScrapeStatus("http://" + cfg.MetricsAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status error: %v\n", err)
		return 1
	}
	fmt.Print(metrics.FormatStatus(status))
	return 0
}
