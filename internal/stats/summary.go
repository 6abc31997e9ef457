// Exit summary formatter, printed when the launcher shuts down.
package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Duration is the total run duration
	Duration time.Duration

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// ExitCode is the browser's final exit code, or -1 if it was
	// still running at shutdown
	ExitCode int
}

// FormatExitSummary formats launch stats for display at program exit.
func FormatExitSummary(snap *Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                          go-chrome-launch Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	if snap != nil {
		fmt.Fprintf(&b, "Launches:               %d\n", snap.Launches)
		if snap.LaunchFailures > 0 {
			fmt.Fprintf(&b, "Launch Failures:        %d\n", snap.LaunchFailures)
		}
		if snap.Attaches > 0 {
			fmt.Fprintf(&b, "Attaches:               %d\n", snap.Attaches)
		}
		if snap.UnexpectedExits > 0 {
			fmt.Fprintf(&b, "Unexpected Exits:       %d\n", snap.UnexpectedExits)
		}
		b.WriteString("\n")

		if snap.Launches > 0 {
			b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
			b.WriteString("                              Launch Timing\n")
			b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

			fmt.Fprintf(&b, "  %-20s %12s %12s %12s\n", "Phase", "P50", "P95", "P99")
			b.WriteString("  " + strings.Repeat("─", 58) + "\n")
			fmt.Fprintf(&b, "  %-20s %12s %12s %12s\n",
				"Spawn to endpoint",
				FormatMs(snap.ReadinessP50),
				FormatMs(snap.ReadinessP95),
				FormatMs(snap.ReadinessP99),
			)
			fmt.Fprintf(&b, "  %-20s %12s %12s %12s\n",
				"Spawn to session",
				FormatMs(snap.LaunchP50),
				FormatMs(snap.LaunchP95),
				FormatMs(snap.LaunchP99),
			)
			b.WriteString("\n")
		}

		if snap.UptimeMax > 0 {
			b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
			b.WriteString("                            Session Uptime\n")
			b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

			fmt.Fprintf(&b, "  Min:                  %s\n", FormatDuration(snap.UptimeMin))
			fmt.Fprintf(&b, "  Max:                  %s\n", FormatDuration(snap.UptimeMax))
			fmt.Fprintf(&b, "  Avg:                  %s\n", FormatDuration(snap.UptimeAvg))
			b.WriteString("\n")
		}
	}

	if cfg.ExitCode >= 0 {
		fmt.Fprintf(&b, "Browser Exit Code:      %d %s\n", cfg.ExitCode, exitCodeLabel(cfg.ExitCode))
	}

	// Metrics endpoint
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
