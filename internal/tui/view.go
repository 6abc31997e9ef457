package tui

import (
	"fmt"
	"strings"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("go-chrome-launch"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  up %s", formatDuration(m.Elapsed()))))
	b.WriteString("\n")

	// Browser panel
	b.WriteString(sectionHeaderStyle.Render("Browser"))
	b.WriteString("\n")
	b.WriteString(RenderKeyValue("State", GetStateLabel(m.view.State)))
	b.WriteString("\n")
	if m.view.Pid > 0 {
		b.WriteString(RenderKeyValue("PID", fmt.Sprintf("%d", m.view.Pid)))
		b.WriteString("\n")
	}
	b.WriteString(RenderKeyValue("Transport", m.view.Transport))
	b.WriteString("\n")
	if m.view.WSEndpoint != "" {
		b.WriteString(RenderKeyValue("Endpoint", truncate(m.view.WSEndpoint, m.width-22)))
		b.WriteString("\n")
	}
	if m.view.UserDataDir != "" {
		b.WriteString(RenderKeyValue("Profile", truncate(m.view.UserDataDir, m.width-22)))
		b.WriteString("\n")
	}
	if m.view.Uptime > 0 {
		b.WriteString(RenderKeyValue("Uptime", formatDuration(m.view.Uptime)))
		b.WriteString("\n")
	}
	if m.view.Targets > 0 {
		b.WriteString(RenderKeyValue("Targets", fmt.Sprintf("%d", m.view.Targets)))
		b.WriteString("\n")
	}

	// Timing panel
	if m.snap != nil && m.snap.Launches > 0 {
		b.WriteString(sectionHeaderStyle.Render("Launch Timing"))
		b.WriteString("\n")
		b.WriteString(RenderKeyValue("Launches", fmt.Sprintf("%d", m.snap.Launches)))
		b.WriteString("\n")
		if m.snap.LaunchFailures > 0 {
			b.WriteString(RenderKeyValue("Failures", statusError.Render(fmt.Sprintf("%d", m.snap.LaunchFailures))))
			b.WriteString("\n")
		}
		b.WriteString(RenderPercentiles("Readiness",
			formatMs(m.snap.ReadinessP50),
			formatMs(m.snap.ReadinessP95),
			formatMs(m.snap.ReadinessP99),
		))
		b.WriteString("\n")
		b.WriteString(RenderPercentiles("Session ready",
			formatMs(m.snap.LaunchP50),
			formatMs(m.snap.LaunchP95),
			formatMs(m.snap.LaunchP99),
		))
		b.WriteString("\n")
	}

	// Output panel
	if len(m.view.RecentOutput) > 0 {
		b.WriteString(sectionHeaderStyle.Render("Recent Output"))
		b.WriteString("\n")
		lines := m.view.RecentOutput
		if len(lines) > 8 {
			lines = lines[len(lines)-8:]
		}
		for _, line := range lines {
			b.WriteString(dimStyle.Render(truncate(line, m.width-2)))
			b.WriteString("\n")
		}
	}

	// Footer
	footer := "q quit  r refresh"
	if m.metricsAddr != "" {
		footer += "  |  metrics: http://" + m.metricsAddr + "/metrics"
	}
	b.WriteString(footerStyle.Render(footer))
	b.WriteString("\n")

	return b.String()
}
