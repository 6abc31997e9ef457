// Package metrics provides Prometheus metrics for go-chrome-launch.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// --- Launcher overview ---
var (
	launchInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chrome_launch_info",
			Help: "Information about the launcher (value always 1)",
		},
		[]string{"version", "platform", "revision", "transport"},
	)

	launchActiveBrowsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chrome_launch_active_browsers",
			Help: "Browser processes currently supervised",
		},
	)

	launchElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chrome_launch_elapsed_seconds",
			Help: "Seconds since the launcher started",
		},
	)
)

// --- Launch lifecycle ---
var (
	launchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chrome_launch_launches_total",
			Help: "Total successful browser launches",
		},
	)

	launchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chrome_launch_failures_total",
			Help: "Launch failures by phase",
		},
		[]string{"phase"}, // "spawn", "readiness", "transport", "session"
	)

	attachesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chrome_launch_attaches_total",
			Help: "Total attachments to externally-started browsers",
		},
	)

	unexpectedExitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chrome_launch_unexpected_exits_total",
			Help: "Browsers that exited without a requested close",
		},
	)

	browserExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chrome_launch_browser_exits_total",
			Help: "Browser exits by exit code category",
		},
		[]string{"category"}, // "success", "error", "signal"
	)
)

// --- Timing ---
var (
	launchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "chrome_launch_duration_seconds",
			Help: "Spawn-to-session launch duration",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5, 0.75,
				1.0, 2.5, 5.0, 10.0, 30.0,
			},
		},
	)

	readinessDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "chrome_launch_readiness_seconds",
			Help: "Spawn-to-endpoint readiness wait",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5, 0.75,
				1.0, 2.5, 5.0, 10.0, 30.0,
			},
		},
	)

	browserUptimeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chrome_launch_browser_uptime_seconds",
			Help:    "Browser uptime before exit",
			Buckets: []float64{1, 5, 30, 60, 300, 600, 1800, 3600, 7200},
		},
	)
)

// --- Browser output ---
var (
	stderrLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chrome_launch_stderr_lines_total",
			Help: "Browser stderr lines observed",
		},
	)

	protocolMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chrome_launch_protocol_messages_total",
			Help: "Protocol messages by direction",
		},
		[]string{"direction"}, // "sent", "received"
	)
)

// Collector manages all Prometheus metrics for the launcher.
type Collector struct {
	startTime time.Time

	mu        sync.Mutex
	exitCodes map[int]int64
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version   string
	Platform  string
	Revision  int
	Transport string // "pipe" or "websocket"
}

// NewCollector creates a new metrics collector on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		startTime: time.Now(),
		exitCodes: make(map[int]int64),
	}

	registry.MustRegister(
		launchInfo,
		launchActiveBrowsers,
		launchElapsedSeconds,

		launchesTotal,
		launchFailuresTotal,
		attachesTotal,
		unexpectedExitsTotal,
		browserExitsTotal,

		launchDurationSeconds,
		readinessDurationSeconds,
		browserUptimeSeconds,

		stderrLinesTotal,
		protocolMessagesTotal,
	)

	launchInfo.WithLabelValues(
		cfg.Version,
		cfg.Platform,
		strconv.Itoa(cfg.Revision),
		cfg.Transport,
	).Set(1)

	return c
}

// RecordLaunch records one successful launch.
func (c *Collector) RecordLaunch(total, readiness time.Duration) {
	launchesTotal.Inc()
	launchDurationSeconds.Observe(total.Seconds())
	if readiness > 0 {
		readinessDurationSeconds.Observe(readiness.Seconds())
	}
}

// RecordLaunchFailure records a failed launch by phase.
func (c *Collector) RecordLaunchFailure(phase string) {
	launchFailuresTotal.WithLabelValues(phase).Inc()
}

// RecordAttach records an attachment to a running browser.
func (c *Collector) RecordAttach() {
	attachesTotal.Inc()
}

// RecordUnexpectedExit records a browser death outside a requested
// close.
func (c *Collector) RecordUnexpectedExit() {
	unexpectedExitsTotal.Inc()
}

// RecordExit records a browser exit event.
func (c *Collector) RecordExit(exitCode int, uptime time.Duration) {
	category := "error"
	if exitCode == 0 {
		category = "success"
	} else if exitCode > 128 {
		category = "signal"
	}
	browserExitsTotal.WithLabelValues(category).Inc()
	browserUptimeSeconds.Observe(uptime.Seconds())

	c.mu.Lock()
	c.exitCodes[exitCode]++
	c.mu.Unlock()
}

// SetActiveBrowsers updates the supervised process gauge.
func (c *Collector) SetActiveBrowsers(count int) {
	launchActiveBrowsers.Set(float64(count))
}

// RecordStderrLine counts one browser stderr line.
func (c *Collector) RecordStderrLine() {
	stderrLinesTotal.Inc()
}

// RecordMessageSent counts one outbound protocol message.
func (c *Collector) RecordMessageSent() {
	protocolMessagesTotal.WithLabelValues("sent").Inc()
}

// RecordMessageReceived counts one inbound protocol message.
func (c *Collector) RecordMessageReceived() {
	protocolMessagesTotal.WithLabelValues("received").Inc()
}

// Tick refreshes the elapsed gauge; called periodically by the owner.
func (c *Collector) Tick() {
	launchElapsedSeconds.Set(time.Since(c.startTime).Seconds())
}

// ExitCodes returns a copy of the exit code tally.
func (c *Collector) ExitCodes() map[int]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]int64, len(c.exitCodes))
	for code, count := range c.exitCodes {
		out[code] = count
	}
	return out
}
