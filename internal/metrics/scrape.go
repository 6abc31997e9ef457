package metrics

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// LauncherStatus holds values scraped from a running launcher's
// /metrics endpoint. Used by the -status diagnostic mode.
type LauncherStatus struct {
	ActiveBrowsers  int64
	Launches        int64
	LaunchFailures  int64
	Attaches        int64
	UnexpectedExits int64
	ElapsedSeconds  float64
	StderrLines     int64

	LastUpdate time.Time
}

// ScrapeStatus fetches and parses the launcher's own metrics endpoint.
func ScrapeStatus(baseURL string) (*LauncherStatus, error) {
	client := &http.Client{Timeout: 5 * time.Second}

	url := strings.TrimRight(baseURL, "/") + "/metrics"
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}

	// Parse Prometheus text format
	decoder := expfmt.NewDecoder(resp.Body, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		families[mf.GetName()] = &mf
	}

	status := &LauncherStatus{
		ActiveBrowsers:  int64(gaugeValue(families, "chrome_launch_active_browsers")),
		Launches:        int64(counterValue(families, "chrome_launch_launches_total")),
		LaunchFailures:  int64(counterSum(families, "chrome_launch_failures_total")),
		Attaches:        int64(counterValue(families, "chrome_launch_attaches_total")),
		UnexpectedExits: int64(counterValue(families, "chrome_launch_unexpected_exits_total")),
		ElapsedSeconds:  gaugeValue(families, "chrome_launch_elapsed_seconds"),
		StderrLines:     int64(counterValue(families, "chrome_launch_stderr_lines_total")),
		LastUpdate:      time.Now(),
	}
	return status, nil
}

// FormatStatus renders a scraped status for terminal display.
func FormatStatus(s *LauncherStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "active browsers:   %d\n", s.ActiveBrowsers)
	fmt.Fprintf(&b, "launches:          %d\n", s.Launches)
	if s.LaunchFailures > 0 {
		fmt.Fprintf(&b, "launch failures:   %d\n", s.LaunchFailures)
	}
	if s.Attaches > 0 {
		fmt.Fprintf(&b, "attaches:          %d\n", s.Attaches)
	}
	if s.UnexpectedExits > 0 {
		fmt.Fprintf(&b, "unexpected exits:  %d\n", s.UnexpectedExits)
	}
	fmt.Fprintf(&b, "stderr lines:      %d\n", s.StderrLines)
	fmt.Fprintf(&b, "uptime:            %s\n", time.Duration(s.ElapsedSeconds*float64(time.Second)).Round(time.Second))

	return b.String()
}

// gaugeValue returns the value of a single-series gauge, or 0.
func gaugeValue(families map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := families[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

// counterValue returns the value of a single-series counter, or 0.
func counterValue(families map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := families[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
}

// counterSum sums a labelled counter across all label values.
func counterSum(families map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := families[name]
	if !ok {
		return 0
	}
	var sum float64
	for _, metric := range mf.GetMetric() {
		sum += metric.GetCounter().GetValue()
	}
	return sum
}
