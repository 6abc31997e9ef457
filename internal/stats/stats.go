// Package stats tracks launch timing distributions and lifecycle
// counts for the launcher.
//
// Durations are fed into T-Digests so percentiles stay accurate without
// retaining every sample.
package stats

import (
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// Snapshot is a point-in-time copy of launch statistics, safe to use
// after the call that produced it returns.
type Snapshot struct {
	Timestamp time.Time

	// Lifecycle counts
	Launches        int64
	LaunchFailures  int64
	Attaches        int64
	UnexpectedExits int64

	// Launch duration percentiles (spawn to session ready)
	LaunchP50 time.Duration
	LaunchP95 time.Duration
	LaunchP99 time.Duration

	// Readiness wait percentiles (spawn to endpoint line)
	ReadinessP50 time.Duration
	ReadinessP95 time.Duration
	ReadinessP99 time.Duration

	// Session uptime at close
	UptimeMin time.Duration
	UptimeMax time.Duration
	UptimeAvg time.Duration

	Elapsed time.Duration
}

// LaunchStats accumulates launch metrics.
//
// Thread-safe: all methods can be called concurrently.
type LaunchStats struct {
	mu sync.Mutex

	startTime time.Time

	launches        int64
	launchFailures  int64
	attaches        int64
	unexpectedExits int64

	launchDigest    *tdigest.TDigest
	readinessDigest *tdigest.TDigest

	uptimeCount int64
	uptimeSum   time.Duration
	uptimeMin   time.Duration
	uptimeMax   time.Duration
}

// New creates an empty LaunchStats.
func New() *LaunchStats {
	return &LaunchStats{
		startTime:       time.Now(),
		launchDigest:    tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
		readinessDigest: tdigest.NewWithCompression(100),
	}
}

// RecordLaunch records one successful launch and its total duration.
func (s *LaunchStats) RecordLaunch(total time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launches++
	s.launchDigest.Add(total.Seconds(), 1)
}

// RecordReadiness records the spawn-to-endpoint wait for one launch.
func (s *LaunchStats) RecordReadiness(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readinessDigest.Add(wait.Seconds(), 1)
}

// RecordLaunchFailure records a launch that never reached a session.
func (s *LaunchStats) RecordLaunchFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchFailures++
}

// RecordAttach records an attachment to an externally-started browser.
func (s *LaunchStats) RecordAttach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attaches++
}

// RecordUnexpectedExit records a browser that died without a requested
// close.
func (s *LaunchStats) RecordUnexpectedExit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unexpectedExits++
}

// RecordUptime records how long a session lived when it closed.
func (s *LaunchStats) RecordUptime(uptime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uptimeCount++
	s.uptimeSum += uptime
	if s.uptimeMin == 0 || uptime < s.uptimeMin {
		s.uptimeMin = uptime
	}
	if uptime > s.uptimeMax {
		s.uptimeMax = uptime
	}
}

// Snapshot computes current statistics.
func (s *LaunchStats) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	snap := &Snapshot{
		Timestamp:       now,
		Launches:        s.launches,
		LaunchFailures:  s.launchFailures,
		Attaches:        s.attaches,
		UnexpectedExits: s.unexpectedExits,
		UptimeMin:       s.uptimeMin,
		UptimeMax:       s.uptimeMax,
		Elapsed:         now.Sub(s.startTime),
	}

	if s.launches > 0 {
		snap.LaunchP50 = secondsToDuration(s.launchDigest.Quantile(0.50))
		snap.LaunchP95 = secondsToDuration(s.launchDigest.Quantile(0.95))
		snap.LaunchP99 = secondsToDuration(s.launchDigest.Quantile(0.99))
		snap.ReadinessP50 = secondsToDuration(s.readinessDigest.Quantile(0.50))
		snap.ReadinessP95 = secondsToDuration(s.readinessDigest.Quantile(0.95))
		snap.ReadinessP99 = secondsToDuration(s.readinessDigest.Quantile(0.99))
	}
	if s.uptimeCount > 0 {
		snap.UptimeAvg = s.uptimeSum / time.Duration(s.uptimeCount)
	}

	return snap
}

// StartTime returns when the stats were created.
func (s *LaunchStats) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startTime
}

// Reset clears all counters and digests.
func (s *LaunchStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startTime = time.Now()
	s.launches = 0
	s.launchFailures = 0
	s.attaches = 0
	s.unexpectedExits = 0
	s.launchDigest = tdigest.NewWithCompression(100)
	s.readinessDigest = tdigest.NewWithCompression(100)
	s.uptimeCount = 0
	s.uptimeSum = 0
	s.uptimeMin = 0
	s.uptimeMax = 0
}

// secondsToDuration converts a digest quantile back to a duration.
// Quantile returns NaN when the digest is empty.
func secondsToDuration(seconds float64) time.Duration {
	if seconds != seconds { // NaN
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
