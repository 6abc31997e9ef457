package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-chrome-launch/internal/config"
	"github.com/randomizedcoder/go-chrome-launch/internal/discovery"
	"github.com/randomizedcoder/go-chrome-launch/internal/supervisor"
	"github.com/randomizedcoder/go-chrome-launch/internal/transport"
)

// pageCreatedEvent is what a browser announces once its first page is
// up; the session bootstrap blocks until it sees one.
const pageCreatedEvent = `{"method":"Target.targetCreated","params":{"targetInfo":{"targetId":"t1","type":"page"}}}`

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// devtoolsServer is a fake browser endpoint: it upgrades to a
// websocket, announces a page target, and consumes traffic until the
// peer hangs up.
func devtoolsServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(pageCreatedEvent)); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func newTestRunner(cfg *config.Config) *Runner {
	return newWithRegistry(cfg, testLogger, "test", prometheus.NewRegistry())
}

func TestRun_AttachThenCancel(t *testing.T) {
	_, wsURL := devtoolsServer(t)

	cfg := config.DefaultConfig()
	cfg.WSEndpoint = wsURL
	cfg.MetricsAddr = "127.0.0.1:0"

	r := newTestRunner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Wait for the session to land, then shut the run down.
	deadline := time.After(5 * time.Second)
	for {
		r.mu.Lock()
		attached := r.sess != nil
		r.mu.Unlock()
		if attached {
			break
		}
		select {
		case err := <-done:
			t.Fatalf("Run returned early: %v", err)
		case <-deadline:
			t.Fatal("session never established")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	snap := r.StatsSnapshot()
	if snap.Attaches != 1 {
		t.Errorf("Attaches = %d, want 1", snap.Attaches)
	}
	if snap.Launches != 0 {
		t.Errorf("Launches = %d, want 0 in attach mode", snap.Launches)
	}
}

func TestRun_EstablishFailure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BrowserURL = "http://127.0.0.1:1" // nothing listens here
	cfg.MetricsAddr = "127.0.0.1:0"

	r := newTestRunner(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.Run(ctx)
	if err == nil {
		t.Fatal("expected an error when discovery has no peer")
	}
	var discErr *discovery.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Errorf("error = %T, want *discovery.DiscoveryError", err)
	}

	if snap := r.StatsSnapshot(); snap.LaunchFailures != 1 {
		t.Errorf("LaunchFailures = %d, want 1", snap.LaunchFailures)
	}
}

func TestBrowserView_NoSession(t *testing.T) {
	r := newTestRunner(config.DefaultConfig())

	view := r.BrowserView()
	if view.State != "starting" {
		t.Errorf("State = %q, want starting before a session exists", view.State)
	}
	if view.Pid != 0 {
		t.Errorf("Pid = %d, want 0", view.Pid)
	}
}

func TestStatusPayload_NoSession(t *testing.T) {
	r := newTestRunner(config.DefaultConfig())

	payload, ok := r.statusPayload().(map[string]any)
	if !ok {
		t.Fatalf("statusPayload() = %T, want map[string]any", r.statusPayload())
	}
	for _, key := range []string{"state", "pid", "transport", "ws_endpoint", "uptime", "targets", "stats"} {
		if _, present := payload[key]; !present {
			t.Errorf("payload missing %q", key)
		}
	}
	if payload["state"] != "starting" {
		t.Errorf("state = %v, want starting", payload["state"])
	}
}

func TestFailurePhase(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "spawn",
			err:  &supervisor.SpawnError{Path: "/no/such/chrome", Err: errors.New("not found")},
			want: "spawn",
		},
		{
			name: "readiness timeout",
			err:  &supervisor.TimeoutError{Timeout: time.Second},
			want: "readiness",
		},
		{
			name: "early exit",
			err:  &supervisor.ProcessExitedError{ExitCode: 1},
			want: "readiness",
		},
		{
			name: "discovery",
			err:  &discovery.DiscoveryError{URL: "http://x/json/version", Err: errors.New("refused")},
			want: "discovery",
		},
		{
			name: "session",
			err:  &transport.ChannelError{Op: "bootstrap", Err: errors.New("closed")},
			want: "session",
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("launch: %w", &supervisor.SpawnError{Path: "/x", Err: errors.New("x")}),
			want: "spawn",
		},
		{
			name: "unknown",
			err:  errors.New("mystery"),
			want: "other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failurePhase(tt.err); got != tt.want {
				t.Errorf("failurePhase() = %q, want %q", got, tt.want)
			}
		})
	}
}
