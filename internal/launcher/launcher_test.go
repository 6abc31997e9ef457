package launcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/randomizedcoder/go-chrome-launch/internal/discovery"
	"github.com/randomizedcoder/go-chrome-launch/internal/logging"
	"github.com/randomizedcoder/go-chrome-launch/internal/supervisor"
)

const pageCreatedEvent = `{"method":"Target.targetCreated","params":{"targetInfo":{"targetId":"t1","type":"page"}}}`

// writeFakeBrowser writes an executable shell script standing in for
// the browser binary.
func writeFakeBrowser(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-chrome")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// devtoolsServer serves a fake DevTools websocket endpoint that
// immediately announces one page target and then consumes traffic.
func devtoolsServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(pageCreatedEvent))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testOptions(exe string) Options {
	opts := DefaultOptions()
	opts.ExecutablePath = exe
	opts.Logger = logging.NewLoggerWithWriter(io.Discard, "text", "error")
	// Forwarding test-runner signals to shell children is noise here.
	opts.HandleSIGINT = false
	opts.HandleSIGTERM = false
	opts.HandleSIGHUP = false
	return opts
}

func processGone(pid int) bool {
	return syscall.Kill(pid, 0) != nil
}

// =============================================================================
// Launch
// =============================================================================

func TestLaunch_PipeTransport(t *testing.T) {
	// Scenario: pipe mode needs no readiness line; the fake browser
	// speaks the NUL-framed protocol on fd 4.
	exe := writeFakeBrowser(t,
		`printf '`+pageCreatedEvent+`\0' >&4
sleep 30`)

	opts := testOptions(exe)
	opts.UsePipe = true

	sess, err := Launch(context.Background(), opts)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	handle := sess.Process()
	if handle == nil {
		t.Fatal("launched session has no process handle")
	}
	tempDir := handle.TempDir()
	if tempDir == "" {
		t.Fatal("no temporary profile dir allocated")
	}
	if _, err := os.Stat(tempDir); err != nil {
		t.Fatalf("temp dir missing while running: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(tempDir); !os.IsNotExist(err) {
		t.Errorf("temp dir still present after close: %v", err)
	}
}

func TestLaunch_SocketTransport(t *testing.T) {
	_, wsURL := devtoolsServer(t)

	// The fake browser announces the test server's endpoint the way
	// Chromium announces its own.
	exe := writeFakeBrowser(t,
		`echo "DevTools listening on $FAKE_WS_URL" >&2
sleep 30`)

	opts := testOptions(exe)
	opts.Env = append(os.Environ(), "FAKE_WS_URL="+wsURL+"/devtools/browser/test")

	sess, err := Launch(context.Background(), opts)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer sess.Close()

	if got := sess.WSEndpoint(); !strings.HasPrefix(got, "ws://") {
		t.Errorf("WSEndpoint() = %q, want ws:// address", got)
	}
}

func TestLaunch_ReadinessTimeout(t *testing.T) {
	// Scenario: the browser never emits the readiness line. The call
	// must fail naming the bound, and the process must be gone.
	pidFile := filepath.Join(t.TempDir(), "pid")
	exe := writeFakeBrowser(t,
		`echo $$ > `+pidFile+`
sleep 30`)

	opts := testOptions(exe)
	opts.Timeout = 1000 * time.Millisecond

	_, err := Launch(context.Background(), opts)

	var timeoutErr *supervisor.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v, want *supervisor.TimeoutError", err)
	}
	if !strings.Contains(err.Error(), "1000") {
		t.Errorf("timeout error does not mention the 1000ms bound: %v", err)
	}

	data, readErr := os.ReadFile(pidFile)
	if readErr != nil {
		t.Fatalf("fake browser never wrote its pid: %v", readErr)
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	if pid > 0 && !processGone(pid) {
		t.Errorf("browser process %d still running after timeout", pid)
	}
}

func TestLaunch_ProcessExitsEarly(t *testing.T) {
	exe := writeFakeBrowser(t,
		`echo "libGL error: failed to load driver" >&2
exit 1`)

	opts := testOptions(exe)

	_, err := Launch(context.Background(), opts)

	var exitErr *supervisor.ProcessExitedError
	if !errors.As(err, &exitErr) {
		t.Fatalf("err = %v, want *supervisor.ProcessExitedError", err)
	}
	if !strings.Contains(err.Error(), "libGL error") {
		t.Errorf("error missing browser output: %v", err)
	}
}

func TestLaunch_MissingExecutable(t *testing.T) {
	opts := testOptions("/nonexistent/chrome")

	_, err := Launch(context.Background(), opts)

	var spawnErr *supervisor.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("err = %v, want *supervisor.SpawnError", err)
	}
}

func TestLaunch_UndownloadedRevision(t *testing.T) {
	opts := testOptions("")
	opts.Revision = 999999999 // never downloaded

	_, err := Launch(context.Background(), opts)

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if !strings.Contains(cfgErr.Error(), "999999999") {
		t.Errorf("error does not name the revision: %v", cfgErr)
	}
}

func TestBuildArguments_MatchesChromePackage(t *testing.T) {
	opts := DefaultOptions()
	opts.Args = []string{"--no-sandbox"}

	args := BuildArguments(opts)
	if len(args) == 0 {
		t.Fatal("empty argument list")
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "about:blank") {
		t.Error("blank page target missing")
	}
	if strings.Contains(joined, "--user-data-dir") {
		t.Error("user-data-dir leaked into the inspectable argument list")
	}
}

// =============================================================================
// Connect
// =============================================================================

func TestConnect_AttachOptionExclusivity(t *testing.T) {
	var touched atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		touched.Store(true)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		opts ConnectOptions
	}{
		{"none", ConnectOptions{}},
		{"ws_and_url", ConnectOptions{
			WSEndpoint: "ws://127.0.0.1:9222/devtools/browser/x",
			BrowserURL: srv.URL,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = logging.NewLoggerWithWriter(io.Discard, "text", "error")
			_, err := Connect(context.Background(), tt.opts)

			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *ConfigurationError", err)
			}
		})
	}

	if touched.Load() {
		t.Error("network request made despite configuration error")
	}
}

func TestConnect_DiscoveryFailure(t *testing.T) {
	// Scenario: discovery endpoint answers 404; error must reference
	// the exact URL attempted.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	opts := ConnectOptions{
		BrowserURL: srv.URL,
		Logger:     logging.NewLoggerWithWriter(io.Discard, "text", "error"),
	}
	_, err := Connect(context.Background(), opts)

	var discErr *discovery.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *discovery.DiscoveryError", err)
	}
	if want := srv.URL + "/json/version"; !strings.Contains(err.Error(), want) {
		t.Errorf("error does not reference %s: %v", want, err)
	}
}

func TestConnect_WSEndpoint(t *testing.T) {
	_, wsURL := devtoolsServer(t)

	opts := ConnectOptions{
		WSEndpoint: wsURL,
		Logger:     logging.NewLoggerWithWriter(io.Discard, "text", "error"),
	}
	sess, err := Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	if sess.Process() != nil {
		t.Error("attached session claims process ownership")
	}
}

func TestConnect_BrowserURL(t *testing.T) {
	srv, wsURL := devtoolsServer(t)

	// Discovery and control share the same test server: /json/version
	// answers metadata, everything else upgrades to websocket.
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"webSocketDebuggerUrl": "` + wsURL + `/devtools/browser/abc"}`))
	})
	base := srv.Config.Handler
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json/version" {
			mux.ServeHTTP(w, r)
			return
		}
		base.ServeHTTP(w, r)
	})

	opts := ConnectOptions{
		BrowserURL: srv.URL,
		Logger:     logging.NewLoggerWithWriter(io.Discard, "text", "error"),
	}
	sess, err := Connect(context.Background(), opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sess.Close()

	if got := sess.WSEndpoint(); !strings.Contains(got, "/devtools/browser/abc") {
		t.Errorf("WSEndpoint() = %q, want discovered address", got)
	}
}
