package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const fakeWSEndpoint = "ws://127.0.0.1:9222/devtools/browser/00000000-0000-0000-0000-000000000000"

func versionHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/version" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"Browser": "Chrome/90.0.4427.0",
			"Protocol-Version": "1.3",
			"webSocketDebuggerUrl": "` + fakeWSEndpoint + `"
		}`))
	}
}

func TestDiscover_Success(t *testing.T) {
	srv := httptest.NewServer(versionHandler(t))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	endpoint, err := c.Discover(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if endpoint != fakeWSEndpoint {
		t.Errorf("endpoint = %q, want %q", endpoint, fakeWSEndpoint)
	}
}

func TestDiscover_TrailingSlash(t *testing.T) {
	srv := httptest.NewServer(versionHandler(t))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	if _, err := c.Discover(context.Background(), srv.URL+"/"); err != nil {
		t.Fatalf("Discover with trailing slash: %v", err)
	}
}

func TestDiscover_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	_, err := c.Discover(context.Background(), srv.URL)

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
	if want := srv.URL + "/json/version"; !strings.Contains(discErr.Error(), want) {
		t.Errorf("error does not reference %s: %v", want, discErr)
	}
}

func TestDiscover_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not_json", "<html>boom</html>"},
		{"missing_field", `{"Browser": "Chrome/90"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(2 * time.Second)
			_, err := c.Discover(context.Background(), srv.URL)

			var discErr *DiscoveryError
			if !errors.As(err, &discErr) {
				t.Fatalf("err = %v, want *DiscoveryError", err)
			}
		})
	}
}

func TestDiscover_Unreachable(t *testing.T) {
	c := NewClient(500 * time.Millisecond)
	_, err := c.Discover(context.Background(), "http://127.0.0.1:1")

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
}

func TestWait_SucceedsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "starting up", http.StatusServiceUnavailable)
			return
		}
		versionHandler(t)(w, r)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	endpoint, err := c.Wait(context.Background(), srv.URL, 10*time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if endpoint != fakeWSEndpoint {
		t.Errorf("endpoint = %q, want %q", endpoint, fakeWSEndpoint)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 attempts, got %d", calls.Load())
	}
}

func TestWait_DeadlineReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "never ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(2 * time.Second)
	_, err := c.Wait(context.Background(), srv.URL, 300*time.Millisecond)

	var discErr *DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("err = %v, want *DiscoveryError", err)
	}
}

func TestBackoff_GrowthAndCap(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		JitterPct:  0, // deterministic
	}
	b := NewBackoff(1, cfg)

	wants := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second,
	}
	for i, want := range wants {
		if got := b.Next(); got != want {
			t.Errorf("attempt %d: delay = %v, want %v", i, got, want)
		}
	}

	b.Reset()
	if got := b.Calculate(); got != 100*time.Millisecond {
		t.Errorf("after Reset: delay = %v, want 100ms", got)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	cfg := DefaultBackoffConfig()
	b := NewBackoff(42, cfg)

	for i := 0; i < 50; i++ {
		d := b.Next()
		if d < 0 {
			t.Fatalf("negative delay %v", d)
		}
		ceiling := time.Duration(float64(cfg.Max) * (1 + cfg.JitterPct/2))
		if d > ceiling {
			t.Fatalf("delay %v above jittered ceiling %v", d, ceiling)
		}
	}
}
