package fetcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return New(Config{
		DownloadsRoot: t.TempDir(),
		Platform:      PlatformLinux,
	})
}

// =============================================================================
// Table-Driven Tests: Resolve
// =============================================================================

func TestResolve_DownloadURLs(t *testing.T) {
	f := testFetcher(t)

	tests := []struct {
		platform Platform
		revision int
		wantURL  string
	}{
		{
			PlatformLinux, 756035,
			"https://storage.googleapis.com/chromium-browser-snapshots/Linux_x64/756035/chrome-linux.zip",
		},
		{
			PlatformMac, 756035,
			"https://storage.googleapis.com/chromium-browser-snapshots/Mac/756035/chrome-mac.zip",
		},
		{
			PlatformWin32, 756035,
			"https://storage.googleapis.com/chromium-browser-snapshots/Win/756035/chrome-win.zip",
		},
		{
			PlatformWin64, 756035,
			"https://storage.googleapis.com/chromium-browser-snapshots/Win_x64/756035/chrome-win.zip",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			info, err := f.Resolve(tt.platform, tt.revision)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if info.URL != tt.wantURL {
				t.Errorf("URL = %s, want %s", info.URL, tt.wantURL)
			}
			if info.Local {
				t.Error("Local = true for a never-downloaded revision")
			}
		})
	}
}

func TestResolve_WindowsArchiveCutoff(t *testing.T) {
	f := testFetcher(t)

	tests := []struct {
		name     string
		platform Platform
		revision int
		want     string
	}{
		{"win32_at_cutoff", PlatformWin32, 591479, "chrome-win32"},
		{"win32_above_cutoff", PlatformWin32, 591480, "chrome-win"},
		{"win64_at_cutoff", PlatformWin64, 591479, "chrome-win32"},
		{"win64_above_cutoff", PlatformWin64, 591480, "chrome-win"},
		{"win64_old", PlatformWin64, 500000, "chrome-win32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := f.Resolve(tt.platform, tt.revision)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !strings.Contains(info.URL, "/"+tt.want+".zip") {
				t.Errorf("URL = %s, want archive %s", info.URL, tt.want)
			}
		})
	}
}

func TestResolve_UnsupportedPlatform(t *testing.T) {
	f := testFetcher(t)

	for _, platform := range []Platform{"freebsd", "plan9", "solaris", ""} {
		t.Run(string(platform), func(t *testing.T) {
			fl := f
			if platform == "" {
				// Empty resolve platform falls back to the fetcher's
				// own, so force an unsupported one there.
				fl = New(Config{DownloadsRoot: t.TempDir(), Platform: "beos"})
			}
			_, err := fl.Resolve(platform, 756035)

			var unsupportedErr *UnsupportedPlatformError
			if !errors.As(err, &unsupportedErr) {
				t.Fatalf("err = %v, want *UnsupportedPlatformError", err)
			}
		})
	}
}

func TestResolve_ExecutablePaths(t *testing.T) {
	root := t.TempDir()
	f := New(Config{DownloadsRoot: root, Platform: PlatformLinux})

	tests := []struct {
		platform Platform
		revision int
		wantRel  string
	}{
		{PlatformLinux, 756035, "linux-756035/chrome-linux/chrome"},
		{PlatformMac, 756035, "mac-756035/chrome-mac/Chromium.app/Contents/MacOS/Chromium"},
		{PlatformWin64, 756035, "win64-756035/chrome-win/chrome.exe"},
		{PlatformWin32, 500000, "win32-500000/chrome-win32/chrome.exe"},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			info, err := f.Resolve(tt.platform, tt.revision)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			want := filepath.Join(root, filepath.FromSlash(tt.wantRel))
			if info.ExecutablePath != want {
				t.Errorf("ExecutablePath = %s, want %s", info.ExecutablePath, want)
			}
		})
	}
}

func TestResolve_LocalPresence(t *testing.T) {
	root := t.TempDir()
	f := New(Config{DownloadsRoot: root, Platform: PlatformLinux})

	info, err := f.Resolve(PlatformLinux, 756035)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.Local {
		t.Fatal("Local = true before executable exists")
	}

	if err := os.MkdirAll(filepath.Dir(info.ExecutablePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(info.ExecutablePath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	info, err = f.Resolve(PlatformLinux, 756035)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !info.Local {
		t.Error("Local = false after executable created")
	}
}

func TestResolve_CustomHost(t *testing.T) {
	f := New(Config{
		Host:          "https://mirror.example.com",
		DownloadsRoot: t.TempDir(),
		Platform:      PlatformLinux,
	})

	info, err := f.Resolve(PlatformLinux, 756035)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(info.URL, "https://mirror.example.com/") {
		t.Errorf("URL = %s, want mirror host", info.URL)
	}
}

func TestCurrentPlatform_Supported(t *testing.T) {
	// Whatever this test runs on must map into the supported set.
	p := CurrentPlatform()
	if !supported(p) {
		t.Skipf("running on unsupported platform %q", p)
	}
}
