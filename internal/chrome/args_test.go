package chrome

import (
	"reflect"
	"strings"
	"testing"
)

// =============================================================================
// Table-Driven Tests: DefaultConfig
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Headless {
		t.Error("Headless = false, want true")
	}
	if cfg.Devtools {
		t.Error("Devtools = true, want false")
	}
	if cfg.Timeout.Seconds() != 30 {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
}

// =============================================================================
// Table-Driven Tests: EffectiveHeadless
// =============================================================================

func TestConfig_EffectiveHeadless(t *testing.T) {
	tests := []struct {
		name     string
		headless bool
		devtools bool
		want     bool
	}{
		{"headless_no_devtools", true, false, true},
		{"headless_with_devtools", true, true, false},
		{"headful_no_devtools", false, false, false},
		{"headful_with_devtools", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Headless: tt.headless, Devtools: tt.devtools}
			if got := cfg.EffectiveHeadless(); got != tt.want {
				t.Errorf("EffectiveHeadless() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Table-Driven Tests: BuildArguments
// =============================================================================

func TestBuildArguments_Baseline(t *testing.T) {
	cfg := DefaultConfig()
	args := BuildArguments(cfg)

	required := []string{
		"--disable-background-networking",
		"--disable-sync",
		"--enable-automation",
		"--metrics-recording-only",
		"--no-first-run",
		"--headless",
		"--hide-scrollbars",
		"--mute-audio",
		"about:blank",
	}

	for _, want := range required {
		if !contains(args, want) {
			t.Errorf("missing required arg: %s", want)
		}
	}
}

func TestBuildArguments_DevtoolsForcesHeadful(t *testing.T) {
	tests := []struct {
		name     string
		headless bool
	}{
		{"headless_requested", true},
		{"headful_requested", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Headless: tt.headless, Devtools: true}
			args := BuildArguments(cfg)

			if contains(args, "--headless") {
				t.Error("--headless present despite devtools")
			}
			if !contains(args, "--auto-open-devtools-for-tabs") {
				t.Error("missing --auto-open-devtools-for-tabs")
			}
		})
	}
}

func TestBuildArguments_BlankPageTarget(t *testing.T) {
	tests := []struct {
		name      string
		extra     []string
		wantBlank int
	}{
		{"no_extras", nil, 1},
		{"only_flags", []string{"--no-sandbox", "--proxy-server=localhost:1"}, 1},
		{"explicit_url", []string{"--no-sandbox", "https://example.com"}, 0},
		{"url_only", []string{"https://example.com"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Headless: true, Args: tt.extra}
			args := BuildArguments(cfg)

			got := 0
			for _, a := range args {
				if a == "about:blank" {
					got++
				}
			}
			if got != tt.wantBlank {
				t.Errorf("about:blank count = %d, want %d", got, tt.wantBlank)
			}
		})
	}
}

func TestBuildArguments_BlankPagePrecedesExtras(t *testing.T) {
	cfg := &Config{Headless: true, Args: []string{"--no-sandbox"}}
	args := BuildArguments(cfg)

	blankIdx, extraIdx := -1, -1
	for i, a := range args {
		switch a {
		case "about:blank":
			blankIdx = i
		case "--no-sandbox":
			extraIdx = i
		}
	}
	if blankIdx < 0 || extraIdx < 0 {
		t.Fatalf("args missing about:blank or extra: %v", args)
	}
	if blankIdx > extraIdx {
		t.Errorf("about:blank at %d appears after extra arg at %d", blankIdx, extraIdx)
	}
}

func TestBuildArguments_IgnoreAllDefaults(t *testing.T) {
	cfg := &Config{
		Headless:             true,
		IgnoreAllDefaultArgs: true,
		Args:                 []string{"--no-sandbox"},
	}
	args := BuildArguments(cfg)

	for _, a := range args {
		if strings.HasPrefix(a, "--disable-") || a == "--headless" {
			t.Errorf("baseline arg %q present despite IgnoreAllDefaultArgs", a)
		}
	}
	if !contains(args, "--no-sandbox") {
		t.Error("caller extra dropped")
	}
}

func TestBuildArguments_IgnoreNamedDefaults(t *testing.T) {
	tests := []struct {
		name    string
		ignore  []string
		removed []string
		kept    []string
	}{
		{
			name:    "exact_match",
			ignore:  []string{"--disable-sync"},
			removed: []string{"--disable-sync"},
			kept:    []string{"--enable-automation"},
		},
		{
			name:    "flag_name_match_with_value",
			ignore:  []string{"--disable-features"},
			removed: []string{"--disable-features=TranslateUI"},
			kept:    []string{"--disable-sync"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Headless: true, IgnoreDefaultArgs: tt.ignore}
			args := BuildArguments(cfg)

			for _, r := range tt.removed {
				if contains(args, r) {
					t.Errorf("arg %q not filtered", r)
				}
			}
			for _, k := range tt.kept {
				if !contains(args, k) {
					t.Errorf("arg %q unexpectedly filtered", k)
				}
			}
		})
	}
}

func TestBuildArguments_Deterministic(t *testing.T) {
	cfg := &Config{
		Headless: true,
		Devtools: false,
		Args:     []string{"--no-sandbox", "--window-size=800,600"},
	}

	first := BuildArguments(cfg)
	second := BuildArguments(cfg)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("argument lists differ across builds:\n%v\n%v", first, second)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
