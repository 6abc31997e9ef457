// Package fetcher resolves pinned Chromium revisions to download URLs
// and local executable paths per platform. Download and extraction are
// a separate concern; this package only computes and inspects.
package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifies one of the four supported Chromium snapshot
// targets.
type Platform string

const (
	PlatformLinux Platform = "linux"
	PlatformMac   Platform = "mac"
	PlatformWin32 Platform = "win32"
	PlatformWin64 Platform = "win64"
)

// DefaultHost serves the Chromium continuous-build snapshots.
const DefaultHost = "https://storage.googleapis.com"

// DefaultRevision is the pinned Chromium build this module is
// validated against.
const DefaultRevision = 756035

// winArchiveCutoff is the revision at which the Windows snapshot
// archive was renamed from chrome-win32 to chrome-win. Historical
// constant from the Chromium build infrastructure; do not re-derive.
const winArchiveCutoff = 591479

// downloadURLTemplates maps each platform to its archive URL template,
// taking (host, revision, archive name).
var downloadURLTemplates = map[Platform]string{
	PlatformLinux: "%s/chromium-browser-snapshots/Linux_x64/%d/%s.zip",
	PlatformMac:   "%s/chromium-browser-snapshots/Mac/%d/%s.zip",
	PlatformWin32: "%s/chromium-browser-snapshots/Win/%d/%s.zip",
	PlatformWin64: "%s/chromium-browser-snapshots/Win_x64/%d/%s.zip",
}

// UnsupportedPlatformError indicates a platform outside the fixed
// supported set. Raised before any filesystem or network activity.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

// RevisionInfo describes a resolved revision. Derived on demand from
// pure inputs, never cached here.
type RevisionInfo struct {
	Platform       Platform
	Revision       int
	URL            string
	FolderPath     string
	ExecutablePath string
	Local          bool
}

// Fetcher computes revision metadata against a download root.
type Fetcher struct {
	host          string
	downloadsRoot string
	platform      Platform
}

// Config holds optional overrides for a Fetcher.
type Config struct {
	Host          string   // snapshot host, default DefaultHost
	DownloadsRoot string   // local archive root, default per-user cache dir
	Platform      Platform // default: inferred from the running system
}

// New creates a Fetcher. Platform inference failures surface later,
// from Resolve, as UnsupportedPlatformError.
func New(cfg Config) *Fetcher {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	root := cfg.DownloadsRoot
	if root == "" {
		root = defaultDownloadsRoot()
	}
	platform := cfg.Platform
	if platform == "" {
		platform = CurrentPlatform()
	}
	return &Fetcher{host: host, downloadsRoot: root, platform: platform}
}

// Platform returns the fetcher's target platform.
func (f *Fetcher) Platform() Platform {
	return f.platform
}

// Resolve computes the download URL and local executable path for a
// revision on the given platform. An empty platform means the
// fetcher's own. The local-presence flag is advisory only.
func (f *Fetcher) Resolve(platform Platform, revision int) (RevisionInfo, error) {
	if platform == "" {
		platform = f.platform
	}
	if !supported(platform) {
		return RevisionInfo{}, &UnsupportedPlatformError{Platform: string(platform)}
	}

	archive := archiveName(platform, revision)
	url := fmt.Sprintf(downloadURLTemplates[platform], f.host, revision, archive)

	folder := filepath.Join(f.downloadsRoot, fmt.Sprintf("%s-%d", platform, revision))
	executable := filepath.Join(append([]string{folder}, executableRelPath(platform, archive)...)...)

	_, statErr := os.Stat(executable)

	return RevisionInfo{
		Platform:       platform,
		Revision:       revision,
		URL:            url,
		FolderPath:     folder,
		ExecutablePath: executable,
		Local:          statErr == nil,
	}, nil
}

// CurrentPlatform maps the running OS and architecture to a snapshot
// platform. Unknown combinations yield an empty Platform, which
// Resolve rejects.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMac
	case "windows":
		if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
			return PlatformWin64
		}
		return PlatformWin32
	default:
		return ""
	}
}

func supported(p Platform) bool {
	switch p {
	case PlatformLinux, PlatformMac, PlatformWin32, PlatformWin64:
		return true
	}
	return false
}

// archiveName returns the snapshot archive base name. The Windows
// family renamed its archive at winArchiveCutoff.
func archiveName(platform Platform, revision int) string {
	switch platform {
	case PlatformLinux:
		return "chrome-linux"
	case PlatformMac:
		return "chrome-mac"
	case PlatformWin32, PlatformWin64:
		if revision > winArchiveCutoff {
			return "chrome-win"
		}
		return "chrome-win32"
	default:
		return ""
	}
}

// executableRelPath returns the executable's path components inside an
// extracted archive.
func executableRelPath(platform Platform, archive string) []string {
	switch platform {
	case PlatformLinux:
		return []string{archive, "chrome"}
	case PlatformMac:
		return []string{archive, "Chromium.app", "Contents", "MacOS", "Chromium"}
	case PlatformWin32, PlatformWin64:
		return []string{archive, "chrome.exe"}
	default:
		return nil
	}
}

func defaultDownloadsRoot() string {
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "go-chrome-launch", "chromium")
	}
	return filepath.Join(os.TempDir(), "go-chrome-launch", "chromium")
}
