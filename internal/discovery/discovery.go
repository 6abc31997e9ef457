// Package discovery resolves the DevTools control-channel address of
// an already-running browser from its HTTP debugging endpoint.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// versionPath is the well-known DevTools metadata path.
const versionPath = "/json/version"

// DiscoveryError wraps the underlying transport or parse cause together
// with the URL that was attempted.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to fetch browser websocket url from %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// versionInfo is the subset of the /json/version body we consume.
type versionInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// Client performs DevTools endpoint discovery.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a discovery client with a bounded HTTP timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Discover performs exactly one GET against <baseURL>/json/version and
// extracts the control-channel address. The scheme (http or https) is
// whatever the base URL implies.
func (c *Client) Discover(ctx context.Context, baseURL string) (string, error) {
	url := strings.TrimRight(baseURL, "/") + versionPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &DiscoveryError{URL: url, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &DiscoveryError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the underlying connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return "", &DiscoveryError{
			URL: url,
			Err: fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	var info versionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &DiscoveryError{URL: url, Err: fmt.Errorf("parsing response: %w", err)}
	}
	if info.WebSocketDebuggerURL == "" {
		return "", &DiscoveryError{URL: url, Err: fmt.Errorf("response has no webSocketDebuggerUrl")}
	}

	return info.WebSocketDebuggerURL, nil
}
