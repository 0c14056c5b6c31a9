package bridges

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmacedoeu/zeroclaw/internal/net/ssrf"
)

// NetworkBlockedError is raised when a plugin's request targets a host
// outside its allowlist; maps to the taxonomy's Sandbox(NetworkBlocked).
type NetworkBlockedError struct {
	Host string
}

func (e *NetworkBlockedError) Error() string {
	return fmt.Sprintf("network access to %q not in allowlist", e.Host)
}

// RuntimeExecutionError wraps non-2xx responses and non-JSON bodies;
// maps to the taxonomy's Runtime(Execution(msg)).
type RuntimeExecutionError struct {
	Msg string
}

func (e *RuntimeExecutionError) Error() string { return e.Msg }

// HTTPBridge is an allowlisted HTTP fetch capability. An empty allowlist
// means the bridge can reach nothing.
type HTTPBridge struct {
	allowedHosts []string
	client       *http.Client
	ssrfGuard    bool
}

// HTTPBridgeOption configures optional HTTPBridge behavior beyond the
// required allowlist.
type HTTPBridgeOption func(*HTTPBridge)

// WithSSRFGuard rejects requests whose host, reached only via a suffix
// match, is a blocked internal hostname (localhost, *.local, *.internal,
// the cloud metadata name) or a literal private/loopback/link-local IP,
// on top of the explicit allowlist. An exact allowlist entry is the host
// operator's own grant and is never second-guessed by the guard — it
// exists to stop an unexpected suffix match under an allowlisted domain
// from reaching an internal address. The check inspects the host string
// only; it does no DNS resolution, so a public name that resolves to a
// private address is not caught.
func WithSSRFGuard() HTTPBridgeOption {
	return func(b *HTTPBridge) { b.ssrfGuard = true }
}

// NewHTTPBridge returns a bridge that may only reach hosts matching
// allowedHosts under the suffix rule (§4.3). client defaults to one with
// a 30s timeout when nil.
func NewHTTPBridge(allowedHosts []string, client *http.Client, opts ...HTTPBridgeOption) *HTTPBridge {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	b := &HTTPBridge{allowedHosts: allowedHosts, client: client}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// IsHostAllowed reports whether host matches the allowlist under the
// suffix rule: host == allowed, or host endsWith "."+allowed.
func IsHostAllowed(host string, allowedHosts []string) bool {
	matched, _ := matchAllowlist(host, allowedHosts)
	return matched
}

// matchAllowlist reports whether host matches the allowlist and, if so,
// whether the match was exact (an operator grant of this precise value)
// rather than via the suffix rule (a grant of a parent domain that host
// merely falls under).
func matchAllowlist(host string, allowedHosts []string) (matched, exact bool) {
	for _, allowed := range allowedHosts {
		if host == allowed {
			return true, true
		}
		if strings.HasSuffix(host, "."+allowed) {
			matched = true
		}
	}
	return matched, false
}

// Fetch issues method against rawURL with an optional JSON body, enforcing
// the allowlist before any network I/O and requiring a JSON response.
func (b *HTTPBridge) Fetch(ctx context.Context, method, rawURL string, body any) (any, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := parsed.Hostname()
	matched, exact := matchAllowlist(host, b.allowedHosts)
	if !matched {
		return nil, &NetworkBlockedError{Host: host}
	}
	if b.ssrfGuard && !exact && (ssrf.IsBlockedHostname(host) || ssrf.IsPrivateIPAddress(host)) {
		return nil, &NetworkBlockedError{Host: host}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &RuntimeExecutionError{Msg: fmt.Sprintf("HTTP error: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RuntimeExecutionError{Msg: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RuntimeExecutionError{Msg: fmt.Sprintf("HTTP error: %d", resp.StatusCode)}
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &RuntimeExecutionError{Msg: "Response was not valid JSON"}
	}
	return decoded, nil
}

// Get issues a GET request.
func (b *HTTPBridge) Get(ctx context.Context, rawURL string) (any, error) {
	return b.Fetch(ctx, http.MethodGet, rawURL, nil)
}

// Post issues a POST request with a JSON body.
func (b *HTTPBridge) Post(ctx context.Context, rawURL string, body any) (any, error) {
	return b.Fetch(ctx, http.MethodPost, rawURL, body)
}
