package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/mmacedoeu/zeroclaw/internal/jsruntime"
)

// DefaultRegistryURL is the default plugin registry base URL.
const DefaultRegistryURL = "https://clawhub.dev"

// SearchResult is one entry of a search response.
type SearchResult struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Author      string  `json:"author"`
	Version     string  `json:"version"`
	Score       float64 `json:"score"`
	Downloads   int64   `json:"downloads"`
	Tags        []string `json:"tags"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// RegistryPluginMetadata is the `metadata` object inside a RegistryPlugin.
type RegistryPluginMetadata struct {
	DisplayName  string   `json:"display_name"`
	MinZCVersion string   `json:"min_zc_version,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

// RegistryPlugin is the plugin detail response from the registry.
type RegistryPlugin struct {
	Name        string                 `json:"name"`
	Version     string                 `json:"version"`
	Description string                 `json:"description"`
	Author      string                 `json:"author"`
	Metadata    RegistryPluginMetadata `json:"metadata"`
	DownloadURL string                 `json:"download_url"`
	SHA256      string                 `json:"sha256"`
	Homepage    string                 `json:"homepage,omitempty"`
	Repository  string                 `json:"repository,omitempty"`
	License     string                 `json:"license,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Downloads   int64                  `json:"downloads"`
	Rating      float64                `json:"rating,omitempty"`
	UpdatedAt   string                 `json:"updated_at,omitempty"`
}

// RegistryClient talks to the registry HTTP API described in §6: search,
// plugin metadata lookup, and integrity-checked downloads. Plugin-detail
// lookups are cached for 15 minutes, so repeated GetPlugin calls for the
// same name make one metadata request; downloads are never cached.
type RegistryClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *ttlcache.Cache[string, *RegistryPlugin]
	logger     *slog.Logger
}

// RegistryClientOption configures a RegistryClient.
type RegistryClientOption func(*RegistryClient)

// WithBaseURL overrides DefaultRegistryURL.
func WithBaseURL(baseURL string) RegistryClientOption {
	return func(c *RegistryClient) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient overrides the default 30s-timeout client.
func WithHTTPClient(client *http.Client) RegistryClientOption {
	return func(c *RegistryClient) { c.httpClient = client }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(logger *slog.Logger) RegistryClientOption {
	return func(c *RegistryClient) { c.logger = logger }
}

// NewRegistryClient builds a client against DefaultRegistryURL unless
// overridden.
func NewRegistryClient(opts ...RegistryClientOption) *RegistryClient {
	cache := ttlcache.New[string, *RegistryPlugin](
		ttlcache.WithTTL[string, *RegistryPlugin](15 * time.Minute),
	)
	go cache.Start()

	c := &RegistryClient{
		baseURL:    DefaultRegistryURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		logger:     slog.Default().With("component", "installer.registry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close stops the cache's background eviction goroutine.
func (c *RegistryClient) Close() { c.cache.Stop() }

// Search queries the registry; an empty query short-circuits to an empty
// result set without making a request.
func (c *RegistryClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if query == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s/api/v1/plugins/search?q=%s", c.baseURL, url.QueryEscape(query))
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, jsruntime.ErrRegistryInvalidResponse(err.Error())
	}
	return resp.Results, nil
}

// GetPlugin fetches plugin metadata by name, using a short-lived cache.
func (c *RegistryClient) GetPlugin(ctx context.Context, name string) (*RegistryPlugin, error) {
	if item := c.cache.Get(name); item != nil {
		return item.Value(), nil
	}

	reqURL := fmt.Sprintf("%s/api/v1/plugins/%s", c.baseURL, url.PathEscape(name))
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var plugin RegistryPlugin
	if err := json.Unmarshal(body, &plugin); err != nil {
		return nil, jsruntime.ErrRegistryInvalidResponse(err.Error())
	}
	c.cache.Set(name, &plugin, ttlcache.DefaultTTL)
	return &plugin, nil
}

// DownloadPlugin fetches the archive bytes for plugin and verifies their
// SHA-256 against plugin.SHA256 before returning.
func (c *RegistryClient) DownloadPlugin(ctx context.Context, plugin *RegistryPlugin) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, plugin.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, jsruntime.ErrRegistryRequestFailed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, jsruntime.ErrRegistryRequestFailed(fmt.Sprintf("download returned %d", resp.StatusCode))
	}

	const maxSize = 100 * 1024 * 1024
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, jsruntime.ErrRegistryRequestFailed(err.Error())
	}

	if !verifyChecksum(data, plugin.SHA256) {
		return nil, jsruntime.ErrRegistryIntegrityCheckFailed()
	}
	return data, nil
}

func verifyChecksum(data []byte, wantHex string) bool {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == strings.ToLower(wantHex)
}

func (c *RegistryClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, jsruntime.ErrRegistryRequestFailed(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, jsruntime.ErrRegistryRequestFailed(err.Error())
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, jsruntime.ErrRegistryNotFound()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, jsruntime.ErrRegistryRequestFailed(fmt.Sprintf("registry returned %d", resp.StatusCode))
	}
	return body, nil
}
