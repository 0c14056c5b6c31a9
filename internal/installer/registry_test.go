package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmacedoeu/zeroclaw/internal/jsruntime"
)

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	client := NewRegistryClient()
	defer client.Close()

	results, err := client.Search(context.Background(), "")
	if err != nil || results != nil {
		t.Fatalf("Search(\"\") = %v, %v, want nil, nil", results, err)
	}
}

func TestGetPluginNotFoundMapsToRegistryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewRegistryClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	defer client.Close()

	_, err := client.GetPlugin(context.Background(), "nope")

	var pluginErr *jsruntime.PluginError
	if !errors.As(err, &pluginErr) || pluginErr.Registry == nil || pluginErr.Registry.Kind != jsruntime.RegistryErrNotFound {
		t.Fatalf("expected Registry(NotFound), got %v", err)
	}
}

func TestGetPluginServerErrorMapsToRequestFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRegistryClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	defer client.Close()

	_, err := client.GetPlugin(context.Background(), "whatever")

	var pluginErr *jsruntime.PluginError
	if !errors.As(err, &pluginErr) || pluginErr.Registry == nil || pluginErr.Registry.Kind != jsruntime.RegistryErrRequestFailed {
		t.Fatalf("expected Registry(RequestFailed), got %v", err)
	}
}

func TestGetPluginInvalidJSONMapsToInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewRegistryClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	defer client.Close()

	_, err := client.GetPlugin(context.Background(), "whatever")

	var pluginErr *jsruntime.PluginError
	if !errors.As(err, &pluginErr) || pluginErr.Registry == nil || pluginErr.Registry.Kind != jsruntime.RegistryErrInvalidResponse {
		t.Fatalf("expected Registry(InvalidResponse), got %v", err)
	}
}

func TestDownloadPluginIntegrityCheck(t *testing.T) {
	payload := []byte("archive-bytes")
	wrongSum := sha256.Sum256([]byte("not-the-payload"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewRegistryClient(WithHTTPClient(srv.Client()))
	defer client.Close()

	plugin := &RegistryPlugin{DownloadURL: srv.URL, SHA256: hex.EncodeToString(wrongSum[:])}
	_, err := client.DownloadPlugin(context.Background(), plugin)

	var pluginErr *jsruntime.PluginError
	if !errors.As(err, &pluginErr) || pluginErr.Registry == nil || pluginErr.Registry.Kind != jsruntime.RegistryErrIntegrityCheckFailed {
		t.Fatalf("expected Registry(IntegrityCheckFailed), got %v", err)
	}
}

func TestDownloadPluginSucceedsWithMatchingChecksum(t *testing.T) {
	payload := []byte("archive-bytes")
	sum := sha256.Sum256(payload)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewRegistryClient(WithHTTPClient(srv.Client()))
	defer client.Close()

	plugin := &RegistryPlugin{DownloadURL: srv.URL, SHA256: hex.EncodeToString(sum[:])}
	data, err := client.DownloadPlugin(context.Background(), plugin)
	if err != nil {
		t.Fatalf("DownloadPlugin returned %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("data mismatch")
	}
}

func TestGetPluginUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(RegistryPlugin{Name: "x", Version: "1.0.0"})
	}))
	defer srv.Close()

	client := NewRegistryClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	defer client.Close()

	if _, err := client.GetPlugin(context.Background(), "x"); err != nil {
		t.Fatalf("first GetPlugin: %v", err)
	}
	if _, err := client.GetPlugin(context.Background(), "x"); err != nil {
		t.Fatalf("second GetPlugin: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 network call due to caching, got %d", calls)
	}
}
