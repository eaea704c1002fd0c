package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdirectory/catalog-sync/internal/httpclient"
)

func TestRegistryAdapterWalksCursorChain(t *testing.T) {
	t.Parallel()

	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)

		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{
				"servers": [
					{
						"name": "io.github.acme/weather",
						"description": "Weather lookups",
						"status": "active",
						"repository": {"url": "https://github.com/acme/weather"},
						"remotes": [{"type": "sse", "url": "https://mcp.acme.dev/sse"}],
						"packages": [{"environment_variables": [{"name": "ACME_API_KEY", "is_secret": true}]}]
					}
				],
				"metadata": {"next_cursor": "page-two"}
			}`)
		case "page-two":
			fmt.Fprint(w, `{
				"servers": [
					{
						"name": "io.github.beta/files",
						"description": "File browsing",
						"repository": {"url": "https://github.com/beta/files"}
					}
				],
				"metadata": {}
			}`)
		default:
			http.Error(w, "unexpected cursor", http.StatusBadRequest)
		}
	}))
	defer server.Close()

	adapter := NewRegistryAdapter(httpclient.NewDefaultClient(0), server.URL)
	result, err := adapter.FetchAll(context.Background(), 10)
	require.NoError(t, err)

	assert.True(t, result.ReachedEnd)
	assert.Equal(t, 2, result.PagesFetched)
	require.Len(t, result.Listings, 2)
	require.Len(t, requests, 2)
	assert.Contains(t, requests[1], "cursor=page-two")

	first := result.Listings[0]
	assert.Equal(t, SourceRegistry, first.Source)
	assert.Equal(t, "io.github.acme/weather", first.Identifier)
	assert.Equal(t, "https://mcp.acme.dev/sse", first.ServerURL)
	assert.Equal(t, "https://github.com/acme/weather", first.RepoURL)
	assert.Equal(t, "acme", first.Maintainer)
	assert.Equal(t, []string{"ACME_API_KEY"}, first.ConfigKeys)
	assert.Equal(t, "active", first.UpstreamStatus)
}

func TestRegistryAdapterStopsAtMaxPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"servers": [{"name": "io.github.acme/one", "repository": {"url": "https://example.com/r"}}],
			"metadata": {"next_cursor": "more"}
		}`)
	}))
	defer server.Close()

	adapter := NewRegistryAdapter(httpclient.NewDefaultClient(0), server.URL)
	result, err := adapter.FetchAll(context.Background(), 3)
	require.NoError(t, err)

	assert.False(t, result.ReachedEnd, "page cap must not count as reaching the end")
	assert.Equal(t, 3, result.PagesFetched)
	assert.Len(t, result.Listings, 3)
}

func TestRegistryAdapterKeepsPartialListingsOnError(t *testing.T) {
	t.Parallel()

	var page int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		page++
		if page == 1 {
			fmt.Fprint(w, `{
				"servers": [{"name": "io.github.acme/one", "repository": {"url": "https://example.com/r"}}],
				"metadata": {"next_cursor": "more"}
			}`)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewRegistryAdapter(httpclient.NewDefaultClient(0), server.URL)
	result, err := adapter.FetchAll(context.Background(), 10)

	require.Error(t, err)
	assert.False(t, result.ReachedEnd)
	assert.Equal(t, 1, result.PagesFetched)
	assert.Len(t, result.Listings, 1, "listings from successful pages survive the error")
}

func TestRegistryNamespaceOwner(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
	}{
		{"io.github.acme/weather", "acme"},
		{"com.example/tools", "example"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, registryNamespaceOwner(tt.name))
		})
	}
}
