package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mcpdirectory/catalog-sync/internal/httpclient"
)

const (
	npmSearchText = "mcp-server"
	npmSearchSize = 250
)

// NPMAdapter fetches listings from the package registry search endpoint. The
// endpoint serves a single size-capped page, so one request covers the whole
// source. Results are deduplicated by package name.
type NPMAdapter struct {
	client   httpclient.Client
	endpoint string
}

// NewNPMAdapter creates an adapter for the package registry search endpoint.
func NewNPMAdapter(client httpclient.Client, endpoint string) *NPMAdapter {
	return &NPMAdapter{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// Name implements Adapter.
func (*NPMAdapter) Name() string { return SourceNPM }

type npmSearchResult struct {
	Objects []struct {
		Package struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Keywords    []string `json:"keywords"`
			Links       struct {
				Repository string `json:"repository"`
				Homepage   string `json:"homepage"`
			} `json:"links"`
			Publisher struct {
				Username string `json:"username"`
			} `json:"publisher"`
		} `json:"package"`
	} `json:"objects"`
}

// FetchAll implements Adapter. maxPages is ignored beyond the first page.
func (a *NPMAdapter) FetchAll(ctx context.Context, _ int) (*FetchResult, error) {
	result := &FetchResult{}

	u := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d",
		a.endpoint, url.QueryEscape(npmSearchText), npmSearchSize)

	body, err := a.client.Get(ctx, u)
	if err != nil {
		return result, fmt.Errorf("npm search fetch failed: %w", err)
	}

	var parsed npmSearchResult
	if err := json.Unmarshal(body, &parsed); err != nil {
		return result, fmt.Errorf("npm search parse failed: %w", err)
	}

	result.PagesFetched = 1
	result.ReachedEnd = true

	seen := make(map[string]bool)
	for i := range parsed.Objects {
		pkg := &parsed.Objects[i].Package
		if pkg.Name == "" || seen[pkg.Name] {
			continue
		}
		seen[pkg.Name] = true

		result.Listings = append(result.Listings, Listing{
			Source:      SourceNPM,
			Identifier:  pkg.Name,
			Description: pkg.Description,
			RepoURL:     pkg.Links.Repository,
			ServerURL:   pkg.Links.Homepage,
			Topics:      pkg.Keywords,
			Maintainer:  pkg.Publisher.Username,
		})
	}

	return result, nil
}
