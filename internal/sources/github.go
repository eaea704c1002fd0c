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
	githubPerPage = 50

	// githubSearchQuery scopes the code-hosting search to MCP server repos.
	githubSearchQuery = "mcp-server in:name,topics"
)

// GitHubAdapter fetches listings from the code-hosting search API. Pagination
// is page-number based; a page returning fewer than githubPerPage items ends
// the walk. Results are deduplicated by full name since search ranking can
// repeat items across pages.
type GitHubAdapter struct {
	client   httpclient.Client
	endpoint string
}

// NewGitHubAdapter creates an adapter for the code-hosting search endpoint.
func NewGitHubAdapter(client httpclient.Client, endpoint string) *GitHubAdapter {
	return &GitHubAdapter{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// Name implements Adapter.
func (*GitHubAdapter) Name() string { return SourceGitHub }

type githubRepo struct {
	FullName    string   `json:"full_name"`
	Description string   `json:"description"`
	HTMLURL     string   `json:"html_url"`
	Topics      []string `json:"topics"`
	Archived    bool     `json:"archived"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
}

type githubSearchPage struct {
	Items []githubRepo `json:"items"`
}

// FetchAll implements Adapter.
func (a *GitHubAdapter) FetchAll(ctx context.Context, maxPages int) (*FetchResult, error) {
	result := &FetchResult{}
	seen := make(map[string]bool)

	for page := 1; page <= maxPages; page++ {
		u := fmt.Sprintf("%s/search/repositories?q=%s&per_page=%d&page=%d",
			a.endpoint, url.QueryEscape(githubSearchQuery), githubPerPage, page)

		body, err := a.client.Get(ctx, u)
		if err != nil {
			return result, fmt.Errorf("github page %d fetch failed: %w", page, err)
		}

		var parsed githubSearchPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return result, fmt.Errorf("github page %d parse failed: %w", page, err)
		}

		result.PagesFetched++
		for i := range parsed.Items {
			repo := &parsed.Items[i]
			if seen[repo.FullName] {
				continue
			}
			seen[repo.FullName] = true
			result.Listings = append(result.Listings, a.toListing(repo))
		}

		if len(parsed.Items) < githubPerPage {
			result.ReachedEnd = true
			return result, nil
		}
	}

	return result, nil
}

func (*GitHubAdapter) toListing(r *githubRepo) Listing {
	status := "active"
	if r.Archived {
		status = "archived"
	}
	return Listing{
		Source:         SourceGitHub,
		Identifier:     r.FullName,
		Description:    r.Description,
		RepoURL:        r.HTMLURL,
		Topics:         r.Topics,
		Maintainer:     r.Owner.Login,
		UpstreamStatus: status,
	}
}
