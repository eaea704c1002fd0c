package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcpdirectory/catalog-sync/internal/httpclient"
)

// CommunityAdapter fetches listings from the community registry, a
// bearer-token authenticated single-page endpoint.
type CommunityAdapter struct {
	client   httpclient.Client
	endpoint string
}

// NewCommunityAdapter creates an adapter for the community registry. The
// token is mandatory: the community registry rejects anonymous requests, so a
// missing token is a configuration error surfaced before any fetch begins.
func NewCommunityAdapter(endpoint, token string) (*CommunityAdapter, error) {
	if token == "" {
		return nil, fmt.Errorf("community source requires a bearer token")
	}
	return &CommunityAdapter{
		client:   httpclient.NewBearerClient(0, token),
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}, nil
}

// Name implements Adapter.
func (*CommunityAdapter) Name() string { return SourceCommunity }

type communityServer struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Repository  string   `json:"repository"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Status      string   `json:"status"`
}

type communityResponse struct {
	Servers []communityServer `json:"servers"`
}

// FetchAll implements Adapter. The community registry serves everything in
// one response.
func (a *CommunityAdapter) FetchAll(ctx context.Context, _ int) (*FetchResult, error) {
	result := &FetchResult{}

	body, err := a.client.Get(ctx, a.endpoint+"/servers")
	if err != nil {
		return result, fmt.Errorf("community registry fetch failed: %w", err)
	}

	var parsed communityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return result, fmt.Errorf("community registry parse failed: %w", err)
	}

	result.PagesFetched = 1
	result.ReachedEnd = true

	for i := range parsed.Servers {
		s := &parsed.Servers[i]
		result.Listings = append(result.Listings, Listing{
			Source:         SourceCommunity,
			Identifier:     s.Name,
			Title:          s.Title,
			Description:    s.Description,
			ServerURL:      s.URL,
			RepoURL:        s.Repository,
			Topics:         s.Tags,
			Maintainer:     s.Author,
			UpstreamStatus: s.Status,
		})
	}

	return result, nil
}
