package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mcpdirectory/catalog-sync/internal/httpclient"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

// registryPageLimit is the page size requested from the official registry.
const registryPageLimit = 100

// RegistryAdapter fetches listings from the official protocol registry. The
// endpoint is cursor-paginated: ?limit=&cursor=, response carries
// metadata.nextCursor until the last page.
type RegistryAdapter struct {
	client   httpclient.Client
	endpoint string
}

// NewRegistryAdapter creates an adapter for the official registry endpoint.
func NewRegistryAdapter(client httpclient.Client, endpoint string) *RegistryAdapter {
	return &RegistryAdapter{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// Name implements Adapter.
func (*RegistryAdapter) Name() string { return SourceRegistry }

type registryServer struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Repository  struct {
		URL string `json:"url"`
	} `json:"repository"`
	Remotes []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"remotes"`
	Packages []struct {
		EnvironmentVariables []struct {
			Name     string `json:"name"`
			IsSecret bool   `json:"is_secret"`
		} `json:"environment_variables"`
	} `json:"packages"`
}

type registryPage struct {
	Servers  []registryServer `json:"servers"`
	Metadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"metadata"`
}

// FetchAll walks the cursor chain until the registry stops returning a next
// cursor or maxPages is hit. Pagination is sequential: each page's cursor
// comes from the previous response.
func (a *RegistryAdapter) FetchAll(ctx context.Context, maxPages int) (*FetchResult, error) {
	result := &FetchResult{}
	cursor := ""

	for page := 0; page < maxPages; page++ {
		u := fmt.Sprintf("%s/v0/servers?limit=%d", a.endpoint, registryPageLimit)
		if cursor != "" {
			u += "&cursor=" + url.QueryEscape(cursor)
		}

		body, err := a.client.Get(ctx, u)
		if err != nil {
			return result, fmt.Errorf("registry page %d fetch failed: %w", page+1, err)
		}

		var parsed registryPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			return result, fmt.Errorf("registry page %d parse failed: %w", page+1, err)
		}

		result.PagesFetched++
		for i := range parsed.Servers {
			result.Listings = append(result.Listings, a.toListing(&parsed.Servers[i]))
		}

		cursor = parsed.Metadata.NextCursor
		if cursor == "" {
			result.ReachedEnd = true
			return result, nil
		}
	}

	logger.Warnf("registry pagination stopped at maxPages=%d with cursor remaining", maxPages)
	return result, nil
}

func (*RegistryAdapter) toListing(s *registryServer) Listing {
	l := Listing{
		Source:         SourceRegistry,
		Identifier:     s.Name,
		Description:    s.Description,
		RepoURL:        s.Repository.URL,
		UpstreamStatus: s.Status,
		Maintainer:     registryNamespaceOwner(s.Name),
	}

	for _, r := range s.Remotes {
		if r.URL != "" {
			l.ServerURL = r.URL
			break
		}
	}
	for _, p := range s.Packages {
		for _, env := range p.EnvironmentVariables {
			l.ConfigKeys = append(l.ConfigKeys, env.Name)
		}
	}

	return l
}

// registryNamespaceOwner extracts the owner from a reverse-DNS registry name
// such as "io.github.acme/weather".
func registryNamespaceOwner(name string) string {
	namespace := name
	if idx := strings.Index(namespace, "/"); idx >= 0 {
		namespace = namespace[:idx]
	}
	if idx := strings.LastIndex(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
