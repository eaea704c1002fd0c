package sources

import (
	"fmt"

	"github.com/mcpdirectory/catalog-sync/internal/config"
	"github.com/mcpdirectory/catalog-sync/internal/httpclient"
)

// NewAdapters builds one adapter per configured source, in a stable order.
// A source needing credentials that cannot be resolved is a hard
// configuration error; sync never starts with a partially wired source set.
func NewAdapters(cfg *config.SourcesConfig) ([]Adapter, error) {
	var adapters []Adapter

	if cfg.Registry != nil {
		adapters = append(adapters,
			NewRegistryAdapter(httpclient.NewDefaultClient(0), cfg.Registry.Endpoint))
	}

	if cfg.GitHub != nil {
		token, err := cfg.GitHub.GetToken()
		if err != nil {
			return nil, fmt.Errorf("github source: %w", err)
		}
		var client httpclient.Client
		if token != "" {
			client = httpclient.NewBearerClient(0, token)
		} else {
			// Anonymous search works at a lower rate limit.
			client = httpclient.NewDefaultClient(0)
		}
		adapters = append(adapters, NewGitHubAdapter(client, cfg.GitHub.Endpoint))
	}

	if cfg.NPM != nil {
		adapters = append(adapters,
			NewNPMAdapter(httpclient.NewDefaultClient(0), cfg.NPM.Endpoint))
	}

	if cfg.Community != nil {
		token, err := cfg.Community.GetToken()
		if err != nil {
			return nil, fmt.Errorf("community source: %w", err)
		}
		adapter, err := NewCommunityAdapter(cfg.Community.Endpoint, token)
		if err != nil {
			return nil, fmt.Errorf("community source: %w", err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	return adapters, nil
}
