package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
)

func candidate(slug, repoURL string) *catalog.Candidate {
	return &catalog.Candidate{
		Slug:    slug,
		Name:    slug,
		RepoURL: repoURL,
		Status:  catalog.StatusActive,
	}
}

func TestResolveDedupesBySlugFirstSeenWins(t *testing.T) {
	t.Parallel()

	first := candidate("alpha", "https://github.com/acme/alpha")
	first.Description = "from the registry"
	second := candidate("alpha", "https://github.com/acme/alpha")
	second.Description = "from npm"

	plan := resolve([]*catalog.Candidate{first, second}, nil)

	require.Len(t, plan.creates, 1)
	assert.Equal(t, "from the registry", plan.creates[0].Description)
}

func TestResolveDedupesByRepoURLWithinRun(t *testing.T) {
	t.Parallel()

	// Two sources list the same repo under different identifiers before any
	// row exists; only one row may be created.
	plan := resolve([]*catalog.Candidate{
		candidate("acme-weather", "https://github.com/acme/weather"),
		candidate("weather-mcp-server", "https://github.com/acme/weather"),
	}, nil)

	require.Len(t, plan.creates, 1)
	assert.Equal(t, "acme-weather", plan.creates[0].Slug, "first seen wins")
	assert.Empty(t, plan.updates)
}

func TestResolveMergesOnRepoURL(t *testing.T) {
	t.Parallel()

	existing := map[string]catalog.ServerRecord{
		"weather-server": {
			Slug:      "weather-server",
			RepoURL:   "https://github.com/acme/weather",
			Ownership: catalog.OwnershipAuto,
		},
	}

	plan := resolve([]*catalog.Candidate{
		candidate("acme-weather", "https://github.com/acme/weather"),
	}, existing)

	assert.Empty(t, plan.creates)
	require.Len(t, plan.updates, 1)
	assert.Equal(t, "weather-server", plan.updates[0].Slug, "candidate adopts the persisted slug")
}

func TestResolveMergeCollisionCollapses(t *testing.T) {
	t.Parallel()

	// Two sources list the same repo under different identifiers while the
	// persisted row holds a third slug: both collapse onto it, then dedupe.
	existing := map[string]catalog.ServerRecord{
		"weather-server": {
			Slug:      "weather-server",
			RepoURL:   "https://github.com/acme/weather",
			Ownership: catalog.OwnershipAuto,
		},
	}

	plan := resolve([]*catalog.Candidate{
		candidate("acme-weather", "https://github.com/acme/weather"),
		candidate("weather-mcp", "https://github.com/acme/weather"),
	}, existing)

	assert.Empty(t, plan.creates)
	assert.Len(t, plan.updates, 1)
}

func TestResolveSplitsByOwnership(t *testing.T) {
	t.Parallel()

	existing := map[string]catalog.ServerRecord{
		"auto-row":   {Slug: "auto-row", Ownership: catalog.OwnershipAuto},
		"manual-row": {Slug: "manual-row", Ownership: catalog.OwnershipManual},
	}

	plan := resolve([]*catalog.Candidate{
		candidate("auto-row", "https://github.com/acme/auto"),
		candidate("manual-row", "https://github.com/acme/manual"),
		candidate("new-row", "https://github.com/acme/new"),
	}, existing)

	require.Len(t, plan.creates, 1)
	assert.Equal(t, "new-row", plan.creates[0].Slug)
	require.Len(t, plan.updates, 1)
	assert.Equal(t, "auto-row", plan.updates[0].Slug)
	assert.Equal(t, 1, plan.skippedManual)
}

func TestCandidateSlugs(t *testing.T) {
	t.Parallel()

	plan := &reconcilePlan{
		creates: []*catalog.Candidate{candidate("a", "")},
		updates: []*catalog.Candidate{candidate("b", "")},
	}
	slugs := plan.candidateSlugs()
	assert.True(t, slugs["a"])
	assert.True(t, slugs["b"])
	assert.Len(t, slugs, 2)
}
