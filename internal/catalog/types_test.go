package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHash(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Slug:        "acme-weather-server",
		Name:        "Weather Server",
		Description: "Forecast lookups",
		RepoURL:     "https://github.com/acme/weather-server",
		Tags:        []string{"source:github", "weather"},
	}

	same := c
	assert.Equal(t, c.ContentHash(), same.ContentHash())

	changed := c
	changed.Description = "Forecast lookups, now with radar"
	assert.NotEqual(t, c.ContentHash(), changed.ContentHash())

	require.Len(t, c.ContentHash(), 64)
}

func TestRecordFromCandidate(t *testing.T) {
	t.Parallel()

	c := Candidate{
		Slug:   "acme-weather-server",
		Name:   "Weather Server",
		Status: StatusActive,
	}
	rec := RecordFromCandidate(&c)

	assert.Equal(t, OwnershipAuto, rec.Ownership)
	assert.Equal(t, LifecycleActive, rec.Lifecycle)
	assert.Equal(t, c.ContentHash(), rec.ContentHash)
	assert.Equal(t, c.Slug, rec.Slug)
	assert.Equal(t, c.Status, rec.Status)
}

func TestTextBlobIsLowercased(t *testing.T) {
	t.Parallel()

	c := Candidate{Slug: "Acme-Server", Name: "ACME Server", Description: "Loud DESC"}
	blob := c.TextBlob()
	assert.Equal(t, "acme-server acme server loud desc ", blob)
}
