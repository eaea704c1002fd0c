package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdirectory/catalog-sync/internal/sources"
)

func validListing() *sources.Listing {
	return &sources.Listing{
		Source:      sources.SourceGitHub,
		Identifier:  "acme/weather-server",
		Title:       "Weather Server",
		Description: "Fetches weather forecasts for any location",
		RepoURL:     "https://github.com/acme/weather-server",
		Topics:      []string{"weather", "mcp"},
		Maintainer:  "acme",
	}
}

func TestClassifyRejectsUnusableListings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*sources.Listing)
	}{
		{
			name:   "missing_identifier",
			mutate: func(l *sources.Listing) { l.Identifier = "" },
		},
		{
			name: "no_urls",
			mutate: func(l *sources.Listing) {
				l.RepoURL = ""
				l.ServerURL = ""
			},
		},
		{
			name:   "archived_upstream",
			mutate: func(l *sources.Listing) { l.UpstreamStatus = "archived" },
		},
		{
			name:   "deprecated_upstream",
			mutate: func(l *sources.Listing) { l.UpstreamStatus = "deprecated" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := validListing()
			tt.mutate(l)
			assert.Nil(t, Classify(l))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()
	l := validListing()
	first := Classify(l)
	second := Classify(l)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestClassifyBasicFields(t *testing.T) {
	t.Parallel()
	c := Classify(validListing())
	require.NotNil(t, c)

	assert.Equal(t, "acme-weather-server", c.Slug)
	assert.Equal(t, "Weather Server", c.Name)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, sources.SourceGitHub, c.Source)
	assert.Equal(t, []string{"source:github", "weather", "mcp"}, c.Tags)
}

func TestClassifyNameFallback(t *testing.T) {
	t.Parallel()
	l := validListing()
	l.Title = ""
	c := Classify(l)
	require.NotNil(t, c)
	assert.Equal(t, "Weather Server", c.Name)
}

func TestClassifySlugFallback(t *testing.T) {
	t.Parallel()
	l := validListing()
	l.Identifier = "###"
	c := Classify(l)
	require.NotNil(t, c)
	assert.Contains(t, c.Slug, "server-")
}

func TestClassifyCategory(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "database_keywords",
			description: "Query your postgres instance over MCP",
			want:        "Databases and Storage",
		},
		{
			name:        "messaging_keywords",
			description: "Send slack messages from your agent",
			want:        "Communication and Messaging",
		},
		{
			name:        "first_match_wins",
			description: "postgres backups pushed to slack",
			want:        "Databases and Storage",
		},
		{
			name:        "no_match_falls_back",
			description: "Fetches weather forecasts",
			want:        DefaultCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := validListing()
			l.Description = tt.description
			c := Classify(l)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.Category)
		})
	}
}

func TestClassifyAuthType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		description string
		configKeys  []string
		want        AuthType
	}{
		{
			name:        "oauth_in_description",
			description: "Connects to Google Drive via OAuth",
			want:        AuthOAuth,
		},
		{
			name:       "secret_config_key",
			configKeys: []string{"ACME_API_TOKEN"},
			want:       AuthAPIKey,
		},
		{
			name:        "api_key_in_description",
			description: "Requires an API key from the dashboard",
			want:        AuthAPIKey,
		},
		{
			name:        "oauth_beats_config_keys",
			description: "OAuth flow",
			configKeys:  []string{"CLIENT_SECRET"},
			want:        AuthOAuth,
		},
		{
			name:        "no_auth_signals",
			description: "Reads public data only",
			configKeys:  []string{"REGION"},
			want:        AuthNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := validListing()
			l.Description = tt.description
			l.ConfigKeys = tt.configKeys
			c := Classify(l)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.AuthType)
		})
	}
}

func TestClassifyTagCapAndDedup(t *testing.T) {
	t.Parallel()
	l := validListing()
	l.Topics = []string{
		"alpha", "Alpha", "beta", "gamma", "delta", "epsilon", "zeta",
		"eta", "theta", "iota", "kappa", "lambda", "mu", "nu", "xi",
	}
	c := Classify(l)
	require.NotNil(t, c)

	// source marker plus at most maxTopicTags topics
	assert.Len(t, c.Tags, 1+maxTopicTags)
	assert.Equal(t, "source:github", c.Tags[0])

	seen := map[string]bool{}
	for _, tag := range c.Tags {
		assert.False(t, seen[tag], "duplicate tag %q", tag)
		seen[tag] = true
	}
}

func TestClassifyVerificationLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		source string
		want   VerificationLevel
	}{
		{sources.SourceRegistry, VerificationVerified},
		{sources.SourceCommunity, VerificationCommunity},
		{sources.SourceGitHub, VerificationUnverified},
		{sources.SourceNPM, VerificationUnverified},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			t.Parallel()
			l := validListing()
			l.Source = tt.source
			c := Classify(l)
			require.NotNil(t, c)
			assert.Equal(t, tt.want, c.VerificationLevel)
		})
	}
}
