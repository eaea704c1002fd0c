package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommunityAdapterRequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewCommunityAdapter("https://community.example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bearer token")
}

func TestCommunityAdapterSendsBearerToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{
			"servers": [
				{
					"name": "community-weather",
					"title": "Community Weather",
					"description": "Weather data",
					"url": "https://weather.community.dev",
					"repository": "https://github.com/community/weather",
					"tags": ["weather"],
					"author": "jdoe",
					"status": "active"
				}
			]
		}`)
	}))
	defer server.Close()

	adapter, err := NewCommunityAdapter(server.URL, "test-token")
	require.NoError(t, err)

	result, err := adapter.FetchAll(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, result.ReachedEnd)
	require.Len(t, result.Listings, 1)

	l := result.Listings[0]
	assert.Equal(t, SourceCommunity, l.Source)
	assert.Equal(t, "community-weather", l.Identifier)
	assert.Equal(t, "Community Weather", l.Title)
	assert.Equal(t, "https://weather.community.dev", l.ServerURL)
	assert.Equal(t, "jdoe", l.Maintainer)
}
