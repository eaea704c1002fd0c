// Package sources implements the upstream source adapters. Each adapter
// fetches raw paginated listings from one external registry and hands back
// source-native records for classification.
package sources

import "context"

// Source names, also used as the source marker tag on classified candidates.
const (
	SourceRegistry  = "registry"
	SourceGitHub    = "github"
	SourceNPM       = "npm"
	SourceCommunity = "community"
)

// Listing is the raw, ephemeral shape one adapter returns for one upstream
// record. The classifier turns it into a catalog.Candidate.
type Listing struct {
	// Source is the adapter that produced this listing.
	Source string

	// Identifier is the source-native identifier the slug derives from,
	// e.g. "io.github.acme/weather" or "acme/weather-mcp".
	Identifier string

	// Title is an explicit display title, when the source exposes one.
	Title string

	Description string
	ServerURL   string
	RepoURL     string
	Topics      []string
	Maintainer  string

	// UpstreamStatus is the source's own lifecycle field. Empty and "active"
	// are usable; anything else (archived, deprecated, deleted) is dropped by
	// the classifier.
	UpstreamStatus string

	// ConfigKeys are the names of configuration/environment values the
	// listing declares, used as auth-type signals.
	ConfigKeys []string
}

// FetchResult is what an adapter hands back after walking its pages.
type FetchResult struct {
	// Listings collected so far. Preserved even when an error aborted
	// pagination early.
	Listings []Listing

	// ReachedEnd is true when the adapter saw the end of upstream pagination
	// rather than stopping on an error or the page cap.
	ReachedEnd bool

	// PagesFetched counts successful page fetches.
	PagesFetched int
}

// Adapter is the contract every upstream source implements. FetchAll walks
// pages sequentially up to maxPages. A page-fetch failure returns the
// listings collected so far alongside the error; the caller decides whether
// to use partial data.
type Adapter interface {
	Name() string
	FetchAll(ctx context.Context, maxPages int) (*FetchResult, error)
}
