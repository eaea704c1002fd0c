package catalog

import (
	"strings"

	"github.com/mcpdirectory/catalog-sync/internal/sources"
)

// DefaultCategory is assigned when no category rule matches.
const DefaultCategory = "Other Tools and Integrations"

// maxTopicTags caps how many normalized topic tags a candidate carries, on
// top of the source marker.
const maxTopicTags = 12

// categoryRule maps a category to the keywords that select it. Rules are
// evaluated in order; first match wins.
type categoryRule struct {
	category string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Databases and Storage", []string{"database", "postgres", "mysql", "sqlite", "mongodb", "redis", "storage", "s3", "sql"}},
	{"Search and Web", []string{"search", "crawl", "scrape", "browser", "web fetch", "serp"}},
	{"Developer Tools", []string{"git", "github", "gitlab", "ci/cd", "docker", "kubernetes", "terraform", "devops", "ide", "code review"}},
	{"Communication and Messaging", []string{"slack", "discord", "email", "sms", "telegram", "chat", "messaging", "notification"}},
	{"AI and Machine Learning", []string{"llm", "embedding", "vector", "machine learning", "openai", "anthropic", "inference", "rag"}},
	{"Cloud and Infrastructure", []string{"aws", "azure", "gcp", "cloud", "serverless", "lambda", "monitoring", "logging"}},
	{"Finance and Payments", []string{"payment", "stripe", "invoice", "crypto", "trading", "banking", "finance"}},
	{"Productivity and Project Management", []string{"calendar", "task", "todo", "notion", "jira", "linear", "project management", "document"}},
	{"Security", []string{"security", "vulnerability", "secret scanning", "auth", "compliance", "pentest"}},
	{"Data and Analytics", []string{"analytics", "metrics", "dashboard", "etl", "data pipeline", "bigquery", "warehouse"}},
}

// secret-bearing key fragments that signal api_key auth
var secretKeyFragments = []string{"key", "token", "secret", "password", "credential"}

// Classify normalizes one raw listing into a Candidate. Returns nil for
// unusable records: missing identifier, no URL at all, or a non-active
// upstream status. Classification is deterministic: the same listing always
// yields an identical candidate.
func Classify(l *sources.Listing) *Candidate {
	if l.Identifier == "" {
		return nil
	}
	if l.ServerURL == "" && l.RepoURL == "" {
		return nil
	}
	switch strings.ToLower(l.UpstreamStatus) {
	case "", "active":
	default:
		return nil
	}

	slug := Slugify(l.Identifier)
	if slug == "" {
		slug = FallbackSlug(l.Identifier + l.RepoURL + l.ServerURL)
	}

	name := l.Title
	if name == "" {
		name = Humanize(l.Identifier)
	}

	blob := strings.ToLower(strings.Join(append([]string{name, l.Description}, l.Topics...), " "))

	return &Candidate{
		Slug:              slug,
		Name:              name,
		Description:       strings.TrimSpace(l.Description),
		ServerURL:         l.ServerURL,
		RepoURL:           l.RepoURL,
		Category:          classifyCategory(blob),
		AuthType:          classifyAuthType(blob, l.ConfigKeys),
		Tags:              buildTags(l),
		Maintainer:        l.Maintainer,
		Status:            StatusActive,
		VerificationLevel: verificationFor(l.Source),
		Source:            l.Source,
	}
}

func classifyCategory(blob string) string {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(blob, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

func classifyAuthType(blob string, configKeys []string) AuthType {
	if strings.Contains(blob, "oauth") {
		return AuthOAuth
	}

	for _, key := range configKeys {
		lower := strings.ToLower(key)
		for _, fragment := range secretKeyFragments {
			if strings.Contains(lower, fragment) {
				return AuthAPIKey
			}
		}
	}
	for _, kw := range []string{"api key", "api_key", "api-key", "access token"} {
		if strings.Contains(blob, kw) {
			return AuthAPIKey
		}
	}

	return AuthNone
}

// buildTags assembles the classification tag set: a source marker plus up to
// maxTopicTags normalized topic tags, deduplicated, order preserved.
func buildTags(l *sources.Listing) []string {
	tags := []string{"source:" + l.Source}
	seen := map[string]bool{}

	count := 0
	for _, topic := range l.Topics {
		if count >= maxTopicTags {
			break
		}
		normalized := Slugify(topic)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		tags = append(tags, normalized)
		count++
	}

	return tags
}

func verificationFor(source string) VerificationLevel {
	switch source {
	case sources.SourceRegistry:
		return VerificationVerified
	case sources.SourceCommunity:
		return VerificationCommunity
	default:
		return VerificationUnverified
	}
}
