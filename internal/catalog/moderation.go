package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// matcherKind is how a moderation pattern string was compiled.
type matcherKind int

const (
	matcherSubstring matcherKind = iota
	matcherWildcard
	matcherRegex
)

// Rule is one compiled moderation pattern. Three syntaxes are supported:
// "/.../" compiles as a case-insensitive regex, a pattern containing * or ?
// compiles as a wildcard, anything else matches as a case-insensitive
// substring.
type Rule struct {
	Pattern string

	kind matcherKind
	re   *regexp.Regexp
	g    glob.Glob
	sub  string
}

// CompileRule compiles one pattern string. Invalid regex or wildcard syntax
// is a configuration error, surfaced loudly rather than silently dropped.
func CompileRule(pattern string) (Rule, error) {
	if pattern == "" {
		return Rule{}, fmt.Errorf("moderation pattern cannot be empty")
	}

	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 2 {
		re, err := regexp.Compile("(?i)" + pattern[1:len(pattern)-1])
		if err != nil {
			return Rule{}, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		return Rule{Pattern: pattern, kind: matcherRegex, re: re}, nil
	}

	if strings.ContainsAny(pattern, "*?") {
		// Wildcards match anywhere in the text blob.
		expr := strings.ToLower(pattern)
		if !strings.HasPrefix(expr, "*") {
			expr = "*" + expr
		}
		if !strings.HasSuffix(expr, "*") {
			expr += "*"
		}
		g, err := glob.Compile(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid wildcard pattern %q: %w", pattern, err)
		}
		return Rule{Pattern: pattern, kind: matcherWildcard, g: g}, nil
	}

	return Rule{Pattern: pattern, kind: matcherSubstring, sub: strings.ToLower(pattern)}, nil
}

// CompileRules compiles a pattern list, failing on the first invalid one.
func CompileRules(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		rule, err := CompileRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Matches reports whether the rule matches the given text blob. Callers pass
// lowercased text; substring and wildcard matching rely on it.
func (r *Rule) Matches(text string) bool {
	switch r.kind {
	case matcherRegex:
		return r.re.MatchString(text)
	case matcherWildcard:
		return r.g.Match(text)
	default:
		return strings.Contains(text, r.sub)
	}
}

// Verdict is the outcome of moderating one candidate.
type Verdict struct {
	Allowlisted bool
	Denied      bool
	Reason      string
}

// Moderator applies allow/deny pattern rules to candidate text blobs. Allow
// always wins over deny: an allowlisted candidate skips deny evaluation
// entirely.
type Moderator struct {
	allow []Rule
	deny  []Rule
}

// NewModerator compiles the allow and deny pattern lists.
func NewModerator(allowPatterns, denyPatterns []string) (*Moderator, error) {
	allow, err := CompileRules(allowPatterns)
	if err != nil {
		return nil, fmt.Errorf("allowlist: %w", err)
	}
	deny, err := CompileRules(denyPatterns)
	if err != nil {
		return nil, fmt.Errorf("denylist: %w", err)
	}
	return &Moderator{allow: allow, deny: deny}, nil
}

// Evaluate moderates one candidate.
func (m *Moderator) Evaluate(c *Candidate) Verdict {
	blob := c.TextBlob()

	for i := range m.allow {
		if m.allow[i].Matches(blob) {
			return Verdict{
				Allowlisted: true,
				Reason:      fmt.Sprintf("allowlisted by pattern %q", m.allow[i].Pattern),
			}
		}
	}

	for i := range m.deny {
		if m.deny[i].Matches(blob) {
			return Verdict{
				Denied: true,
				Reason: fmt.Sprintf("denied by pattern %q", m.deny[i].Pattern),
			}
		}
	}

	return Verdict{}
}
