package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Quality filter thresholds: a candidate is filtered at score >= 3, or at
// score >= 2 when at least one matched signal carries weight >= 2.
const (
	qualityFilterScore     = 3
	qualityStrongScore     = 2
	qualityStrongMinWeight = 2
)

// qualitySignal is one weighted keyword heuristic for low-value listings.
type qualitySignal struct {
	name   string
	weight int
	re     *regexp.Regexp
}

func newSignal(name string, weight int, expr string) qualitySignal {
	return qualitySignal{name: name, weight: weight, re: regexp.MustCompile(expr)}
}

var qualitySignals = []qualitySignal{
	newSignal("staging", 2, `\b(staging|sandbox)\b`),
	newSignal("proof-of-concept", 2, `\b(proof[ -]of[ -]concept|poc)\b`),
	newSignal("testing", 1, `\btesting\b`),
	newSignal("demo", 1, `\b(demo|sample)\b`),
	newSignal("template", 1, `\btemplate\b`),
	newSignal("homework", 1, `\b(homework|assignment|coursework)\b`),
	newSignal("hello-world", 1, `\bhello[ -]world\b`),
	newSignal("personal", 1, `\b(personal|my first)\b`),
}

var placeholderDescriptionRe = regexp.MustCompile(
	`(?i)^(auto-?generated|generated by|no description( provided)?\.?|todo:?\s|add a description)`)

// QualityResult is the score breakdown for one candidate.
type QualityResult struct {
	Score    int
	Signals  []string
	Filtered bool
}

// Reason renders a human-readable summary of why the candidate scored.
func (q *QualityResult) Reason() string {
	return fmt.Sprintf("quality score %d (%s)", q.Score, strings.Join(q.Signals, ", "))
}

// AssessQuality scores a candidate against the weighted signal table plus
// structural penalties and decides whether it is filtered.
func AssessQuality(c *Candidate) QualityResult {
	blob := c.TextBlob()

	result := QualityResult{}
	maxWeight := 0

	for i := range qualitySignals {
		s := &qualitySignals[i]
		if s.re.MatchString(blob) {
			result.Score += s.weight
			result.Signals = append(result.Signals, s.name)
			if s.weight > maxWeight {
				maxWeight = s.weight
			}
		}
	}

	if c.RepoURL == "" && c.ServerURL == "" {
		result.Score++
		result.Signals = append(result.Signals, "no-urls")
	}
	if HasHashSuffix(c.Slug) {
		result.Score++
		result.Signals = append(result.Signals, "hash-suffixed-slug")
	}
	if c.Description == "" || placeholderDescriptionRe.MatchString(c.Description) {
		result.Score++
		result.Signals = append(result.Signals, "placeholder-description")
	}

	result.Filtered = result.Score >= qualityFilterScore ||
		(result.Score >= qualityStrongScore && maxWeight >= qualityStrongMinWeight)

	return result
}
