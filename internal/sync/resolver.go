package sync

import (
	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

// reconcilePlan is the outcome of dedup and ownership resolution: the
// candidates queued for writing and the count of manually curated rows left
// untouched.
type reconcilePlan struct {
	creates       []*catalog.Candidate
	updates       []*catalog.Candidate
	skippedManual int
}

func (p *reconcilePlan) candidateSlugs() map[string]bool {
	slugs := make(map[string]bool, len(p.creates)+len(p.updates))
	for _, c := range p.creates {
		slugs[c.Slug] = true
	}
	for _, c := range p.updates {
		slugs[c.Slug] = true
	}
	return slugs
}

// resolve collapses same-run duplicates by slug and by canonical repository
// URL (first seen wins), merges cross-source duplicates onto the persisted
// row sharing their repo URL, and splits the survivors by ownership: rows
// without the auto-managed marker are never touched.
func resolve(
	candidates []*catalog.Candidate,
	existingBySlug map[string]catalog.ServerRecord,
) *reconcilePlan {
	// Pass 1: same-source and cross-source slug dedup, first seen wins.
	deduped := dedupeBySlug(candidates)

	// Pass 2: within-run URL dedup. Two sources can list the same project
	// under different identifiers before any row exists; collapse them here so
	// a first sighting never creates two rows.
	deduped = dedupeByRepoURL(deduped)

	// Pass 3: cross-source URL merge. A candidate whose repo URL already
	// belongs to a persisted row adopts that row's slug, so the same project
	// discovered through two sources converges on one row.
	existingByRepoURL := make(map[string]string, len(existingBySlug))
	for slug, rec := range existingBySlug {
		if rec.RepoURL != "" {
			existingByRepoURL[rec.RepoURL] = slug
		}
	}

	merged := false
	for _, c := range deduped {
		if c.RepoURL == "" {
			continue
		}
		if slug, ok := existingByRepoURL[c.RepoURL]; ok && slug != c.Slug {
			logger.Debugf("Merging candidate %s onto existing row %s (same repo URL)", c.Slug, slug)
			c.Slug = slug
			merged = true
		}
	}
	if merged {
		// Reassignment can introduce new slug collisions.
		deduped = dedupeBySlug(deduped)
	}

	plan := &reconcilePlan{}
	for _, c := range deduped {
		existing, ok := existingBySlug[c.Slug]
		switch {
		case !ok:
			plan.creates = append(plan.creates, c)
		case existing.Ownership == catalog.OwnershipAuto:
			plan.updates = append(plan.updates, c)
		default:
			// Manually curated rows are immutable to sync.
			plan.skippedManual++
		}
	}

	return plan
}

func dedupeBySlug(candidates []*catalog.Candidate) []*catalog.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if seen[c.Slug] {
			continue
		}
		seen[c.Slug] = true
		out = append(out, c)
	}
	return out
}

func dedupeByRepoURL(candidates []*catalog.Candidate) []*catalog.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := candidates[:0:0]
	for _, c := range candidates {
		if c.RepoURL != "" {
			if seen[c.RepoURL] {
				continue
			}
			seen[c.RepoURL] = true
		}
		out = append(out, c)
	}
	return out
}
