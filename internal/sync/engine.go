// Package sync implements the multi-source catalog sync engine: fetching
// candidate listings, reconciling them against the persisted directory under
// ownership rules, and retiring rows that disappeared upstream through a
// two-phase stale lifecycle.
package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/config"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
	"github.com/mcpdirectory/catalog-sync/internal/sources"
)

// Batch and sample bounds.
const (
	upsertBatchSize   = 50
	staleChunkSize    = 25
	filterSampleCap   = 50
	maxRecordedFails  = 1000
	maxFailureReason  = 500
	errorSummaryLimit = 5
)

// DirectoryStore is the persistence surface the engine reconciles against.
type DirectoryStore interface {
	ListSyncRecords(ctx context.Context) ([]catalog.ServerRecord, error)
	UpsertBatch(ctx context.Context, records []catalog.ServerRecord) error
	UpsertOne(ctx context.Context, record catalog.ServerRecord) error
	SetLifecycle(ctx context.Context, slug string, lifecycle catalog.Lifecycle, status catalog.Status) error
}

// LockStore is the best-effort TTL mutex guarding concurrent runs per scope.
type LockStore interface {
	TryAcquire(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, holder string) error
}

// RunLedger records run and failure history. All ledger operations are
// best-effort: observability must not become a dependency of correctness.
type RunLedger interface {
	StartRun(ctx context.Context, triggeredBy string) (uuid.UUID, error)
	FinishRun(ctx context.Context, run *catalog.SyncRun) error
	RecordFailures(ctx context.Context, runID uuid.UUID, failures []catalog.SyncFailure) error
}

// Enricher optionally attaches extracted tool names to a candidate before
// upsert. External and best-effort; absence and errors are tolerated.
type Enricher interface {
	Enrich(ctx context.Context, c *catalog.Candidate) error
}

// FilterSample is one recorded low-quality rejection, kept up to
// filterSampleCap per run for inspection.
type FilterSample struct {
	Slug   string `json:"slug"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Result is the structured summary of one sync run. It is always returned,
// even on partial failure.
type Result struct {
	RunID       uuid.UUID `json:"runId,omitempty"`
	TriggeredBy string    `json:"triggeredBy"`

	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`

	Fetched    int  `json:"fetched"`
	Candidates int  `json:"candidates"`
	ReachedEnd bool `json:"reachedEnd"`

	FilteredModeration int            `json:"filteredModeration"`
	FilteredQuality    int            `json:"filteredQuality"`
	FilterSamples      []FilterSample `json:"filterSamples,omitempty"`

	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Unchanged     int `json:"unchanged"`
	SkippedManual int `json:"skippedManual"`

	StaleCleanupApplied bool   `json:"staleCleanupApplied"`
	StaleCleanupReason  string `json:"staleCleanupReason,omitempty"`
	StaleMarked         int    `json:"staleMarked"`
	StaleRejected       int    `json:"staleRejected"`
	StaleCapped         int    `json:"staleCapped"`

	Failures     []catalog.SyncFailure `json:"failures,omitempty"`
	ChangedSlugs []string              `json:"changedSlugs,omitempty"`
	DurationMs   int64                 `json:"durationMs"`
}

// Engine runs one batch sync invocation per call to Run. There is no
// long-lived in-process concurrency between runs; cross-run exclusion is
// delegated to the TTL lock.
type Engine struct {
	adapters  []sources.Adapter
	store     DirectoryStore
	locks     LockStore
	ledger    RunLedger
	enricher  Enricher
	moderator *catalog.Moderator

	cfg      config.SyncConfig
	scope    string
	holderID string
	lockTTL  time.Duration
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEnricher attaches the optional tool-extraction enrichment step.
func WithEnricher(e Enricher) Option {
	return func(eng *Engine) {
		eng.enricher = e
	}
}

// New builds an engine. Invalid moderation patterns are a configuration
// error surfaced here, before any fetch begins.
func New(
	cfg *config.Config,
	adapters []sources.Adapter,
	store DirectoryStore,
	locks LockStore,
	ledger RunLedger,
	opts ...Option,
) (*Engine, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one source adapter is required")
	}
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}

	moderator, err := catalog.NewModerator(cfg.Sync.AllowlistPatterns, cfg.Sync.DenylistPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid moderation configuration: %w", err)
	}

	lockTTL, err := time.ParseDuration(cfg.Sync.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid lock TTL %q: %w", cfg.Sync.LockTTL, err)
	}

	e := &Engine{
		adapters:  adapters,
		store:     store,
		locks:     locks,
		ledger:    ledger,
		moderator: moderator,
		cfg:       cfg.Sync,
		scope:     "catalog-sync:" + cfg.DirectoryName,
		holderID:  uuid.NewString(),
		lockTTL:   lockTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes one complete sync: fetch, classify, filter, reconcile, upsert
// and stale processing. It returns a structured result even on partial
// failure; the only hard errors are a held lock being respected (reported via
// Skipped) and the persisted directory being unreadable.
func (e *Engine) Run(ctx context.Context, triggeredBy string) (*Result, error) {
	start := time.Now()
	result := &Result{TriggeredBy: triggeredBy}

	acquired, degraded := e.acquireLock(ctx)
	result.Degraded = degraded
	if !acquired {
		result.Skipped = true
		result.SkipReason = "sync lock is held by another run"
		logger.Infof("Sync skipped: %s", result.SkipReason)
		return result, nil
	}
	defer e.releaseLock(ctx)

	result.RunID = e.startRun(ctx, triggeredBy)

	// Fetch phase: strictly sequential across sources and pages.
	listings, reachedEnd := e.fetchAll(ctx, result)
	result.Fetched = len(listings)
	result.ReachedEnd = reachedEnd

	// Classify and filter.
	candidates := e.classifyAndFilter(ctx, listings, result)
	result.Candidates = len(candidates)

	// Reconcile against persisted state.
	existing, err := e.store.ListSyncRecords(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load persisted directory: %w", err)
		result.DurationMs = time.Since(start).Milliseconds()
		e.finishRun(ctx, result, catalog.RunStatusError, err.Error())
		return result, err
	}

	existingBySlug := make(map[string]catalog.ServerRecord, len(existing))
	for _, rec := range existing {
		existingBySlug[rec.Slug] = rec
	}

	plan := resolve(candidates, existingBySlug)
	result.SkippedManual = plan.skippedManual

	e.executeUpserts(ctx, plan, existingBySlug, result)

	// Stale processing only after a fully successful fetch-and-upsert phase.
	e.processStale(ctx, existingBySlug, plan.candidateSlugs(), result)

	result.DurationMs = time.Since(start).Milliseconds()

	status := catalog.RunStatusSuccess
	summary := ""
	if len(result.Failures) > 0 {
		status = catalog.RunStatusPartial
		summary = summarizeFailures(result.Failures)
	}
	e.finishRun(ctx, result, status, summary)

	logger.Infof("Sync finished: fetched=%d candidates=%d created=%d updated=%d unchanged=%d "+
		"skippedManual=%d staleMarked=%d staleRejected=%d failures=%d duration=%dms",
		result.Fetched, result.Candidates, result.Created, result.Updated, result.Unchanged,
		result.SkippedManual, result.StaleMarked, result.StaleRejected, len(result.Failures),
		result.DurationMs)

	return result, nil
}

// fetchAll walks every adapter sequentially. A page-fetch failure aborts that
// source's pagination but keeps the listings already collected.
func (e *Engine) fetchAll(ctx context.Context, result *Result) ([]sources.Listing, bool) {
	var listings []sources.Listing
	reachedEnd := true

	for _, adapter := range e.adapters {
		res, err := adapter.FetchAll(ctx, e.cfg.MaxPages)
		if res != nil {
			listings = append(listings, res.Listings...)
			if !res.ReachedEnd {
				reachedEnd = false
			}
		}
		if err != nil {
			reachedEnd = false
			reason := sanitizeReason(fmt.Sprintf("source %s: %v", adapter.Name(), err))
			result.Failures = append(result.Failures, catalog.SyncFailure{Reason: reason})
			logger.Errorf("Source %s fetch failed: %v", adapter.Name(), err)
			continue
		}
		if res != nil {
			logger.Infof("Source %s: %d listings across %d pages (reachedEnd=%v)",
				adapter.Name(), len(res.Listings), res.PagesFetched, res.ReachedEnd)
		}
	}

	return listings, reachedEnd
}

// classifyAndFilter normalizes raw listings and applies the moderation and
// quality gates. Allow always wins: an allowlisted candidate bypasses both
// the denylist and the quality heuristic.
func (e *Engine) classifyAndFilter(
	ctx context.Context, listings []sources.Listing, result *Result,
) []*catalog.Candidate {
	var candidates []*catalog.Candidate
	deniedSlugs := make(map[string]bool)

	for i := range listings {
		c := catalog.Classify(&listings[i])
		if c == nil {
			continue
		}

		verdict := e.moderator.Evaluate(c)
		if verdict.Denied {
			// Deduplicate the recorded reason per slug within the run.
			if !deniedSlugs[c.Slug] {
				deniedSlugs[c.Slug] = true
				result.FilteredModeration++
				e.recordFilterSample(result, c.Slug, 0, verdict.Reason)
			}
			continue
		}

		if !verdict.Allowlisted && e.cfg.QualityFilter {
			quality := catalog.AssessQuality(c)
			if quality.Filtered {
				result.FilteredQuality++
				e.recordFilterSample(result, c.Slug, quality.Score, quality.Reason())
				continue
			}
		}

		e.enrich(ctx, c)
		candidates = append(candidates, c)
	}

	return candidates
}

func (e *Engine) enrich(ctx context.Context, c *catalog.Candidate) {
	if e.enricher == nil {
		return
	}
	if err := e.enricher.Enrich(ctx, c); err != nil {
		logger.Warnf("Enrichment failed for %s: %v", c.Slug, err)
	}
}

func (*Engine) recordFilterSample(result *Result, slug string, score int, reason string) {
	if len(result.FilterSamples) >= filterSampleCap {
		return
	}
	result.FilterSamples = append(result.FilterSamples, FilterSample{
		Slug:   slug,
		Score:  score,
		Reason: reason,
	})
}

func summarizeFailures(failures []catalog.SyncFailure) string {
	n := len(failures)
	if n > errorSummaryLimit {
		n = errorSummaryLimit
	}
	reasons := make([]string, 0, n)
	for _, f := range failures[:n] {
		reasons = append(reasons, f.Reason)
	}
	summary := strings.Join(reasons, "; ")
	if len(failures) > errorSummaryLimit {
		summary += fmt.Sprintf("; and %d more", len(failures)-errorSummaryLimit)
	}
	return summary
}
