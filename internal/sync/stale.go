package sync

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

// processStale runs the two-phase grace/reject state machine over
// auto-managed rows that vanished upstream. Every precondition failure
// resolves by skipping the whole phase with an explicit reason; the manager
// never guesses.
func (e *Engine) processStale(
	ctx context.Context,
	existingBySlug map[string]catalog.ServerRecord,
	candidateSlugs map[string]bool,
	result *Result,
) {
	if reason := e.stalePreconditionFailure(result); reason != "" {
		result.StaleCleanupReason = reason
		logger.Infof("Stale processing skipped: %s", reason)
		return
	}

	// Baseline: currently active-or-stale-candidate auto-managed rows.
	var baselineRows []catalog.ServerRecord
	for _, rec := range existingBySlug {
		if rec.Ownership != catalog.OwnershipAuto {
			continue
		}
		if rec.Lifecycle == catalog.LifecycleActive || rec.Lifecycle == catalog.LifecycleStaleCandidate {
			baselineRows = append(baselineRows, rec)
		}
	}
	baseline := len(baselineRows)

	// Coverage guard: a partial or throttled fetch must not orphan the
	// directory. Skipped entirely when there is no baseline yet.
	if baseline > 0 {
		coverage := float64(result.Candidates) / float64(baseline)
		if coverage < e.cfg.MinStaleBaselineRatio {
			result.StaleCleanupReason = fmt.Sprintf(
				"coverage ratio %.2f below minimum %.2f (%d candidates vs %d baseline rows)",
				coverage, e.cfg.MinStaleBaselineRatio, result.Candidates, baseline)
			logger.Warnf("Stale processing skipped: %s", result.StaleCleanupReason)
			return
		}
	}

	// Stale set: baseline rows absent from the current candidate set,
	// processed in deterministic lexicographic order.
	var stale []catalog.ServerRecord
	for _, rec := range baselineRows {
		if !candidateSlugs[rec.Slug] {
			stale = append(stale, rec)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Slug < stale[j].Slug })

	// Cap per-run lifecycle churn, deferring the remainder to future runs.
	markCap := int(math.Floor(float64(baseline) * e.cfg.MaxStaleMarkRatio))
	if markCap < 1 {
		markCap = 1
	}
	if len(stale) > markCap {
		result.StaleCapped = len(stale) - markCap
		stale = stale[:markCap]
	}

	result.StaleCleanupApplied = true
	if len(stale) == 0 {
		return
	}

	for start := 0; start < len(stale); start += staleChunkSize {
		end := start + staleChunkSize
		if end > len(stale) {
			end = len(stale)
		}
		e.transitionChunk(ctx, stale[start:end], result)
	}

	logger.Infof("Stale processing: marked=%d rejected=%d capped=%d (baseline=%d)",
		result.StaleMarked, result.StaleRejected, result.StaleCapped, baseline)
}

// stalePreconditionFailure returns a human-readable reason when stale
// processing must be skipped outright, or an empty string.
func (e *Engine) stalePreconditionFailure(result *Result) string {
	if !e.cfg.CleanupStale {
		return "stale cleanup disabled"
	}
	if !result.ReachedEnd {
		return "pagination did not reach the end of upstream sources"
	}
	if len(result.Failures) > 0 {
		return fmt.Sprintf("run recorded %d failures", len(result.Failures))
	}
	if e.cfg.MaxStaleMarkRatio <= 0 {
		return "stale mark ratio is zero"
	}
	return ""
}

// transitionChunk applies one lifecycle step to each row in the chunk with
// bounded parallel fan-out: grace first, rejection on the following run.
func (e *Engine) transitionChunk(ctx context.Context, chunk []catalog.ServerRecord, result *Result) {
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	for i := range chunk {
		rec := chunk[i]
		group.Go(func() error {
			var err error
			rejected := rec.Lifecycle == catalog.LifecycleStaleCandidate
			if rejected {
				// Grace period served: reject.
				err = e.store.SetLifecycle(groupCtx, rec.Slug, catalog.LifecycleRejected, catalog.StatusRejected)
			} else {
				// First missing run: mark, status unchanged.
				err = e.store.SetLifecycle(groupCtx, rec.Slug, catalog.LifecycleStaleCandidate, rec.Status)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, catalog.SyncFailure{
					Slug:   rec.Slug,
					Reason: sanitizeReason(fmt.Sprintf("stale transition failed: %v", err)),
				})
				return nil
			}
			if rejected {
				result.StaleRejected++
			} else {
				result.StaleMarked++
			}
			return nil
		})
	}
	_ = group.Wait()
}
