package sync

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

// executeUpserts writes the queued candidates in fixed-size batches. A batch
// failure falls back to row-by-row writes over the same chunk so a single
// malformed row cannot block the rest; each row failure is recorded
// independently and never aborts the run.
func (e *Engine) executeUpserts(
	ctx context.Context,
	plan *reconcilePlan,
	existingBySlug map[string]catalog.ServerRecord,
	result *Result,
) {
	queue := make([]*catalog.Candidate, 0, len(plan.creates)+len(plan.updates))
	queue = append(queue, plan.creates...)
	queue = append(queue, plan.updates...)

	changed := make(map[string]bool)

	for start := 0; start < len(queue); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(queue) {
			end = len(queue)
		}
		e.writeChunk(ctx, queue[start:end], existingBySlug, result, changed)
	}

	result.ChangedSlugs = make([]string, 0, len(changed))
	for slug := range changed {
		result.ChangedSlugs = append(result.ChangedSlugs, slug)
	}
}

func (e *Engine) writeChunk(
	ctx context.Context,
	chunk []*catalog.Candidate,
	existingBySlug map[string]catalog.ServerRecord,
	result *Result,
	changed map[string]bool,
) {
	records := make([]catalog.ServerRecord, 0, len(chunk))
	for _, c := range chunk {
		record := catalog.RecordFromCandidate(c)

		// Content-hash short-circuit: an unchanged, fully active row is not
		// rewritten. A row in any lifecycle state other than active must
		// still be written so reappearance restores it.
		if existing, ok := existingBySlug[record.Slug]; ok &&
			existing.ContentHash == record.ContentHash &&
			existing.Lifecycle == catalog.LifecycleActive &&
			existing.Status == catalog.StatusActive {
			result.Unchanged++
			continue
		}

		records = append(records, record)
	}
	if len(records) == 0 {
		return
	}

	err := e.store.UpsertBatch(ctx, records)
	if err == nil {
		for i := range records {
			e.classifyWrite(&records[i], existingBySlug, result, changed)
		}
		return
	}
	logger.Warnf("Batch upsert of %d rows failed, retrying row-by-row: %v", len(records), err)

	// Row-by-row fallback, bounded parallel fan-out over this chunk only.
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	for i := range records {
		record := records[i]
		group.Go(func() error {
			if err := e.store.UpsertOne(groupCtx, record); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, catalog.SyncFailure{
					Slug:   record.Slug,
					Reason: sanitizeReason(fmt.Sprintf("upsert failed: %v", err)),
				})
				mu.Unlock()
				// Row failures are isolated; never cancel the siblings.
				return nil
			}
			mu.Lock()
			e.classifyWrite(&record, existingBySlug, result, changed)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
}

// classifyWrite counts a successful write as created or updated based on
// presence in the pre-fetched existing-row map and accumulates the slug for
// downstream cache invalidation.
func (*Engine) classifyWrite(
	record *catalog.ServerRecord,
	existingBySlug map[string]catalog.ServerRecord,
	result *Result,
	changed map[string]bool,
) {
	if _, ok := existingBySlug[record.Slug]; ok {
		result.Updated++
	} else {
		result.Created++
	}
	changed[record.Slug] = true
}
