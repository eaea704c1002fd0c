package sync

import (
	"context"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

// acquireLock takes the per-scope TTL lock. When the backing store is
// unavailable the engine fails open and flags the run degraded:
// unavailability of bookkeeping never blocks the ingestion job itself.
func (e *Engine) acquireLock(ctx context.Context) (acquired, degraded bool) {
	if e.locks == nil {
		return true, false
	}

	ok, err := e.locks.TryAcquire(ctx, e.scope, e.holderID, e.lockTTL)
	if err != nil {
		logger.Warnf("Lock store unavailable, proceeding without lock (degraded): %v", err)
		return true, true
	}
	return ok, false
}

func (e *Engine) releaseLock(ctx context.Context) {
	if e.locks == nil {
		return
	}
	if err := e.locks.Release(ctx, e.scope, e.holderID); err != nil {
		logger.Warnf("Failed to release sync lock: %v", err)
	}
}

// startRun inserts the running ledger row. Best-effort: returns uuid.Nil
// when the ledger is unavailable.
func (e *Engine) startRun(ctx context.Context, triggeredBy string) uuid.UUID {
	if e.ledger == nil {
		return uuid.Nil
	}
	id, err := e.ledger.StartRun(ctx, triggeredBy)
	if err != nil {
		logger.Warnf("Failed to start run ledger row: %v", err)
		return uuid.Nil
	}
	return id
}

// finishRun updates the ledger row and records the bounded, sanitized
// failure list. Ledger failures are logged, never propagated.
func (e *Engine) finishRun(ctx context.Context, result *Result, status catalog.RunStatus, summary string) {
	if e.ledger == nil || result.RunID == uuid.Nil {
		return
	}

	run := &catalog.SyncRun{
		ID:           result.RunID,
		TriggeredBy:  result.TriggeredBy,
		Status:       status,
		Fetched:      result.Fetched,
		Upserted:     result.Created + result.Updated,
		Failed:       len(result.Failures),
		StaleMarked:  result.StaleMarked + result.StaleRejected,
		DurationMs:   result.DurationMs,
		ErrorSummary: summary,
	}
	if err := e.ledger.FinishRun(ctx, run); err != nil {
		logger.Warnf("Failed to finish run ledger row: %v", err)
	}

	if len(result.Failures) == 0 {
		return
	}
	failures := result.Failures
	if len(failures) > maxRecordedFails {
		failures = failures[:maxRecordedFails]
	}
	if err := e.ledger.RecordFailures(ctx, result.RunID, failures); err != nil {
		logger.Warnf("Failed to record run failures: %v", err)
	}
}

var (
	credentialParamRe = regexp.MustCompile(`(?i)(token|key|secret|password|authorization)=[^&\s"]+`)
	bearerRe          = regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/-]+=*`)
)

// sanitizeReason strips credentials from a failure reason and truncates it to
// the ledger bound, backing up to a rune boundary so the stored text stays
// valid UTF-8.
func sanitizeReason(reason string) string {
	reason = credentialParamRe.ReplaceAllString(reason, "$1=REDACTED")
	reason = bearerRe.ReplaceAllString(reason, "Bearer REDACTED")
	if len(reason) > maxFailureReason {
		cut := maxFailureReason
		for cut > 0 && !utf8.RuneStart(reason[cut]) {
			cut--
		}
		reason = reason[:cut]
	}
	return reason
}
