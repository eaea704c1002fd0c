package sync

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/sources"
)

func TestStaleLifecycleTwoPhase(t *testing.T) {
	t.Parallel()

	// Four persisted rows, "delta" no longer listed upstream.
	store := newFakeStore(
		candidateRecord(t, "alpha"),
		candidateRecord(t, "beta"),
		candidateRecord(t, "gamma"),
		candidateRecord(t, "delta"),
	)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha", "beta", "gamma")

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)

	// Run 1: delta enters the grace period, directory status untouched.
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)
	assert.True(t, result.StaleCleanupApplied)
	assert.Equal(t, 1, result.StaleMarked)
	assert.Zero(t, result.StaleRejected)

	rec, ok := store.record("delta")
	require.True(t, ok)
	assert.Equal(t, catalog.LifecycleStaleCandidate, rec.Lifecycle)
	assert.Equal(t, catalog.StatusActive, rec.Status, "grace period must not change directory status")

	// Run 2: still missing, grace served: rejected.
	result, err = e.Run(context.Background(), "scheduled")
	require.NoError(t, err)
	assert.Zero(t, result.StaleMarked)
	assert.Equal(t, 1, result.StaleRejected)

	rec, ok = store.record("delta")
	require.True(t, ok)
	assert.Equal(t, catalog.LifecycleRejected, rec.Lifecycle)
	assert.Equal(t, catalog.StatusRejected, rec.Status)

	// Run 3: rejected rows leave the baseline; nothing further happens.
	result, err = e.Run(context.Background(), "scheduled")
	require.NoError(t, err)
	assert.True(t, result.StaleCleanupApplied)
	assert.Zero(t, result.StaleMarked)
	assert.Zero(t, result.StaleRejected)
}

func TestStaleReappearanceRestoresRow(t *testing.T) {
	t.Parallel()

	rec := candidateRecord(t, "delta")
	rec.Lifecycle = catalog.LifecycleStaleCandidate
	store := newFakeStore(
		candidateRecord(t, "alpha"),
		rec,
	)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha", "delta")

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.Zero(t, result.StaleMarked)
	restored, ok := store.record("delta")
	require.True(t, ok)
	assert.Equal(t, catalog.LifecycleActive, restored.Lifecycle)
}

func TestRejectedRowReappearanceRestoresActive(t *testing.T) {
	t.Parallel()

	// A row that served the full grace period and was rejected shows up
	// upstream again with unchanged content: it must be written back to a
	// fully active row, not short-circuited on its hash.
	rec := candidateRecord(t, "delta")
	rec.Lifecycle = catalog.LifecycleRejected
	rec.Status = catalog.StatusRejected
	store := newFakeStore(
		candidateRecord(t, "alpha"),
		rec,
	)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha", "delta")

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.StaleMarked)
	assert.Zero(t, result.StaleRejected)

	restored, ok := store.record("delta")
	require.True(t, ok)
	assert.Equal(t, catalog.LifecycleActive, restored.Lifecycle)
	assert.Equal(t, catalog.StatusActive, restored.Status)
}

func TestStaleCoverageGuard(t *testing.T) {
	t.Parallel()

	// Baseline of 10 rows; upstream only lists 4. Coverage 0.4 < 0.7 means a
	// likely partial fetch: nothing may be marked.
	var rows []catalog.ServerRecord
	var present []string
	for i := 0; i < 10; i++ {
		slug := fmt.Sprintf("row-%02d", i)
		rows = append(rows, candidateRecord(t, slug))
		if i < 4 {
			present = append(present, slug)
		}
	}
	store := newFakeStore(rows...)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, present...)

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.False(t, result.StaleCleanupApplied)
	assert.Contains(t, result.StaleCleanupReason, "coverage ratio")
	assert.Zero(t, result.StaleMarked)
	assert.Empty(t, store.lifecycleCalls)
}

func TestStaleMarkCapIsLexicographic(t *testing.T) {
	t.Parallel()

	// Baseline 20, five rows missing. Cap = floor(20 * 0.15) = 3, so the
	// three lexicographically smallest missing slugs are marked and the rest
	// wait for future runs.
	var rows []catalog.ServerRecord
	var present []string
	for i := 0; i < 15; i++ {
		slug := fmt.Sprintf("keep-%02d", i)
		rows = append(rows, candidateRecord(t, slug))
		present = append(present, slug)
	}
	for _, slug := range []string{"gone-a", "gone-b", "gone-c", "gone-d", "gone-e"} {
		rows = append(rows, candidateRecord(t, slug))
	}
	store := newFakeStore(rows...)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, present...)

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.True(t, result.StaleCleanupApplied)
	assert.Equal(t, 3, result.StaleMarked)
	assert.Equal(t, 2, result.StaleCapped)

	for _, slug := range []string{"gone-a", "gone-b", "gone-c"} {
		rec, ok := store.record(slug)
		require.True(t, ok)
		assert.Equal(t, catalog.LifecycleStaleCandidate, rec.Lifecycle, slug)
	}
	for _, slug := range []string{"gone-d", "gone-e"} {
		rec, ok := store.record(slug)
		require.True(t, ok)
		assert.Equal(t, catalog.LifecycleActive, rec.Lifecycle, slug)
	}
}

func TestStaleMinimumCapIsOne(t *testing.T) {
	t.Parallel()

	// floor(2 * 0.15) = 0, but the cap never drops below one so small
	// directories still converge.
	store := newFakeStore(
		candidateRecord(t, "alpha"),
		candidateRecord(t, "beta"),
	)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha")

	cfg := testConfig()
	cfg.Sync.MinStaleBaselineRatio = 0.5
	e := newTestEngine(t, cfg, []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.Equal(t, 1, result.StaleMarked)
}

func TestStaleSkippedWhenDisabled(t *testing.T) {
	t.Parallel()

	store := newFakeStore(candidateRecord(t, "gone"))
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha")

	cfg := testConfig()
	cfg.Sync.CleanupStale = false
	e := newTestEngine(t, cfg, []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.False(t, result.StaleCleanupApplied)
	assert.Equal(t, "stale cleanup disabled", result.StaleCleanupReason)
	assert.Empty(t, store.lifecycleCalls)
}

func TestStaleSkippedWithoutFullPagination(t *testing.T) {
	t.Parallel()

	store := newFakeStore(candidateRecord(t, "gone"))
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(false, "alpha")

	e := newTestEngine(t, testConfig(), []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.False(t, result.StaleCleanupApplied)
	assert.Contains(t, result.StaleCleanupReason, "pagination")
	assert.Empty(t, store.lifecycleCalls)
}

func TestStaleIgnoresManualRows(t *testing.T) {
	t.Parallel()

	manual := candidateRecord(t, "curated")
	manual.Ownership = catalog.OwnershipManual
	store := newFakeStore(
		candidateRecord(t, "alpha"),
		manual,
	)
	locks := &fakeLocks{}
	ledger := &fakeLedger{}
	adapter := adapterFor(true, "alpha")

	cfg := testConfig()
	cfg.Sync.MinStaleBaselineRatio = 0.5
	e := newTestEngine(t, cfg, []sources.Adapter{adapter}, store, locks, ledger)
	result, err := e.Run(context.Background(), "scheduled")
	require.NoError(t, err)

	assert.Zero(t, result.StaleMarked, "manual rows are outside the stale lifecycle")
	rec, ok := store.record("curated")
	require.True(t, ok)
	assert.Equal(t, catalog.LifecycleActive, rec.Lifecycle)
}
