package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
)

const serverColumns = `slug, name, description, server_url, repo_url, category, auth_type,
	tags, maintainer, status, verification_level, source, tools,
	ownership, lifecycle, content_hash,
	health_status, health_checked_at, health_error, created_at, updated_at`

// upsertServerSQL rewrites the full sync-owned row on conflict. Health fields
// and created_at are deliberately absent from the update list: they belong to
// the external prober and to row creation respectively.
const upsertServerSQL = `
INSERT INTO servers (
	slug, name, description, server_url, repo_url, category, auth_type,
	tags, maintainer, status, verification_level, source, tools,
	ownership, lifecycle, content_hash, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())
ON CONFLICT (slug) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	server_url = EXCLUDED.server_url,
	repo_url = EXCLUDED.repo_url,
	category = EXCLUDED.category,
	auth_type = EXCLUDED.auth_type,
	tags = EXCLUDED.tags,
	maintainer = EXCLUDED.maintainer,
	status = EXCLUDED.status,
	verification_level = EXCLUDED.verification_level,
	source = EXCLUDED.source,
	tools = EXCLUDED.tools,
	ownership = EXCLUDED.ownership,
	lifecycle = EXCLUDED.lifecycle,
	content_hash = EXCLUDED.content_hash,
	updated_at = now()`

// ListSyncRecords returns every directory row with the fields the sync engine
// reconciles against.
func (s *Store) ListSyncRecords(ctx context.Context) ([]catalog.ServerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []catalog.ServerRecord
	for rows.Next() {
		record, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate servers: %w", err)
	}

	return records, nil
}

// UpsertBatch writes a batch of rows in one transaction. Any row error rolls
// the whole batch back; the caller is expected to retry row-by-row.
func (s *Store) UpsertBatch(ctx context.Context, records []catalog.ServerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertServerSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range records {
		args, err := upsertArgs(&records[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", records[i].Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return nil
}

// UpsertOne writes a single row, used as the per-row fallback after a batch
// failure.
func (s *Store) UpsertOne(ctx context.Context, record catalog.ServerRecord) error {
	args, err := upsertArgs(&record)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertServerSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", record.Slug, err)
	}
	return nil
}

// SetLifecycle moves one auto-managed row through the stale state machine.
func (s *Store) SetLifecycle(
	ctx context.Context, slug string, lifecycle catalog.Lifecycle, status catalog.Status,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE servers SET lifecycle = $2, status = $3, updated_at = now()
		WHERE slug = $1 AND ownership = $4`,
		slug, string(lifecycle), string(status), string(catalog.OwnershipAuto))
	if err != nil {
		return fmt.Errorf("failed to set lifecycle for %s: %w", slug, err)
	}
	return nil
}

func upsertArgs(r *catalog.ServerRecord) ([]any, error) {
	tags, err := json.Marshal(emptyIfNil(r.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags for %s: %w", r.Slug, err)
	}
	tools, err := json.Marshal(emptyIfNil(r.Tools))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tools for %s: %w", r.Slug, err)
	}

	return []any{
		r.Slug, r.Name, r.Description, r.ServerURL, r.RepoURL, r.Category, string(r.AuthType),
		tags, r.Maintainer, string(r.Status), string(r.VerificationLevel), r.Source, tools,
		string(r.Ownership), string(r.Lifecycle), r.ContentHash,
	}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (catalog.ServerRecord, error) {
	var (
		r            catalog.ServerRecord
		tags, tools  []byte
		healthStatus sql.NullString
		healthError  sql.NullString
		checkedAt    sql.NullTime
	)

	err := row.Scan(
		&r.Slug, &r.Name, &r.Description, &r.ServerURL, &r.RepoURL, &r.Category, &r.AuthType,
		&tags, &r.Maintainer, &r.Status, &r.VerificationLevel, &r.Source, &tools,
		&r.Ownership, &r.Lifecycle, &r.ContentHash,
		&healthStatus, &checkedAt, &healthError, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan server row: %w", err)
	}

	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return r, fmt.Errorf("failed to unmarshal tags for %s: %w", r.Slug, err)
	}
	if err := json.Unmarshal(tools, &r.Tools); err != nil {
		return r, fmt.Errorf("failed to unmarshal tools for %s: %w", r.Slug, err)
	}

	r.HealthStatus = healthStatus.String
	r.HealthError = healthError.String
	if checkedAt.Valid {
		t := checkedAt.Time
		r.HealthCheckedAt = &t
	}

	return r, nil
}
