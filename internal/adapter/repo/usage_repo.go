// Package repo provides the PostgreSQL-backed implementation of the usage
// record store. Records are stored as JSONB documents so partial merges map
// directly onto the document contract.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contentgen/internal/infra"
	"contentgen/internal/ledger"
	"contentgen/internal/sqlinline"
)

// UsageRepositoryPG implements ledger.Store backed by PostgreSQL.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

// EnsureSchema creates the usage_records table when it does not exist yet.
func (r *UsageRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QCreateUsageRecordsTable); err != nil {
		return fmt.Errorf("ensure usage_records: %w", err)
	}
	return nil
}

// Get fetches the usage document for a principal id.
func (r *UsageRepositoryPG) Get(ctx context.Context, key string) (map[string]any, bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUsageRecord, key)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select usage record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("decode usage record: %w", err)
	}
	return doc, true, nil
}

// Merge upserts the given fields into the principal's document. The JSONB
// concatenation operator keeps untouched fields intact; conflicting fields
// are last-write-wins, matching the store contract.
func (r *UsageRepositoryPG) Merge(ctx context.Context, key string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode usage fields: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QMergeUsageRecord, key, raw); err != nil {
		return fmt.Errorf("merge usage record: %w", err)
	}
	return nil
}

var _ ledger.Store = (*UsageRepositoryPG)(nil)
