/*
 * Copyright (c) 2025 the Image Studio authors.
 * Licensed under the Apache License, Version 2.0.
 */
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// OpenParityDB opens a read-only connection to the hosted Postgres for
// parity checks between the local manifest and the server's version
// index. Used by support tooling, never by the editing path.
func OpenParityDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open parity db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping parity db: %w", err)
	}
	return db, nil
}

// FetchVersionIndexPG reads the hosted version rows for an asset straight
// from Postgres, ascending by version number.
func FetchVersionIndexPG(ctx context.Context, db *sql.DB, assetID string) ([]VersionRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT asset_id, version_num, url, created_at
		 FROM asset_versions WHERE asset_id = $1 ORDER BY version_num`, assetID)
	if err != nil {
		return nil, fmt.Errorf("parity query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []VersionRecord
	for rows.Next() {
		var r VersionRecord
		if err := rows.Scan(&r.AssetID, &r.VersionNum, &r.URL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ParityDiff compares hosted records with the locally known version
// numbers and reports numbers missing on either side.
func ParityDiff(hosted []VersionRecord, local []int) (missingLocal, missingHosted []int) {
	h := make(map[int]bool, len(hosted))
	for _, r := range hosted {
		h[r.VersionNum] = true
	}
	l := make(map[int]bool, len(local))
	for _, n := range local {
		l[n] = true
	}
	for _, r := range hosted {
		if !l[r.VersionNum] {
			missingLocal = append(missingLocal, r.VersionNum)
		}
	}
	for _, n := range local {
		if !h[n] {
			missingHosted = append(missingHosted, n)
		}
	}
	return missingLocal, missingHosted
}
