/*
 * Copyright (c) 2025 the Image Studio authors.
 * Licensed under the Apache License, Version 2.0.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// GetThumb returns a cached thumbnail for the asset/version at the given
// dimensions, or nil when absent. A hit refreshes the LRU timestamp.
func GetThumb(ctx context.Context, libraryRoot, assetID string, versionNum, w, h int) ([]byte, error) {
	db, err := InitOrOpenIndex(libraryRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var blob []byte
	err = db.QueryRowContext(ctx,
		`SELECT blob FROM thumbs WHERE asset_id=? AND version_num=? AND w=? AND h=?`,
		assetID, versionNum, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = db.ExecContext(ctx,
		`UPDATE thumbs SET last_access=? WHERE asset_id=? AND version_num=? AND w=? AND h=?`,
		now, assetID, versionNum, w, h)
	return blob, nil
}

// PutThumb upserts a thumbnail blob and enforces the cache size cap via
// LRU eviction.
func PutThumb(ctx context.Context, libraryRoot, assetID string, versionNum, w, h int, blob []byte) error {
	db, err := InitOrOpenIndex(libraryRoot)
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.ExecContext(ctx, `INSERT INTO thumbs(asset_id,version_num,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(asset_id,version_num,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		assetID, versionNum, w, h, blob, len(blob), now, now); err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}

	capBytes := MaxThumbBytesFromEnv()
	if capBytes > 0 {
		if err := EvictThumbsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreateThumb fetches a thumbnail or generates and stores it using
// the provided generator.
func GetOrCreateThumb(ctx context.Context, libraryRoot, assetID string, versionNum, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetThumb(ctx, libraryRoot, assetID, versionNum, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutThumb(ctx, libraryRoot, assetID, versionNum, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// DropThumbs removes all cached thumbnails for an asset.
func DropThumbs(libraryRoot, assetID string) error {
	db, err := InitOrOpenIndex(libraryRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(`DELETE FROM thumbs WHERE asset_id=?`, assetID)
	return err
}

// DropVersionThumb removes cached thumbnails for one version.
func DropVersionThumb(libraryRoot, assetID string, versionNum int) error {
	db, err := InitOrOpenIndex(libraryRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(`DELETE FROM thumbs WHERE asset_id=? AND version_num=?`, assetID, versionNum)
	return err
}

// EvictThumbsToFit deletes least-recently-used rows until total size is
// within capBytes.
func EvictThumbsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before attempting to write.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (`
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		if i > 0 {
			q += ","
		}
		q += "?"
		args[i] = v
	}
	q += ")"
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalThumbBytes returns total bytes tracked by thumbs.size.
func TotalThumbBytes(ctx context.Context, libraryRoot string) (int64, error) {
	db, err := InitOrOpenIndex(libraryRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxThumbBytesFromEnv reads STUDIO_THUMBS_MAX_BYTES, defaulting to 128MB
// if unset.
func MaxThumbBytesFromEnv() int64 {
	v := os.Getenv("STUDIO_THUMBS_MAX_BYTES")
	if v == "" {
		return 128 * 1024 * 1024
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 128 * 1024 * 1024
	}
	return n
}
