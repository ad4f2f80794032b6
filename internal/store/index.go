/*
 * Copyright (c) 2025 the Image Studio authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	applog "imagestudio/internal/log"
	"imagestudio/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-library ephemeral/index data under the
	// library root.
	IndexDirName  = ".studio"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded
	// index. Bump this when you perform breaking schema changes and add
	// migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the library's embedded index
// database file.
func IndexPath(libraryRoot string) string {
	return filepath.Join(libraryRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-library SQLite index exists at
// .studio/index.sqlite, opens the database, enables WAL mode, and ensures
// the meta/version tables exist. The returned *sql.DB is ready for use.
// Callers may close it when no longer needed.
func InitOrOpenIndex(libraryRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "index_init").With(
		slog.String("root", libraryRoot),
	)
	if strings.TrimSpace(libraryRoot) == "" {
		return nil, errors.New("library root is required")
	}
	if err := os.MkdirAll(filepath.Join(libraryRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .studio dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .studio dir: %w", err)
	}

	path := IndexPath(libraryRoot)
	// URI with shared cache and busy timeout; forward slashes for the
	// SQLite URI on all platforms.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for
		// migrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the thumbnail cache and version lookup tables
// if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Version catalog mirror for fast lookups without re-reading the
		// manifest. The manifest stays authoritative.
		`CREATE TABLE IF NOT EXISTS versions (
			asset_id    TEXT    NOT NULL,
			version_num INTEGER NOT NULL,
			path        TEXT    NOT NULL,
			created_at  TEXT    NOT NULL,
			PRIMARY KEY(asset_id, version_num)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_versions_asset ON versions(asset_id);`,

		// Thumbnail cache with LRU tracking.
		`CREATE TABLE IF NOT EXISTS thumbs (
			id          INTEGER PRIMARY KEY,
			asset_id    TEXT    NOT NULL,
			version_num INTEGER NOT NULL,
			w           INTEGER NOT NULL DEFAULT 0,
			h           INTEGER NOT NULL DEFAULT 0,
			blob        BLOB,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_key ON thumbs(asset_id, version_num, w, h);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; nothing to do.
		}
		cur = next
	}
	return nil
}

// SyncVersionIndex rewrites the versions mirror table from the manifest.
// Called after manifest changes; failures are non-fatal for editing since
// the manifest stays authoritative.
func SyncVersionIndex(ctx context.Context, lh *LibraryHandle) error {
	db, err := InitOrOpenIndex(lh.Root)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM versions`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear versions: %w", err)
	}
	for _, a := range lh.Library.Assets {
		for _, v := range a.Versions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO versions(asset_id, version_num, path, created_at) VALUES(?,?,?,?)`,
				a.ID, v.Num, v.URL, v.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert version row: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}
