// Package store persists connectors and the change queue in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, storeError("open", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, storeError("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, storeError("migrate", err)
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS drive_connectors (
	id TEXT PRIMARY KEY,
	org_id TEXT NOT NULL,
	folder_id TEXT NOT NULL,
	shared_drive_id TEXT,
	service_account TEXT NOT NULL,
	knowledge_source_id TEXT,
	change_token TEXT,
	baseline_state TEXT NOT NULL DEFAULT 'pending' CHECK (baseline_state IN ('pending', 'established', 'missing')),
	last_backfill_at INTEGER,
	last_update_at INTEGER,
	created_at INTEGER NOT NULL,
	UNIQUE (org_id, folder_id)
);

CREATE TABLE IF NOT EXISTS drive_change_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	org_id TEXT NOT NULL,
	connector_id TEXT NOT NULL,
	file_id TEXT NOT NULL CHECK (file_id <> ''),
	file_name TEXT,
	mime_type TEXT,
	change_type TEXT NOT NULL CHECK (change_type IN ('ADD', 'UPDATE', 'DELETE')),
	raw_payload TEXT,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (connector_id) REFERENCES drive_connectors(id)
);

CREATE INDEX IF NOT EXISTS idx_change_queue_connector ON drive_change_queue(connector_id, id);
CREATE INDEX IF NOT EXISTS idx_change_queue_file ON drive_change_queue(file_id);
`

func storeError(op string, err error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeStoreError, op+": "+err.Error()).
		WithContext("operation", op).
		Build(), err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
