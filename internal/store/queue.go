package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

const queueColumns = `id, org_id, connector_id, file_id, file_name, mime_type, change_type, raw_payload, created_at`

// InsertChangeRows appends rows in one transaction. Either every row is
// stored or none is.
func (d *DB) InsertChangeRows(ctx context.Context, rows []*types.ChangeQueueRow) (err error) {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r.FileID == "" {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"queue row requires a file id").Build())
		}
		if !r.ChangeType.Valid() {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"invalid change type: "+string(r.ChangeType)).
				WithContext("fileId", r.FileID).
				Build())
		}
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("insert change rows", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drive_change_queue (org_id, connector_id, file_id, file_name, mime_type, change_type, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return storeError("insert change rows", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = storeError("insert change rows", closeErr)
		}
	}()

	now := time.Now().UnixMilli()
	for _, r := range rows {
		var payload sql.NullString
		if len(r.RawPayload) > 0 {
			payload = sql.NullString{String: string(r.RawPayload), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.OrgID, r.ConnectorID, r.FileID, nullStringPtr(r.FileName), nullStringPtr(r.MimeType),
			string(r.ChangeType), payload, now); err != nil {
			_ = tx.Rollback()
			return storeError("insert change rows", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("insert change rows", err)
	}
	return nil
}

// ListChangeRows pages through a connector's queue in insertion order,
// returning rows with id > afterID.
func (d *DB) ListChangeRows(ctx context.Context, connectorID string, afterID int64, limit int) (out []*types.ChangeQueueRow, err error) {
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+queueColumns+` FROM drive_change_queue
		WHERE connector_id = ? AND id > ?
		ORDER BY id LIMIT ?
	`, connectorID, afterID, limit)
	if err != nil {
		return nil, storeError("list change rows", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = storeError("list change rows", closeErr)
		}
	}()

	for rows.Next() {
		row, err := scanChangeRow(rows)
		if err != nil {
			return nil, storeError("list change rows", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list change rows", err)
	}
	return out, nil
}

func (d *DB) GetChangeRow(ctx context.Context, id int64) (*types.ChangeQueueRow, error) {
	row, err := scanChangeRow(d.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM drive_change_queue WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
			"queue row not found").
			WithContext("rowId", id).
			Build(), err)
	}
	if err != nil {
		return nil, storeError("get change row", err)
	}
	return row, nil
}

func (d *DB) CountChangeRows(ctx context.Context, connectorID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drive_change_queue WHERE connector_id = ?`, connectorID).Scan(&n)
	if err != nil {
		return 0, storeError("count change rows", err)
	}
	return n, nil
}

func scanChangeRow(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.ChangeQueueRow, error) {
	var r types.ChangeQueueRow
	var name, mimeType, payload sql.NullString
	var changeType string
	var created int64

	if err := scanner.Scan(&r.ID, &r.OrgID, &r.ConnectorID, &r.FileID, &name, &mimeType, &changeType, &payload, &created); err != nil {
		return nil, err
	}
	if name.Valid {
		n := name.String
		r.FileName = &n
	}
	if mimeType.Valid {
		m := mimeType.String
		r.MimeType = &m
	}
	if payload.Valid {
		r.RawPayload = []byte(payload.String)
	}
	r.ChangeType = types.ChangeType(changeType)
	r.CreatedAt = time.UnixMilli(created).UTC()
	return &r, nil
}
