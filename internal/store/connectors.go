package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

const connectorColumns = `id, org_id, folder_id, shared_drive_id, service_account, knowledge_source_id,
	change_token, baseline_state, last_backfill_at, last_update_at, created_at`

func connectorNotFound(msg string, err error) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConnectorNotFound, msg).Build(), err)
}

func (d *DB) InsertConnector(ctx context.Context, c *types.DriveConnector) error {
	baseline := c.Baseline
	if baseline == "" {
		baseline = types.BaselinePending
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO drive_connectors (`+connectorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.OrgID, c.FolderID, nullString(c.SharedDriveID), c.ServiceAccount, nullString(c.KnowledgeSourceID),
		nullStringPtr(c.ChangeToken), string(baseline), timeToInt(c.LastBackfillAt), timeToInt(c.LastUpdateAt), c.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeConnectorExists,
				"connector already exists for this organization and folder").
				WithContext("orgId", c.OrgID).
				WithContext("folderId", c.FolderID).
				Build(), err)
		}
		return storeError("insert connector", err)
	}
	return nil
}

func (d *DB) GetConnector(ctx context.Context, id string) (*types.DriveConnector, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+connectorColumns+` FROM drive_connectors WHERE id = ?`, id)
	c, err := scanConnector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connectorNotFound("connector not found: "+id, err)
	}
	if err != nil {
		return nil, storeError("get connector", err)
	}
	return c, nil
}

func (d *DB) FindConnector(ctx context.Context, orgID, folderID string) (*types.DriveConnector, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+connectorColumns+` FROM drive_connectors WHERE org_id = ? AND folder_id = ?`, orgID, folderID)
	c, err := scanConnector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connectorNotFound("no connector for folder "+folderID, err)
	}
	if err != nil {
		return nil, storeError("find connector", err)
	}
	return c, nil
}

// ListConnectors returns connectors ordered by creation; an empty orgID lists all
func (d *DB) ListConnectors(ctx context.Context, orgID string) (connectors []*types.DriveConnector, err error) {
	query := `SELECT ` + connectorColumns + ` FROM drive_connectors`
	var args []interface{}
	if orgID != "" {
		query += ` WHERE org_id = ?`
		args = append(args, orgID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list connectors", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = storeError("list connectors", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanConnector(rows)
		if err != nil {
			return nil, storeError("list connectors", err)
		}
		connectors = append(connectors, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list connectors", err)
	}
	return connectors, nil
}

// UpdateConnectorSync applies the non-empty fields of update. A change token
// can be replaced but never cleared.
func (d *DB) UpdateConnectorSync(ctx context.Context, id string, update types.SyncUpdate) error {
	var sets []string
	var args []interface{}

	if update.ChangeToken != nil {
		if *update.ChangeToken == "" {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"change token cannot be cleared").
				WithContext("connectorId", id).
				Build())
		}
		sets = append(sets, "change_token = ?")
		args = append(args, *update.ChangeToken)
	}
	if update.Baseline != "" {
		sets = append(sets, "baseline_state = ?")
		args = append(args, string(update.Baseline))
	}
	if update.LastBackfillAt != nil {
		sets = append(sets, "last_backfill_at = ?")
		args = append(args, update.LastBackfillAt.UnixMilli())
	}
	if update.LastUpdateAt != nil {
		sets = append(sets, "last_update_at = ?")
		args = append(args, update.LastUpdateAt.UnixMilli())
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	result, err := d.db.ExecContext(ctx, `UPDATE drive_connectors SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return storeError("update connector", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return storeError("update connector", err)
	}
	if n == 0 {
		return connectorNotFound("connector not found: "+id, sql.ErrNoRows)
	}
	return nil
}

func scanConnector(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.DriveConnector, error) {
	var c types.DriveConnector
	var sharedDrive, knowledgeSource, token sql.NullString
	var baseline string
	var lastBackfill, lastUpdate sql.NullInt64
	var created int64

	err := scanner.Scan(&c.ID, &c.OrgID, &c.FolderID, &sharedDrive, &c.ServiceAccount, &knowledgeSource,
		&token, &baseline, &lastBackfill, &lastUpdate, &created)
	if err != nil {
		return nil, err
	}

	c.SharedDriveID = sharedDrive.String
	c.KnowledgeSourceID = knowledgeSource.String
	if token.Valid {
		t := token.String
		c.ChangeToken = &t
	}
	c.Baseline = types.BaselineState(baseline)
	c.LastBackfillAt = intToTime(lastBackfill)
	c.LastUpdateAt = intToTime(lastUpdate)
	c.CreatedAt = time.UnixMilli(created).UTC()
	return &c, nil
}

func timeToInt(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func intToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
