package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/google/uuid"
)

var errMissingFileID = errors.New("file id is empty")

// SyncPage is the outcome of one change-listing call. NewStartToken is only
// set on the final page.
type SyncPage struct {
	Queued        int    `json:"queued"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	NewStartToken string `json:"newStartToken,omitempty"`
}

// SyncResult summarizes a SyncToCurrent run
type SyncResult struct {
	Pages         int    `json:"pages"`
	Queued        int    `json:"queued"`
	NewStartToken string `json:"newStartToken"`
}

// ListChanges fetches one page of changes since pageToken and queues one
// UPDATE or DELETE row per change. It does not persist any token; the
// caller follows NextPageToken and stores NewStartToken.
func (s *Service) ListChanges(ctx context.Context, orgID, connectorID, pageToken string) (*SyncPage, error) {
	if pageToken == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"page token is required for incremental sync").Build())
	}
	conn, err := s.loadConnector(ctx, orgID, connectorID)
	if err != nil {
		return nil, err
	}
	return s.listChanges(ctx, s.logger, conn, s.drives(conn), pageToken)
}

func (s *Service) listChanges(ctx context.Context, logger logging.Logger, conn *types.DriveConnector, source DriveSource, pageToken string) (*SyncPage, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	list, err := api.Retry(ctx, s.opts.Retry, logger, func() (*types.ChangeList, error) {
		return source.ListChanges(ctx, pageToken, s.opts.PageSize)
	})
	if err != nil {
		logger.Error("Change listing failed",
			logging.F("connectorId", conn.ID),
			logging.F("error", err.Error()),
		)
		return nil, err
	}

	page := &SyncPage{
		NextPageToken: list.NextPageToken,
		NewStartToken: list.NewStartPageToken,
	}
	if len(list.Changes) == 0 {
		return page, nil
	}

	rows := make([]*types.ChangeQueueRow, 0, len(list.Changes))
	for _, change := range list.Changes {
		row, err := changeRow(conn.OrgID, conn.ID, change)
		if err != nil {
			logger.Warn("Skipping change without a file id",
				logging.F("changeType", change.ChangeType),
				logging.F("error", err.Error()),
			)
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return page, nil
	}
	if err := s.queue.InsertChangeRows(ctx, rows); err != nil {
		logger.Error("Change queue write failed",
			logging.F("connectorId", conn.ID),
			logging.F("rows", len(rows)),
			logging.F("error", err.Error()),
		)
		return nil, queueWriteError(err, conn.ID, len(rows))
	}

	page.Queued = len(rows)
	return page, nil
}

// SyncToCurrent follows the change feed from the connector's stored token
// to the end and then persists the new start token. The token is left
// untouched if any page fails.
func (s *Service) SyncToCurrent(ctx context.Context, orgID, connectorID string) (*SyncResult, error) {
	conn, err := s.loadConnector(ctx, orgID, connectorID)
	if err != nil {
		return nil, err
	}
	if !conn.SyncReady() {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeBaselineMissing,
			"connector has no established change token; run a backfill first").
			WithContext("connectorId", conn.ID).
			WithContext("baseline", string(conn.Baseline)).
			Build())
	}

	logger := s.logger.WithTraceID(uuid.New().String())
	logger.Info("Incremental sync starting",
		logging.F("orgId", orgID),
		logging.F("connectorId", conn.ID),
	)

	source := s.drives(conn)
	result := &SyncResult{}
	token := *conn.ChangeToken

	for {
		if s.opts.MaxPages > 0 && result.Pages >= s.opts.MaxPages {
			logger.Error("Incremental sync page limit reached",
				logging.F("maxPages", s.opts.MaxPages),
				logging.F("queued", result.Queued),
			)
			return result, pageLimitError("sync", s.opts.MaxPages, result.Queued)
		}

		page, err := s.listChanges(ctx, logger, conn, source, token)
		if err != nil {
			return result, err
		}
		result.Pages++
		result.Queued += page.Queued

		if page.NextPageToken != "" {
			token = page.NextPageToken
			continue
		}
		result.NewStartToken = page.NewStartToken
		break
	}

	if result.NewStartToken == "" {
		logger.Error("Change feed ended without a new start token", logging.F("connectorId", conn.ID))
		return result, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidResponse,
			"final change page carried no new start token").
			WithContext("connectorId", conn.ID).
			Build())
	}

	now := s.now()
	if err := s.connectors.UpdateConnectorSync(ctx, conn.ID, types.SyncUpdate{
		ChangeToken:  &result.NewStartToken,
		Baseline:     types.BaselineEstablished,
		LastUpdateAt: &now,
	}); err != nil {
		logger.Error("Failed to persist change token", logging.F("error", err.Error()))
		return result, err
	}

	logger.Info("Incremental sync completed",
		logging.F("connectorId", conn.ID),
		logging.F("pages", result.Pages),
		logging.F("queued", result.Queued),
	)
	return result, nil
}

func changeRow(orgID, connectorID string, change types.Change) (*types.ChangeQueueRow, error) {
	fileID := change.FileID
	if fileID == "" && change.File != nil {
		fileID = change.File.ID
	}
	if fileID == "" {
		return nil, errMissingFileID
	}

	changeType := types.ChangeTypeUpdate
	if change.Removed {
		changeType = types.ChangeTypeDelete
	}

	raw := types.RawPayload{
		File:    change.File,
		Removed: change.Removed,
		DriveID: change.DriveID,
	}
	if !change.Time.IsZero() {
		raw.ChangeTime = change.Time.UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	row := &types.ChangeQueueRow{
		OrgID:       orgID,
		ConnectorID: connectorID,
		FileID:      fileID,
		ChangeType:  changeType,
		RawPayload:  payload,
	}
	if change.File != nil {
		row.FileName = types.StringPtr(change.File.Name)
		row.MimeType = types.StringPtr(change.File.MimeType)
	}
	return row, nil
}
