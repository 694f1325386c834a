package ingest

import (
	"context"
	"encoding/json"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/google/uuid"
)

// QueueBackfillJobs enumerates the connector's folder and queues one ADD row
// per file, a page at a time, then captures the change token for incremental
// sync. It returns the number of rows queued.
//
// A failed page write aborts the run. A failed token fetch does not: the
// run is recorded with baseline "missing" and no token.
func (s *Service) QueueBackfillJobs(ctx context.Context, orgID, connectorID string) (int, error) {
	conn, err := s.loadConnector(ctx, orgID, connectorID)
	if err != nil {
		return 0, err
	}

	runID := uuid.New().String()
	logger := s.logger.WithTraceID(runID)
	logger.Info("Backfill starting",
		logging.F("orgId", orgID),
		logging.F("connectorId", conn.ID),
		logging.F("folderId", conn.FolderID),
		logging.F("sharedDriveId", conn.SharedDriveID),
	)

	source := s.drives(conn)
	total := 0
	pages := 0
	pageToken := ""

	for {
		if err := checkContext(ctx); err != nil {
			logger.Error("Backfill cancelled", logging.F("queued", total), logging.F("pages", pages))
			return total, err
		}
		if s.opts.MaxPages > 0 && pages >= s.opts.MaxPages {
			logger.Error("Backfill page limit reached",
				logging.F("maxPages", s.opts.MaxPages),
				logging.F("queued", total),
			)
			return total, pageLimitError("backfill", s.opts.MaxPages, total)
		}

		token := pageToken
		page, err := api.Retry(ctx, s.opts.Retry, logger, func() (*types.FileListResult, error) {
			return source.ListFolder(ctx, token, s.opts.PageSize)
		})
		if err != nil {
			logger.Error("Backfill folder listing failed",
				logging.F("page", pages+1),
				logging.F("queued", total),
				logging.F("error", err.Error()),
			)
			return total, err
		}
		pages++

		rows := make([]*types.ChangeQueueRow, 0, len(page.Files))
		for _, file := range page.Files {
			row, err := backfillRow(orgID, conn.ID, file)
			if err != nil {
				logger.Warn("Skipping unqueueable file", logging.F("error", err.Error()))
				continue
			}
			rows = append(rows, row)
		}

		if len(rows) > 0 {
			if err := s.queue.InsertChangeRows(ctx, rows); err != nil {
				logger.Error("Backfill queue write failed",
					logging.F("page", pages),
					logging.F("rows", len(rows)),
					logging.F("error", err.Error()),
				)
				return total, queueWriteError(err, conn.ID, len(rows))
			}
			total += len(rows)
		}

		logger.Debug("Backfill page queued",
			logging.F("page", pages),
			logging.F("rows", len(rows)),
			logging.F("total", total),
		)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	now := s.now()
	update := types.SyncUpdate{LastBackfillAt: &now}

	startToken, err := api.Retry(ctx, s.opts.Retry, logger, func() (string, error) {
		return source.GetStartPageToken(ctx)
	})
	if err != nil {
		logger.Warn("Backfill finished without a change token; incremental sync needs a new backfill",
			logging.F("connectorId", conn.ID),
			logging.F("error", err.Error()),
		)
		update.Baseline = types.BaselineMissing
	} else {
		update.ChangeToken = &startToken
		update.Baseline = types.BaselineEstablished
	}

	if err := s.connectors.UpdateConnectorSync(ctx, conn.ID, update); err != nil {
		logger.Error("Failed to record backfill", logging.F("error", err.Error()))
		return total, err
	}

	logger.Info("Backfill completed",
		logging.F("connectorId", conn.ID),
		logging.F("pages", pages),
		logging.F("queued", total),
		logging.F("baseline", string(update.Baseline)),
	)
	return total, nil
}

func backfillRow(orgID, connectorID string, file *types.DriveFileSummary) (*types.ChangeQueueRow, error) {
	if file == nil || file.ID == "" {
		return nil, errMissingFileID
	}
	payload, err := json.Marshal(types.RawPayload{File: file})
	if err != nil {
		return nil, err
	}
	return &types.ChangeQueueRow{
		OrgID:       orgID,
		ConnectorID: connectorID,
		FileID:      file.ID,
		FileName:    types.StringPtr(file.Name),
		MimeType:    types.StringPtr(file.MimeType),
		ChangeType:  types.ChangeTypeAdd,
		RawPayload:  payload,
	}, nil
}
