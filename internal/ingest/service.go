// Package ingest turns Drive folder listings and change feeds into change
// queue rows.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// DriveSource is the part of the Drive API the orchestrators read from
type DriveSource interface {
	ListFolder(ctx context.Context, pageToken string, pageSize int) (*types.FileListResult, error)
	GetStartPageToken(ctx context.Context) (string, error)
	ListChanges(ctx context.Context, pageToken string, pageSize int) (*types.ChangeList, error)
}

// DriveFactory returns the Drive view for a connector's folder scope
type DriveFactory func(c *types.DriveConnector) DriveSource

// ConnectorStore reads and updates connector sync state
type ConnectorStore interface {
	GetConnector(ctx context.Context, id string) (*types.DriveConnector, error)
	UpdateConnectorSync(ctx context.Context, id string, update types.SyncUpdate) error
}

// QueueStore appends change rows. A batch is all-or-nothing.
type QueueStore interface {
	InsertChangeRows(ctx context.Context, rows []*types.ChangeQueueRow) error
}

// Options tunes paging and retries
type Options struct {
	// PageSize for folder and change listings; 0 means utils.DefaultPageSize
	PageSize int
	// MaxPages bounds one backfill or SyncToCurrent run; 0 means unbounded
	MaxPages int
	// Retry applies to Drive reads only, never to queue writes
	Retry api.RetryPolicy
	Now   func() time.Time
}

// Service runs backfills and incremental syncs
type Service struct {
	connectors ConnectorStore
	queue      QueueStore
	drives     DriveFactory
	opts       Options
	logger     logging.Logger
}

// NewService wires the orchestrators to their stores and Drive factory
func NewService(connectors ConnectorStore, queue QueueStore, drives DriveFactory, opts Options, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = utils.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		connectors: connectors,
		queue:      queue,
		drives:     drives,
		opts:       opts,
		logger:     logger,
	}
}

// loadConnector fetches the connector and checks it belongs to orgID
func (s *Service) loadConnector(ctx context.Context, orgID, connectorID string) (*types.DriveConnector, error) {
	conn, err := s.connectors.GetConnector(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if conn.OrgID != orgID {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeConnectorNotFound,
			"connector does not belong to organization").
			WithContext("connectorId", connectorID).
			WithContext("orgId", orgID).
			Build())
	}
	return conn, nil
}

func (s *Service) now() time.Time {
	return s.opts.Now().UTC()
}

// checkContext converts a done context into a CANCELLED or TIMEOUT error
func checkContext(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	code := utils.ErrCodeCancelled
	if errors.Is(err, context.DeadlineExceeded) {
		code = utils.ErrCodeTimeout
	}
	return utils.WrapAppError(utils.NewCLIError(code, err.Error()).Build(), err)
}

func pageLimitError(operation string, maxPages, queued int) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeResourceLimit,
		"page limit reached before listing completed").
		WithContext("operation", operation).
		WithContext("maxPages", maxPages).
		WithContext("queued", queued).
		Build())
}

func queueWriteError(err error, connectorID string, rows int) error {
	return utils.WrapAppError(utils.NewCLIError(utils.ErrCodeQueueWriteFailed,
		"failed to write change queue batch: "+err.Error()).
		WithContext("connectorId", connectorID).
		WithContext("rows", rows).
		Build(), err)
}
