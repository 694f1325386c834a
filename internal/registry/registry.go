// Package registry keeps one connector record per (organization, folder).
package registry

import (
	"context"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/google/uuid"
)

// ConnectorStore finds and creates connector records. FindConnector fails
// with CONNECTOR_NOT_FOUND when no record exists; InsertConnector fails with
// CONNECTOR_EXISTS when (org, folder) is already taken.
type ConnectorStore interface {
	FindConnector(ctx context.Context, orgID, folderID string) (*types.DriveConnector, error)
	InsertConnector(ctx context.Context, c *types.DriveConnector) error
}

// Identity is the configured scope new connectors are seeded with
type Identity struct {
	FolderID       string
	SharedDriveID  string
	ServiceAccount string
}

// Registry creates connector records on first use
type Registry struct {
	store    ConnectorStore
	identity Identity
	logger   logging.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a registry for identity
func New(store ConnectorStore, identity Identity, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Registry{
		store:    store,
		identity: identity,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// EnsureConnectorRecord returns the id of the connector for orgID and the
// configured folder, creating it with no change token if needed. Concurrent
// callers converge on one record through the store's uniqueness constraint.
func (r *Registry) EnsureConnectorRecord(ctx context.Context, orgID, knowledgeSourceID string) (string, error) {
	if orgID == "" {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"organization id is required").Build())
	}
	if r.identity.FolderID == "" {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeConfigInvalid,
			"folder id is not configured").Build())
	}

	existing, err := r.store.FindConnector(ctx, orgID, r.identity.FolderID)
	if err == nil {
		return existing.ID, nil
	}
	if !utils.HasCode(err, utils.ErrCodeConnectorNotFound) {
		return "", err
	}

	conn := &types.DriveConnector{
		ID:                r.newID(),
		OrgID:             orgID,
		FolderID:          r.identity.FolderID,
		SharedDriveID:     r.identity.SharedDriveID,
		ServiceAccount:    r.identity.ServiceAccount,
		KnowledgeSourceID: knowledgeSourceID,
		Baseline:          types.BaselinePending,
		CreatedAt:         r.now().UTC(),
	}

	if err := r.store.InsertConnector(ctx, conn); err != nil {
		if !utils.HasCode(err, utils.ErrCodeConnectorExists) {
			return "", err
		}
		// lost the race; the winner's row is authoritative
		winner, findErr := r.store.FindConnector(ctx, orgID, r.identity.FolderID)
		if findErr != nil {
			return "", findErr
		}
		r.logger.Debug("Connector created concurrently, reusing",
			logging.F("connectorId", winner.ID),
			logging.F("orgId", orgID),
		)
		return winner.ID, nil
	}

	r.logger.Info("Connector registered",
		logging.F("connectorId", conn.ID),
		logging.F("orgId", orgID),
		logging.F("folderId", conn.FolderID),
		logging.F("sharedDriveId", conn.SharedDriveID),
	)
	return conn.ID, nil
}
