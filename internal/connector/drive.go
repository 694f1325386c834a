// Package connector binds the shared Drive client to one connector's folder
// scope.
package connector

import (
	"context"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/changes"
	"github.com/dl-alexandre/gdrv-ingest/internal/files"
	"github.com/dl-alexandre/gdrv-ingest/internal/folders"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// Scope identifies the folder (and optional shared drive) a facade reads
type Scope struct {
	OrgID         string
	ConnectorID   string
	FolderID      string
	SharedDriveID string
}

// ScopeFor derives a Scope from a stored connector
func ScopeFor(c *types.DriveConnector) Scope {
	return Scope{
		OrgID:         c.OrgID,
		ConnectorID:   c.ID,
		FolderID:      c.FolderID,
		SharedDriveID: c.SharedDriveID,
	}
}

// Drive is the per-connector view of the Drive API. Many Drive values may
// share one *api.Client.
type Drive struct {
	client  *api.Client
	scope   Scope
	folders *folders.Manager
	changes *changes.Manager
	files   *files.Manager
}

// New creates a facade over client restricted to scope
func New(client *api.Client, scope Scope) *Drive {
	return &Drive{
		client:  client,
		scope:   scope,
		folders: folders.NewManager(client),
		changes: changes.NewManager(client),
		files:   files.NewManager(client),
	}
}

// Scope returns the folder scope this facade is bound to
func (d *Drive) Scope() Scope {
	return d.scope
}

func (d *Drive) requestContext(requestType types.RequestType) *types.RequestContext {
	return api.NewRequestContext(d.scope.OrgID, d.scope.ConnectorID, d.scope.SharedDriveID, requestType)
}

// ListFolder returns one page of the scope folder's live children
func (d *Drive) ListFolder(ctx context.Context, pageToken string, pageSize int) (*types.FileListResult, error) {
	reqCtx := d.requestContext(types.RequestTypeListOrSearch)
	return d.folders.List(ctx, reqCtx, d.scope.FolderID, d.scope.SharedDriveID, pageSize, pageToken)
}

// GetStartPageToken returns the change cursor for the scope's drive
func (d *Drive) GetStartPageToken(ctx context.Context) (string, error) {
	reqCtx := d.requestContext(types.RequestTypeChanges)
	return d.changes.GetStartPageToken(ctx, reqCtx, d.scope.SharedDriveID)
}

// ListChanges returns one page of changes since pageToken, including
// removals. Without a shared drive the listing is restricted to My Drive.
func (d *Drive) ListChanges(ctx context.Context, pageToken string, pageSize int) (*types.ChangeList, error) {
	reqCtx := d.requestContext(types.RequestTypeChanges)
	return d.changes.List(ctx, reqCtx, types.ListOptions{
		PageToken:         pageToken,
		DriveID:           d.scope.SharedDriveID,
		IncludeRemoved:    true,
		RestrictToMyDrive: d.scope.SharedDriveID == "",
		Limit:             pageSize,
	})
}

// DownloadFileBinary fetches raw file bytes
func (d *Drive) DownloadFileBinary(ctx context.Context, fileID, mimeType string) (*types.FileContent, error) {
	reqCtx := d.requestContext(types.RequestTypeDownload)
	return d.files.Download(ctx, reqCtx, fileID, mimeType)
}

// ExportGoogleDoc converts a native document to targetMime
func (d *Drive) ExportGoogleDoc(ctx context.Context, fileID, targetMime string) (*types.FileContent, error) {
	reqCtx := d.requestContext(types.RequestTypeExport)
	return d.files.Export(ctx, reqCtx, fileID, targetMime)
}
