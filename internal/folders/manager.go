package folders

import (
	"context"
	"fmt"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const listFields = "nextPageToken,incompleteSearch,files(" + types.FileSummaryFields + ")"

// Manager handles folder enumeration
type Manager struct {
	client *api.Client
}

// NewManager creates a new folder manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// List returns one page of the non-trashed direct children of folderID.
// A non-empty driveID scopes the listing to that shared drive.
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, folderID, driveID string, pageSize int, pageToken string) (*types.FileListResult, error) {
	if folderID == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"folder id is required for listing").Build())
	}
	api.WithParentIDs(reqCtx, folderID)

	call := m.client.Service().Files.List().
		Q(ChildrenQuery(folderID)).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields(googleapi.Field(listFields)).
		Context(ctx)

	if driveID != "" {
		call = call.Corpora("drive").DriveId(driveID)
		reqCtx.DriveID = driveID
	}

	if pageSize <= 0 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		pageSize = utils.MaxPageSize
	}
	call = call.PageSize(int64(pageSize))

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	files := make([]*types.DriveFileSummary, 0, len(result.Files))
	for _, f := range result.Files {
		files = append(files, api.ConvertFile(f))
	}

	return &types.FileListResult{
		Files:            files,
		NextPageToken:    result.NextPageToken,
		IncompleteSearch: result.IncompleteSearch,
	}, nil
}

// ChildrenQuery builds the Drive search expression for a folder's live children
func ChildrenQuery(folderID string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(folderID)
	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}
