package changes

import (
	"context"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const listFields = "nextPageToken,newStartPageToken,changes(changeType,fileId,removed,time,driveId,file(" + types.FileSummaryFields + "))"

type Manager struct {
	client *api.Client
}

func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// GetStartPageToken returns the current change cursor. An empty token in a
// successful response is reported as INVALID_RESPONSE.
func (m *Manager) GetStartPageToken(ctx context.Context, reqCtx *types.RequestContext, driveID string) (string, error) {
	call := m.client.Service().Changes.GetStartPageToken().Context(ctx)

	if driveID != "" {
		call = call.DriveId(driveID).SupportsAllDrives(true)
		reqCtx.DriveID = driveID
	}

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.StartPageToken, error) {
		return call.Do()
	})
	if err != nil {
		return "", err
	}

	if result == nil || result.StartPageToken == "" {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidResponse,
			"Drive returned no start page token").
			WithContext("traceId", reqCtx.TraceID).
			WithContext("driveId", driveID).
			Build())
	}

	return result.StartPageToken, nil
}

// List returns one page of changes since opts.PageToken
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, opts types.ListOptions) (*types.ChangeList, error) {
	if opts.PageToken == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"page token is required for listing changes").Build())
	}

	call := m.client.Service().Changes.List(opts.PageToken).
		Fields(googleapi.Field(listFields)).
		Context(ctx)

	if opts.DriveID != "" {
		call = call.DriveId(opts.DriveID).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		reqCtx.DriveID = opts.DriveID
	} else if opts.RestrictToMyDrive {
		call = call.RestrictToMyDrive(true)
	}

	if opts.IncludeRemoved {
		call = call.IncludeRemoved(true)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}
	call = call.PageSize(int64(limit))

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.ChangeList, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	return convertChangeList(result), nil
}

func convertChangeList(apiList *drive.ChangeList) *types.ChangeList {
	changes := make([]types.Change, 0, len(apiList.Changes))
	for _, c := range apiList.Changes {
		changes = append(changes, convertChange(c))
	}

	return &types.ChangeList{
		Changes:           changes,
		NextPageToken:     apiList.NextPageToken,
		NewStartPageToken: apiList.NewStartPageToken,
	}
}

func convertChange(apiChange *drive.Change) types.Change {
	change := types.Change{
		ChangeType: apiChange.ChangeType,
		FileID:     apiChange.FileId,
		Removed:    apiChange.Removed,
		DriveID:    apiChange.DriveId,
		File:       api.ConvertFile(apiChange.File),
	}

	if apiChange.Time != "" {
		if t, err := time.Parse(time.RFC3339, apiChange.Time); err == nil {
			change.Time = t
		}
	}

	if change.FileID == "" && change.File != nil {
		change.FileID = change.File.ID
	}

	return change
}
