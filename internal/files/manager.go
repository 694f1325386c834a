package files

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// Manager fetches file content
type Manager struct {
	client *api.Client
}

// NewManager creates a new file manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// Download fetches the raw bytes of a blob file. When mimeType is empty the
// returned MimeType comes from the response Content-Type.
func (m *Manager) Download(ctx context.Context, reqCtx *types.RequestContext, fileID, mimeType string) (*types.FileContent, error) {
	if fileID == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"file id is required for download").Build())
	}
	api.WithFileIDs(reqCtx, fileID)

	call := m.client.Service().Files.Get(fileID).
		SupportsAllDrives(true).
		Context(ctx)

	content, err := api.Execute(ctx, m.client, reqCtx, func() (*types.FileContent, error) {
		resp, err := call.Download()
		if err != nil {
			return nil, err
		}
		return readContent(resp, 0)
	})
	if err != nil {
		return nil, err
	}

	if mimeType != "" {
		content.MimeType = mimeType
	}
	return content, nil
}

// Export converts a native Google document to targetMime. Drive refuses
// exports larger than utils.ExportMaxBytes.
func (m *Manager) Export(ctx context.Context, reqCtx *types.RequestContext, fileID, targetMime string) (*types.FileContent, error) {
	if fileID == "" || targetMime == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"file id and export MIME type are required").Build())
	}
	api.WithFileIDs(reqCtx, fileID)

	call := m.client.Service().Files.Export(fileID, targetMime).Context(ctx)

	content, err := api.Execute(ctx, m.client, reqCtx, func() (*types.FileContent, error) {
		resp, err := call.Download()
		if err != nil {
			return nil, err
		}
		return readContent(resp, utils.ExportMaxBytes)
	})
	if err != nil {
		return nil, err
	}

	content.MimeType = targetMime
	return content, nil
}

// readContent drains and closes resp. A positive limit turns larger bodies
// into EXPORT_SIZE_LIMIT.
func readContent(resp *http.Response, limit int64) (*types.FileContent, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if limit > 0 && int64(len(data)) > limit {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeExportSizeLimit,
			fmt.Sprintf("File exceeds %d byte export limit", limit)).
			WithContext("limit", limit).
			Build())
	}

	return &types.FileContent{
		Content:  data,
		MimeType: mediaType(resp.Header.Get("Content-Type")),
	}, nil
}

// mediaType strips parameters such as charset from a Content-Type value
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return parsed
}
