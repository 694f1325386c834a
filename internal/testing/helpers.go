package testing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"google.golang.org/api/drive/v3"
)

// TestContext creates a standard test context bounded by the test deadline
func TestContext(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		OrgID:             "org-test",
		ConnectorID:       "connector-test",
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       types.RequestTypeListOrSearch,
		TraceID:           "test-trace-id",
	}
}

// TestFile creates a Drive file resource for fake listings
func TestFile(id, name, mimeType string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         name,
		MimeType:     mimeType,
		Size:         1024,
		ModifiedTime: "2024-03-01T12:00:00Z",
		Parents:      []string{"folder-root"},
		Md5Checksum:  "md5-" + id,
		Version:      7,
	}
}

// TestSummary creates a file summary as returned by the API layer
func TestSummary(id, name, mimeType string) *types.DriveFileSummary {
	return &types.DriveFileSummary{
		ID:           id,
		Name:         name,
		MimeType:     mimeType,
		ModifiedTime: "2024-03-01T12:00:00Z",
		Parents:      []string{"folder-root"},
		Size:         1024,
		MD5Checksum:  "md5-" + id,
		Version:      7,
	}
}

// TestConnector creates a connector record with no change token
func TestConnector(id, orgID, folderID string) *types.DriveConnector {
	return &types.DriveConnector{
		ID:             id,
		OrgID:          orgID,
		FolderID:       folderID,
		ServiceAccount: "ingest@test-project.iam.gserviceaccount.com",
		Baseline:       types.BaselinePending,
		CreatedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestQueueRow creates a queue row whose raw payload embeds file
func TestQueueRow(t testing.TB, fileID string, name, mimeType *string, file map[string]interface{}) *types.ChangeQueueRow {
	t.Helper()
	row := &types.ChangeQueueRow{
		ID:          1,
		OrgID:       "org-test",
		ConnectorID: "connector-test",
		FileID:      fileID,
		FileName:    name,
		MimeType:    mimeType,
		ChangeType:  types.ChangeTypeAdd,
	}
	if file != nil {
		data, err := json.Marshal(map[string]interface{}{"file": file})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		row.RawPayload = data
	}
	return row
}
