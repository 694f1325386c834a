package connector

import (
	"path/filepath"
	"testing"

	"github.com/dl-alexandre/gdrv-ingest/internal/ingest"
	"github.com/dl-alexandre/gdrv-ingest/internal/registry"
	"github.com/dl-alexandre/gdrv-ingest/internal/resolver"
	"github.com/dl-alexandre/gdrv-ingest/internal/store"
	testutil "github.com/dl-alexandre/gdrv-ingest/internal/testing"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
)

func TestDrive_ScopesRequests(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.FolderPages = [][]*drive.File{{testutil.TestFile("f1", "a.pdf", "application/pdf")}}
	fake.StartPageToken = "77"
	fake.ChangePages["77"] = &drive.ChangeList{NewStartPageToken: "78"}

	d := New(fake.Client(t, nil), Scope{OrgID: "org-1", ConnectorID: "c1", FolderID: "folder-root"})
	ctx := testutil.TestContext(t)

	list, err := d.ListFolder(ctx, "", 25)
	require.NoError(t, err)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "f1", list.Files[0].ID)

	token, err := d.GetStartPageToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "77", token)

	changes, err := d.ListChanges(ctx, token, 25)
	require.NoError(t, err)
	assert.Equal(t, "78", changes.NewStartPageToken)

	listReqs := fake.RequestsTo("/files")
	require.Len(t, listReqs, 1)
	assert.Contains(t, listReqs[0].Query.Get("q"), "'folder-root' in parents")

	changeReqs := fake.RequestsTo("/changes")
	require.Len(t, changeReqs, 1)
	assert.Equal(t, "true", changeReqs[0].Query.Get("restrictToMyDrive"))
	assert.Equal(t, "true", changeReqs[0].Query.Get("includeRemoved"))
	assert.Empty(t, changeReqs[0].Query.Get("driveId"))
}

func TestDrive_SharedDriveScope(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.ChangePages["5"] = &drive.ChangeList{NewStartPageToken: "6"}

	d := New(fake.Client(t, nil), ScopeFor(&types.DriveConnector{
		ID: "c1", OrgID: "org-1", FolderID: "folder-root", SharedDriveID: "drive-9",
	}))
	assert.Equal(t, "drive-9", d.Scope().SharedDriveID)

	_, err := d.ListChanges(testutil.TestContext(t), "5", 10)
	require.NoError(t, err)

	reqs := fake.RequestsTo("/changes")
	require.Len(t, reqs, 1)
	assert.Equal(t, "drive-9", reqs[0].Query.Get("driveId"))
	assert.NotEqual(t, "true", reqs[0].Query.Get("restrictToMyDrive"))
}

func TestDrive_DownloadAndExport(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.Blobs["bin1"] = testutil.Blob{Content: []byte("%PDF-1.7"), ContentType: "application/pdf"}
	fake.Exports[testutil.ExportKey("doc1", "application/pdf")] = []byte("exported")

	d := New(fake.Client(t, nil), Scope{OrgID: "org-1", ConnectorID: "c1", FolderID: "folder-root"})
	ctx := testutil.TestContext(t)

	content, err := d.DownloadFileBinary(ctx, "bin1", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), content.Content)

	exported, err := d.ExportGoogleDoc(ctx, "doc1", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("exported"), exported.Content)

	_, err = d.DownloadFileBinary(ctx, "missing", "application/pdf")
	assert.True(t, utils.HasCode(err, utils.ErrCodeFileNotFound))
}

// TestPipeline runs registry, backfill, incremental sync and resolution
// against a real store and the fake Drive server.
func TestPipeline(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.FolderPages = [][]*drive.File{
		{
			testutil.TestFile("doc1", "Plan", utils.MimeTypeDocument),
			testutil.TestFile("pdf1", "report.pdf", "application/pdf"),
		},
		{testutil.TestFile("csv1", "manifest.csv", "text/csv")},
	}
	fake.StartPageToken = "100"
	fake.ChangePages["100"] = &drive.ChangeList{
		Changes: []*drive.Change{
			{ChangeType: "file", FileId: "pdf1", File: testutil.TestFile("pdf1", "report-v2.pdf", "application/pdf")},
			{ChangeType: "file", FileId: "gone", Removed: true},
		},
		NewStartPageToken: "101",
	}
	fake.Exports[testutil.ExportKey("doc1", "application/pdf")] = []byte("plan as pdf")

	db, err := store.Open(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := testutil.TestContext(t)
	client := fake.Client(t, nil)

	reg := registry.New(db, registry.Identity{FolderID: "folder-root", ServiceAccount: "sa@example.iam.gserviceaccount.com"}, nil)
	connectorID, err := reg.EnsureConnectorRecord(ctx, "org-1", "ks-1")
	require.NoError(t, err)

	again, err := reg.EnsureConnectorRecord(ctx, "org-1", "ks-1")
	require.NoError(t, err)
	assert.Equal(t, connectorID, again)

	svc := ingest.NewService(db, db, func(c *types.DriveConnector) ingest.DriveSource {
		return New(client, ScopeFor(c))
	}, ingest.Options{PageSize: 50}, nil)

	queued, err := svc.QueueBackfillJobs(ctx, "org-1", connectorID)
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	conn, err := db.GetConnector(ctx, connectorID)
	require.NoError(t, err)
	require.NotNil(t, conn.ChangeToken)
	assert.Equal(t, "100", *conn.ChangeToken)
	assert.Equal(t, types.BaselineEstablished, conn.Baseline)
	assert.NotNil(t, conn.LastBackfillAt)

	result, err := svc.SyncToCurrent(ctx, "org-1", connectorID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Queued)
	assert.Equal(t, "101", result.NewStartToken)

	conn, err = db.GetConnector(ctx, connectorID)
	require.NoError(t, err)
	assert.Equal(t, "101", *conn.ChangeToken)

	rows, err := db.ListChangeRows(ctx, connectorID, 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	var kinds []types.ChangeType
	for _, row := range rows {
		kinds = append(kinds, row.ChangeType)
	}
	assert.Equal(t, []types.ChangeType{
		types.ChangeTypeAdd, types.ChangeTypeAdd, types.ChangeTypeAdd,
		types.ChangeTypeUpdate, types.ChangeTypeDelete,
	}, kinds)
	assert.Equal(t, "gone", rows[4].FileID)

	res := resolver.New(New(client, ScopeFor(conn)), nil)
	download, err := res.DownloadDriveFile(ctx, rows[0])
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", download.MimeType)
	assert.Equal(t, "Plan.pdf", download.FileName)
	assert.Equal(t, []byte("plan as pdf"), download.Content)

	_, err = res.DownloadDriveFile(ctx, rows[4])
	assert.Error(t, err)
}
