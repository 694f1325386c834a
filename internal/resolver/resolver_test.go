package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/mimepolicy"
	testutil "github.com/dl-alexandre/gdrv-ingest/internal/testing"
	"github.com/dl-alexandre/gdrv-ingest/internal/testing/mocks"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadDriveFile_ExportTargets(t *testing.T) {
	for source, target := range mimepolicy.ExportTargets {
		t.Run(source, func(t *testing.T) {
			fetcher := &mocks.MockFetcher{}
			r := New(fetcher, nil)
			row := testutil.TestQueueRow(t, "doc-1", types.StringPtr("Quarterly"), types.StringPtr(source), nil)

			got, err := r.DownloadDriveFile(testutil.TestContext(t), row)
			require.NoError(t, err)

			require.Len(t, fetcher.Calls, 1)
			assert.Equal(t, "export", fetcher.Calls[0].Method)
			assert.Equal(t, target.MimeType, fetcher.Calls[0].MimeType)
			assert.Equal(t, target.Extension, got.Extension)
			assert.Equal(t, target.MimeType, got.MimeType)
			assert.Equal(t, "Quarterly"+target.Extension, got.FileName)
		})
	}
}

func TestDownloadDriveFile_AllowedBinary(t *testing.T) {
	for mimeType, ext := range mimepolicy.AllowedBinary {
		t.Run(mimeType, func(t *testing.T) {
			fetcher := &mocks.MockFetcher{}
			r := New(fetcher, nil)
			row := testutil.TestQueueRow(t, "bin-1", nil, types.StringPtr(mimeType), nil)

			got, err := r.DownloadDriveFile(testutil.TestContext(t), row)
			require.NoError(t, err)

			require.Len(t, fetcher.Calls, 1)
			assert.Equal(t, "download", fetcher.Calls[0].Method)
			assert.Equal(t, ext, got.Extension)
			assert.Equal(t, "bin-1"+ext, got.FileName)
			assert.Equal(t, []byte("binary:bin-1"), got.Content)
			assert.Equal(t, len(got.Content), got.Size)
		})
	}
}

func TestDownloadDriveFile_BinaryMimeFromResponse(t *testing.T) {
	fetcher := &mocks.MockFetcher{
		DownloadFunc: func(ctx context.Context, fileID, mimeType string) (*types.FileContent, error) {
			return &types.FileContent{Content: []byte("x"), MimeType: "text/plain"}, nil
		},
	}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "f", types.StringPtr("notes.md"), types.StringPtr("text/markdown"), nil)

	got, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got.MimeType)
	assert.Equal(t, ".md", got.Extension)
	assert.Equal(t, "notes.md", got.FileName)
}

func TestDownloadDriveFile_BinaryMimeFallsBackToResolved(t *testing.T) {
	r := New(&mocks.MockFetcher{}, nil)
	row := testutil.TestQueueRow(t, "f", nil, types.StringPtr("application/zip"), nil)

	got, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", got.MimeType)
}

func TestDownloadDriveFile_PayloadFallback(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "doc-9", nil, nil, map[string]interface{}{
		"name":     "Board Minutes",
		"mimeType": utils.MimeTypeDocument,
	})

	got, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.NoError(t, err)
	assert.Equal(t, "export", fetcher.Calls[0].Method)
	assert.Equal(t, "Board Minutes.pdf", got.FileName)
}

func TestDownloadDriveFile_Unsupported(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	logger := testutil.NewRecordingLogger()
	r := New(fetcher, logger)
	row := testutil.TestQueueRow(t, "img-1", types.StringPtr("photo.png"), types.StringPtr("image/png"), nil)

	_, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeUnsupportedMimeType, utils.ErrorCode(err))
	assert.Empty(t, fetcher.Calls)

	warnings := logger.Entries(logging.WARN)
	require.Len(t, warnings, 1)
	assert.Equal(t, "img-1", warnings[0].Fields["fileId"])
	assert.Equal(t, "photo.png", warnings[0].Fields["fileName"])
}

func TestDownloadDriveFile_UnknownMime(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "mystery", types.StringPtr("mystery"), nil, map[string]interface{}{"name": "mystery"})

	_, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeUnknownMimeType, utils.ErrorCode(err))
	assert.Empty(t, fetcher.Calls)
}

func TestDownloadDriveFile_DeleteRowRejected(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "gone", nil, types.StringPtr("application/pdf"), nil)
	row.ChangeType = types.ChangeTypeDelete

	_, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	assert.True(t, utils.HasCode(err, utils.ErrCodeInvalidArgument))
	assert.Empty(t, fetcher.Calls)
}

func TestDownloadDriveFile_FetchErrorPropagates(t *testing.T) {
	apiErr := utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound, "missing").Build())
	fetcher := &mocks.MockFetcher{
		ExportFunc: func(ctx context.Context, fileID, targetMime string) (*types.FileContent, error) {
			return nil, apiErr
		},
	}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "doc", nil, types.StringPtr(utils.MimeTypeSpreadsheet), nil)

	_, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	assert.True(t, errors.Is(err, apiErr))
}

func TestDeriveFileName(t *testing.T) {
	tests := []struct {
		name   string
		input  *string
		fileID string
		ext    string
		want   string
	}{
		{"no name", nil, "abc123", ".pdf", "abc123.pdf"},
		{"blank name", types.StringPtr("   "), "abc123", ".pdf", "abc123.pdf"},
		{"append extension", types.StringPtr("Report"), "abc123", ".pdf", "Report.pdf"},
		{"already suffixed", types.StringPtr("Report.pdf"), "abc123", ".pdf", "Report.pdf"},
		{"suffix case differs", types.StringPtr("Report.PDF"), "abc123", ".pdf", "Report.PDF"},
		{"different extension", types.StringPtr("data.xlsx"), "abc123", ".csv", "data.xlsx.csv"},
		{"trims whitespace", types.StringPtr("  Notes "), "abc123", ".txt", "Notes.txt"},
		{"no extension", types.StringPtr("README"), "abc123", "", "README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveFileName(tt.input, tt.fileID, tt.ext)
			if got != tt.want {
				t.Errorf("DeriveFileName() = %q, want %q", got, tt.want)
			}
			again := DeriveFileName(&got, tt.fileID, tt.ext)
			if again != got {
				t.Errorf("DeriveFileName is not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestResolveAll_ContinuesPastFailures(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	logger := testutil.NewRecordingLogger()
	r := New(fetcher, logger)

	rows := []*types.ChangeQueueRow{
		testutil.TestQueueRow(t, "ok-1", types.StringPtr("a.pdf"), types.StringPtr("application/pdf"), nil),
		testutil.TestQueueRow(t, "bad-1", types.StringPtr("b.png"), types.StringPtr("image/png"), nil),
		testutil.TestQueueRow(t, "bad-2", nil, nil, nil),
		testutil.TestQueueRow(t, "ok-2", types.StringPtr("c"), types.StringPtr(utils.MimeTypeDocument), nil),
	}

	result, err := r.ResolveAll(testutil.TestContext(t), rows)
	require.NoError(t, err)
	require.Len(t, result.Resolved, 2)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "ok-1", result.Resolved[0].Row.FileID)
	assert.Equal(t, "c.pdf", result.Resolved[1].Download.FileName)
	assert.Equal(t, utils.ErrCodeUnsupportedMimeType, utils.ErrorCode(result.Failed[0].Err))
	assert.Equal(t, utils.ErrCodeUnknownMimeType, utils.ErrorCode(result.Failed[1].Err))
}

func TestResolveAll_StopsOnCancel(t *testing.T) {
	r := New(&mocks.MockFetcher{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.ResolveAll(ctx, []*types.ChangeQueueRow{
		testutil.TestQueueRow(t, "a", nil, types.StringPtr("application/pdf"), nil),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Resolved)
}

func TestDownloadDriveFile_NativeWithoutExport(t *testing.T) {
	fetcher := &mocks.MockFetcher{}
	r := New(fetcher, nil)
	row := testutil.TestQueueRow(t, "form-1", types.StringPtr("Survey"), types.StringPtr(utils.MimeTypeForm), nil)

	_, err := r.DownloadDriveFile(testutil.TestContext(t), row)
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeUnsupportedMimeType, utils.ErrorCode(err))
	assert.Contains(t, err.Error(), "no export target")
	assert.Empty(t, fetcher.Calls)
}
