package files

import (
	"bytes"
	"net/http"
	"testing"

	testutil "github.com/dl-alexandre/gdrv-ingest/internal/testing"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

func TestNewManager(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	client := fake.Client(t, nil)
	manager := NewManager(client)

	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.client != client {
		t.Error("Manager client not set correctly")
	}
}

func TestDownload(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.Blobs["f1"] = testutil.Blob{Content: []byte("%PDF-1.7"), ContentType: "application/pdf; charset=binary"}
	m := NewManager(fake.Client(t, nil))
	ctx := testutil.TestContext(t)

	reqCtx := testutil.TestRequestContext()
	content, err := m.Download(ctx, reqCtx, "f1", "")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(content.Content, []byte("%PDF-1.7")) {
		t.Errorf("Content = %q", content.Content)
	}
	if content.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q, want application/pdf", content.MimeType)
	}
	if len(reqCtx.InvolvedFileIDs) != 1 || reqCtx.InvolvedFileIDs[0] != "f1" {
		t.Errorf("InvolvedFileIDs = %v, want [f1]", reqCtx.InvolvedFileIDs)
	}

	reqs := fake.RequestsTo("/files/f1")
	if len(reqs) != 1 {
		t.Fatalf("Expected 1 request, got %d", len(reqs))
	}
	if reqs[0].Query.Get("alt") != "media" {
		t.Errorf("alt = %q, want media", reqs[0].Query.Get("alt"))
	}
	if reqs[0].Query.Get("supportsAllDrives") != "true" {
		t.Error("supportsAllDrives not set")
	}

	content, err = m.Download(ctx, testutil.TestRequestContext(), "f1", "application/x-override")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if content.MimeType != "application/x-override" {
		t.Errorf("MimeType = %q, want application/x-override", content.MimeType)
	}
}

func TestDownload_Errors(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.Blobs["f1"] = testutil.Blob{Content: []byte("x")}
	m := NewManager(fake.Client(t, nil))
	ctx := testutil.TestContext(t)

	tests := []struct {
		name   string
		fileID string
		fail   int
		reason string
		code   string
	}{
		{name: "empty id", fileID: "", code: utils.ErrCodeInvalidArgument},
		{name: "missing file", fileID: "missing", code: utils.ErrCodeFileNotFound},
		{name: "expired auth", fileID: "f1", fail: http.StatusUnauthorized, reason: "authError", code: utils.ErrCodeAuthExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fail != 0 {
				fake.FailNext("/files/"+tt.fileID, tt.fail, tt.reason)
			}
			_, err := m.Download(ctx, testutil.TestRequestContext(), tt.fileID, "")
			if !utils.HasCode(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExport(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.Exports[testutil.ExportKey("doc1", "application/pdf")] = []byte("exported")
	m := NewManager(fake.Client(t, nil))

	reqCtx := testutil.TestRequestContext()
	content, err := m.Export(testutil.TestContext(t), reqCtx, "doc1", "application/pdf")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(content.Content) != "exported" {
		t.Errorf("Content = %q, want exported", content.Content)
	}
	if content.MimeType != "application/pdf" {
		t.Errorf("MimeType = %q, want application/pdf", content.MimeType)
	}
	if len(reqCtx.InvolvedFileIDs) != 1 || reqCtx.InvolvedFileIDs[0] != "doc1" {
		t.Errorf("InvolvedFileIDs = %v, want [doc1]", reqCtx.InvolvedFileIDs)
	}

	reqs := fake.RequestsTo("/files/doc1/export")
	if len(reqs) != 1 || reqs[0].Query.Get("mimeType") != "application/pdf" {
		t.Errorf("Unexpected export requests: %+v", reqs)
	}
}

func TestExport_SizeLimit(t *testing.T) {
	fake := testutil.NewFakeDrive(t)
	fake.Exports[testutil.ExportKey("big", "text/csv")] = bytes.Repeat([]byte("a"), utils.ExportMaxBytes+1)
	m := NewManager(fake.Client(t, nil))

	_, err := m.Export(testutil.TestContext(t), testutil.TestRequestContext(), "big", "text/csv")
	if !utils.HasCode(err, utils.ErrCodeExportSizeLimit) {
		t.Errorf("error = %v, want %s", err, utils.ErrCodeExportSizeLimit)
	}
}

func TestExport_Validation(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Export(testutil.TestContext(t), testutil.TestRequestContext(), "doc1", "")
	if !utils.HasCode(err, utils.ErrCodeInvalidArgument) {
		t.Errorf("error = %v, want %s", err, utils.ErrCodeInvalidArgument)
	}
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"":                        "",
		"text/csv":                "text/csv",
		"text/csv; charset=utf-8": "text/csv",
		"not a media type;;":      "not a media type;;",
	}
	for in, want := range tests {
		if got := mediaType(in); got != want {
			t.Errorf("mediaType(%q) = %q, want %q", in, got, want)
		}
	}
}
