package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/dl-alexandre/gdrv-ingest/internal/api"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Blob is the content served for a file download
type Blob struct {
	Content     []byte
	ContentType string
}

// RecordedRequest is one request seen by FakeDrive
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
}

type injectedFailure struct {
	status int
	reason string
}

// FakeDrive is an httptest server speaking enough of the Drive v3 REST
// surface for folder listing, changes, download and export.
type FakeDrive struct {
	Server *httptest.Server

	mu sync.Mutex
	// FolderPages are served in order; page i>0 is requested with token "page-<i>"
	FolderPages [][]*drive.File
	// ChangePages are keyed by the page token that requests them
	ChangePages    map[string]*drive.ChangeList
	StartPageToken string
	Blobs          map[string]Blob
	// Exports are keyed by ExportKey(fileID, mimeType)
	Exports  map[string][]byte
	failures map[string][]injectedFailure
	requests []RecordedRequest
}

// NewFakeDrive starts a fake Drive server that is closed with the test
func NewFakeDrive(t testing.TB) *FakeDrive {
	t.Helper()
	f := &FakeDrive{
		ChangePages: make(map[string]*drive.ChangeList),
		Blobs:       make(map[string]Blob),
		Exports:     make(map[string][]byte),
		failures:    make(map[string][]injectedFailure),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// ExportKey builds the Exports map key
func ExportKey(fileID, mimeType string) string {
	return fileID + "|" + mimeType
}

// Client returns an api.Client wired to the fake server
func (f *FakeDrive) Client(t testing.TB, logger logging.Logger) *api.Client {
	t.Helper()
	service, err := drive.NewService(context.Background(),
		option.WithEndpoint(f.Server.URL+"/"),
		option.WithHTTPClient(f.Server.Client()),
	)
	if err != nil {
		t.Fatalf("create drive service: %v", err)
	}
	return api.NewClient(service, api.NewRateLimiter(1000, 1000), logger)
}

// FailNext makes the next request to path fail with status and reason
func (f *FakeDrive) FailNext(path string, status int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = append(f.failures[path], injectedFailure{status: status, reason: reason})
}

// Requests returns the requests seen so far
func (f *FakeDrive) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsTo returns the requests whose path equals path
func (f *FakeDrive) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range f.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeDrive) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, RecordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query()})
	if queued := f.failures[r.URL.Path]; len(queued) > 0 {
		failure := queued[0]
		f.failures[r.URL.Path] = queued[1:]
		f.mu.Unlock()
		writeError(w, failure.status, failure.reason)
		return
	}
	f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	query := r.URL.Query()

	switch {
	case path == "files":
		f.serveFileList(w, query)
	case path == "changes/startPageToken":
		f.serveStartToken(w)
	case path == "changes":
		f.serveChanges(w, query)
	case strings.HasPrefix(path, "files/") && strings.HasSuffix(path, "/export"):
		fileID := strings.TrimSuffix(strings.TrimPrefix(path, "files/"), "/export")
		f.serveExport(w, fileID, query.Get("mimeType"))
	case strings.HasPrefix(path, "files/"):
		f.serveBlob(w, strings.TrimPrefix(path, "files/"))
	default:
		writeError(w, http.StatusNotFound, "notFound")
	}
}

func (f *FakeDrive) serveFileList(w http.ResponseWriter, query url.Values) {
	f.mu.Lock()
	pages := f.FolderPages
	f.mu.Unlock()

	index := 0
	if token := query.Get("pageToken"); token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "page-"))
		if err != nil || n <= 0 || n >= len(pages) {
			writeError(w, http.StatusBadRequest, "invalidPageToken")
			return
		}
		index = n
	}

	list := &drive.FileList{Files: []*drive.File{}}
	if index < len(pages) {
		list.Files = pages[index]
	}
	if index+1 < len(pages) {
		list.NextPageToken = fmt.Sprintf("page-%d", index+1)
	}
	writeJSON(w, list)
}

func (f *FakeDrive) serveStartToken(w http.ResponseWriter) {
	f.mu.Lock()
	token := f.StartPageToken
	f.mu.Unlock()
	writeJSON(w, &drive.StartPageToken{StartPageToken: token})
}

func (f *FakeDrive) serveChanges(w http.ResponseWriter, query url.Values) {
	f.mu.Lock()
	list, ok := f.ChangePages[query.Get("pageToken")]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusGone, "invalid")
		return
	}
	writeJSON(w, list)
}

func (f *FakeDrive) serveBlob(w http.ResponseWriter, fileID string) {
	f.mu.Lock()
	blob, ok := f.Blobs[fileID]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "notFound")
		return
	}
	if blob.ContentType != "" {
		w.Header().Set("Content-Type", blob.ContentType)
	}
	_, _ = w.Write(blob.Content)
}

func (f *FakeDrive) serveExport(w http.ResponseWriter, fileID, mimeType string) {
	f.mu.Lock()
	data, ok := f.Exports[ExportKey(fileID, mimeType)]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "badRequest")
		return
	}
	w.Header().Set("Content-Type", mimeType)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := http.StatusText(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors": []map[string]interface{}{
				{"reason": reason, "message": message, "domain": "global"},
			},
		},
	})
}
