package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// MockDriveSource is a scripted per-connector Drive view. Unset funcs fall
// back to FolderPages, StartToken and ChangePages.
type MockDriveSource struct {
	mu sync.Mutex

	// FolderPages are returned in order; page i>0 is requested with token "page-<i>"
	FolderPages [][]*types.DriveFileSummary
	StartToken  string
	ChangePages map[string]*types.ChangeList

	ListFolderFunc        func(ctx context.Context, pageToken string, pageSize int) (*types.FileListResult, error)
	GetStartPageTokenFunc func(ctx context.Context) (string, error)
	ListChangesFunc       func(ctx context.Context, pageToken string, pageSize int) (*types.ChangeList, error)

	Calls []string
}

func (m *MockDriveSource) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many recorded calls start with prefix
func (m *MockDriveSource) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (m *MockDriveSource) ListFolder(ctx context.Context, pageToken string, pageSize int) (*types.FileListResult, error) {
	m.record("ListFolder:" + pageToken)
	if m.ListFolderFunc != nil {
		return m.ListFolderFunc(ctx, pageToken, pageSize)
	}

	index := 0
	if pageToken != "" {
		if _, err := fmt.Sscanf(pageToken, "page-%d", &index); err != nil {
			return nil, fmt.Errorf("unexpected page token %q", pageToken)
		}
	}
	result := &types.FileListResult{Files: []*types.DriveFileSummary{}}
	if index < len(m.FolderPages) {
		result.Files = m.FolderPages[index]
	}
	if index+1 < len(m.FolderPages) {
		result.NextPageToken = fmt.Sprintf("page-%d", index+1)
	}
	return result, nil
}

func (m *MockDriveSource) GetStartPageToken(ctx context.Context) (string, error) {
	m.record("GetStartPageToken")
	if m.GetStartPageTokenFunc != nil {
		return m.GetStartPageTokenFunc(ctx)
	}
	return m.StartToken, nil
}

func (m *MockDriveSource) ListChanges(ctx context.Context, pageToken string, pageSize int) (*types.ChangeList, error) {
	m.record("ListChanges:" + pageToken)
	if m.ListChangesFunc != nil {
		return m.ListChangesFunc(ctx, pageToken, pageSize)
	}
	list, ok := m.ChangePages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected change token %q", pageToken)
	}
	return list, nil
}

// FetchCall is one download or export seen by MockFetcher
type FetchCall struct {
	Method   string
	FileID   string
	MimeType string
}

// MockFetcher fakes file content retrieval
type MockFetcher struct {
	mu sync.Mutex

	DownloadFunc func(ctx context.Context, fileID, mimeType string) (*types.FileContent, error)
	ExportFunc   func(ctx context.Context, fileID, targetMime string) (*types.FileContent, error)

	Calls []FetchCall
}

func (m *MockFetcher) record(call FetchCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockFetcher) DownloadFileBinary(ctx context.Context, fileID, mimeType string) (*types.FileContent, error) {
	m.record(FetchCall{Method: "download", FileID: fileID, MimeType: mimeType})
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, fileID, mimeType)
	}
	return &types.FileContent{Content: []byte("binary:" + fileID), MimeType: mimeType}, nil
}

func (m *MockFetcher) ExportGoogleDoc(ctx context.Context, fileID, targetMime string) (*types.FileContent, error) {
	m.record(FetchCall{Method: "export", FileID: fileID, MimeType: targetMime})
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, fileID, targetMime)
	}
	return &types.FileContent{Content: []byte("export:" + fileID), MimeType: targetMime}, nil
}
