package types

// Google Drive file as returned by folder and change listings. Only the fields
// the connector queues are kept.
type DriveFileSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	MimeType     string   `json:"mimeType"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
	Parents      []string `json:"parents,omitempty"`
	Size         int64    `json:"size,omitempty"`
	MD5Checksum  string   `json:"md5Checksum,omitempty"`
	DriveID      string   `json:"driveId,omitempty"`
	Version      int64    `json:"version,omitempty"`
	Trashed      bool     `json:"trashed,omitempty"`
}

// FileListResult represents paginated file list response
type FileListResult struct {
	Files            []*DriveFileSummary `json:"files"`
	NextPageToken    string              `json:"nextPageToken,omitempty"`
	IncompleteSearch bool                `json:"incompleteSearch,omitempty"`
}

// FileContent is the payload of a download or export call
type FileContent struct {
	Content  []byte `json:"-"`
	MimeType string `json:"mimeType"`
}

// FileSummaryFields is the partial-response field mask used for every file
// the connector reads.
const FileSummaryFields = "id,name,mimeType,modifiedTime,parents,size,md5Checksum,driveId,version,trashed"
