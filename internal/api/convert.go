package api

import (
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"google.golang.org/api/drive/v3"
)

// ConvertFile projects a Drive file resource onto the fields the connector queues
func ConvertFile(f *drive.File) *types.DriveFileSummary {
	if f == nil {
		return nil
	}
	return &types.DriveFileSummary{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		Size:         f.Size,
		MD5Checksum:  f.Md5Checksum,
		DriveID:      f.DriveId,
		Version:      f.Version,
		Trashed:      f.Trashed,
	}
}
