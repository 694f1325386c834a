package resolver

import (
	"context"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// Resolved pairs a row with its download
type Resolved struct {
	Row      *types.ChangeQueueRow
	Download *types.ResolvedDownload
}

// Failure pairs a row with the error that stopped it
type Failure struct {
	Row *types.ChangeQueueRow
	Err error
}

// BatchResult is the outcome of ResolveAll
type BatchResult struct {
	Resolved []Resolved
	Failed   []Failure
}

// ResolveAll resolves rows one at a time. A failure affects only its own
// row; the returned error is non-nil only when ctx ends the batch early.
func (r *Resolver) ResolveAll(ctx context.Context, rows []*types.ChangeQueueRow) (*BatchResult, error) {
	result := &BatchResult{}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		download, err := r.DownloadDriveFile(ctx, row)
		if err != nil {
			fileID := ""
			if row != nil {
				fileID = row.FileID
			}
			r.logger.Warn("File not resolved, continuing",
				logging.F("fileId", fileID),
				logging.F("fileName", nameOf(row)),
				logging.F("error", err.Error()),
			)
			result.Failed = append(result.Failed, Failure{Row: row, Err: err})
			continue
		}
		result.Resolved = append(result.Resolved, Resolved{Row: row, Download: download})
	}
	return result, nil
}

func nameOf(row *types.ChangeQueueRow) string {
	if row == nil {
		return ""
	}
	return displayName(row)
}
