// Package resolver turns queued change rows into downloadable file content.
package resolver

import (
	"context"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/mimepolicy"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// Fetcher retrieves file bytes from Drive
type Fetcher interface {
	DownloadFileBinary(ctx context.Context, fileID, mimeType string) (*types.FileContent, error)
	ExportGoogleDoc(ctx context.Context, fileID, targetMime string) (*types.FileContent, error)
}

// Resolver downloads or exports the file behind a queue row
type Resolver struct {
	fetcher Fetcher
	logger  logging.Logger
}

// New creates a resolver
func New(fetcher Fetcher, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// DownloadDriveFile resolves the row's MIME type and exports or downloads
// the file accordingly. It fails with UNKNOWN_MIME_TYPE when no MIME type
// can be determined and UNSUPPORTED_MIME_TYPE when the type is not
// ingestible. DELETE rows are rejected.
func (r *Resolver) DownloadDriveFile(ctx context.Context, row *types.ChangeQueueRow) (*types.ResolvedDownload, error) {
	if row == nil || row.FileID == "" {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"queue row has no file id").Build())
	}
	if row.ChangeType == types.ChangeTypeDelete {
		return nil, rowError(utils.ErrCodeInvalidArgument, "deleted files cannot be downloaded", row, "")
	}

	mimeType, ok := mimepolicy.ResolveMimeType(row)
	if !ok {
		r.logger.Warn("Skipping file with unknown MIME type",
			logging.F("fileId", row.FileID),
			logging.F("fileName", displayName(row)),
		)
		return nil, rowError(utils.ErrCodeUnknownMimeType, "could not determine MIME type", row, "")
	}

	decision := mimepolicy.Classify(mimeType)
	var content *types.FileContent
	var err error
	outMime := decision.TargetMime

	switch decision.Kind {
	case mimepolicy.KindExport:
		content, err = r.fetcher.ExportGoogleDoc(ctx, row.FileID, decision.TargetMime)
	case mimepolicy.KindBinary:
		content, err = r.fetcher.DownloadFileBinary(ctx, row.FileID, "")
		if err == nil && content.MimeType != "" {
			outMime = content.MimeType
		}
	default:
		r.logger.Warn("Skipping file with unsupported MIME type",
			logging.F("fileId", row.FileID),
			logging.F("fileName", displayName(row)),
			logging.F("mimeType", mimeType),
		)
		msg := "MIME type is not ingestible: " + mimeType
		if utils.IsWorkspaceMimeType(mimeType) {
			msg = "native Google type has no export target: " + mimeType
		}
		return nil, rowError(utils.ErrCodeUnsupportedMimeType, msg, row, mimeType)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Resolved file",
		logging.F("fileId", row.FileID),
		logging.F("decision", decision.Kind.String()),
		logging.F("mimeType", outMime),
		logging.F("bytes", len(content.Content)),
	)

	return &types.ResolvedDownload{
		Content:   content.Content,
		MimeType:  outMime,
		Extension: decision.Extension,
		FileName:  DeriveFileName(effectiveName(row), row.FileID, decision.Extension),
		Size:      len(content.Content),
	}, nil
}

// DeriveFileName keeps a non-empty name, appending ext unless the name
// already ends with it, and otherwise uses fileID+ext.
func DeriveFileName(name *string, fileID, ext string) string {
	if name != nil {
		if n := strings.TrimSpace(*name); n != "" {
			if ext == "" || strings.HasSuffix(strings.ToLower(n), strings.ToLower(ext)) {
				return n
			}
			return n + ext
		}
	}
	return fileID + ext
}

// effectiveName prefers the stored name and falls back to the payload's
func effectiveName(row *types.ChangeQueueRow) *string {
	if row.FileName != nil && strings.TrimSpace(*row.FileName) != "" {
		return row.FileName
	}
	return types.StringPtr(strings.TrimSpace(row.EmbeddedFileField("name")))
}

func displayName(row *types.ChangeQueueRow) string {
	if name := effectiveName(row); name != nil {
		return *name
	}
	return ""
}

func rowError(code, msg string, row *types.ChangeQueueRow, mimeType string) error {
	builder := utils.NewCLIError(code, msg).
		WithContext("fileId", row.FileID).
		WithContext("rowId", row.ID)
	if name := displayName(row); name != "" {
		builder.WithContext("fileName", name)
	}
	if mimeType != "" {
		builder.WithContext("mimeType", mimeType)
	}
	return utils.NewAppError(builder.Build())
}
