// Package mimepolicy decides how a Drive MIME type is ingested: exported from
// a native Google format, downloaded as-is, or rejected.
package mimepolicy

import (
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
)

// Kind is the closed set of ingestion decisions
type Kind int

const (
	KindUnsupported Kind = iota
	KindExport
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindExport:
		return "export"
	case KindBinary:
		return "binary"
	default:
		return "unsupported"
	}
}

// Target is the MIME type and file extension a file is written out as
type Target struct {
	MimeType  string
	Extension string
}

// Decision is the result of Classify. TargetMime and Extension are empty for
// KindUnsupported.
type Decision struct {
	Kind       Kind
	SourceMime string
	TargetMime string
	Extension  string
}

// Ingestible reports whether the decision leads to a download or export
func (d Decision) Ingestible() bool {
	return d.Kind != KindUnsupported
}

// ExportTargets maps native Google document types to their export format
var ExportTargets = map[string]Target{
	utils.MimeTypeDocument:     {MimeType: "application/pdf", Extension: ".pdf"},
	utils.MimeTypeSpreadsheet:  {MimeType: "text/csv", Extension: ".csv"},
	utils.MimeTypePresentation: {MimeType: "application/pdf", Extension: ".pdf"},
	utils.MimeTypeDrawing:      {MimeType: "application/pdf", Extension: ".pdf"},
}

const (
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// AllowedBinary lists the MIME types downloaded byte-for-byte
var AllowedBinary = map[string]string{
	"application/pdf":               ".pdf",
	"text/plain":                    ".txt",
	"text/csv":                      ".csv",
	"text/markdown":                 ".md",
	"text/html":                     ".html",
	"application/json":              ".json",
	"application/zip":               ".zip",
	"application/msword":            ".doc",
	mimeDocx:                        ".docx",
	"application/vnd.ms-excel":      ".xls",
	mimeXlsx:                        ".xlsx",
	"application/vnd.ms-powerpoint": ".ppt",
	mimePptx:                        ".pptx",
	"application/rtf":               ".rtf",
}

// Classify returns the ingestion decision for mimeType. Export targets take
// precedence over the binary allow-list.
func Classify(mimeType string) Decision {
	mimeType = strings.TrimSpace(mimeType)
	if target, ok := ExportTargets[mimeType]; ok {
		return Decision{
			Kind:       KindExport,
			SourceMime: mimeType,
			TargetMime: target.MimeType,
			Extension:  target.Extension,
		}
	}
	if ext, ok := AllowedBinary[mimeType]; ok {
		return Decision{
			Kind:       KindBinary,
			SourceMime: mimeType,
			TargetMime: mimeType,
			Extension:  ext,
		}
	}
	return Decision{Kind: KindUnsupported, SourceMime: mimeType}
}

// IsIngestible reports whether mimeType appears in either table
func IsIngestible(mimeType string) bool {
	return Classify(mimeType).Ingestible()
}

// ResolveMimeType finds the effective MIME type of a queue row: the stored
// column, then the embedded file descriptor, then a top-level payload field.
// It never guesses; ok is false when none is present.
func ResolveMimeType(row *types.ChangeQueueRow) (string, bool) {
	if row == nil {
		return "", false
	}
	if row.MimeType != nil {
		if m := strings.TrimSpace(*row.MimeType); m != "" {
			return m, true
		}
	}
	if m := strings.TrimSpace(row.EmbeddedFileField("mimeType")); m != "" {
		return m, true
	}
	if m := strings.TrimSpace(row.PayloadField("mimeType")); m != "" {
		return m, true
	}
	return "", false
}
