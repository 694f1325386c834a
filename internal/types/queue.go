package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// ChangeType is the kind of work a queue row represents
type ChangeType string

const (
	ChangeTypeAdd    ChangeType = "ADD"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeDelete ChangeType = "DELETE"
)

// Valid reports whether t is one of the three queue change types
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeAdd, ChangeTypeUpdate, ChangeTypeDelete:
		return true
	}
	return false
}

// ChangeQueueRow is one append-only unit of ingestion work. FileName and
// MimeType are nullable; RawPayload is the API's own view of the file and is
// used as a fallback metadata source.
type ChangeQueueRow struct {
	ID          int64           `json:"id"`
	OrgID       string          `json:"orgId"`
	ConnectorID string          `json:"connectorId"`
	FileID      string          `json:"fileId"`
	FileName    *string         `json:"fileName"`
	MimeType    *string         `json:"mimeType"`
	ChangeType  ChangeType      `json:"changeType"`
	RawPayload  json.RawMessage `json:"rawPayload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// RawPayload is the document stored in ChangeQueueRow.RawPayload by the
// backfill and incremental paths.
type RawPayload struct {
	File       *DriveFileSummary `json:"file,omitempty"`
	Removed    bool              `json:"removed,omitempty"`
	ChangeTime string            `json:"time,omitempty"`
	DriveID    string            `json:"driveId,omitempty"`
}

// EmbeddedFileField returns a string field of the file descriptor nested in
// the raw payload, or "" if the payload is absent, malformed, or lacks it.
func (r *ChangeQueueRow) EmbeddedFileField(key string) string {
	if len(r.RawPayload) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(r.RawPayload, &payload); err != nil {
		return ""
	}
	file, ok := payload["file"].(map[string]interface{})
	if !ok {
		return ""
	}
	s, _ := file[key].(string)
	return s
}

// PayloadField returns a top-level string field of the raw payload
func (r *ChangeQueueRow) PayloadField(key string) string {
	if len(r.RawPayload) == 0 {
		return ""
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(r.RawPayload, &payload); err != nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// StringPtr returns nil for empty strings so nullable columns stay NULL
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ChangeQueueList renders queue rows as a table
type ChangeQueueList []*ChangeQueueRow

func (l ChangeQueueList) Headers() []string {
	return []string{"ID", "Change", "File ID", "Name", "MIME Type", "Queued"}
}

func (l ChangeQueueList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			string(r.ChangeType),
			r.FileID,
			derefOr(r.FileName, "-"),
			derefOr(r.MimeType, "-"),
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func (l ChangeQueueList) EmptyMessage() string {
	return "Change queue is empty"
}
