package types

import (
	"strings"
	"time"
)

// BaselineState records whether a connector has a change token to sync from
type BaselineState string

const (
	// BaselinePending means no backfill has completed yet
	BaselinePending BaselineState = "pending"
	// BaselineEstablished means the connector holds a usable change token
	BaselineEstablished BaselineState = "established"
	// BaselineMissing means a backfill ran but the start token could not be fetched
	BaselineMissing BaselineState = "missing"
)

// DriveConnector is the persisted state for one (organization, folder) scope
type DriveConnector struct {
	ID                string        `json:"id"`
	OrgID             string        `json:"orgId"`
	FolderID          string        `json:"folderId"`
	SharedDriveID     string        `json:"sharedDriveId,omitempty"`
	ServiceAccount    string        `json:"serviceAccount"`
	KnowledgeSourceID string        `json:"knowledgeSourceId,omitempty"`
	ChangeToken       *string       `json:"changeToken"`
	Baseline          BaselineState `json:"baseline"`
	LastBackfillAt    *time.Time    `json:"lastBackfillAt"`
	LastUpdateAt      *time.Time    `json:"lastUpdateAt"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// HasChangeToken reports whether a change token is stored
func (c *DriveConnector) HasChangeToken() bool {
	return c.ChangeToken != nil && *c.ChangeToken != ""
}

// SyncReady reports whether incremental sync may run. A connector whose last
// backfill could not fetch a start token is not ready even if an older token
// is still stored.
func (c *DriveConnector) SyncReady() bool {
	return c.Baseline != BaselineMissing && c.HasChangeToken()
}

// ConnectorList renders connectors as a table
type ConnectorList []*DriveConnector

func (l ConnectorList) Headers() []string {
	return []string{"ID", "Org", "Folder", "Shared Drive", "Baseline", "Last Backfill", "Last Update"}
}

func (l ConnectorList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		rows = append(rows, []string{
			c.ID,
			c.OrgID,
			c.FolderID,
			c.SharedDriveID,
			string(c.Baseline),
			formatTime(c.LastBackfillAt),
			formatTime(c.LastUpdateAt),
		})
	}
	return rows
}

func (l ConnectorList) EmptyMessage() string {
	return "No connectors registered"
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func derefOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

// SyncUpdate is a partial update of a connector's sync bookkeeping. Nil
// fields and an empty Baseline leave the stored value unchanged.
type SyncUpdate struct {
	ChangeToken    *string
	Baseline       BaselineState
	LastBackfillAt *time.Time
	LastUpdateAt   *time.Time
}
