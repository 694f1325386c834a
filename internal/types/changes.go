package types

import "time"

// Change represents a change to a file in the watched corpus
type Change struct {
	// ChangeType indicates the type of change (file, drive)
	ChangeType string `json:"changeType"`

	// FileID is the ID of the file that changed
	FileID string `json:"fileId,omitempty"`

	// File is the file resource, absent for most removals
	File *DriveFileSummary `json:"file,omitempty"`

	// Removed indicates the file is no longer accessible
	Removed bool `json:"removed"`

	Time time.Time `json:"time"`

	DriveID string `json:"driveId,omitempty"`
}

// ChangeList represents a list of changes
type ChangeList struct {
	Changes []Change `json:"changes"`

	// NextPageToken is the page token for the next page of changes
	NextPageToken string `json:"nextPageToken,omitempty"`

	// NewStartPageToken is only set on the last page
	NewStartPageToken string `json:"newStartPageToken,omitempty"`
}

// ListOptions configures change list parameters
type ListOptions struct {
	// PageToken is the token for continuing a previous list request
	PageToken string

	// DriveID restricts changes to one shared drive
	DriveID string

	// IncludeRemoved indicates whether to include changes indicating that items have been removed
	IncludeRemoved bool

	// RestrictToMyDrive indicates whether to restrict the results to changes inside the My Drive hierarchy
	RestrictToMyDrive bool

	// Limit is the maximum number of changes to return per page
	Limit int
}
