package types

// RequestType classifies a Drive API call for logging and error context
type RequestType string

const (
	RequestTypeListOrSearch RequestType = "ListOrSearch"
	RequestTypeGetByID      RequestType = "GetByID"
	RequestTypeChanges      RequestType = "Changes"
	RequestTypeDownload     RequestType = "Download"
	RequestTypeExport       RequestType = "Export"
)

// RequestContext carries per-request metadata through the API layer
type RequestContext struct {
	OrgID             string      `json:"orgId,omitempty"`
	ConnectorID       string      `json:"connectorId,omitempty"`
	DriveID           string      `json:"driveId,omitempty"`
	InvolvedFileIDs   []string    `json:"involvedFileIds"`
	InvolvedParentIDs []string    `json:"involvedParentIds"`
	RequestType       RequestType `json:"requestType"`
	TraceID           string      `json:"traceId"`
}
