package types

import (
	"fmt"
	"sort"
	"strings"
)

// ManifestEntry is one normalized line of an operator manifest
type ManifestEntry struct {
	FileID            string                 `json:"fileId"`
	Metadata          map[string]interface{} `json:"metadata"`
	AllowlistedDomain bool                   `json:"allowlistedDomain"`
}

// ManifestEntryList renders manifest entries as a table
type ManifestEntryList []ManifestEntry

func (l ManifestEntryList) Headers() []string {
	return []string{"File ID", "Allowlisted", "Metadata"}
}

func (l ManifestEntryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			if k == "file_id" || k == "allowlisted_domain" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Metadata[k]))
		}
		rows = append(rows, []string{e.FileID, fmt.Sprintf("%t", e.AllowlistedDomain), strings.Join(pairs, " ")})
	}
	return rows
}

func (l ManifestEntryList) EmptyMessage() string {
	return "Manifest contains no entries"
}

// ResolvedDownload is the bytes and naming for one ingestible file
type ResolvedDownload struct {
	Content   []byte `json:"-"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
	FileName  string `json:"fileName"`
	Size      int    `json:"size"`
}
