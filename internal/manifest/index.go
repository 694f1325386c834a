package manifest

import "github.com/dl-alexandre/gdrv-ingest/internal/types"

// Index looks up manifest entries by file id. When a file id repeats, the
// later entry wins.
type Index struct {
	entries map[string]types.ManifestEntry
}

// BuildIndex indexes entries by file id
func BuildIndex(entries []types.ManifestEntry) *Index {
	idx := &Index{entries: make(map[string]types.ManifestEntry, len(entries))}
	for _, e := range entries {
		idx.entries[e.FileID] = e
	}
	return idx
}

// Lookup returns the entry for fileID
func (i *Index) Lookup(fileID string) (types.ManifestEntry, bool) {
	e, ok := i.entries[fileID]
	return e, ok
}

// Allows reports whether fileID is listed and allowlisted
func (i *Index) Allows(fileID string) bool {
	e, ok := i.entries[fileID]
	return ok && e.AllowlistedDomain
}

// Len returns the number of distinct file ids
func (i *Index) Len() int {
	return len(i.entries)
}
