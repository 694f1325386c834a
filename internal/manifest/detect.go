// Package manifest recognizes operator manifest files and parses them into
// allowlist entries.
package manifest

import (
	"regexp"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// FileNames are the names treated as manifests wherever they appear
var FileNames = []string{
	"manifest.jsonl",
	"manifest.json",
	"manifest.csv",
	"_manifest.jsonl",
	"_manifest.csv",
}

// HintWords mark a directory or prefix that holds a manifest, as in
// "manifests/manifest.csv" or "corpus-manifest.jsonl".
var HintWords = []string{"manifest", "manifests", "ingest", "corpus"}

var hintPattern = buildHintPattern(HintWords)

func buildHintPattern(hints []string) *regexp.Regexp {
	quoted := make([]string, len(hints))
	for i, h := range hints {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return regexp.MustCompile(`^(?:.*/)?(?:` + strings.Join(quoted, "|") + `)(?:/manifest\.[^/]+|-manifest[^/]*)$`)
}

// IsManifestFile reports whether a queued file is a manifest, judged by the
// row's own name and by the name in its raw payload.
func IsManifestFile(row *types.ChangeQueueRow) bool {
	if row == nil {
		return false
	}
	if row.FileName != nil && IsManifestName(*row.FileName) {
		return true
	}
	return IsManifestName(row.EmbeddedFileField("name"))
}

// IsManifestName applies the name rules case-insensitively after trimming
func IsManifestName(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, candidate := range FileNames {
		if name == candidate {
			return true
		}
	}
	return hintPattern.MatchString(name)
}
