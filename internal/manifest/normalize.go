package manifest

import (
	"fmt"
	"math"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

var (
	fileIDKeys      = []string{"file_id", "fileId", "id"}
	allowlistedKeys = []string{"allowlisted_domain", "allowlistedDomain"}
)

// normalize turns a decoded record into an entry. Records without a file id
// are dropped without a warning.
func normalize(record map[string]interface{}, logger logging.Logger, line int) (types.ManifestEntry, bool) {
	fileID := ""
	for _, key := range fileIDKeys {
		if id := stringValue(record[key]); id != "" {
			fileID = id
			break
		}
	}
	if fileID == "" {
		logger.Debug("Manifest record has no file id", logging.F("line", line))
		return types.ManifestEntry{}, false
	}

	var rawAllow interface{}
	for _, key := range allowlistedKeys {
		if v, ok := record[key]; ok && v != nil {
			rawAllow = v
			break
		}
	}
	allowlisted := CoerceBool(rawAllow, true)

	metadata := make(map[string]interface{}, len(record)+2)
	for k, v := range record {
		metadata[k] = v
	}
	for _, key := range fileIDKeys {
		delete(metadata, key)
	}
	for _, key := range allowlistedKeys {
		delete(metadata, key)
	}
	metadata["file_id"] = fileID
	metadata["allowlisted_domain"] = allowlisted

	return types.ManifestEntry{
		FileID:            fileID,
		Metadata:          metadata,
		AllowlistedDomain: allowlisted,
	}, true
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprint(val)
	case int, int64:
		return fmt.Sprint(val)
	}
	return ""
}

// CoerceBool interprets manifest flag values. Booleans pass through; the
// strings true/false/1/0/yes/no/y/n (any case) and the numbers 1 and 0 are
// recognized. Anything else yields def.
func CoerceBool(v interface{}, def bool) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y":
			return true
		case "false", "0", "no", "n":
			return false
		}
	case float64:
		switch val {
		case 1:
			return true
		case 0:
			return false
		}
	case int:
		switch val {
		case 1:
			return true
		case 0:
			return false
		}
	case int64:
		switch val {
		case 1:
			return true
		case 0:
			return false
		}
	}
	return def
}
