package manifest

import (
	"encoding/json"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
)

// Format parses one manifest serialization. Malformed records are logged
// and skipped; Parse never fails as a whole.
type Format interface {
	Name() string
	Parse(data []byte, logger logging.Logger) []types.ManifestEntry
}

// FormatFor picks the parser for a MIME type, or nil when none applies
func FormatFor(mimeType string) Format {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.Contains(m, "json"):
		return jsonlFormat{}
	case strings.Contains(m, "csv"):
		return csvFormat{}
	}
	return nil
}

// ParseBuffer parses data with the format selected by mimeType. An unknown
// MIME type yields no entries and a warning.
func ParseBuffer(data []byte, mimeType string, logger logging.Logger) []types.ManifestEntry {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	format := FormatFor(mimeType)
	if format == nil {
		logger.Warn("Unknown manifest MIME type, skipping", logging.F("mimeType", mimeType))
		return []types.ManifestEntry{}
	}

	entries := format.Parse(data, logger)
	logger.Debug("Parsed manifest",
		logging.F("format", format.Name()),
		logging.F("entries", len(entries)),
	)
	return entries
}

// lines splits text into trimmed lines, dropping blanks and # comments.
// The returned numbers are 1-based positions in the original buffer.
func lines(data []byte) ([]string, []int) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	raw := strings.Split(text, "\n")

	out := make([]string, 0, len(raw))
	nums := make([]int, 0, len(raw))
	for i, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		nums = append(nums, i+1)
	}
	return out, nums
}

// jsonlFormat reads one JSON object per line
type jsonlFormat struct{}

func (jsonlFormat) Name() string { return "jsonl" }

func (jsonlFormat) Parse(data []byte, logger logging.Logger) []types.ManifestEntry {
	entries := []types.ManifestEntry{}
	records, nums := lines(data)
	for i, line := range records {
		var record map[string]interface{}
		if err := json.Unmarshal([]byte(line), &record); err != nil || record == nil {
			msg := "not a JSON object"
			if err != nil {
				msg = err.Error()
			}
			logger.Warn("Skipping malformed manifest line",
				logging.F("line", nums[i]),
				logging.F("error", msg),
			)
			continue
		}
		if entry, ok := normalize(record, logger, nums[i]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// csvFormat reads a header line and positional comma-separated records.
// Quoting is not supported.
type csvFormat struct{}

func (csvFormat) Name() string { return "csv" }

func (csvFormat) Parse(data []byte, logger logging.Logger) []types.ManifestEntry {
	entries := []types.ManifestEntry{}
	records, nums := lines(data)
	if len(records) == 0 {
		return entries
	}

	header := splitFields(records[0])
	for i, line := range records[1:] {
		values := splitFields(line)
		if len(values) > len(header) {
			logger.Warn("Manifest row has more fields than the header, extra fields ignored",
				logging.F("line", nums[i+1]),
				logging.F("fields", len(values)),
				logging.F("columns", len(header)),
			)
		}

		record := make(map[string]interface{}, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if col < len(values) {
				value = values[col]
			}
			record[name] = value
		}

		if entry, ok := normalize(record, logger, nums[i+1]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}
