package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/gdrv-ingest/internal/manifest"
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Operator manifest tools",
}

var manifestParseCmd = &cobra.Command{
	Use:   "parse <path>",
	Short: "Parse a local manifest file",
	Long: `Parses a JSON-lines or CSV manifest and prints the normalized entries.
The format comes from --mime, or from the file extension when omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runManifestParse,
}

var manifestCheckCmd = &cobra.Command{
	Use:   "check <row-id>",
	Short: "Report whether a queued row is a manifest file",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestCheck,
}

var manifestLookupCmd = &cobra.Command{
	Use:   "lookup <path> <file-id>",
	Short: "Look up a file id in a local manifest",
	Long: `Parses the manifest and reports the entry for file-id. When a file id
appears more than once the last entry wins.`,
	Args: cobra.ExactArgs(2),
	RunE: runManifestLookup,
}

var manifestMime string

func init() {
	manifestParseCmd.Flags().StringVar(&manifestMime, "mime", "", "Manifest MIME type (application/json, text/csv)")
	manifestLookupCmd.Flags().StringVar(&manifestMime, "mime", "", "Manifest MIME type (application/json, text/csv)")

	manifestCmd.AddCommand(manifestParseCmd)
	manifestCmd.AddCommand(manifestCheckCmd)
	manifestCmd.AddCommand(manifestLookupCmd)
	rootCmd.AddCommand(manifestCmd)
}

func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".json", ".jsonl", ".ndjson":
		return "application/json"
	}
	return ""
}

// readManifest loads and parses a local manifest, warning when its format
// cannot be determined
func readManifest(out *OutputWriter, path string) ([]types.ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.WrapAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"cannot read manifest file").
			WithContext("path", path).
			Build(), err)
	}

	mimeType := manifestMime
	if mimeType == "" {
		mimeType = mimeForPath(path)
	}
	if manifest.FormatFor(mimeType) == nil {
		out.AddWarning(utils.ErrCodeUnknownMimeType, "no manifest format for MIME type "+mimeType, "warning")
	}
	return manifest.ParseBuffer(data, mimeType, logger), nil
}

func runManifestParse(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	entries, err := readManifest(out, args[0])
	if err != nil {
		return out.Fail("manifest.parse", err)
	}
	return out.WriteSuccess("manifest.parse", types.ManifestEntryList(entries))
}

func runManifestLookup(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	entries, err := readManifest(out, args[0])
	if err != nil {
		return out.Fail("manifest.lookup", err)
	}

	fileID := strings.TrimSpace(args[1])
	index := manifest.BuildIndex(entries)
	entry, found := index.Lookup(fileID)
	if !found {
		return out.Fail("manifest.lookup", utils.NewAppError(utils.NewCLIError(utils.ErrCodeFileNotFound,
			"file id not listed in manifest").
			WithContext("fileId", fileID).
			WithContext("entries", index.Len()).
			Build()))
	}
	return out.WriteSuccess("manifest.lookup", map[string]interface{}{
		"fileId":      fileID,
		"allowlisted": index.Allows(fileID),
		"metadata":    entry.Metadata,
		"entries":     index.Len(),
	})
}

func runManifestCheck(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	rowID, err := parseRowID(args[0])
	if err != nil {
		return out.Fail("manifest.check", err)
	}

	env, err := loadEnv()
	if err != nil {
		return out.Fail("manifest.check", err)
	}
	defer env.Close()

	row, err := env.db.GetChangeRow(cmd.Context(), rowID)
	if err != nil {
		return out.Fail("manifest.check", err)
	}

	return out.WriteSuccess("manifest.check", map[string]interface{}{
		"rowId":      rowID,
		"fileId":     row.FileID,
		"isManifest": manifest.IsManifestFile(row),
	})
}
