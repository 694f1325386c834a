package cli

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <row-id>",
	Short: "Download the content a queue row points at",
	Long: `Fetches the file behind a queued row, exporting Google Workspace documents
and downloading allowed binaries, and writes it into --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var resolveOutDir string

func init() {
	resolveCmd.Flags().StringVar(&resolveOutDir, "out", ".", "Directory to write the file into")
	rootCmd.AddCommand(resolveCmd)
}

func parseRowID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"row id must be a positive integer").
			WithContext("rowId", arg).
			Build())
	}
	return id, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	rowID, err := parseRowID(args[0])
	if err != nil {
		return out.Fail("resolve", err)
	}

	env, err := loadEnv()
	if err != nil {
		return out.Fail("resolve", err)
	}
	defer env.Close()

	ctx := cmd.Context()
	row, err := env.db.GetChangeRow(ctx, rowID)
	if err != nil {
		return out.Fail("resolve", err)
	}

	client, err := env.driveClient(ctx)
	if err != nil {
		return out.Fail("resolve", err)
	}
	res, err := env.resolverFor(ctx, client, row)
	if err != nil {
		return out.Fail("resolve", err)
	}

	download, err := res.DownloadDriveFile(ctx, row)
	if err != nil {
		return out.Fail("resolve", err)
	}

	if err := os.MkdirAll(resolveOutDir, 0755); err != nil {
		return out.Fail("resolve", err)
	}
	path := filepath.Join(resolveOutDir, filepath.Base(download.FileName))
	if err := os.WriteFile(path, download.Content, 0644); err != nil {
		return out.Fail("resolve", err)
	}

	out.Log("Wrote %s (%s)", path, formatSize(int64(download.Size)))
	return out.WriteSuccess("resolve", map[string]interface{}{
		"rowId":    rowID,
		"fileId":   row.FileID,
		"path":     path,
		"download": download,
	})
}
