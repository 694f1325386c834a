package cli

import (
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the change queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued rows for a connector",
	RunE:  runQueueList,
}

var (
	queueConnectorID string
	queueAfterID     int64
	queueLimit       int
)

func init() {
	queueListCmd.Flags().StringVar(&queueConnectorID, "connector", "", "Connector id (required)")
	queueListCmd.Flags().Int64Var(&queueAfterID, "after", 0, "Only rows with an id greater than this")
	queueListCmd.Flags().IntVar(&queueLimit, "limit", utils.DefaultPageSize, "Maximum rows to return")

	queueCmd.AddCommand(queueListCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	if queueConnectorID == "" {
		return out.Fail("queue.list", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"--connector is required").Build()))
	}

	env, err := loadEnv()
	if err != nil {
		return out.Fail("queue.list", err)
	}
	defer env.Close()

	rows, err := env.db.ListChangeRows(cmd.Context(), queueConnectorID, queueAfterID, queueLimit)
	if err != nil {
		return out.Fail("queue.list", err)
	}
	out.Verbose("%d rows after id %d", len(rows), queueAfterID)
	return out.WriteSuccess("queue.list", types.ChangeQueueList(rows))
}
