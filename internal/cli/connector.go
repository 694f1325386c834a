package cli

import (
	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/spf13/cobra"
)

var connectorCmd = &cobra.Command{
	Use:   "connector",
	Short: "Connector records",
	Long:  "Create and inspect the per-organization connector records for the configured folder",
}

var connectorEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the connector for an organization if missing",
	RunE:  runConnectorEnsure,
}

var connectorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connectors",
	RunE:  runConnectorList,
}

var (
	connectorOrgID           string
	connectorKnowledgeSource string
)

func init() {
	connectorEnsureCmd.Flags().StringVar(&connectorOrgID, "org", "", "Organization id (required)")
	connectorEnsureCmd.Flags().StringVar(&connectorKnowledgeSource, "knowledge-source", "", "Knowledge source id to link")
	connectorListCmd.Flags().StringVar(&connectorOrgID, "org", "", "Only list connectors for this organization")

	connectorCmd.AddCommand(connectorEnsureCmd)
	connectorCmd.AddCommand(connectorListCmd)
	rootCmd.AddCommand(connectorCmd)
}

func runConnectorEnsure(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	if connectorOrgID == "" {
		return out.Fail("connector.ensure", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"--org is required").Build()))
	}

	env, err := loadEnv()
	if err != nil {
		return out.Fail("connector.ensure", err)
	}
	defer env.Close()

	reg, err := env.registry()
	if err != nil {
		return out.Fail("connector.ensure", err)
	}

	ctx := cmd.Context()
	id, err := reg.EnsureConnectorRecord(ctx, connectorOrgID, connectorKnowledgeSource)
	if err != nil {
		return out.Fail("connector.ensure", err)
	}

	conn, err := env.db.GetConnector(ctx, id)
	if err != nil {
		return out.Fail("connector.ensure", err)
	}
	return out.WriteSuccess("connector.ensure", conn)
}

func runConnectorList(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	env, err := loadEnv()
	if err != nil {
		return out.Fail("connector.list", err)
	}
	defer env.Close()

	connectors, err := env.db.ListConnectors(cmd.Context(), connectorOrgID)
	if err != nil {
		return out.Fail("connector.list", err)
	}
	return out.WriteSuccess("connector.list", types.ConnectorList(connectors))
}
