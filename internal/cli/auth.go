package cli

import (
	"os"

	"github.com/dl-alexandre/gdrv-ingest/internal/auth"
	"github.com/dl-alexandre/gdrv-ingest/internal/config"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Service account key management",
}

var authImportKeyCmd = &cobra.Command{
	Use:   "import-key <key-file>",
	Short: "Store a service account key in the system keyring",
	Long: `Validates a service account JSON key and stores it in the system keyring,
or in an encrypted file when no keyring is available. Set
serviceAccountKeyring in the config to use it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthImportKey,
}

var authDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove a stored service account key",
	RunE:  runAuthDeleteKey,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which service account the connector authenticates as",
	RunE:  runAuthStatus,
}

var authKeyName string

func init() {
	for _, c := range []*cobra.Command{authImportKeyCmd, authDeleteKeyCmd} {
		c.Flags().StringVar(&authKeyName, "name", auth.DefaultKeyName, "Name of the stored key")
	}

	authCmd.AddCommand(authImportKeyCmd)
	authCmd.AddCommand(authDeleteKeyCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func authManager() (*auth.Manager, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return auth.NewManager(configDir), nil
}

func runAuthImportKey(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)

	data, _, err := auth.ReadKeyFile(args[0])
	if err != nil {
		return out.Fail("auth.import-key", err)
	}

	mgr, err := authManager()
	if err != nil {
		return out.Fail("auth.import-key", err)
	}
	if warning := mgr.StorageWarning(); warning != "" {
		out.Log("%s", warning)
	}

	key, err := mgr.StoreKey(authKeyName, data)
	if err != nil {
		return out.Fail("auth.import-key", err)
	}

	return out.WriteSuccess("auth.import-key", map[string]interface{}{
		"name":           authKeyName,
		"serviceAccount": key.ClientEmail,
		"projectId":      key.ProjectID,
		"storageBackend": mgr.StorageName(),
	})
}

func runAuthDeleteKey(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	mgr, err := authManager()
	if err != nil {
		return out.Fail("auth.delete-key", err)
	}
	if err := mgr.DeleteKey(authKeyName); err != nil && !os.IsNotExist(err) {
		return out.Fail("auth.delete-key", err)
	}
	return out.WriteSuccess("auth.delete-key", map[string]interface{}{
		"name":           authKeyName,
		"storageBackend": mgr.StorageName(),
	})
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	env, err := loadEnv()
	if err != nil {
		return out.Fail("auth.status", err)
	}
	defer env.Close()

	_, key, err := env.keyData()
	if err != nil {
		return out.Fail("auth.status", err)
	}

	source := "file"
	if env.cfg.ServiceAccountKeyring {
		source = "keyring"
	}
	return out.WriteSuccess("auth.status", map[string]interface{}{
		"serviceAccount":  key.ClientEmail,
		"projectId":       key.ProjectID,
		"keySource":       source,
		"scopes":          env.cfg.Scopes,
		"impersonateUser": env.cfg.ImpersonateUser,
	})
}
