package cli

import (
	"os"

	"github.com/dl-alexandre/gdrv-ingest/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file for a folder",
	RunE:  runConfigInit,
}

var (
	configFolderID      string
	configSharedDriveID string
	configKeyFile       string
	configUseKeyring    bool
)

func init() {
	configInitCmd.Flags().StringVar(&configFolderID, "folder-id", "", "Drive folder to ingest (required)")
	configInitCmd.Flags().StringVar(&configSharedDriveID, "shared-drive-id", "", "Shared drive containing the folder")
	configInitCmd.Flags().StringVar(&configKeyFile, "key-file", "", "Service account key file")
	configInitCmd.Flags().BoolVar(&configUseKeyring, "keyring", false, "Read the service account key from the keyring")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if globalFlags.Config != "" {
		return globalFlags.Config, nil
	}
	return config.GetConfigPath()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	cfg, err := config.Load(globalFlags.Config)
	if err != nil {
		return out.Fail("config.show", err)
	}
	return out.WriteSuccess("config.show", cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	out := newOutput(cmd)
	path, err := configPath()
	if err != nil {
		return out.Fail("config.init", err)
	}

	cfg := config.DefaultConfig()
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		// Re-running init keeps settings not named on the command line
		if loaded, err := config.Load(path); err == nil {
			cfg = loaded
		}
	}
	if configFolderID != "" {
		cfg.FolderID = configFolderID
	}
	if configSharedDriveID != "" {
		cfg.SharedDriveID = configSharedDriveID
	}
	if configKeyFile != "" {
		cfg.ServiceAccountKeyFile = configKeyFile
		cfg.ServiceAccountKeyring = false
	}
	if configUseKeyring {
		cfg.ServiceAccountKeyring = true
		cfg.ServiceAccountKeyFile = ""
	}

	if err := cfg.Save(path); err != nil {
		return out.Fail("config.init", err)
	}
	return out.WriteSuccess("config.init", map[string]interface{}{
		"path":   path,
		"config": cfg,
	})
}
