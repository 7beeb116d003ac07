/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/config"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the rolodex server",
	Long: `Bootstrap rolodex by creating a configuration with a generated API key
if none exists, then start the REST API server. This is the recommended way
to get rolodex running.

Examples:
  rolodex up
  rolodex up --data-dir ./mydata --port 9000
  rolodex up --config ./custom-config.yaml --print-key`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		printKey, _ := cmd.Flags().GetBool("print-key")

		cfg := configFrom(cmd)
		if err := bootstrapIfNeeded(cmd, cfg, printKey); err != nil {
			return err
		}

		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)
	addServerFlags(upCmd)
	upCmd.Flags().Bool("print-key", false, "Print the generated API key to the console")
}

// bootstrapIfNeeded writes a config with a fresh API key when none exists and
// copies the key into cfg
func bootstrapIfNeeded(cmd *cobra.Command, cfg *config.Config, printKey bool) error {
	path := configPath(cmd)
	if config.ConfigExists(path) {
		cmd.Printf("✅ Loaded existing configuration from %s\n", path)
		return nil
	}

	cmd.Printf("🔧 First run detected. Bootstrapping rolodex...\n")
	created, err := config.BootstrapConfig(path, cfg.DataDir)
	if err != nil {
		return err
	}
	cfg.Security.APIKey = created.Security.APIKey
	cmd.Printf("✅ Configuration created at %s\n", path)

	if printKey {
		cmd.Printf("\n🔑 API Key: %s\n", created.Security.APIKey)
		cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n\n", path)
	}
	return nil
}
