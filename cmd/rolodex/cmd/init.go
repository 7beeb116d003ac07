/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with a generated API key",
	Long: `Write a rolodex configuration file with a freshly generated API key.
An existing file is left alone unless --force is given.

Examples:
  rolodex init
  rolodex init --config ./rolodex.yaml --data-dir ./data --print-key`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		path := configPath(cmd)
		if config.ConfigExists(path) && !force {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}

		cfg, err := config.BootstrapConfig(path, configFrom(cmd).DataDir)
		if err != nil {
			return err
		}

		cmd.Printf("✅ Configuration written to %s\n", path)
		cmd.Printf("📁 Data directory: %s\n", cfg.DataDir)
		if printKey {
			cmd.Printf("🔑 API Key: %s\n", cfg.Security.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
