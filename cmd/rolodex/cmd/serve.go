/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/api"
	"github.com/ssargent/rolodex/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the rolodex REST API server using the loaded configuration.
Flags override the configured port, bind address and API key.

Examples:
  rolodex serve
  rolodex serve --api-key=mysecretkey --port=9000`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
	serveCmd.Flags().String("api-key", "", "API key for client authentication (overrides config)")
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	cmd.Flags().Int64("max-body", api.DefaultMaxBodySize, "Largest accepted request body in bytes")
}

// applyServerFlags overrides cfg with the server flags that were set
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Lookup("api-key") != nil && cmd.Flags().Changed("api-key") {
		cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
	}
}

// serverConfig builds the API server configuration, rejecting configs
// without a usable API key
func serverConfig(cmd *cobra.Command, cfg *config.Config) (api.ServerConfig, error) {
	if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
		return api.ServerConfig{}, errors.New("no API key configured; run 'rolodex init' or pass --api-key")
	}

	maxBody, _ := cmd.Flags().GetInt64("max-body")
	return api.ServerConfig{
		Port:          cfg.Port,
		Bind:          cfg.Bind,
		APIKey:        cfg.Security.APIKey,
		DecodeCharset: cfg.Import.DecodeCharset,
		MaxBodySize:   maxBody,
	}, nil
}

func runServer(cmd *cobra.Command, cfg *config.Config) error {
	serverCfg, err := serverConfig(cmd, cfg)
	if err != nil {
		return err
	}

	store, err := storeFrom(cmd)
	if err != nil {
		return err
	}
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	cmd.Printf("🚀 Starting rolodex server on %s:%d\n", cfg.Bind, cfg.Port)
	cmd.Printf("📁 Data directory: %s\n", cfg.DataDir)

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(cmd.Context(), store, serverCfg)
}
