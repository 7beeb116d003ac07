/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/config"
	"github.com/ssargent/rolodex/pkg/di"
	"github.com/ssargent/rolodex/pkg/storage"
	"github.com/ssargent/rolodex/pkg/vcard"
)

var log = logging.Logger("rolodex")

// subsystems whose log level follows logging.level
var subsystems = []string{"rolodex", "vcard", "storage", "api", "mboximport"}

type contextKey string

const (
	configKey contextKey = "config"
	storeKey  contextKey = "store"

	// commands annotated with needsStore get an open store in their context
	needsStore = "needs-store"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rolodex",
	Short: "rolodex - vCard address book",
	Long: `rolodex reads and writes vCards (RFC 2425/2426) and keeps them in an
embedded address book that can be served over a REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := setLogLevel(cfg.Logging.Level); err != nil {
			return err
		}

		ctx := context.WithValue(cmd.Context(), configKey, cfg)
		if cmd.Annotations[needsStore] == "true" {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			ctx = context.WithValue(ctx, storeKey, store)
		}
		cmd.SetContext(ctx)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// execute runs the root command and closes any store it opened
func execute(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if cmd != nil && cmd.Context() != nil {
		if store, ok := cmd.Context().Value(storeKey).(*storage.ContactStore); ok {
			if cerr := store.Close(); cerr != nil {
				log.Errorw("failed to close contact store", "err", cerr)
			}
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the store (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// configPath returns the --config flag or the default config location
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig reads the config file if there is one and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	path := configPath(cmd)
	if config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

func setLogLevel(level string) error {
	if level == "" {
		return nil
	}
	for _, name := range subsystems {
		if err := logging.SetLogLevel(name, level); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return nil
}

func openStore(cfg *config.Config) (*storage.ContactStore, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}

	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	store, err := container.GetStoreFactory().OpenStore(storage.Config{
		Path:        cfg.StorePath(),
		Sync:        cfg.Storage.Sync,
		IndexFields: cfg.Storage.IndexFields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

func storeFrom(cmd *cobra.Command) (*storage.ContactStore, error) {
	store, ok := cmd.Context().Value(storeKey).(*storage.ContactStore)
	if !ok {
		return nil, errors.New("store not found in context")
	}
	return store, nil
}

func decoderFrom(cmd *cobra.Command) *vcard.Decoder {
	return &vcard.Decoder{DecodeCharset: configFrom(cmd).Import.DecodeCharset}
}

// readInput returns the contents of the file named by args[0], or stdin when
// there is no argument or it is "-"
func readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func printWarnings(cmd *cobra.Command, warnings []vcard.Warning) {
	for _, w := range warnings {
		cmd.PrintErrf("warning: %s\n", w.String())
	}
}
