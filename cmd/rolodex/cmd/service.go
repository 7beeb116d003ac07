/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/rolodex/pkg/config"
)

const (
	serviceName = "rolodex.service"
	unitPath    = "/etc/systemd/system/" + serviceName
)

// runCommand runs a system command; replaced in tests
var runCommand = func(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage rolodex as a systemd service",
	Long: `Manage the rolodex REST API server as a systemd service. The unit runs
"rolodex up" against the given configuration and restarts on failure.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install rolodex as a systemd service",
	Long: `Install rolodex as a systemd service.

This will create the configuration if it is missing, write the unit file and
enable the service.

Examples:
  sudo rolodex service install
  sudo rolodex service install --data-dir /var/lib/rolodex --user rolodex`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		binary, _ := cmd.Flags().GetString("binary")
		startNow, _ := cmd.Flags().GetBool("start")

		if err := requireRoot("service install"); err != nil {
			return err
		}

		cfg := configFrom(cmd)
		applyServerFlags(cmd, cfg)

		path := configPath(cmd)
		if config.ConfigExists(path) {
			cmd.Printf("✅ Loaded existing configuration\n")
		} else {
			created, err := config.BootstrapConfig(path, cfg.DataDir)
			if err != nil {
				return err
			}
			cfg.Security.APIKey = created.Security.APIKey
			cmd.Printf("✅ Created new configuration at %s\n", path)
		}
		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}

		if err := os.WriteFile(unitPath, []byte(systemdUnit(cfg, path, user, binary)), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		if err := systemctl("daemon-reload"); err != nil {
			return err
		}
		if err := systemctl("enable", serviceName); err != nil {
			return err
		}
		cmd.Printf("✅ Service enabled\n")

		if startNow {
			if err := systemctl("start", serviceName); err != nil {
				return err
			}
			cmd.Printf("✅ Service started\n")
		}

		cmd.Printf("Config: %s\nData: %s\nPort: %d\n", path, cfg.DataDir, cfg.Port)
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the rolodex service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireRoot("service uninstall"); err != nil {
			return err
		}

		// already stopped is fine
		_ = systemctl("stop", serviceName)
		if err := systemctl("disable", serviceName); err != nil {
			cmd.PrintErrf("Warning: could not disable service: %v\n", err)
		}

		if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := systemctl("daemon-reload"); err != nil {
			return err
		}

		cmd.Printf("✅ rolodex service uninstalled\n")
		cmd.Printf("Note: Configuration and data files were not removed\n")
		return nil
	},
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show rolodex service logs",
	Long: `Show rolodex service logs using journalctl.

Examples:
  rolodex service logs
  rolodex service logs -f`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// systemctlCmd builds a subcommand that passes action through to systemctl
func systemctlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return systemctl(action, serviceName)
		},
	}
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(uninstallCmd)
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the rolodex service"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the rolodex service"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the rolodex service"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show rolodex service status"))

	addServerFlags(installServiceCmd)
	installServiceCmd.Flags().String("user", "rolodex", "User to run the service as")
	installServiceCmd.Flags().String("binary", "/usr/local/bin/rolodex", "Path of the installed rolodex binary")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for cfg
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=rolodex vCard address book
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s up --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.DataDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

func systemctl(args ...string) error {
	if err := runCommand("systemctl", args...); err != nil {
		return fmt.Errorf("systemctl %v failed: %w", args, err)
	}
	return nil
}

func requireRoot(what string) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("%s requires root privileges (run with sudo)", what)
	}
	return nil
}
