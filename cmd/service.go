package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/node-pulse/apcupsd-exporter/internal/installer"
	"github.com/spf13/cobra"
)

var serviceAfter []string

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the apcupsd-exporter systemd service",
	Long:  `Install, start, stop, restart, status, or uninstall the apcupsd-exporter systemd service.`,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the systemd service",
	Long: `Copies the binary to /usr/local/bin, writes a config file if none exists
and installs and enables the service unit.`,
	RunE: installService,
}

var serviceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the service",
	RunE:  systemctlAction("start", "started"),
}

var serviceStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the service",
	RunE:  systemctlAction("stop", "stopped"),
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the service",
	RunE:  systemctlAction("restart", "restarted"),
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check service status",
	RunE:  statusService,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the systemd service",
	RunE:  uninstallService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(installCmd)
	serviceCmd.AddCommand(serviceStartCmd)
	serviceCmd.AddCommand(serviceStopCmd)
	serviceCmd.AddCommand(restartCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
	serviceCmd.AddCommand(uninstallCmd)

	installCmd.Flags().StringSliceVar(&serviceAfter, "after", []string{"apcupsd.service"}, "units to start after")
}

func installService(cmd *cobra.Command, args []string) error {
	if err := installer.CheckPermissions(); err != nil {
		return err
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	if exePath != installer.DefaultBinaryPath {
		if err := installer.CopyBinary(exePath, installer.DefaultBinaryPath); err != nil {
			return fmt.Errorf("failed to copy binary: %w", err)
		}
		fmt.Printf("Installed binary to %s\n", installer.DefaultBinaryPath)
	}

	configPath := cfgFile
	if configPath == "" {
		configPath = installer.DefaultConfigPath
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	written, err := installer.WriteConfigFile(configPath, cfg, false)
	if err != nil {
		return err
	}
	if written {
		fmt.Printf("Created config file: %s\n", configPath)
	}

	err = installer.InstallUnit(installer.DefaultUnitPath, installer.UnitOptions{
		BinaryPath: installer.DefaultBinaryPath,
		ConfigPath: configPath,
		After:      serviceAfter,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Created service file: %s\n", installer.DefaultUnitPath)

	if err := runSystemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	if err := runSystemctl("enable", installer.ServiceName); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}

	fmt.Println("Service installed and enabled successfully!")
	fmt.Println("\nTo start the service, run:")
	fmt.Printf("  sudo apcupsd-exporter service start\n")
	return nil
}

func systemctlAction(action, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("this command must be run as root (use sudo)")
		}

		if err := runSystemctl(action, installer.ServiceName); err != nil {
			return fmt.Errorf("failed to %s service: %w", action, err)
		}

		fmt.Printf("Service %s successfully!\n", done)
		return nil
	}
}

func statusService(cmd *cobra.Command, args []string) error {
	// Status doesn't require root
	output, err := exec.Command("systemctl", "status", installer.ServiceName).CombinedOutput()
	fmt.Print(string(output))
	return err
}

func uninstallService(cmd *cobra.Command, args []string) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must be run as root (use sudo)")
	}

	runSystemctl("stop", installer.ServiceName)

	if err := runSystemctl("disable", installer.ServiceName); err != nil {
		fmt.Printf("Warning: failed to disable service: %v\n", err)
	}

	if err := installer.UninstallUnit(installer.DefaultUnitPath); err != nil {
		return err
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}

	fmt.Println("Service uninstalled successfully!")
	return nil
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
