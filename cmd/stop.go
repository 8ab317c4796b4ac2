package cmd

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/pidfile"
	"github.com/spf13/cobra"
)

var stopPidFile string

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a foreground exporter",
	Long:  `Stops an exporter started outside systemd, found through its PID file.`,
	RunE:  stopExporter,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "PID file path (default: same as serve)")
}

func stopExporter(cmd *cobra.Command, args []string) error {
	path := stopPidFile
	if path == "" {
		path = pidfile.DefaultPath()
	}

	isRunning, pid, err := pidfile.CheckRunning(path)
	if err != nil {
		return fmt.Errorf("failed to check if exporter is running: %w", err)
	}

	if !isRunning {
		fmt.Println("No exporter is running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		pidfile.Remove(path)
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	fmt.Printf("Stopping exporter (PID %d)...\n", pid)

	if err := process.Signal(syscall.SIGTERM); err != nil {
		pidfile.Remove(path)
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	// The HTTP server gets shutdownTimeout to drain, give it a little more
	deadline := time.Now().Add(shutdownTimeout + time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if !pidfile.IsProcessRunning(pid) {
			pidfile.Remove(path)
			fmt.Println("Exporter stopped successfully")
			return nil
		}
	}

	fmt.Println("Exporter didn't stop gracefully, forcing shutdown...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		pidfile.Remove(path)
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	time.Sleep(500 * time.Millisecond)
	pidfile.Remove(path)
	fmt.Println("Exporter stopped (forced)")

	return nil
}
